package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/codecraft/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string

	MemoryBackend string // "map" | "sqlite" | "redis"
	Database      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	Rituals         string
	MaxInstructions int
	Seed            uint64

	ServerAddr string

	// Logger is set by the root command before any subcommand runs.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidBackends defines the allowed memory backends.
var ValidBackends = []string{"map", "sqlite", "redis"}

// NewRootCommand creates the root command for the codecraft CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "codecraft",
		Short: "codecraft - ritual DSL engine",
		Long:  "Parse and execute line-oriented ritual text against the council, memory and emergence collaborators.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config != "" {
				cfg, err := LoadConfig(opts.Config)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid config", err)
				}
				cfg.apply(opts, cmd.Flags())
			}
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if !slices.Contains(ValidBackends, opts.MemoryBackend) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid memory backend %q: must be one of %v", opts.MemoryBackend, ValidBackends))
			}
			opts.Logger = logging.New(cmd.ErrOrStderr(), logging.Level(opts.Verbose))
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Config, "config", "", "path to YAML config file")
	flags.StringVar(&opts.MemoryBackend, "memory-backend", "map", "memory backend (map|sqlite|redis)")
	flags.StringVar(&opts.Database, "db", "codecraft.db", "SQLite database path for the sqlite backend")
	flags.StringVar(&opts.RedisAddr, "redis-addr", "localhost:6379", "Redis address for the redis backend")
	flags.StringVar(&opts.Rituals, "rituals", "", "directory of CUE ritual templates added to the built-in catalog")
	flags.IntVar(&opts.MaxInstructions, "max-instructions", 0, "maximum instructions per ritual (0 = unlimited)")
	flags.Uint64Var(&opts.Seed, "seed", 0, "council random seed (0 = random)")

	// Add subcommands
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewRitualCommand(opts))
	cmd.AddCommand(NewRitualsCommand(opts))
	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewDetectCommand(opts))

	return cmd
}

// formatter builds the output formatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger returns the configured logger, or a nop logger when a subcommand
// runs without the root command (as in tests).
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.NewNop()
	}
	return o.Logger
}

package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/codecraft/internal/emergence"
	"github.com/roach88/codecraft/internal/engine"
)

// DetectOptions holds flags for the detect command.
type DetectOptions struct {
	*RootOptions
	Agent string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DetectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "detect [file|-]",
		Short: "Scan agent messages for emergence markers",
		Long: `Read agent messages one per line and print an emergence event for every
line that matches a marker pattern. Lines without markers print nothing.

Example:
  tail -f agent.log | codecraft detect --agent claude
  codecraft detect --format json transcript.txt`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Agent, "agent", engine.DefaultAgentID, "agent id reported in events")

	return cmd
}

func runDetect(opts *DetectOptions, args []string, cmd *cobra.Command) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "read messages", err)
		}
		defer f.Close()
		in = f
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanErr <- scanLines(ctx, in, lines)
	}()

	formatter := opts.formatter(cmd)
	detector := emergence.New(emergence.WithLogger(opts.logger()))

	var writeErr error
	events := 0
	err := detector.Monitor(ctx, lines, opts.Agent, func(ev emergence.Event) {
		if writeErr != nil {
			return
		}
		events++
		if writeErr = formatter.Success(ev.ToValue()); writeErr != nil {
			cancel()
		}
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		return err
	}
	if err := <-scanErr; err != nil {
		return WrapExitError(ExitCommandError, "read messages", err)
	}

	formatter.VerboseLog("%d emergence events", events)
	return nil
}

// scanLines sends each line of r to out until r is exhausted or ctx is done.
func scanLines(ctx context.Context, r io.Reader, out chan<- string) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxMessageBytes)
	for sc.Scan() {
		select {
		case out <- sc.Text():
		case <-ctx.Done():
			return nil
		}
	}
	return sc.Err()
}

// MaxMessageBytes caps one message line read by detect.
const MaxMessageBytes = 1 << 20

package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/codecraft/internal/parser"
)

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	var expr string

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Print the instructions parsed from ritual text",
		Long: `Parse ritual text without executing it and print the instruction list.

Lines that match no rule are skipped; run with --verbose to see them.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := ritualText(expr, args, cmd.InOrStdin())
			if err != nil {
				return WrapExitError(ExitCommandError, "read ritual", err)
			}
			p := parser.New(parser.WithLogger(rootOpts.logger()))
			return rootOpts.formatter(cmd).Success(p.Parse(text).ToValue())
		},
	}

	cmd.Flags().StringVarP(&expr, "expr", "e", "", "ritual text to parse")

	return cmd
}

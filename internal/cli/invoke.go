package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/codecraft/internal/engine"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Expr string
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke [file|-]",
		Short: "Parse and execute ritual text",
		Long: `Parse and execute ritual text and print the outcome.

The text is read from the named file, from stdin when the argument is "-"
or omitted, or from --expr.

Example:
  codecraft invoke ritual.txt
  codecraft invoke -e "::summon.council(['ACE','BRANDY'])"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "ritual text to execute")

	return cmd
}

func runInvoke(opts *InvokeOptions, args []string, cmd *cobra.Command) error {
	text, err := ritualText(opts.Expr, args, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "read ritual", err)
	}

	rt, err := NewRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	outcome := rt.Engine.Invoke(cmd.Context(), text)
	return outputOutcome(opts.formatter(cmd), outcome)
}

// ritualText picks the ritual source: expr, then a file argument, then stdin.
func ritualText(expr string, args []string, stdin io.Reader) (string, error) {
	if expr != "" {
		if len(args) > 0 {
			return "", fmt.Errorf("--expr cannot be combined with a file argument")
		}
		return expr, nil
	}
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	return string(data), err
}

// outputOutcome prints the outcome. An error outcome is still printed in
// full and then reported as a failure exit.
func outputOutcome(formatter *OutputFormatter, outcome engine.Outcome) error {
	if err := formatter.Success(outcome); err != nil {
		return err
	}
	if !outcome.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("ritual failed: %v", outcome.Output))
	}
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/ritual"
)

// NewRitualCommand creates the ritual command.
func NewRitualCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ritual <name> [key=value...|json]",
		Short: "Render and execute a named ritual template",
		Long: `Render a named ritual template with parameters and execute it.

Parameters are either a single JSON object or key=value pairs. Each value
is decoded as JSON when it parses, otherwise it is taken as a string.

Example:
  codecraft ritual brandy_gauntlet
  codecraft ritual greet name=ACE
  codecraft ritual greet '{"name":"ACE"}'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRitual(rootOpts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runRitual(opts *RootOptions, name string, rawParams []string, cmd *cobra.Command) error {
	params, err := ParseParams(rawParams)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid ritual parameters", err)
	}

	rt, err := NewRuntime(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	formatter := opts.formatter(cmd)
	formatter.VerboseLog("Executing ritual: %s", name)

	outcome, err := rt.Engine.ExecuteRitual(cmd.Context(), name, params)
	if err != nil {
		if errors.Is(err, ritual.ErrUnknownRitual) {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), rt.Engine.Catalog().Names())
		}
		return WrapExitError(ExitCommandError, "execute ritual", err)
	}
	return outputOutcome(formatter, outcome)
}

// ParseParams turns ritual arguments into template parameters.
//
// A single argument starting with '{' that decodes as a JSON object is used
// as is. Otherwise each argument is a key=value pair split at the first '=';
// the value is decoded as JSON when possible and kept as a string when not.
func ParseParams(args []string) (ir.Object, error) {
	params := ir.Object{}
	if len(args) == 0 {
		return params, nil
	}

	if len(args) == 1 && strings.HasPrefix(args[0], "{") {
		if v, err := ir.DecodeJSON([]byte(args[0])); err == nil {
			if obj, ok := v.(ir.Object); ok {
				return obj, nil
			}
		}
	}

	for _, arg := range args {
		key, raw, _ := strings.Cut(arg, "=")
		if key == "" {
			return nil, fmt.Errorf("parameter %q has no key", arg)
		}
		v, err := ir.DecodeJSON([]byte(raw))
		if err != nil {
			v = ir.String(raw)
		}
		params[key] = v
	}
	return params, nil
}

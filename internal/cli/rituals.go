package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/codecraft/internal/ir"
)

// NewRitualsCommand creates the rituals command.
func NewRitualsCommand(rootOpts *RootOptions) *cobra.Command {
	var showText bool

	cmd := &cobra.Command{
		Use:           "rituals",
		Short:         "List the named ritual templates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRituals(rootOpts, showText, cmd)
		},
	}

	cmd.Flags().BoolVar(&showText, "text", false, "include each template's text")

	return cmd
}

func runRituals(opts *RootOptions, showText bool, cmd *cobra.Command) error {
	catalog, err := LoadCatalog(opts.Rituals)
	if err != nil {
		return err
	}
	templates := catalog.Templates()
	formatter := opts.formatter(cmd)

	if formatter.Format == "json" {
		list := make(ir.Array, len(templates))
		for i, t := range templates {
			obj := ir.NewObject(
				ir.O("name", ir.String(t.Name)),
				ir.O("description", ir.String(t.Description)),
			)
			if showText {
				obj["text"] = ir.String(t.Text)
			}
			list[i] = obj
		}
		return formatter.Success(list)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	for _, t := range templates {
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, t.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if showText {
		for _, t := range templates {
			fmt.Fprintf(formatter.Writer, "\n# %s\n%s\n", t.Name, t.Text)
		}
	}
	return nil
}

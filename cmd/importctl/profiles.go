package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/JonMunkholm/nexus-import/internal/core"
	"github.com/spf13/cobra"
)

func newProfilesCmd(withRuntime runtimeWrapper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List instrument profiles and their fields",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			profiles := core.All()
			if asJSON {
				return printJSON(rt.out, profiles)
			}

			tw := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
			for _, p := range profiles {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Info.Key, p.Info.Label, p.Info.Source)
				for _, f := range p.Fields {
					fmt.Fprintf(tw, "\t%s\t%s\n", f.Name, f.Role)
				}
			}
			return tw.Flush()
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print profiles as JSON")
	return cmd
}

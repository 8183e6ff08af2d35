package main

import (
	"fmt"

	"github.com/JonMunkholm/nexus-import/internal/core"
	"github.com/spf13/cobra"
)

func newMappingCmd(withRuntime runtimeWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Show, set or clear a profile's stored column mapping",
	}

	show := &cobra.Command{
		Use:   "show PROFILE",
		Short: "Print the stored mapping",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			m, err := rt.app.Service.LoadMapping(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if m == nil {
				m = core.FieldMapping{}
			}
			return printJSON(rt.out, m)
		}),
	}

	set := &cobra.Command{
		Use:   "set PROFILE field=header...",
		Short: "Replace the stored mapping",
		Args:  cobra.MinimumNArgs(2),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			selections, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			if err := rt.app.Service.SaveMapping(cmd.Context(), args[0], core.FieldMapping(selections)); err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "stored mapping for %s\n", args[0])
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear PROFILE",
		Short: "Forget the stored mapping; later imports guess again",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			if err := rt.app.Service.ClearMapping(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "cleared mapping for %s\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(show, set, clearCmd)
	return cmd
}

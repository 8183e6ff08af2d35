package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/nexus-import/internal/core"
	"github.com/spf13/cobra"
)

func newSessionsCmd(withRuntime runtimeWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List or clear saved sessions",
	}

	var (
		filter core.SessionFilter
		asJSON bool
	)
	list := &cobra.Command{
		Use:   "list PROFILE",
		Short: "List saved sessions, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			sessions, err := rt.app.Service.ListSessions(cmd.Context(), args[0], filter)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(rt.out, sessions)
			}

			tw := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEQUIPMENT\tJOB\tCAPTURED\tROWS\tPASS\tFAIL")
			for _, s := range sessions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					s.ID, s.EquipmentID, s.JobID, s.CapturedAt.Format(time.RFC3339),
					s.Summary.RowCount, s.Summary.PassCount, s.Summary.FailCount)
			}
			return tw.Flush()
		}),
	}
	list.Flags().StringVar(&filter.EquipmentID, "eq", "", "Only sessions for this equipment ID")
	list.Flags().StringVar(&filter.JobID, "job", "", "Only sessions for this job or building ID")
	list.Flags().BoolVar(&asJSON, "json", false, "Print full sessions as JSON")

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear PROFILE",
		Short: "Delete every saved session of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			if !yes {
				return withCode(exitUsage, fmt.Errorf("refusing to clear %s sessions without --yes", args[0]))
			}
			if err := rt.app.Service.ClearSessions(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "cleared %s sessions\n", args[0])
			return nil
		}),
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	cmd.AddCommand(list, clearCmd)
	return cmd
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/nexus-import/internal/core"
	"github.com/spf13/cobra"
)

type parseOptions struct {
	profile     string
	equipmentID string
	jobID       string
}

func (o *parseOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.profile, "profile", "p", "", "Instrument profile (required)")
	cmd.Flags().StringVar(&o.equipmentID, "eq", "", "Equipment ID")
	cmd.Flags().StringVar(&o.jobID, "job", "", "Job or building ID")
	_ = cmd.MarkFlagRequired("profile")
}

// parseFile runs a parse of path through the service.
func parseFile(cmd *cobra.Command, rt *runtime, opts parseOptions, path string) (*core.Preview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	return rt.app.Service.Parse(cmd.Context(), core.ParseRequest{
		Profile:     opts.profile,
		EquipmentID: opts.equipmentID,
		JobID:       opts.jobID,
		FileName:    filepath.Base(path),
		Body:        f,
	})
}

func newParseCmd(withRuntime runtimeWrapper) *cobra.Command {
	var opts parseOptions

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse an export and print the preview without saving",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			pv, err := parseFile(cmd, rt, opts, args[0])
			if pv != nil {
				if perr := printJSON(rt.out, pv); perr != nil {
					return perr
				}
			}
			var me *core.MappingError
			if errors.As(err, &me) {
				return withCode(exitNeedsMapping, err)
			}
			return err
		}),
	}

	opts.bind(cmd)
	return cmd
}

func newImportCmd(withRuntime runtimeWrapper) *cobra.Command {
	var (
		opts      parseOptions
		sessionID string
		mapping   []string
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Parse an export and save it as a session",
		Long: `Parse an export and save it as a session.

Pass --map field=header to choose columns yourself, either because they
cannot be matched automatically or to override a detected column. Fields not
given keep the detected column. The selection is stored and used for later
imports of the same layout.`,
		Args: cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			selections, err := parseAssignments(mapping)
			if err != nil {
				return err
			}

			pv, err := parseFile(cmd, rt, opts, args[0])
			var me *core.MappingError
			needsMapping := errors.As(err, &me)
			switch {
			case err != nil && !needsMapping:
				return err
			case len(selections) > 0:
				pv, err = rt.app.Service.Resolve(cmd.Context(), pv.CandidateID, mergeSelections(pv, selections))
				switch {
				case errors.As(err, &me):
					return withCode(exitNeedsMapping, err)
				case errors.Is(err, core.ErrUnknownHeader):
					return withCode(exitUsage, err)
				case err != nil:
					return err
				}
			case needsMapping:
				if perr := printJSON(cmd.ErrOrStderr(), pv.Prompt); perr != nil {
					return perr
				}
				return withCode(exitNeedsMapping, err)
			}

			session, err := rt.app.Service.Save(cmd.Context(), pv.CandidateID, core.SaveRequest{ID: sessionID})
			if err != nil {
				return err
			}
			return printJSON(rt.out, session)
		}),
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&sessionID, "id", "", "Replace the session with this id instead of adding one")
	cmd.Flags().StringArrayVar(&mapping, "map", nil, "Column selection as field=header (repeatable)")
	return cmd
}

// mergeSelections starts from the prompt's pre-selected columns, or the
// mapping in use when there is no prompt, and applies the explicit
// selections on top.
func mergeSelections(pv *core.Preview, explicit map[core.Field]string) map[core.Field]string {
	out := make(map[core.Field]string)
	if pv.Prompt != nil {
		for _, f := range pv.Prompt.Fields {
			out[f.Field] = f.Selected
		}
	} else {
		for f, h := range pv.Mapping {
			out[f] = h
		}
	}
	for f, h := range explicit {
		out[f] = h
	}
	return out
}

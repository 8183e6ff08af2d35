// Command importctl runs instrument imports from the command line against
// the same storage the server uses.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/JonMunkholm/nexus-import/internal/app"
	"github.com/JonMunkholm/nexus-import/internal/config"
	"github.com/JonMunkholm/nexus-import/internal/core"
	"github.com/JonMunkholm/nexus-import/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	exitFailure      = 1
	exitUsage        = 2
	exitNeedsMapping = 3
)

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

type globalOptions struct {
	envFile  string
	driver   string
	logLevel string
}

// runtime is what every subcommand needs once configuration is loaded.
type runtime struct {
	app *app.App
	out io.Writer
	log *slog.Logger
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		reportError(os.Stderr, err)

		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitFailure)
	}
}

// reportError prints the coded user message with the technical detail under
// it, or just the error when it has no user message.
func reportError(w io.Writer, err error) {
	if !core.IsUserFacing(err) {
		fmt.Fprintln(w, "error:", err)
		return
	}
	fmt.Fprintln(w, core.FormatUserError(err))
	fmt.Fprintln(w, "  detail:", err)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts globalOptions

	root := &cobra.Command{
		Use:           "importctl",
		Short:         "Import megohmmeter and torque exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Load environment from this file (default: .env if present)")
	root.PersistentFlags().StringVar(&opts.driver, "store", "", "Storage driver override: sqlite, file, memory")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	// withRuntime loads config, opens storage and closes it after fn.
	var withRuntime runtimeWrapper = func(fn func(cmd *cobra.Command, args []string, rt *runtime) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return withCode(exitUsage, err)
			}

			log := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					log.Warn("close failed", "error", err)
				}
			}()

			return fn(cmd, args, &runtime{app: a, out: cmd.OutOrStdout(), log: log})
		}
	}

	root.AddCommand(
		newProfilesCmd(withRuntime),
		newParseCmd(withRuntime),
		newImportCmd(withRuntime),
		newSessionsCmd(withRuntime),
		newMappingCmd(withRuntime),
	)
	return root
}

// runtimeWrapper adapts a runtime-aware handler to cobra's RunE.
type runtimeWrapper func(fn func(cmd *cobra.Command, args []string, rt *runtime) error) func(*cobra.Command, []string) error

func loadConfig(opts globalOptions) (*config.Config, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.driver != "" {
		cfg.Storage.Driver = opts.driver
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAssignments turns field=header pairs into a mapping.
func parseAssignments(pairs []string) (map[core.Field]string, error) {
	out := make(map[core.Field]string, len(pairs))
	for _, pair := range pairs {
		field, header, ok := strings.Cut(pair, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, withCode(exitUsage, fmt.Errorf("invalid mapping %q, want field=header", pair))
		}
		out[core.Field(field)] = strings.TrimSpace(header)
	}
	return out, nil
}

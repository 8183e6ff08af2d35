// Package app wires configuration, storage and the import service together
// for the server and the command-line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/nexus-import/internal/config"
	"github.com/JonMunkholm/nexus-import/internal/core"
	_ "github.com/JonMunkholm/nexus-import/internal/core/profiles" // Register instrument profiles
	"github.com/JonMunkholm/nexus-import/internal/store"
)

// App holds the running import service and the resources behind it.
type App struct {
	Service *core.Service
	Store   *store.Store

	dispatcher *store.MirrorDispatcher
	mirror     *store.PostgresMirror
	log        *slog.Logger
}

// New opens storage and the optional mirror, applies profile overrides and
// builds the service. Call Close when done.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	if err := ApplyProfileOverrides(cfg.Import.ProfilesFile); err != nil {
		return nil, err
	}

	backend, err := OpenBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	a := &App{log: log}
	if cfg.Mirror.Enabled() {
		mirror, err := store.OpenPostgresMirror(ctx, store.PostgresConfig{
			URL:             cfg.Mirror.DatabaseURL,
			MaxConns:        cfg.Mirror.MaxConns,
			MaxConnLifetime: cfg.Mirror.MaxConnLifetime,
		})
		if err != nil {
			backend.Close()
			return nil, err
		}
		a.mirror = mirror
		a.dispatcher = store.NewMirrorDispatcher(mirror, cfg.Mirror.Timeout, log.With("component", "mirror"))
		log.Info("session mirror enabled")
	}

	a.Store = store.New(backend, a.dispatcher, log.With("component", "store"))
	a.Service = core.NewService(a.Store, a.Store, core.Options{
		PreviewRows:        cfg.Import.PreviewRows,
		MaxFileSize:        cfg.Import.MaxFileSize,
		MaxConcurrent:      cfg.Import.MaxConcurrent,
		MaxWait:            cfg.Import.MaxWaitTime,
		CandidateRetention: cfg.Import.CandidateRetention,
		Logger:             log,
	})

	log.Info("import service ready",
		"storage", strings.ToLower(cfg.Storage.Driver),
		"profiles", core.ProfileCount(),
	)
	return a, nil
}

// Close flushes pending mirror deliveries, then releases storage.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain mirror: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.mirror != nil {
		a.mirror.Close()
	}
	return errors.Join(errs...)
}

// OpenBackend opens the storage backend named by cfg.Driver.
func OpenBackend(ctx context.Context, cfg config.StorageConfig) (store.Backend, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return store.OpenSQLite(ctx, cfg.SQLitePath)
	case "file":
		return store.OpenFile(cfg.Dir)
	case "memory":
		return store.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ApplyProfileOverrides loads the YAML overrides file, if any, and prepends
// its synonyms to the registered profiles.
func ApplyProfileOverrides(path string) error {
	overrides, err := config.LoadProfileOverrides(path)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(overrides.Profiles))
	for k := range overrides.Profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for field, synonyms := range overrides.Profiles[key].Synonyms {
			if err := core.ExtendSynonyms(key, core.Field(field), synonyms); err != nil {
				return fmt.Errorf("profile overrides: %w", err)
			}
		}
	}
	return nil
}

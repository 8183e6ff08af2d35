package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load builds the importer configuration from the process environment
// (SERVER_*, STORE_*, MIRROR_*, IMPORT_*, TRUSTED_PROXIES, API_KEYS, LOG_*)
// and validates it. Callers load a .env file first if they want one.
func Load() (*Config, error) {
	return LoadWith(os.Getenv)
}

// LoadWith is Load with a custom variable lookup, used by tests and by the
// CLI's overrides.
func LoadWith(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadStruct fills the tagged fields of v, descending into nested sections.
//
// Tags: env names the variable, envAlt a fallback variable (DATABASE_URL for
// the mirror), default the value used when both are unset, and
// required:"true" makes an unset variable an error.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv, getenv); err != nil {
				return err
			}
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}

		raw, err := lookup(sf.Tag, name, getenv)
		if err != nil {
			return err
		}
		if raw == "" {
			continue
		}
		if err := assign(fv, raw); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, raw, err)
		}
	}

	return nil
}

// lookup resolves one tagged variable: primary, then alternate, then default.
func lookup(tag reflect.StructTag, name string, getenv func(string) string) (string, error) {
	if v := getenv(name); v != "" {
		return v, nil
	}
	if alt := tag.Get("envAlt"); alt != "" {
		if v := getenv(alt); v != "" {
			return v, nil
		}
	}
	if tag.Get("required") == "true" {
		return "", fmt.Errorf("required environment variable %s is not set", name)
	}
	return tag.Get("default"), nil
}

// assign converts raw to the field's type. Durations use time.ParseDuration
// ("30s", "5m"); string slices are comma separated with blanks dropped
// (TRUSTED_PROXIES, API_KEYS).
func assign(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		fv.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		fv.SetBool(b)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", fv.Type().Elem().Kind())
		}
		var items []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		fv.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type: %s", fv.Kind())
	}
	return nil
}

// Validate reports every invalid setting at once, one per line, so an
// operator can fix a broken .env in a single pass.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Storage validation
	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, "STORE_SQLITE_PATH is required for the sqlite driver")
		}
	case "file":
		if c.Storage.Dir == "" {
			errs = append(errs, "STORE_DIR is required for the file driver")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER (%q) must be one of: sqlite, file, memory", c.Storage.Driver))
	}

	// Mirror validation
	if c.Mirror.Enabled() {
		if c.Mirror.MaxConns <= 0 {
			errs = append(errs, "MIRROR_MAX_CONNS must be positive")
		}
		if c.Mirror.Timeout <= 0 {
			errs = append(errs, "MIRROR_TIMEOUT must be positive")
		}
	}

	// Import validation
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.PreviewRows <= 0 {
		errs = append(errs, "IMPORT_PREVIEW_ROWS must be positive")
	}
	if c.Import.CandidateRetention <= 0 {
		errs = append(errs, "IMPORT_CANDIDATE_RETENTION must be positive")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "API_KEYS is required when REQUIRE_API_KEY is true")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String summarizes the configuration for the startup log. The mirror URL
// and the API keys are never printed.
func (c *Config) String() string {
	mirror := "disabled"
	if c.Mirror.Enabled() {
		mirror = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Storage: {Driver: %q, Dir: %q, SQLitePath: %q}, ",
		c.Storage.Driver, c.Storage.Dir, c.Storage.SQLitePath)
	fmt.Fprintf(&b, "Mirror: {URL: %s, MaxConns: %d}, ", mirror, c.Mirror.MaxConns)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxConcurrent: %d, PreviewRows: %d}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.PreviewRows)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %t, APIKeys: %d, TrustedProxies: %v}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys), c.Security.TrustedProxies)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

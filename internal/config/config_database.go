package config

import (
	"errors"
	"os"
	"strings"
)

// ErrMissingDatabaseURL is the fatal startup error when neither
// ARCHESTRA_DATABASE_URL nor DATABASE_URL is set.
var ErrMissingDatabaseURL = errors.New("Database URL is not set. Please set ARCHESTRA_DATABASE_URL or DATABASE_URL")

// DatabaseConfig resolves the backing store's connection string. URL is
// preferred from ARCHESTRA_DATABASE_URL, falling back to DATABASE_URL; a
// config file may also set it directly for local sqlite development
// (sqlite:// URLs never come from the env in practice).
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

func defaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{}
}

// applyEnv resolves ARCHESTRA_DATABASE_URL / DATABASE_URL over any
// file-configured value, then requires a non-empty result.
func (d *DatabaseConfig) applyEnv() error {
	if v := os.Getenv("ARCHESTRA_DATABASE_URL"); v != "" {
		d.URL = v
	} else if v := os.Getenv("DATABASE_URL"); v != "" {
		d.URL = v
	}
	if strings.TrimSpace(d.URL) == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// IsSQLite reports whether URL names the pure-Go sqlite backend (a bare
// filesystem path or a "sqlite://" / "file:" URL) rather than Postgres.
func (d DatabaseConfig) IsSQLite() bool {
	return strings.HasPrefix(d.URL, "sqlite://") ||
		strings.HasPrefix(d.URL, "file:") ||
		!strings.Contains(d.URL, "://")
}

// Path strips a sqlite:// or file: prefix, returning the bare path/DSN that
// NewSQLiteStore expects.
func (d DatabaseConfig) Path() string {
	switch {
	case strings.HasPrefix(d.URL, "sqlite://"):
		return strings.TrimPrefix(d.URL, "sqlite://")
	case strings.HasPrefix(d.URL, "file:"):
		return strings.TrimPrefix(d.URL, "file:")
	default:
		return d.URL
	}
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresConfig configures connection pooling for the Postgres backend.
type PostgresConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns the pool settings used when the caller
// doesn't override them.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// NewPostgresStore opens a Postgres-backed Store from dsn, applies Schema,
// and returns the wired Store. dsn must be non-empty; the caller (cmd/ or
// config) is responsible for resolving ARCHESTRA_DATABASE_URL / DATABASE_URL.
func NewPostgresStore(dsn string, config *PostgresConfig) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultPostgresConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return newStore(db, DialectPostgres), nil
}

func newStore(db *sql.DB, dialect Dialect) *Store {
	base := newSQLStore(db, dialect)
	return &Store{
		Agents:               &agentStore{base},
		Tools:                &toolStore{base},
		ToolInvocationPolicy: &invocationPolicyStore{base},
		TrustedDataPolicy:    &trustedDataPolicyStore{base},
		Chats:                &chatStore{base},
		Interactions:         &interactionStore{base},
		DualLlmConfig:        &dualLlmConfigStore{base},
		DualLlmResults:       &dualLlmResultStore{base},
		closer:               db.Close,
	}
}

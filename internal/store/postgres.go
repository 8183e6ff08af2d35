package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/nexus-import/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const mirrorSchema = `
CREATE TABLE IF NOT EXISTS import_session_mirror (
	collection_key TEXT        NOT NULL,
	session_id     TEXT        NOT NULL,
	profile        TEXT        NOT NULL,
	equipment_id   TEXT        NOT NULL,
	job_id         TEXT        NOT NULL DEFAULT '',
	position       INT         NOT NULL,
	captured_at    TIMESTAMPTZ NOT NULL,
	payload        JSONB       NOT NULL,
	mirrored_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection_key, session_id)
)`

// PostgresMirror copies session collections into PostgreSQL. Each delivery
// replaces the collection's rows inside one transaction.
type PostgresMirror struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds mirror connection settings.
type PostgresConfig struct {
	URL             string
	MaxConns        int
	MaxConnLifetime time.Duration
}

// OpenPostgresMirror connects, verifies the connection and creates the
// mirror table.
func OpenPostgresMirror(ctx context.Context, cfg PostgresConfig) (*PostgresMirror, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse mirror database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect mirror database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping mirror database: %w", err)
	}
	if _, err := pool.Exec(ctx, mirrorSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create mirror schema: %w", err)
	}

	return &PostgresMirror{pool: pool}, nil
}

// Mirror replaces the stored copy of the collection.
func (m *PostgresMirror) Mirror(ctx context.Context, p core.ProfileInfo, sessions []core.ImportSession) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mirror tx: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM import_session_mirror WHERE collection_key = $1`, p.SessionsKey); err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}

	batch := &pgx.Batch{}
	for i, s := range sessions {
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", s.ID, err)
		}
		batch.Queue(`
			INSERT INTO import_session_mirror
				(collection_key, session_id, profile, equipment_id, job_id, position, captured_at, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, p.SessionsKey, s.ID, p.Key, s.EquipmentID, s.JobID, i, s.CapturedAt, payload)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert mirror rows: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit mirror tx: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (m *PostgresMirror) Close() {
	m.pool.Close()
}

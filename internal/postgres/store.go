// Package postgres implements the persistence port over PostgreSQL.
//
// The layout mirrors the sqlite port: one states table per database with an
// entity_type discriminator and a JSONB attrs column, reached in predicates
// through the ->> operator. Timestamps use timestamptz natively instead of
// the text encoding the sqlite port needs.
package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS states (
    rid                BIGSERIAL PRIMARY KEY,
    entity_type        TEXT        NOT NULL,
    id                 BIGINT      NOT NULL,
    tenant_id          TEXT        NOT NULL,
    current_flag       BOOLEAN     NOT NULL DEFAULT FALSE,
    delete_flag        BOOLEAN     NOT NULL DEFAULT FALSE,
    active_range_start TIMESTAMPTZ NOT NULL,
    active_range_end   TIMESTAMPTZ,
    editing_user_id    TEXT        NOT NULL DEFAULT '',
    editing_system_id  TEXT        NOT NULL DEFAULT '',
    ord                DOUBLE PRECISION NOT NULL DEFAULT 0,
    attrs              JSONB,
    relationships      JSONB
);

CREATE INDEX IF NOT EXISTS idx_states_current
    ON states(entity_type, tenant_id, current_flag);

CREATE INDEX IF NOT EXISTS idx_states_entity
    ON states(entity_type, tenant_id, id);
`

// Store is the PostgreSQL-backed persistence port.
type Store struct {
	db *sql.DB
}

// Open connects with the given DSN, configures the pool and creates the
// schema if missing. Idempotent.
func Open(dsn string, maxConns, maxIdle int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Package storage - postgres.go
// PostgreSQL connection and schema, shared by the save and event repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// InitPostgres connects to PostgreSQL through pgx and creates the schemas.
func InitPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	if err := createSchemas(db, postgresSchemas); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}
	return db, nil
}

var postgresSchemas = []string{
	`CREATE TABLE IF NOT EXISTS save_slots (
		slot TEXT PRIMARY KEY,
		tree TEXT NOT NULL,
		ut DOUBLE PRECISION NOT NULL,
		saved_at BIGINT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS events (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		slot TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		event_type TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		crew_name TEXT NOT NULL,
		ut DOUBLE PRECISION NOT NULL,
		payload TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_events_slot ON events(slot);`,
	`CREATE INDEX IF NOT EXISTS idx_events_crew ON events(slot, crew_name);`,
}

// NewPostgresEventRepository creates an event repository over a pgx-backed db.
func NewPostgresEventRepository(db *sql.DB) *SQLEventRepository {
	return &SQLEventRepository{db: db, dialect: dialectPostgres}
}

// NewPostgresSaveRepository creates a save repository over a pgx-backed db.
func NewPostgresSaveRepository(db *sql.DB) *SQLSaveRepository {
	return &SQLSaveRepository{db: db, dialect: dialectPostgres}
}

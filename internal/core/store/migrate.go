package store

import (
	"context"
	"errors"
	"fmt"
)

// Column types are chosen so the same DDL runs on libsql and postgres.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
		job_id TEXT PRIMARY KEY,
		input_key TEXT NOT NULL,
		project_input TEXT NOT NULL,
		project_type TEXT NOT NULL DEFAULT '',
		wallet_address TEXT NOT NULL DEFAULT '',
		response_json TEXT NOT NULL,
		created_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_input_key ON analyses(input_key, created_at);`,
	`CREATE TABLE IF NOT EXISTS votes (
		job_id TEXT PRIMARY KEY,
		up INTEGER NOT NULL DEFAULT 0,
		down INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		endpoint TEXT PRIMARY KEY,
		request_count INTEGER NOT NULL DEFAULT 0,
		window_start BIGINT NOT NULL,
		backoff_until BIGINT,
		last_429_at BIGINT
	);`,
	`CREATE TABLE IF NOT EXISTS payments (
		tx_hash TEXT PRIMARY KEY,
		input_key TEXT NOT NULL,
		wallet_address TEXT NOT NULL DEFAULT '',
		claimed_at BIGINT NOT NULL
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aptoseidon/aptoseidon/internal/core"
)

// Save persists a paid analysis response and initializes its vote tally.
// Saving the same job id again replaces the stored response.
func (s *Store) Save(ctx context.Context, a core.StoredAnalysis) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	jobID := strings.TrimSpace(a.JobID)
	if jobID == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(a.InputKey) == "" {
		return errors.New("input key is required")
	}

	payload, err := json.Marshal(a.Response)
	if err != nil {
		return fmt.Errorf("marshal analysis response: %w", err)
	}

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save analysis: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO analyses (job_id, input_key, project_input, project_type, wallet_address, response_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			input_key = excluded.input_key,
			project_input = excluded.project_input,
			project_type = excluded.project_type,
			wallet_address = excluded.wallet_address,
			response_json = excluded.response_json,
			created_at = excluded.created_at
	`), jobID, a.InputKey, a.ProjectInput, a.ProjectType, a.WalletAddress, string(payload), createdAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store analysis: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO votes (job_id, up, down)
		VALUES (?, 0, 0)
		ON CONFLICT(job_id) DO NOTHING
	`), jobID)
	if err != nil {
		return fmt.Errorf("initialize votes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analysis: %w", err)
	}
	return nil
}

// LoadLatestByInputKey returns the newest analysis stored under inputKey, or
// nil when there is none.
func (s *Store) LoadLatestByInputKey(ctx context.Context, inputKey string) (*core.StoredAnalysis, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	inputKey = strings.TrimSpace(inputKey)
	if inputKey == "" {
		return nil, errors.New("input key is required")
	}

	var (
		a         core.StoredAnalysis
		payload   string
		createdAt int64
	)
	row := s.DB.QueryRowContext(ctx, s.rebind(`
		SELECT job_id, input_key, project_input, project_type, wallet_address, response_json, created_at
		FROM analyses
		WHERE input_key = ?
		ORDER BY created_at DESC, job_id DESC
		LIMIT 1
	`), inputKey)
	if err := row.Scan(&a.JobID, &a.InputKey, &a.ProjectInput, &a.ProjectType, &a.WalletAddress, &payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch analysis: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &a.Response); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &a, nil
}

// RecordVote adds one vote to a job's tally, creating the tally if needed.
func (s *Store) RecordVote(ctx context.Context, jobID, rating string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return errors.New("job id is required")
	}

	var query string
	switch rating {
	case core.RatingUp:
		query = `
			INSERT INTO votes (job_id, up, down) VALUES (?, 1, 0)
			ON CONFLICT(job_id) DO UPDATE SET up = votes.up + 1`
	case core.RatingDown:
		query = `
			INSERT INTO votes (job_id, up, down) VALUES (?, 0, 1)
			ON CONFLICT(job_id) DO UPDATE SET down = votes.down + 1`
	default:
		return fmt.Errorf("invalid rating %q", rating)
	}

	if _, err := s.DB.ExecContext(ctx, s.rebind(query), jobID); err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	return nil
}

// GetVotes returns a job's tally; unknown jobs have zero votes.
func (s *Store) GetVotes(ctx context.Context, jobID string) (core.VoteTally, error) {
	tally := core.VoteTally{JobID: strings.TrimSpace(jobID)}
	if s == nil || s.DB == nil {
		return tally, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if tally.JobID == "" {
		return tally, errors.New("job id is required")
	}

	row := s.DB.QueryRowContext(ctx, s.rebind(`SELECT up, down FROM votes WHERE job_id = ?`), tally.JobID)
	if err := row.Scan(&tally.Up, &tally.Down); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tally, nil
		}
		return tally, fmt.Errorf("fetch votes: %w", err)
	}
	return tally, nil
}

//go:build integration

package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aptoseidon/aptoseidon/internal/config"
	"github.com/aptoseidon/aptoseidon/internal/core"
)

func openPostgresStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("aptoseidon"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := Open(ctx, config.StoreConfig{Driver: "postgres", URL: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.Equal(t, "postgres", store.Driver())
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	store := openPostgresStore(t)
	key := core.Fingerprint("0xABC", "")

	analysis := core.StoredAnalysis{
		JobID:        "agent-1a2b3c4d",
		InputKey:     key,
		ProjectInput: "0xABC",
		Response:     core.AnalyzeResponse{Status: core.StatusOK, JobID: "agent-1a2b3c4d", Report: &core.Report{Score: 64}},
	}
	require.NoError(t, store.Save(ctx, analysis))
	require.NoError(t, store.Save(ctx, analysis))

	got, err := store.LoadLatestByInputKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 64, got.Response.Report.Score)

	require.NoError(t, store.RecordVote(ctx, analysis.JobID, core.RatingDown))
	tally, err := store.GetVotes(ctx, analysis.JobID)
	require.NoError(t, err)
	require.Equal(t, core.VoteTally{JobID: analysis.JobID, Up: 0, Down: 1}, tally)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.UpdateRateLimit(ctx, "api.coingecko.com", &core.RateLimitState{RequestCount: 2, WindowStart: now}))
	state, err := store.GetRateLimit(ctx, "api.coingecko.com")
	require.NoError(t, err)
	require.Equal(t, 2, state.RequestCount)

	removed, err := store.ResetRateLimits(ctx, RateLimitQuery{Endpoint: "api.coingecko.com"})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	hash := "0x" + strings.Repeat("cd", 32)
	owned, err := store.ClaimPayment(ctx, hash, key, "0xa11ce")
	require.NoError(t, err)
	require.True(t, owned)
	owned, err = store.ClaimPayment(ctx, hash, core.Fingerprint("0xDEF", ""), "0xa11ce")
	require.NoError(t, err)
	require.False(t, owned)
}

package store

import (
	"context"
	"testing"

	"github.com/aptoseidon/aptoseidon/internal/config"
	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/stretchr/testify/require"
)

func TestBuildLibsqlDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./aptoseidon.db"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:./aptoseidon.db", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		cfg := config.StoreConfig{}

		_, err := buildLibsqlDSN(cfg)
		require.Error(t, err)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		cfg := config.StoreConfig{Path: ":memory:"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})
}

func TestRebind(t *testing.T) {
	query := "SELECT * FROM votes WHERE job_id = ? AND up > ?"

	libsql := &Store{driver: driverLibsql}
	require.Equal(t, query, libsql.rebind(query))

	pg := &Store{driver: driverPostgres}
	require.Equal(t, "SELECT * FROM votes WHERE job_id = $1 AND up > $2", pg.rebind(query))
}

func TestOpenRejectsBadConfig(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.ErrorContains(t, err, "unsupported store driver")

	_, err = Open(context.Background(), config.StoreConfig{Driver: "postgres"})
	require.ErrorContains(t, err, "store url is required")
}

func TestRateLimitQuery(t *testing.T) {
	require.Error(t, RateLimitQuery{}.Validate())

	where, args, err := RateLimitQuery{All: true}.where()
	require.NoError(t, err)
	require.Empty(t, where)
	require.Empty(t, args)

	where, args, err = RateLimitQuery{Endpoint: " api.coingecko.com "}.where()
	require.NoError(t, err)
	require.Equal(t, "WHERE endpoint = ?", where)
	require.Equal(t, []any{"api.coingecko.com"}, args)

	where, args, err = RateLimitQuery{Prefix: "rdap."}.where()
	require.NoError(t, err)
	require.Equal(t, "WHERE endpoint LIKE ?", where)
	require.Equal(t, []any{"rdap.%"}, args)
}

func TestStoreMethodsRequireInit(t *testing.T) {
	var s *Store
	require.Error(t, s.Migrate(context.Background()))
	require.Error(t, s.Save(context.Background(), core.StoredAnalysis{JobID: "agent-1"}))
	_, err := s.GetVotes(context.Background(), "agent-1")
	require.Error(t, err)
	_, err = s.ClaimPayment(context.Background(), "0xabc", "key", "")
	require.Error(t, err)
	require.NoError(t, s.Close())
}

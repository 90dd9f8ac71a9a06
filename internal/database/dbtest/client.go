// Package dbtest builds a throwaway Postgres-backed database.Client for
// integration tests, grounded on tarsy's test/database.NewTestClient.
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	homedb "github.com/MarcelCutts/home-finder-sub001/internal/database"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewTestClient returns a database.Client with migrations applied.
// With CI_DATABASE_URL set, it connects to that external Postgres instance;
// otherwise it spins up a disposable testcontainers-go Postgres container.
// The container and connection are cleaned up via t.Cleanup.
func NewTestClient(t *testing.T) *homedb.Client {
	ctx := context.Background()

	connStr := os.Getenv("CI_DATABASE_URL")
	if connStr == "" {
		t.Log("using testcontainers for PostgreSQL")
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)

		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		connStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	} else {
		t.Log("using external PostgreSQL from CI_DATABASE_URL")
	}

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	client := homedb.NewClientFromDB(db)
	require.NoError(t, homedb.ApplyMigrations(db))

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

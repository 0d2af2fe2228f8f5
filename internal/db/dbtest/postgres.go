//go:build integration

// Package dbtest starts a disposable, migrated Postgres for integration tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/radif/gallery/internal/db"
)

// StartPostgres runs a Postgres container, applies the embedded migrations,
// and returns a pool that is closed, along with the container, when t ends.
func StartPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:16-alpine"),
		postgres.WithDatabase("gallery"),
		postgres.WithUsername("gallery"),
		postgres.WithPassword("gallery"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %s", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("WARNING: failed to terminate postgres container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to build connection string: %s", err)
	}
	if err := db.Migrate(dsn, log); err != nil {
		t.Fatalf("failed to migrate: %s", err)
	}

	pool, err := db.Connect(ctx, dsn, log)
	if err != nil {
		t.Fatalf("failed to connect: %s", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

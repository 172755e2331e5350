// Package testutil provides database helpers for integration tests.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/persistence"
)

var (
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// NewPostgresPool returns a pool bound to a fresh, migrated schema that is
// dropped when the test finishes. The test is skipped under -short or when no
// database can be started.
func NewPostgresPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	connStr := sharedDatabase(t)
	schema := schemaName(t)

	admin, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema))
	require.NoError(t, err)

	scoped := withSearchPath(connStr, schema)
	require.NoError(t, persistence.RunMigrations(scoped, zap.NewNop()))

	pool, err := pgxpool.New(ctx, scoped)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		if _, err := admin.Exec(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema)); err != nil {
			t.Logf("failed to drop schema %s: %v", schema, err)
		}
		admin.Close()
	})
	return pool
}

func sharedDatabase(t *testing.T) string {
	if url := os.Getenv("CI_DATABASE_URL"); url != "" {
		return url
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	containerOnce.Do(func() {
		ctx := context.Background()
		container, err := postgres.Run(ctx,
			"postgres:17-alpine",
			postgres.WithDatabase("support_desk"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("start postgres container: %w", err)
			return
		}
		sharedConnStr, containerErr = container.ConnectionString(ctx, "sslmode=disable")
	})

	if containerErr != nil {
		t.Skipf("postgres unavailable: %v", containerErr)
	}
	return sharedConnStr
}

func schemaName(t *testing.T) string {
	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, strings.ToLower(t.Name()))
	if len(name) > 40 {
		name = name[:40]
	}

	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(suffix))
}

func withSearchPath(connStr, schema string) string {
	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%ssearch_path=%s", connStr, separator, schema)
}

//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/babylog/babylog/internal/store"
	"github.com/babylog/babylog/internal/store/storetest"
)

// startPostgres launches a disposable postgres container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "babylog",
			"POSTGRES_PASSWORD": "babylog",
			"POSTGRES_DB":       "babylog_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://babylog:babylog@%s:%s/babylog_test?sslmode=disable", host, port.Port())
}

func TestPostgresStoreCompliance(t *testing.T) {
	dsn := startPostgres(t)

	storetest.Run(t, func(t *testing.T) store.EventStore {
		db, err := Open(dsn)
		require.NoError(t, err)
		require.NoError(t, Bootstrap(context.Background(), db))
		// each subtest starts from an empty table
		_, err = db.ExecContext(context.Background(), `DELETE FROM events`)
		require.NoError(t, err)
		s := NewWithDB(db)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

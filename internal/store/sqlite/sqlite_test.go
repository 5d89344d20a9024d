package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/babylog/babylog/internal/store"
	"github.com/babylog/babylog/internal/store/storetest"
)

func newTestStore(t *testing.T) store.EventStore {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "babylog.db"))
	require.NoError(t, err)
	require.NoError(t, Bootstrap(context.Background(), db))
	s := NewWithDB(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSqliteStoreCompliance(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestOpenCreatesParentDir(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "dir", "babylog.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

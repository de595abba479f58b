package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lexgraph/pkg/store"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/storetest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.GraphStorage {
		return setupTestStore(t)
	})
}

func TestStore_InMemory(t *testing.T) {
	s, err := NewStore(memoryPath)
	require.NoError(t, err)
	defer s.Close()

	ws := storetest.WriteSet("run-1")
	_, err = s.SaveWriteSet(context.Background(), ws)
	require.NoError(t, err)

	node, err := s.GetNode(context.Background(), ws.Entities[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "Supreme Court", node.Text)
}

func TestStore_ReopenKeepsDataAndSkipsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")
	s, err := NewStore(path)
	require.NoError(t, err)

	ws := storetest.WriteSet("run-1")
	_, err = s.SaveWriteSet(context.Background(), ws)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	comm, err := s.GetCommunity(context.Background(), ws.Communities[0].ID)
	require.NoError(t, err)
	assert.Len(t, comm.Members, 3)

	var runs int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM graph_runs").Scan(&runs))
	assert.Equal(t, 1, runs)
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}

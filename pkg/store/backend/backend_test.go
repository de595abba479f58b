package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/memory"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/sqlite"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	path := filepath.Join(t.TempDir(), "g.db")
	s, err = Open(ctx, config.StoreConfig{Backend: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	defer s.Close()
	require.IsType(t, &sqlite.Store{}, s)
	assert.Equal(t, path, s.(*sqlite.Store).Path())
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, config.StoreConfig{Backend: "postgres"})
	assert.Error(t, err)

	_, err = Open(ctx, config.StoreConfig{Backend: "neo4j"})
	assert.Error(t, err)

	_, err = Open(ctx, config.StoreConfig{Backend: "cassandra"})
	assert.ErrorContains(t, err, "unknown store backend")
}

package pgx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/OFFIS-RIT/lexgraph/pkg/store"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/storetest"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// startPostgres boots one container for the whole package. It is never
// terminated explicitly; the testcontainers reaper removes it.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		c, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("lexgraph"),
			postgres.WithUsername("user"),
			postgres.WithPassword("password"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			containerErr = err
			return
		}
		containerDSN, containerErr = c.ConnectionString(ctx, "sslmode=disable")
	})
	if containerErr != nil {
		t.Skipf("postgres container unavailable: %v", containerErr)
	}
	return containerDSN
}

func openStorage(t *testing.T) *GraphDBStorage {
	t.Helper()
	dsn := startPostgres(t)
	ctx := context.Background()

	s, err := NewGraphDBStorage(ctx, dsn, WithBatchSize(2))
	require.NoError(t, err)
	_, err = s.Pool().Exec(ctx, `TRUNCATE graph_memberships, graph_communities, graph_edges, graph_nodes, graph_runs`)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func TestGraphDBStorage(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.GraphStorage {
		return openStorage(t)
	})
}

func TestGraphDBStorage_RecordsRunAndTags(t *testing.T) {
	s := openStorage(t)
	ctx := context.Background()
	ws := storetest.WriteSet("run-tags")

	_, err := s.SaveWriteSet(ctx, ws)
	require.NoError(t, err)

	var nodes int
	require.NoError(t, s.Pool().QueryRow(ctx, `SELECT nodes FROM graph_runs WHERE run_id = $1`, "run-tags").Scan(&nodes))
	assert.Equal(t, 3, nodes)

	var tenant string
	require.NoError(t, s.Pool().QueryRow(ctx,
		`SELECT tags->>'tenant' FROM graph_nodes WHERE id = $1`, ws.Entities[0].ID,
	).Scan(&tenant))
	assert.Equal(t, "t-1", tenant)
}

func TestMigrate_Idempotent(t *testing.T) {
	dsn := startPostgres(t)
	require.NoError(t, Migrate(dsn))
	require.NoError(t, Migrate(dsn))
}

func TestNewGraphDBStorageWithConnection_NilConn(t *testing.T) {
	_, err := NewGraphDBStorageWithConnection(context.Background(), nil)
	assert.Error(t, err)
}

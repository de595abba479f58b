package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lexgraph/pkg/store"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.GraphStorage {
		return New()
	})
}

func TestStore_TagsAndCounts(t *testing.T) {
	s := New()
	ws := storetest.WriteSet("run-1")

	_, err := s.SaveWriteSet(context.Background(), ws)
	require.NoError(t, err)

	nodes, edges, communities, memberships := s.Counts()
	assert.Equal(t, 3, nodes)
	assert.Equal(t, 2, edges)
	assert.Equal(t, 1, communities)
	assert.Equal(t, 3, memberships)
	assert.Equal(t, "t-1", s.Tags(ws.Entities[0].ID)["tenant"])
	assert.Equal(t, "c-7", s.Tags(ws.Communities[0].ID)["case"])
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ws := storetest.WriteSet("run-1")
	_, err := s.SaveWriteSet(context.Background(), ws)
	require.NoError(t, err)

	ws.Entities[0].Provenance[0] = "changed"
	node, err := s.GetNode(context.Background(), ws.Entities[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "e1", node.Provenance[0])
}

func TestStore_Closed(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())

	_, err := s.SaveWriteSet(context.Background(), storetest.WriteSet("run-1"))
	assert.Error(t, err)
}

package neo4j

import (
	"context"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lexgraph/pkg/store"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/storetest"
)

func TestEntityProps_RoundTrip(t *testing.T) {
	ws := storetest.WriteSet("run-1")
	e := ws.Entities[0]

	props, err := entityProps(e)
	require.NoError(t, err)
	assert.Equal(t, "PARTY", props["category"])
	assert.IsType(t, "", props["attributes_json"])

	// Lists come back from the driver as []any.
	got, err := entityFromProps(props)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestRelationshipProps_RoundTrip(t *testing.T) {
	ws := storetest.WriteSet("run-1")
	for _, r := range ws.Relationships {
		assert.Equal(t, r, relationshipFromProps(relationshipProps(r)))
	}
}

func TestCommunityProps_RoundTrip(t *testing.T) {
	ws := storetest.WriteSet("run-1")
	c := ws.Communities[0]

	props := communityProps(c)
	assert.Equal(t, int64(3), props["size"])
	assert.Equal(t, c, communityFromProps(props))
}

func TestAsHelpers(t *testing.T) {
	assert.Equal(t, 2.0, asFloat(int64(2)))
	assert.Equal(t, int64(3), asInt(3.0))
	assert.Equal(t, "", asString(nil))
	assert.Equal(t, []string{"a", "b"}, asStrings([]any{"a", 1, "b"}))
	assert.Nil(t, asStrings(nil))
}

func TestNewStore_EmptyURI(t *testing.T) {
	_, err := NewStore(context.Background(), Params{})
	assert.Error(t, err)
}

// TestStore runs against a live server when NEO4J_TEST_URI is set.
func TestStore(t *testing.T) {
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" || testing.Short() {
		t.Skip("NEO4J_TEST_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.GraphStorage {
		s, err := NewStore(context.Background(), Params{
			URI:      uri,
			User:     os.Getenv("NEO4J_TEST_USER"),
			Password: os.Getenv("NEO4J_TEST_PASSWORD"),
		})
		require.NoError(t, err)

		session := s.session(context.Background(), neo4j.AccessModeWrite)
		res, err := session.Run(context.Background(), `MATCH (n) WHERE n:Entity OR n:Community DETACH DELETE n`, nil)
		require.NoError(t, err)
		_, err = res.Consume(context.Background())
		require.NoError(t, err)
		require.NoError(t, session.Close(context.Background()))

		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

// Package storetest holds the behaviour every GraphStorage backend must
// show. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
)

// WriteSet returns a small, valid write set: three entities, two edges and
// one community holding all three entities.
func WriteSet(runID string) store.WriteSet {
	acme := common.CanonicalEntity{
		ID:          common.EntityID(common.EntityCorporation, "Acme Corp"),
		Text:        "Acme Corp",
		Type:        common.EntityCorporation,
		Confidence:  0.9,
		Attributes:  map[string]any{"jurisdiction": "Delaware"},
		DocumentIDs: []string{"doc-1"},
		Provenance:  []string{"e1", "e2"},
		MergedCount: 2,
	}
	beta := common.CanonicalEntity{
		ID:          common.EntityID(common.EntityCorporation, "Beta LLC"),
		Text:        "Beta LLC",
		Type:        common.EntityCorporation,
		Confidence:  0.8,
		DocumentIDs: []string{"doc-1"},
		Provenance:  []string{"e3"},
		MergedCount: 1,
	}
	court := common.CanonicalEntity{
		ID:          common.EntityID(common.EntityCourt, "Supreme Court"),
		Text:        "Supreme Court",
		Type:        common.EntityCourt,
		Confidence:  0.95,
		DocumentIDs: []string{"doc-1"},
		Provenance:  []string{"e4"},
		MergedCount: 1,
	}

	owns := common.Relationship{
		ID:         common.EdgeID(acme.ID, beta.ID, common.RelOwns),
		SourceID:   acme.ID,
		TargetID:   beta.ID,
		Type:       common.RelOwns,
		Confidence: 0.6,
		Method:     common.MethodContextual,
		Evidence:   "Acme Corp owns Beta LLC",
		DocumentID: "doc-1",
		SourceText: acme.Text,
		SourceType: acme.Type,
		TargetText: beta.Text,
		TargetType: beta.Type,
	}
	cooc := common.Relationship{
		ID:         common.EdgeID(beta.ID, court.ID, common.RelFrequentlyCooccur),
		SourceID:   beta.ID,
		TargetID:   court.ID,
		Type:       common.RelFrequentlyCooccur,
		Confidence: 0.65,
		Method:     common.MethodCooccurrence,
	}

	members := []string{acme.ID, beta.ID, court.ID}
	comm := common.Community{
		ID:              common.CommunityID(1.0, members),
		Level:           0,
		Resolution:      1.0,
		Members:         members,
		Coherence:       0.61,
		Classification:  "MIXED_ENTITIES",
		DominantType:    common.EntityParty,
		CentralEntities: []string{beta.ID},
		Description:     "mixed entities community of 3 entities centered on Beta LLC",
		SummaryStatus:   common.SummaryFallback,
		Summary:         "mixed entities community of 3 entities centered on Beta LLC",
	}

	var memberships []common.Membership
	for _, m := range members {
		memberships = append(memberships, common.Membership{CommunityID: comm.ID, EntityID: m, Level: 0})
	}

	return store.WriteSet{
		RunID:         runID,
		DocumentID:    "doc-1",
		Tags:          common.Tags{"tenant": "t-1", "case": "c-7"},
		Entities:      []common.CanonicalEntity{acme, beta, court},
		Relationships: []common.Relationship{owns, cooc},
		Communities:   []common.Community{comm},
		Memberships:   memberships,
	}
}

// Run exercises a fresh backend returned by open.
func Run(t *testing.T, open func(t *testing.T) store.GraphStorage) {
	t.Helper()

	t.Run("round trip", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		ws := WriteSet("run-1")

		receipt, err := s.SaveWriteSet(ctx, ws)
		require.NoError(t, err)
		assert.Equal(t, "run-1", receipt.RunID)
		assert.Equal(t, 3, receipt.Nodes)
		assert.Equal(t, 2, receipt.Edges)
		assert.Equal(t, 1, receipt.Communities)
		assert.Equal(t, 3, receipt.Memberships)

		node, err := s.GetNode(ctx, ws.Entities[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", node.Text)
		assert.Equal(t, common.EntityCorporation, node.Type)
		assert.InDelta(t, 0.9, node.Confidence, 1e-9)
		assert.Equal(t, "Delaware", node.Attributes["jurisdiction"])
		assert.Equal(t, []string{"doc-1"}, node.DocumentIDs)
		assert.Equal(t, []string{"e1", "e2"}, node.Provenance)
		assert.Equal(t, 2, node.MergedCount)

		edge, err := s.GetEdge(ctx, ws.Relationships[0].ID)
		require.NoError(t, err)
		assert.Equal(t, ws.Entities[0].ID, edge.SourceID)
		assert.Equal(t, ws.Entities[1].ID, edge.TargetID)
		assert.Equal(t, common.RelOwns, edge.Type)
		assert.Equal(t, common.MethodContextual, edge.Method)
		assert.InDelta(t, 0.6, edge.Confidence, 1e-9)

		comm, err := s.GetCommunity(ctx, ws.Communities[0].ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, ws.Communities[0].Members, comm.Members)
		assert.Equal(t, "MIXED_ENTITIES", comm.Classification)
		assert.Equal(t, common.SummaryFallback, comm.SummaryStatus)
		assert.InDelta(t, 0.61, comm.Coherence, 1e-9)

		members, err := s.GetMemberships(ctx, comm.ID)
		require.NoError(t, err)
		assert.Len(t, members, 3)
		for i := 1; i < len(members); i++ {
			assert.Less(t, members[i-1].EntityID, members[i].EntityID)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		ws := WriteSet("run-1")

		_, err := s.SaveWriteSet(ctx, ws)
		require.NoError(t, err)
		_, err = s.SaveWriteSet(ctx, ws)
		require.NoError(t, err)

		members, err := s.GetMemberships(ctx, ws.Communities[0].ID)
		require.NoError(t, err)
		assert.Len(t, members, 3)

		edge, err := s.GetEdge(ctx, ws.Relationships[1].ID)
		require.NoError(t, err)
		assert.Equal(t, common.RelFrequentlyCooccur, edge.Type)
	})

	t.Run("upsert replaces attributes", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		ws := WriteSet("run-1")
		_, err := s.SaveWriteSet(ctx, ws)
		require.NoError(t, err)

		ws.RunID = "run-2"
		ws.Entities[1].Confidence = 0.99
		ws.Relationships[0].Confidence = 0.75
		_, err = s.SaveWriteSet(ctx, ws)
		require.NoError(t, err)

		node, err := s.GetNode(ctx, ws.Entities[1].ID)
		require.NoError(t, err)
		assert.InDelta(t, 0.99, node.Confidence, 1e-9)

		edge, err := s.GetEdge(ctx, ws.Relationships[0].ID)
		require.NoError(t, err)
		assert.InDelta(t, 0.75, edge.Confidence, 1e-9)
	})

	t.Run("not found", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		_, err := s.GetNode(ctx, "ent_missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetEdge(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetCommunity(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)

		members, err := s.GetMemberships(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("rejects dangling edges", func(t *testing.T) {
		s := open(t)
		ws := WriteSet("run-1")
		ws.Relationships[0].TargetID = "ent_unknown"

		_, err := s.SaveWriteSet(context.Background(), ws)
		require.Error(t, err)

		_, err = s.GetNode(context.Background(), ws.Entities[0].ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

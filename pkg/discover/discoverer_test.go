package discover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
)

func entity(text string, t common.EntityType, docs ...string) common.CanonicalEntity {
	if len(docs) == 0 {
		docs = []string{"doc-1"}
	}
	return common.CanonicalEntity{
		ID:          common.EntityID(t, text),
		Text:        text,
		Type:        t,
		Confidence:  0.9,
		DocumentIDs: docs,
	}
}

func onlyStrategy(name string) config.DiscoveryConfig {
	cfg := config.Default().Discovery
	cfg.EnableCitation = name == StrategyCitation
	cfg.EnableCrossDocument = name == StrategyCrossDoc
	cfg.EnableContextual = name == StrategyContextual
	cfg.EnableCooccurrence = name == StrategyCooccurrence
	return cfg
}

func TestCooccurrenceThreeOfFourChunks(t *testing.T) {
	a := entity("Acme Corporation", common.EntityParty)
	b := entity("Globex Industries", common.EntityParty)
	chunks := []common.Chunk{
		{ID: "c1", DocumentID: "doc-1", Text: "first section", EntityRefs: []string{a.ID, b.ID}},
		{ID: "c2", DocumentID: "doc-1", Text: "second section", EntityRefs: []string{a.ID, b.ID}},
		{ID: "c3", DocumentID: "doc-1", Text: "third section", EntityRefs: []string{b.ID, a.ID}},
		{ID: "c4", DocumentID: "doc-1", Text: "fourth section", EntityRefs: []string{a.ID}},
	}

	d := NewDiscoverer(config.Default().Discovery)
	rels, report, err := d.Discover(context.Background(), []common.CanonicalEntity{a, b}, nil, nil, chunks)
	require.NoError(t, err)

	require.Len(t, rels, 1)
	r := rels[0]
	assert.Equal(t, common.RelFrequentlyCooccur, r.Type)
	assert.InDelta(t, 0.65, r.Confidence, 1e-9)
	assert.Equal(t, common.MethodCooccurrence, r.Method)
	assert.Equal(t, common.EdgeID(r.SourceID, r.TargetID, r.Type), r.ID)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, []string{r.SourceID, r.TargetID})

	assert.True(t, report.Strategies[StrategyCitation].Skipped)
	assert.Equal(t, 1, report.Strategies[StrategyCooccurrence].Added)
}

func TestCooccurrenceBelowThreshold(t *testing.T) {
	a := entity("Acme Corporation", common.EntityParty)
	b := entity("Globex Industries", common.EntityParty)
	chunks := []common.Chunk{
		{ID: "c1", Text: "x", EntityRefs: []string{a.ID, b.ID}},
		{ID: "c2", Text: "y", EntityRefs: []string{a.ID, b.ID}},
	}

	rels, _, err := NewDiscoverer(onlyStrategy(StrategyCooccurrence)).Discover(context.Background(), []common.CanonicalEntity{a, b}, nil, nil, chunks)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestCooccurrenceConfidenceCap(t *testing.T) {
	a := entity("Acme Corporation", common.EntityParty)
	b := entity("Globex Industries", common.EntityParty)
	var chunks []common.Chunk
	for range 20 {
		chunks = append(chunks, common.Chunk{Text: "acme corporation and globex industries"})
	}

	rels, _, err := NewDiscoverer(onlyStrategy(StrategyCooccurrence)).Discover(context.Background(), []common.CanonicalEntity{a, b}, nil, nil, chunks)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.InDelta(t, 0.9, rels[0].Confidence, 1e-9)
}

func TestCitationCoreference(t *testing.T) {
	roe := entity("Roe v. Wade", common.EntityCase)
	court := entity("Supreme Court", common.EntityCourt)
	party := entity("Jane Roe", common.EntityParty)
	other := entity("Unrelated Party", common.EntityParty, "doc-2")
	citations := []common.Citation{
		{ID: "cit-1", DocumentID: "doc-1", Text: "Roe v. Wade, 410 U.S. 113 (1973)", Type: common.CitationCase},
	}

	d := NewDiscoverer(onlyStrategy(StrategyCitation))
	rels, _, err := d.Discover(context.Background(), []common.CanonicalEntity{roe, court, party, other}, nil, citations, nil)
	require.NoError(t, err)

	// "Jane Roe" is not contained in the citation text, so only the case is
	// cited; it is linked to the two other entities of doc-1.
	require.Len(t, rels, 2)
	for _, r := range rels {
		assert.Equal(t, common.RelCitedTogether, r.Type)
		assert.InDelta(t, 0.7, r.Confidence, 1e-9)
		assert.Equal(t, "cit-1", r.CitationID)
		assert.Contains(t, []string{r.SourceID, r.TargetID}, roe.ID)
		assert.NotContains(t, []string{r.SourceID, r.TargetID}, other.ID)
	}
}

func TestCitationWeightsByType(t *testing.T) {
	statute := entity("42 U.S.C. 1983", common.EntityStatute)
	party := entity("Jane Roe", common.EntityParty)
	citations := []common.Citation{{ID: "cit-1", DocumentID: "doc-1", Text: "42 U.S.C. 1983", Type: common.CitationStatute}}

	rels, _, err := NewDiscoverer(onlyStrategy(StrategyCitation)).Discover(context.Background(), []common.CanonicalEntity{statute, party}, nil, citations, nil)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.InDelta(t, 0.63, rels[0].Confidence, 1e-9)
}

func TestCitationReferencedEntity(t *testing.T) {
	a := entity("Acme Corporation", common.EntityParty)
	b := entity("Globex Industries", common.EntityParty)
	citations := []common.Citation{{ID: "cit-1", DocumentID: "doc-1", Text: "Id. at 12", ReferencedEntityID: a.ID}}

	rels, _, err := NewDiscoverer(onlyStrategy(StrategyCitation)).Discover(context.Background(), []common.CanonicalEntity{a, b}, nil, citations, nil)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.InDelta(t, 0.7*0.8, rels[0].Confidence, 1e-9)
}

func TestCrossDocument(t *testing.T) {
	a := entity("Acme Corporation", common.EntityParty, "d1", "d2", "d3")
	b := entity("Globex Industries", common.EntityParty, "d1", "d2", "d3")
	c := entity("Initech", common.EntityParty, "d1", "d4")

	rels, _, err := NewDiscoverer(onlyStrategy(StrategyCrossDoc)).Discover(context.Background(), []common.CanonicalEntity{a, b, c}, nil, nil, nil)
	require.NoError(t, err)

	require.Len(t, rels, 1)
	r := rels[0]
	assert.Equal(t, common.RelCrossDocument, r.Type)
	assert.InDelta(t, 0.75*1.05, r.Confidence, 1e-9)
	assert.Equal(t, "shared documents: d1, d2, d3", r.Evidence)
}

func TestCrossDocumentClampedToOne(t *testing.T) {
	docs := []string{"d1", "d2", "d3", "d4", "d5", "d6"}
	a := entity("Acme Corporation", common.EntityParty, docs...)
	b := entity("Globex Industries", common.EntityParty, docs...)

	rels, _, err := NewDiscoverer(onlyStrategy(StrategyCrossDoc)).Discover(context.Background(), []common.CanonicalEntity{a, b}, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.InDelta(t, 0.95*1.05, rels[0].Confidence, 1e-9)
	assert.LessOrEqual(t, rels[0].Confidence, 1.0)
}

func TestContextualTypePair(t *testing.T) {
	attorney := entity("John Smith", common.EntityAttorney)
	party := entity("Acme Corporation", common.EntityParty)
	chunks := []common.Chunk{{ID: "c1", DocumentID: "doc-1", Text: "Acme Corporation appeared with John Smith."}}

	rels, _, err := NewDiscoverer(onlyStrategy(StrategyContextual)).Discover(context.Background(), []common.CanonicalEntity{party, attorney}, nil, nil, chunks)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, common.RelRepresents, rels[0].Type)
	assert.Equal(t, attorney.ID, rels[0].SourceID)
	assert.Equal(t, party.ID, rels[0].TargetID)
	assert.InDelta(t, 0.75, rels[0].Confidence, 1e-9)
}

func TestContextualCuePhrases(t *testing.T) {
	acme := entity("Acme Corporation", common.EntityParty)
	globex := entity("Globex Industries", common.EntityParty)

	tests := []struct {
		name   string
		text   string
		rel    common.RelationType
		source string
	}{
		{"active ownership", "Acme Corporation owns Globex Industries outright.", common.RelOwns, acme.ID},
		{"passive ownership", "Acme Corporation is a subsidiary of Globex Industries.", common.RelOwns, globex.ID},
		{"caption", "Acme Corporation v. Globex Industries", common.RelSued, acme.ID},
		{"contract", "Acme Corporation entered into an agreement with Globex Industries.", common.RelContractedWith, acme.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := []common.Chunk{{ID: "c1", Text: tt.text}}
			rels, _, err := NewDiscoverer(onlyStrategy(StrategyContextual)).Discover(context.Background(), []common.CanonicalEntity{acme, globex}, nil, nil, chunks)
			require.NoError(t, err)
			require.Len(t, rels, 1)
			assert.Equal(t, tt.rel, rels[0].Type)
			assert.Equal(t, tt.source, rels[0].SourceID)
		})
	}
}

func TestContextualCueOutsideMentionsIgnored(t *testing.T) {
	acme := entity("Acme Corporation", common.EntityParty)
	globex := entity("Globex Industries", common.EntityParty)
	chunks := []common.Chunk{{ID: "c1", Text: "Acme Corporation and Globex Industries, which owns nothing."}}

	rels, _, err := NewDiscoverer(onlyStrategy(StrategyContextual)).Discover(context.Background(), []common.CanonicalEntity{acme, globex}, nil, nil, chunks)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestExistingRelationships(t *testing.T) {
	a := entity("Acme Corporation", common.EntityParty)
	b := entity("Globex Industries", common.EntityParty)
	existing := []common.Relationship{
		{SourceID: a.ID, TargetID: b.ID, Type: common.RelSued, Confidence: 0.8},
		{SourceID: a.ID, TargetID: b.ID, Type: common.RelSued, Confidence: 0.9},
		{SourceID: a.ID, TargetID: "missing", Type: common.RelSued, Confidence: 0.9},
		{SourceID: a.ID, TargetID: a.ID, Type: common.RelSued, Confidence: 0.9},
		{SourceID: b.ID, TargetID: a.ID, Type: common.RelOwns, Confidence: 0.1},
		{SourceID: b.ID, TargetID: a.ID, Type: common.RelEmploys},
	}

	rels, report, err := NewDiscoverer(onlyStrategy("")).Discover(context.Background(), []common.CanonicalEntity{a, b}, existing, nil, nil)
	require.NoError(t, err)

	require.Len(t, rels, 2)
	assert.Equal(t, 2, report.Invalid)
	assert.Equal(t, 1, report.DroppedLowConfidence)
	assert.Equal(t, 1, report.Strategies[StrategyExisting].Duplicates)
	for _, r := range rels {
		assert.Equal(t, common.MethodExtracted, r.Method)
		switch r.Type {
		case common.RelSued:
			assert.InDelta(t, 0.8, r.Confidence, 1e-9)
			assert.Equal(t, "Acme Corporation", r.SourceText)
			assert.Equal(t, common.EntityParty, r.TargetType)
		case common.RelEmploys:
			assert.InDelta(t, 0.5, r.Confidence, 1e-9)
		default:
			t.Fatalf("unexpected relationship type %s", r.Type)
		}
	}
}

func TestEdgeNonDuplication(t *testing.T) {
	a := entity("Acme Corporation", common.EntityParty, "d1", "d2")
	b := entity("Globex Industries", common.EntityParty, "d1", "d2")
	existing := []common.Relationship{
		{SourceID: b.ID, TargetID: a.ID, Type: common.RelCrossDocument, Confidence: 0.4},
	}
	var chunks []common.Chunk
	for range 4 {
		chunks = append(chunks, common.Chunk{DocumentID: "d1", Text: "Acme Corporation and Globex Industries"})
	}

	rels, report, err := NewDiscoverer(config.Default().Discovery).Discover(context.Background(), []common.CanonicalEntity{a, b}, existing, nil, chunks)
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for _, r := range rels {
		key := common.EdgeKey(r.SourceID, r.TargetID, r.Type)
		_, dup := seen[key]
		require.False(t, dup, "duplicate edge %s", key)
		seen[key] = struct{}{}
	}
	assert.Len(t, rels, 2)
	assert.Equal(t, 1, report.Strategies[StrategyCrossDoc].Duplicates)
}

func TestOutputSortedAndDeterministic(t *testing.T) {
	entities := []common.CanonicalEntity{
		entity("Acme Corporation", common.EntityParty),
		entity("Globex Industries", common.EntityParty),
		entity("Initech", common.EntityParty),
		entity("John Smith", common.EntityAttorney),
	}
	var chunks []common.Chunk
	for range 3 {
		chunks = append(chunks, common.Chunk{DocumentID: "doc-1", Text: "John Smith for Acme Corporation; Initech v. Globex Industries"})
	}

	d := NewDiscoverer(config.Default().Discovery)
	first, _, err := d.Discover(context.Background(), entities, nil, nil, chunks)
	require.NoError(t, err)
	second, _, err := d.Discover(context.Background(), entities, nil, nil, chunks)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		assert.True(t, prev.SourceID < cur.SourceID ||
			(prev.SourceID == cur.SourceID && prev.TargetID < cur.TargetID) ||
			(prev.SourceID == cur.SourceID && prev.TargetID == cur.TargetID && prev.Type < cur.Type))
	}
	for _, r := range first {
		assert.GreaterOrEqual(t, r.Confidence, 0.3)
		assert.LessOrEqual(t, r.Confidence, 1.0)
	}
}

func TestDiscoverCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewDiscoverer(config.Default().Discovery).Discover(ctx, []common.CanonicalEntity{entity("Acme Corporation", common.EntityParty)}, nil, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIndexWord(t *testing.T) {
	assert.Equal(t, 4, indexWord("the acme corp", "acme"))
	assert.Equal(t, -1, indexWord("acmeville", "acme"))
	assert.Equal(t, 10, indexWord("acmeville acme", "acme"))
	assert.Equal(t, -1, indexWord("anything", ""))
}

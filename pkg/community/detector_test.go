package community

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/graph"
)

// fixedProvider returns a canned partition and delegates everything else
// to the native algorithms.
type fixedProvider struct {
	graph.Native
	labels func(n int) []int
	err    error
}

func (p fixedProvider) Partition(_ context.Context, g *graph.Graph, _ graph.PartitionOptions) ([]int, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.labels(g.NodeCount()), nil
}

func sameLabel(n int) []int { return make([]int, n) }

func makeEntities(prefix string, n int, t common.EntityType) []common.CanonicalEntity {
	out := make([]common.CanonicalEntity, n)
	for i := range out {
		text := fmt.Sprintf("%s %02d", prefix, i)
		out[i] = common.CanonicalEntity{ID: common.EntityID(t, text), Text: text, Type: t, Confidence: 0.9, DocumentIDs: []string{"doc-1"}}
	}
	return out
}

func clique(entities []common.CanonicalEntity, weight float64) []common.Relationship {
	var rels []common.Relationship
	for i := range entities {
		for j := i + 1; j < len(entities); j++ {
			rels = append(rels, common.Relationship{
				SourceID:   entities[i].ID,
				TargetID:   entities[j].ID,
				Type:       common.RelRelatedTo,
				Confidence: weight,
			})
		}
	}
	return rels
}

func testConfig() config.CommunityConfig {
	cfg := config.Default().Community
	cfg.MinSize = 3
	cfg.MaxSize = 50
	cfg.CoherenceThreshold = 0.7
	return cfg
}

func TestDetectFullyConnectedFive(t *testing.T) {
	entities := makeEntities("Party", 5, common.EntityParty)
	rels := clique(entities, 0.9)

	communities, report, err := NewDetector(testConfig(), nil).Detect(context.Background(), entities, rels, nil)
	require.NoError(t, err)

	require.Len(t, communities, 1)
	c := communities[0]
	assert.Equal(t, 5, c.Size())
	assert.InDelta(t, 1.0, c.Coherence, 1e-9)
	assert.Equal(t, ClassLegalParties, c.Classification)
	assert.Equal(t, common.EntityParty, c.DominantType)
	assert.Len(t, c.CentralEntities, 3)
	assert.Equal(t, common.CommunityID(1.0, c.Members), c.ID)
	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 10, report.Edges)
}

func TestDetectSplitsOversizedPartition(t *testing.T) {
	left := makeEntities("Left", 30, common.EntityParty)
	right := makeEntities("Right", 30, common.EntityParty)
	entities := append(append([]common.CanonicalEntity{}, left...), right...)
	rels := append(clique(left, 0.9), clique(right, 0.9)...)

	d := NewDetector(testConfig(), fixedProvider{labels: sameLabel})
	communities, report, err := d.Detect(context.Background(), entities, rels, nil)
	require.NoError(t, err)

	require.Len(t, communities, 2)
	for _, c := range communities {
		assert.Equal(t, 30, c.Size())
		assert.InDelta(t, 1.0, c.Coherence, 1e-9)
	}
	assert.Equal(t, 1, report.Split)
	assert.Zero(t, report.Truncated)
}

func TestDetectTruncatesConnectedOversizedGroup(t *testing.T) {
	entities := makeEntities("Party", 15, common.EntityParty)
	rels := clique(entities, 0.9)
	cfg := testConfig()
	cfg.MaxSize = 10

	communities, report, err := NewDetector(cfg, fixedProvider{labels: sameLabel}).Detect(context.Background(), entities, rels, nil)
	require.NoError(t, err)

	require.Len(t, communities, 1)
	assert.Equal(t, 10, communities[0].Size())
	assert.Equal(t, 1, report.Truncated)
}

func TestDetectDropsSmallAndIncoherentGroups(t *testing.T) {
	entities := makeEntities("Party", 7, common.EntityParty)
	var rels []common.Relationship
	// A path over the first five entities and a pair.
	for i := 0; i < 4; i++ {
		rels = append(rels, common.Relationship{SourceID: entities[i].ID, TargetID: entities[i+1].ID, Type: common.RelRelatedTo, Confidence: 0.5})
	}
	rels = append(rels, common.Relationship{SourceID: entities[5].ID, TargetID: entities[6].ID, Type: common.RelRelatedTo, Confidence: 0.9})

	labels := func(n int) []int { return []int{0, 0, 0, 0, 0, 1, 1} }
	communities, report, err := NewDetector(testConfig(), fixedProvider{labels: labels}).Detect(context.Background(), entities, rels, nil)
	require.NoError(t, err)

	assert.Empty(t, communities)
	assert.Equal(t, 1, report.TooSmall)
	assert.Equal(t, 1, report.LowCoherence)
}

func TestDetectShortCircuits(t *testing.T) {
	entities := makeEntities("Party", 5, common.EntityParty)

	communities, report, err := NewDetector(testConfig(), nil).Detect(context.Background(), entities, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, communities)
	assert.Contains(t, report.Notes, "graph has no edges")

	few := entities[:2]
	communities, report, err = NewDetector(testConfig(), nil).Detect(context.Background(), few, clique(few, 0.9), nil)
	require.NoError(t, err)
	assert.Empty(t, communities)
	assert.NotEmpty(t, report.Notes)
}

func TestDetectProviderFailureIsNotFatal(t *testing.T) {
	entities := makeEntities("Party", 5, common.EntityParty)
	d := NewDetector(testConfig(), fixedProvider{err: errors.New("boom")})

	communities, report, err := d.Detect(context.Background(), entities, clique(entities, 0.9), nil)
	require.NoError(t, err)
	assert.Empty(t, communities)
	require.Len(t, report.Notes, 1)
	assert.Contains(t, report.Notes[0], "boom")
}

func TestDetectDeterministic(t *testing.T) {
	a := makeEntities("Alpha", 6, common.EntityParty)
	b := makeEntities("Beta", 6, common.EntityAttorney)
	entities := append(append([]common.CanonicalEntity{}, a...), b...)
	rels := append(clique(a, 0.8), clique(b, 0.8)...)
	rels = append(rels, common.Relationship{SourceID: a[0].ID, TargetID: b[0].ID, Type: common.RelRepresents, Confidence: 0.4})

	d := NewDetector(testConfig(), nil)
	first, _, err := d.Detect(context.Background(), entities, rels, nil)
	require.NoError(t, err)
	second, _, err := d.Detect(context.Background(), entities, rels, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Less(t, first[0].ID, first[1].ID)
	for _, c := range first {
		assert.GreaterOrEqual(t, c.Size(), 3)
		assert.LessOrEqual(t, c.Size(), 50)
		assert.GreaterOrEqual(t, c.Coherence, 0.7)
		assert.LessOrEqual(t, c.Coherence, 1.0)
	}
}

func TestDetectSharedCitationEdges(t *testing.T) {
	entities := makeEntities("Party", 3, common.EntityParty)
	citations := []common.Citation{{ID: "cit-1", DocumentID: "doc-1", Text: "410 U.S. 113"}}
	cfg := testConfig()
	cfg.SharedCitationEdges = true

	communities, report, err := NewDetector(cfg, nil).Detect(context.Background(), entities, nil, citations)
	require.NoError(t, err)
	assert.Equal(t, 3, report.SharedCitationEdges)
	require.Len(t, communities, 1)
	assert.Equal(t, 3, communities[0].Size())
}

func TestDetectHierarchical(t *testing.T) {
	entities := makeEntities("Party", 5, common.EntityParty)
	d := NewDetector(testConfig(), nil)

	levels, err := d.DetectHierarchical(context.Background(), entities, clique(entities, 0.9), nil)
	require.NoError(t, err)
	require.Len(t, levels, 4)
	seen := map[string]struct{}{}
	for i, l := range levels {
		assert.Equal(t, i, l.Level)
		for _, c := range l.Communities {
			assert.Equal(t, i, c.Level)
			assert.Equal(t, l.Resolution, c.Resolution)
			_, dup := seen[c.ID]
			assert.False(t, dup)
			seen[c.ID] = struct{}{}
		}
	}
}

func TestDetectCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entities := makeEntities("Party", 5, common.EntityParty)

	_, _, err := NewDetector(testConfig(), nil).Detect(ctx, entities, clique(entities, 0.9), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCoherence(t *testing.T) {
	g := graph.New()
	assert.Zero(t, Coherence(g))
	g.AddNode("a")
	g.AddNode("b")
	assert.Zero(t, Coherence(g))
	g.AddEdge("a", "b", 0.3)
	assert.InDelta(t, 0.6, Coherence(g), 1e-9)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		types []common.EntityType
		want  string
	}{
		{"parties", []common.EntityType{common.EntityCorporation, common.EntityParty, common.EntityPlaintiff, common.EntityCourt}, ClassLegalParties},
		{"citations", []common.EntityType{common.EntityCaseCitation, common.EntityStatute, common.EntityRegulation, common.EntityParty, common.EntityCourt}, ClassCitationNetwork},
		{"judicial", []common.EntityType{common.EntityCourt, common.EntityJustice, common.EntityParty}, ClassJudicialBodies},
		{"representation", []common.EntityType{common.EntityAttorney, common.EntityLawFirm, common.EntityParty}, ClassLegalRepresentation},
		{"majority", []common.EntityType{common.EntityContract, common.EntityContract, common.EntityParty}, "CONTRACT_GROUP"},
		{"mixed", []common.EntityType{common.EntityContract, common.EntityDate, common.EntityParty, common.EntityLocation}, ClassMixed},
		{"empty", nil, ClassMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.types))
		})
	}
}

func TestCentralEntitiesAndDescription(t *testing.T) {
	entities := []common.CanonicalEntity{
		{ID: "hub", Text: "Acme Corporation", Type: common.EntityParty},
		{ID: "a", Text: "Globex", Type: common.EntityParty},
		{ID: "b", Text: "Initech", Type: common.EntityParty},
		{ID: "c", Text: "Umbrella", Type: common.EntityParty},
	}
	rels := []common.Relationship{
		{SourceID: "hub", TargetID: "a", Type: common.RelRelatedTo, Confidence: 0.9},
		{SourceID: "hub", TargetID: "b", Type: common.RelRelatedTo, Confidence: 0.9},
		{SourceID: "hub", TargetID: "c", Type: common.RelRelatedTo, Confidence: 0.9},
		{SourceID: "a", TargetID: "b", Type: common.RelRelatedTo, Confidence: 0.9},
	}
	cfg := testConfig()
	cfg.CoherenceThreshold = 0.5

	communities, _, err := NewDetector(cfg, fixedProvider{labels: sameLabel}).Detect(context.Background(), entities, rels, nil)
	require.NoError(t, err)
	require.Len(t, communities, 1)
	c := communities[0]
	assert.Equal(t, []string{"hub", "a", "b"}, c.CentralEntities)
	assert.Equal(t, "legal parties community of 4 entities centered on Acme Corporation and Globex", c.Description)
}

func TestMemberships(t *testing.T) {
	communities := []common.Community{
		{ID: "c1", Level: 0, Members: []string{"a", "b"}},
		{ID: "c2", Level: 1, Members: []string{"c"}},
	}
	assert.Equal(t, []common.Membership{
		{CommunityID: "c1", EntityID: "a", Level: 0},
		{CommunityID: "c1", EntityID: "b", Level: 0},
		{CommunityID: "c2", EntityID: "c", Level: 1},
	}, Memberships(communities))
}

package analytics

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/graph"
)

func newAnalyzer(mutate func(*config.AnalyticsConfig)) *Analyzer {
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg.Analytics)
	}
	return NewAnalyzer(cfg.Analytics, graph.WeightOptions{}, nil)
}

func entities(n int, t common.EntityType) []common.CanonicalEntity {
	out := make([]common.CanonicalEntity, n)
	for i := range out {
		id := fmt.Sprintf("e%02d", i)
		out[i] = common.CanonicalEntity{ID: id, Text: "Entity " + id, Type: t, Confidence: 0.8}
	}
	return out
}

func path(es []common.CanonicalEntity, t common.RelationType) []common.Relationship {
	var rels []common.Relationship
	for i := 0; i+1 < len(es); i++ {
		rels = append(rels, common.Relationship{SourceID: es[i].ID, TargetID: es[i+1].ID, Type: t, Confidence: 0.9, Method: common.MethodExtracted})
	}
	return rels
}

func TestAnalyzeNoRelationships(t *testing.T) {
	es := entities(4, common.EntityParty)

	b, err := newAnalyzer(nil).Analyze(context.Background(), es, nil, nil)
	require.NoError(t, err)

	assert.Zero(t, b.Quality.Completeness)
	require.NotEmpty(t, b.Quality.Warnings)
	assert.True(t, strings.HasPrefix(b.Quality.Warnings[0], "low completeness"))
	assert.NotEmpty(t, b.Quality.Suggestions)
	assert.Equal(t, "poor", b.Quality.Grade)

	assert.Equal(t, 4, b.Basic.Nodes)
	assert.Equal(t, 4, b.Basic.Components)
	assert.False(t, b.Basic.Connected)
	assert.Contains(t, b.Unavailable, MetricDiameter)
	assert.Contains(t, b.Unavailable, MetricCloseness)
	assert.Contains(t, b.Unavailable, MetricNodeConnectivity)
	assert.Contains(t, b.Unavailable, MetricAssortativity)
}

func TestAnalyzePath(t *testing.T) {
	es := entities(5, common.EntityParty)
	rels := path(es, common.RelSued)

	b, err := newAnalyzer(nil).Analyze(context.Background(), es, rels, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, b.Basic.Edges)
	assert.True(t, b.Basic.Connected)
	require.NotNil(t, b.Basic.Diameter)
	assert.Equal(t, 4, *b.Basic.Diameter)
	assert.Equal(t, 2, *b.Basic.Radius)
	assert.InDelta(t, 1.6, b.Basic.AverageDegree, 1e-9)
	assert.InDelta(t, 0.4, b.Basic.Density, 1e-9)

	require.NotNil(t, b.Centrality.Betweenness)
	assert.Equal(t, "e02", b.Centrality.Betweenness.Top[0].EntityID)
	assert.Equal(t, "Entity e02", b.Centrality.Betweenness.Top[0].Text)
	require.NotNil(t, b.Centrality.Closeness)
	assert.Equal(t, "e02", b.Centrality.Closeness.Top[0].EntityID)
	require.NotNil(t, b.Centrality.Degree)
	assert.Len(t, b.Centrality.Degree.Values, 5)
	// Ties at degree 2 resolve by id.
	assert.Equal(t, []string{"e01", "e02", "e03"}, []string{
		b.Centrality.Degree.Top[0].EntityID, b.Centrality.Degree.Top[1].EntityID, b.Centrality.Degree.Top[2].EntityID,
	})

	require.NotNil(t, b.Connectivity.NodeConnectivity)
	assert.Equal(t, 1, *b.Connectivity.NodeConnectivity)
	assert.Equal(t, 1, *b.Connectivity.EdgeConnectivity)
	assert.Equal(t, 4, b.Connectivity.BridgeCount)
	assert.Equal(t, 3, b.Connectivity.ArticulationCount)
	assert.Equal(t, []int{5}, b.Connectivity.ComponentSizes)

	// 4 edges against an expected 1.5*4.
	assert.InDelta(t, 4.0/6.0, b.Quality.Completeness, 1e-9)
	assert.InDelta(t, 0.8, b.Quality.EntityConfidence, 1e-9)
	assert.InDelta(t, 0.9, b.Quality.RelationshipConfidence, 1e-9)
}

func TestAnalyzeSizeCaps(t *testing.T) {
	es := entities(6, common.EntityParty)
	a := newAnalyzer(func(c *config.AnalyticsConfig) {
		c.BetweennessMaxNodes = 5
		c.ConnectivityMaxNodes = 5
		c.MaxListed = 2
	})

	b, err := a.Analyze(context.Background(), es, path(es, common.RelSued), nil)
	require.NoError(t, err)

	assert.Nil(t, b.Centrality.Betweenness)
	assert.Equal(t, graph.ErrTooLarge.Error(), b.Unavailable[MetricBetweenness])
	assert.Equal(t, graph.ErrTooLarge.Error(), b.Unavailable[MetricNodeConnectivity])
	assert.Len(t, b.Connectivity.Bridges, 2)
	assert.Equal(t, 5, b.Connectivity.BridgeCount)
	assert.Len(t, b.Connectivity.ArticulationPoints, 2)
}

func TestAnalyzeCommunities(t *testing.T) {
	es := entities(6, common.EntityParty)
	var rels []common.Relationship
	for _, group := range [][]int{{0, 1, 2}, {3, 4, 5}} {
		for x := 0; x < len(group); x++ {
			for y := x + 1; y < len(group); y++ {
				rels = append(rels, common.Relationship{SourceID: es[group[x]].ID, TargetID: es[group[y]].ID, Type: common.RelRelatedTo, Confidence: 1})
			}
		}
	}
	communities := []common.Community{
		{ID: "c1", Resolution: 1, Members: []string{"e00", "e01", "e02"}, Coherence: 1, Classification: "LEGAL_PARTIES"},
		{ID: "c2", Resolution: 1, Members: []string{"e03", "e04", "e05"}, Coherence: 0.8, Classification: "LEGAL_PARTIES"},
		{ID: "c3", Level: 1, Resolution: 2, Members: []string{"e00", "e01"}, Coherence: 1, Classification: "LEGAL_PARTIES"},
	}

	b, err := newAnalyzer(nil).Analyze(context.Background(), es, rels, communities)
	require.NoError(t, err)

	c := b.Community
	assert.Equal(t, 2, c.Count)
	assert.Equal(t, []int{3, 3}, c.Sizes)
	assert.InDelta(t, 0.9, c.MeanCoherence, 1e-9)
	assert.InDelta(t, 1.0, c.Coverage, 1e-9)
	assert.Equal(t, 2, c.Classifications["LEGAL_PARTIES"])
	require.NotNil(t, c.Modularity)
	assert.InDelta(t, 0.5, *c.Modularity, 1e-9)
}

func TestAnalyzeDomain(t *testing.T) {
	es := []common.CanonicalEntity{
		{ID: "p1", Text: "Acme", Type: common.EntityParty, Confidence: 0.9},
		{ID: "p2", Text: "Globex", Type: common.EntityCorporation, Confidence: 0.9},
		{ID: "s1", Text: "42 U.S.C. 1983", Type: common.EntityStatute, Confidence: 0.9},
		{ID: "d1", Text: "1 May 2020", Type: common.EntityDate, Confidence: 0.9},
	}
	rels := []common.Relationship{
		{SourceID: "p1", TargetID: "p2", Type: common.RelSued, Confidence: 0.8, Method: common.MethodContextual},
		{SourceID: "p1", TargetID: "s1", Type: common.RelCitedTogether, Confidence: 0.7, Method: common.MethodCitation},
		{SourceID: "p2", TargetID: "d1", Type: common.RelCrossDocument, Confidence: 0.6, Method: common.MethodCrossDocument},
		{SourceID: "s1", TargetID: "d1", Type: common.RelCites, Confidence: 0.6, Method: common.MethodExtracted},
	}

	b, err := newAnalyzer(nil).Analyze(context.Background(), es, rels, nil)
	require.NoError(t, err)

	d := b.Domain
	assert.Equal(t, 1, d.EntityTypes[common.EntityCorporation])
	assert.Equal(t, 1, d.Methods[common.MethodCitation])
	assert.InDelta(t, 0.75, d.LegalEntityRatio, 1e-9)
	assert.InDelta(t, 0.5, d.CitationRelationshipRatio, 1e-9)
	assert.InDelta(t, 0.25, d.CrossDocumentRatio, 1e-9)
	assert.InDelta(t, 1.0, d.CategoryDensity[common.EntityParty], 1e-9)
	assert.Contains(t, b.Unavailable, MetricModularity)
}

func TestAnalyzeEmpty(t *testing.T) {
	b, err := newAnalyzer(nil).Analyze(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, b.Basic.Nodes)
	assert.Nil(t, b.Centrality.Degree)
	assert.Equal(t, "poor", b.Quality.Grade)
	assert.NotEmpty(t, b.Highlights())
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newAnalyzer(nil).Analyze(ctx, entities(3, common.EntityParty), nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompleteness(t *testing.T) {
	tests := []struct {
		name         string
		nodes, edges int
		want         float64
	}{
		{"single node", 1, 0, 0},
		{"no edges", 10, 0, 0},
		{"sparse", 5, 3, 0.5},
		{"capped", 3, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Completeness(tt.nodes, tt.edges, 1.5), 1e-9)
		})
	}
}

func TestGrade(t *testing.T) {
	assert.Equal(t, "excellent", Grade(0.85))
	assert.Equal(t, "good", Grade(0.6))
	assert.Equal(t, "fair", Grade(0.45))
	assert.Equal(t, "poor", Grade(0.1))
}

func TestHighlights(t *testing.T) {
	es := entities(3, common.EntityParty)
	b, err := newAnalyzer(nil).Analyze(context.Background(), es, path(es, common.RelSued), nil)
	require.NoError(t, err)

	h := b.Highlights()
	assert.Equal(t, "3 entities and 2 relationships (density 0.667, 1 components)", h[0])
	assert.Contains(t, h[1], "most connected entity: Entity e01")
	assert.True(t, strings.HasPrefix(h[len(h)-1], "quality "))
}

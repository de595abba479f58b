package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clique(g *Graph, prefix string, n int, w float64) {
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			g.AddEdge(fmt.Sprintf("%s%d", prefix, i), fmt.Sprintf("%s%d", prefix, j), w)
		}
	}
}

func path(ids ...string) *Graph {
	g := New()
	for i := 0; i+1 < len(ids); i++ {
		g.AddEdge(ids[i], ids[i+1], 1)
	}
	return g
}

func TestAddEdgeKeepsMaxWeightAndSkipsSelfLoops(t *testing.T) {
	g := New()
	assert.True(t, g.AddEdge("a", "b", 0.4))
	assert.True(t, g.AddEdge("b", "a", 0.9))
	assert.True(t, g.AddEdge("a", "b", 0.2))
	assert.False(t, g.AddEdge("a", "a", 1))

	i, _ := g.Index("a")
	j, _ := g.Index("b")
	w, ok := g.Weight(i, j)
	require.True(t, ok)
	assert.Equal(t, 0.9, w)
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 1.0, g.Density())
}

func TestBuildAppliesBoosts(t *testing.T) {
	entities := []common.CanonicalEntity{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	rels := []common.Relationship{
		{SourceID: "a", TargetID: "b", Type: common.RelOwns, Confidence: 0.8},
		{SourceID: "b", TargetID: "c", Type: common.RelCites, Confidence: 0.5},
		{SourceID: "a", TargetID: "missing", Type: common.RelCites, Confidence: 0.5},
	}
	g := Build(entities, rels, WeightOptions{OwnershipBoost: 1.5, CitationBoost: 1.2})

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())
	w, _ := g.Weight(0, 1)
	assert.Equal(t, 1.0, w, "boosted weight is clamped")
	w, _ = g.Weight(1, 2)
	assert.InDelta(t, 0.6, w, 1e-9)
}

func TestLeidenKeepsCliqueTogether(t *testing.T) {
	g := New()
	clique(g, "n", 5, 0.9)

	labels, err := Leiden(context.Background(), g, PartitionOptions{Resolution: 1, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 0}, labels)
}

func TestLeidenSeparatesBridgedCliques(t *testing.T) {
	g := New()
	clique(g, "a", 5, 1)
	clique(g, "b", 5, 1)
	g.AddEdge("a0", "b0", 1)

	labels, err := Leiden(context.Background(), g, PartitionOptions{Resolution: 1, Seed: 7})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, labels[0], labels[i])
		assert.Equal(t, labels[5], labels[5+i])
	}
	assert.NotEqual(t, labels[0], labels[5])

	q, err := Modularity(g, labels, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.4524, q, 1e-3)
}

func TestLeidenIsDeterministicForSeed(t *testing.T) {
	g := New()
	for c := 0; c < 6; c++ {
		clique(g, fmt.Sprintf("c%d_", c), 4, 0.8)
		if c > 0 {
			g.AddEdge(fmt.Sprintf("c%d_0", c-1), fmt.Sprintf("c%d_1", c), 0.3)
		}
	}

	opts := PartitionOptions{Resolution: 1, Seed: 99}
	first, err := Leiden(context.Background(), g, opts)
	require.NoError(t, err)
	for run := 0; run < 5; run++ {
		again, err := Leiden(context.Background(), g, opts)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLeidenCommunitiesAreConnected(t *testing.T) {
	g := New()
	clique(g, "x", 4, 1)
	clique(g, "y", 4, 1)
	g.AddEdge("x0", "y0", 0.1)
	g.AddNode("isolated")

	labels, err := Leiden(context.Background(), g, PartitionOptions{Resolution: 1, Seed: 1})
	require.NoError(t, err)

	groups := map[int][]int{}
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	for _, members := range groups {
		assert.Len(t, Components(g.Subgraph(members)), 1)
	}
}

func TestLeidenWithoutEdges(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("b")
	labels, err := Leiden(context.Background(), g, PartitionOptions{Resolution: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, labels)
}

func TestLeidenHonoursCancellation(t *testing.T) {
	g := New()
	clique(g, "n", 4, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Leiden(ctx, g, PartitionOptions{Resolution: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCentralitiesOnPath(t *testing.T) {
	g := path("a", "b", "c")

	assert.Equal(t, []float64{0.5, 1, 0.5}, DegreeCentrality(g))
	assert.InDeltaSlice(t, []float64{0, 1, 0}, Betweenness(g), 1e-9)

	closeness, err := Closeness(g)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2.0 / 3, 1, 2.0 / 3}, closeness, 1e-9)

	pr, err := PageRank(g, 0.85, 200, 1e-6)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pr[0]+pr[1]+pr[2], 1e-6)
	assert.Greater(t, pr[1], pr[0])

	ev, err := Eigenvector(g, 200, 1e-9)
	require.NoError(t, err)
	assert.Greater(t, ev[1], ev[0])
}

func TestClosenessRequiresConnectivity(t *testing.T) {
	g := path("a", "b")
	g.AddNode("c")
	_, err := Closeness(g)
	assert.ErrorIs(t, err, ErrDisconnected)

	_, _, err = DiameterRadius(g)
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestEigenvectorReportsNonConvergence(t *testing.T) {
	g := New()
	clique(g, "n", 6, 1)
	g.AddEdge("n0", "tail", 1)
	_, err := Eigenvector(g, 1, 1e-15)
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestStructureMetrics(t *testing.T) {
	p := path("a", "b", "c", "d")
	d, r, err := DiameterRadius(p)
	require.NoError(t, err)
	assert.Equal(t, 3, d)
	assert.Equal(t, 2, r)

	bridges, points := BridgesAndArticulationPoints(p)
	assert.Len(t, bridges, 3)
	assert.Equal(t, []int{1, 2}, points)

	tri := New()
	clique(tri, "t", 3, 1)
	assert.Equal(t, 1.0, AverageClustering(tri))
	assert.Equal(t, 1.0, Transitivity(tri))
	bridges, points = BridgesAndArticulationPoints(tri)
	assert.Empty(t, bridges)
	assert.Empty(t, points)
}

func TestConnectivity(t *testing.T) {
	k4 := New()
	clique(k4, "k", 4, 1)
	ec, err := EdgeConnectivity(k4)
	require.NoError(t, err)
	assert.Equal(t, 3, ec)
	nc, err := NodeConnectivity(k4)
	require.NoError(t, err)
	assert.Equal(t, 3, nc)

	cycle := path("a", "b", "c", "d", "e")
	cycle.AddEdge("e", "a", 1)
	nc, err = NodeConnectivity(cycle)
	require.NoError(t, err)
	assert.Equal(t, 2, nc)
	ec, err = EdgeConnectivity(cycle)
	require.NoError(t, err)
	assert.Equal(t, 2, ec)

	p := path("a", "b", "c")
	nc, err = NodeConnectivity(p)
	require.NoError(t, err)
	assert.Equal(t, 1, nc)
}

func TestDegreeAssortativity(t *testing.T) {
	star := New()
	for _, leaf := range []string{"b", "c", "d"} {
		star.AddEdge("a", leaf, 1)
	}
	r, err := DegreeAssortativity(star)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, r, 1e-9)

	_, err = DegreeAssortativity(path("a", "b", "c"))
	assert.ErrorIs(t, err, ErrUndefined)
}

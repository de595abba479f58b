// Package analytics computes structural, centrality, community, domain and
// quality metrics of a constructed legal knowledge graph. Every metric is
// best-effort: failures are recorded in Bundle.Unavailable and never abort
// the analysis.
package analytics

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/graph"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
)

type Analyzer struct {
	cfg      config.AnalyticsConfig
	weights  graph.WeightOptions
	provider graph.GraphAlgorithmProvider
}

// NewAnalyzer returns an analyzer using provider for centralities. A nil
// provider selects graph.Native.
func NewAnalyzer(cfg config.AnalyticsConfig, weights graph.WeightOptions, provider graph.GraphAlgorithmProvider) *Analyzer {
	if provider == nil {
		provider = graph.Native{}
	}
	return &Analyzer{cfg: cfg, weights: weights, provider: provider}
}

// Analyze builds its own graph from entities and relationships and
// computes the bundle. Communities are used for the community and quality
// sections only. The only error returned is ctx's.
func (a *Analyzer) Analyze(
	ctx context.Context,
	entities []common.CanonicalEntity,
	relationships []common.Relationship,
	communities []common.Community,
) (Bundle, error) {
	var b Bundle
	g := graph.Build(entities, relationships, a.weights)
	texts := make(map[string]string, len(entities))
	for _, e := range entities {
		texts[e.ID] = e.Text
	}

	sections := []struct {
		name string
		run  func()
	}{
		{"basic", func() { a.basic(g, &b) }},
		{"centrality", func() { a.centrality(g, texts, &b) }},
		{"connectivity", func() { a.connectivity(g, &b) }},
		{"community", func() { a.community(g, entities, communities, &b) }},
		{"domain", func() { a.domain(g, entities, relationships, &b) }},
		{"quality", func() { a.quality(g, entities, relationships, &b) }},
	}
	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return b, err
		}
		a.guard(s.name, s.run, &b)
	}

	logger.Info("[Analytics] Computed analytics", "nodes", b.Basic.Nodes, "edges", b.Basic.Edges, "grade", b.Quality.Grade, "unavailable", len(b.Unavailable))
	return b, nil
}

// guard runs one section and turns a panic into an unavailable entry.
func (a *Analyzer) guard(name string, fn func(), b *Bundle) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Analytics] Section failed", "section", name, "panic", r)
			b.unavailable(name, fmt.Errorf("section failed: %v", r))
		}
	}()
	fn()
}

func (a *Analyzer) basic(g *graph.Graph, b *Bundle) {
	n := g.NodeCount()
	basic := Basic{
		Nodes:   n,
		Edges:   g.EdgeCount(),
		Density: g.Density(),
	}
	if n > 0 {
		basic.AverageDegree = 2 * float64(g.EdgeCount()) / float64(n)
		basic.Components = len(graph.Components(g))
		basic.Connected = basic.Components == 1
		basic.AverageClustering = graph.AverageClustering(g)
		basic.Transitivity = graph.Transitivity(g)
	}

	if basic.Connected {
		diameter, radius, err := graph.DiameterRadius(g)
		if err != nil {
			b.unavailable(MetricDiameter, err)
			b.unavailable(MetricRadius, err)
		} else {
			basic.Diameter, basic.Radius = &diameter, &radius
		}
	} else {
		b.unavailable(MetricDiameter, graph.ErrDisconnected)
		b.unavailable(MetricRadius, graph.ErrDisconnected)
	}
	b.Basic = basic
}

func (a *Analyzer) centrality(g *graph.Graph, texts map[string]string, b *Bundle) {
	if g.NodeCount() == 0 {
		for _, m := range []string{MetricBetweenness, MetricCloseness, MetricEigenvector, MetricPageRank} {
			b.unavailable(m, graph.ErrEmpty)
		}
		return
	}
	b.Centrality.Degree = a.summarize(g, texts, a.provider.DegreeCentrality(g))

	if g.NodeCount() > a.cfg.BetweennessMaxNodes {
		b.unavailable(MetricBetweenness, graph.ErrTooLarge)
	} else {
		b.Centrality.Betweenness = a.summarize(g, texts, a.provider.Betweenness(g))
	}

	if values, err := a.provider.Closeness(g); err != nil {
		b.unavailable(MetricCloseness, err)
	} else {
		b.Centrality.Closeness = a.summarize(g, texts, values)
	}

	if values, err := a.provider.Eigenvector(g, a.cfg.MaxIterations, a.cfg.Tolerance); err != nil {
		b.unavailable(MetricEigenvector, err)
	} else {
		b.Centrality.Eigenvector = a.summarize(g, texts, values)
	}

	if values, err := a.provider.PageRank(g, a.cfg.PageRankDamping, a.cfg.MaxIterations, a.cfg.Tolerance); err != nil {
		b.unavailable(MetricPageRank, err)
	} else {
		b.Centrality.PageRank = a.summarize(g, texts, values)
	}
}

// summarize reduces per-node scores to mean, standard deviation, maximum
// and the top-k list (ties broken by entity id).
func (a *Analyzer) summarize(g *graph.Graph, texts map[string]string, values []float64) *Summary {
	s := &Summary{Values: make(map[string]float64, len(values))}
	if len(values) == 0 {
		return s
	}
	var sum float64
	s.Max = math.Inf(-1)
	for i, v := range values {
		s.Values[g.ID(i)] = v
		sum += v
		s.Max = max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - s.Mean) * (v - s.Mean)
	}
	s.Std = math.Sqrt(sq / float64(len(values)))

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(x, y int) int {
		switch {
		case values[x] > values[y]:
			return -1
		case values[x] < values[y]:
			return 1
		}
		return strings.Compare(g.ID(x), g.ID(y))
	})
	for _, i := range order[:min(a.cfg.TopK, len(order))] {
		s.Top = append(s.Top, Ranked{EntityID: g.ID(i), Text: texts[g.ID(i)], Score: values[i]})
	}
	return s
}

func (a *Analyzer) connectivity(g *graph.Graph, b *Bundle) {
	var c Connectivity
	for _, comp := range graph.Components(g) {
		c.ComponentSizes = append(c.ComponentSizes, len(comp))
		c.LargestComponent = max(c.LargestComponent, len(comp))
	}
	slices.SortFunc(c.ComponentSizes, func(x, y int) int { return y - x })

	switch {
	case !graph.IsConnected(g):
		b.unavailable(MetricNodeConnectivity, graph.ErrDisconnected)
		b.unavailable(MetricEdgeConnectivity, graph.ErrDisconnected)
	case g.NodeCount() > a.cfg.ConnectivityMaxNodes:
		b.unavailable(MetricNodeConnectivity, graph.ErrTooLarge)
		b.unavailable(MetricEdgeConnectivity, graph.ErrTooLarge)
	default:
		if k, err := graph.NodeConnectivity(g); err != nil {
			b.unavailable(MetricNodeConnectivity, err)
		} else {
			c.NodeConnectivity = &k
		}
		if k, err := graph.EdgeConnectivity(g); err != nil {
			b.unavailable(MetricEdgeConnectivity, err)
		} else {
			c.EdgeConnectivity = &k
		}
	}

	bridges, points := graph.BridgesAndArticulationPoints(g)
	c.BridgeCount, c.ArticulationCount = len(bridges), len(points)
	for _, br := range bridges[:min(len(bridges), a.cfg.MaxListed)] {
		c.Bridges = append(c.Bridges, [2]string{g.ID(br[0]), g.ID(br[1])})
	}
	for _, p := range points[:min(len(points), a.cfg.MaxListed)] {
		c.ArticulationPoints = append(c.ArticulationPoints, g.ID(p))
	}

	if r, err := graph.DegreeAssortativity(g); err != nil {
		b.unavailable(MetricAssortativity, err)
	} else {
		c.Assortativity = &r
	}
	b.Connectivity = c
}

// Package community groups canonical entities into communities of densely
// connected nodes and describes them.
package community

import (
	"context"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/graph"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
)

type Detector struct {
	cfg      config.CommunityConfig
	provider graph.GraphAlgorithmProvider
}

// NewDetector returns a detector partitioning through provider. A nil
// provider selects graph.Native.
func NewDetector(cfg config.CommunityConfig, provider graph.GraphAlgorithmProvider) *Detector {
	if provider == nil {
		provider = graph.Native{}
	}
	return &Detector{cfg: cfg, provider: provider}
}

// Level is the outcome of one rung of hierarchical detection.
type Level struct {
	Level       int                `json:"level"`
	Resolution  float64            `json:"resolution"`
	Communities []common.Community `json:"communities"`
	Report      Report             `json:"report"`
}

// Detect partitions the graph of entities and relationships at the
// configured resolution. Degenerate input yields no communities and a
// report note; the only error returned is ctx's.
func (d *Detector) Detect(
	ctx context.Context,
	entities []common.CanonicalEntity,
	relationships []common.Relationship,
	citations []common.Citation,
) ([]common.Community, Report, error) {
	g, added := d.buildGraph(entities, relationships, citations)
	return d.detectAt(ctx, g, entities, added, 0, d.cfg.Resolution)
}

// DetectHierarchical runs detection once per configured resolution, from
// coarse to fine. Level i uses HierarchyResolutions[i].
func (d *Detector) DetectHierarchical(
	ctx context.Context,
	entities []common.CanonicalEntity,
	relationships []common.Relationship,
	citations []common.Citation,
) ([]Level, error) {
	resolutions := d.cfg.HierarchyResolutions
	if len(resolutions) == 0 {
		resolutions = []float64{d.cfg.Resolution}
	}
	g, added := d.buildGraph(entities, relationships, citations)

	levels := make([]Level, 0, len(resolutions))
	for i, resolution := range resolutions {
		communities, report, err := d.detectAt(ctx, g, entities, added, i, resolution)
		if err != nil {
			return levels, err
		}
		levels = append(levels, Level{Level: i, Resolution: resolution, Communities: communities, Report: report})
	}
	return levels, nil
}

func (d *Detector) buildGraph(entities []common.CanonicalEntity, relationships []common.Relationship, citations []common.Citation) (*graph.Graph, int) {
	g := graph.Build(entities, relationships, graph.WeightOptions{
		OwnershipBoost: d.cfg.OwnershipBoost,
		CitationBoost:  d.cfg.CitationBoost,
	})
	if !d.cfg.SharedCitationEdges {
		return g, 0
	}
	return g, addSharedCitationEdges(g, entities, citations, d.cfg.SharedCitationWeight)
}

// addSharedCitationEdges connects the not yet adjacent entities of every
// document that carries citations.
func addSharedCitationEdges(g *graph.Graph, entities []common.CanonicalEntity, citations []common.Citation, weight float64) int {
	cited := map[string]struct{}{}
	for _, c := range citations {
		if c.DocumentID != "" {
			cited[c.DocumentID] = struct{}{}
		}
	}
	if len(cited) == 0 {
		return 0
	}

	byDoc := map[string][]int{}
	for i, e := range entities {
		for _, doc := range e.DocumentIDs {
			if _, ok := cited[doc]; ok {
				byDoc[doc] = append(byDoc[doc], i)
			}
		}
	}
	docs := make([]string, 0, len(byDoc))
	for doc := range byDoc {
		docs = append(docs, doc)
	}
	slices.Sort(docs)

	added := 0
	for _, doc := range docs {
		members := byDoc[doc]
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				a, b := entities[members[x]].ID, entities[members[y]].ID
				i, _ := g.Index(a)
				j, _ := g.Index(b)
				if i == j || g.HasEdge(i, j) {
					continue
				}
				g.AddEdge(a, b, weight)
				added++
			}
		}
	}
	return added
}

func (d *Detector) detectAt(
	ctx context.Context,
	g *graph.Graph,
	entities []common.CanonicalEntity,
	sharedEdges int,
	level int,
	resolution float64,
) ([]common.Community, Report, error) {
	report := Report{
		Level:               level,
		Resolution:          resolution,
		Nodes:               g.NodeCount(),
		Edges:               g.EdgeCount(),
		SharedCitationEdges: sharedEdges,
	}

	switch {
	case g.EdgeCount() == 0:
		report.note("graph has no edges")
		return nil, report, nil
	case g.NodeCount() < d.cfg.MinSize:
		report.note("fewer entities than the minimum community size")
		return nil, report, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	labels, err := d.provider.Partition(ctx, g, graph.PartitionOptions{
		Resolution: resolution,
		Seed:       d.cfg.Seed,
		MaxLevels:  d.cfg.MaxLevels,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, report, ctxErr
		}
		logger.Warn("[Community] Partitioning failed", "resolution", resolution, "err", err)
		report.note("partitioning failed: " + err.Error())
		return nil, report, nil
	}
	if len(labels) != g.NodeCount() {
		report.note("partition does not cover every node")
		return nil, report, nil
	}
	if q, err := graph.Modularity(g, labels, resolution); err == nil {
		report.Modularity = q
	}

	byID := make(map[string]*common.CanonicalEntity, len(entities))
	for i := range entities {
		byID[entities[i].ID] = &entities[i]
	}

	groups := groupLabels(labels)
	report.Partitions = len(groups)

	var out []common.Community
	for _, members := range groups {
		for _, candidate := range d.bound(g, members, &report) {
			sub := g.Subgraph(candidate)
			coherence := Coherence(sub)
			if coherence < d.cfg.CoherenceThreshold {
				report.LowCoherence++
				continue
			}
			out = append(out, d.describe(g, sub, candidate, byID, coherence, level, resolution))
		}
	}

	slices.SortFunc(out, func(a, b common.Community) int {
		return strings.Compare(a.ID, b.ID)
	})
	report.Accepted = len(out)
	logger.Info("[Community] Detected communities", "level", level, "resolution", resolution, "partitions", report.Partitions, "accepted", report.Accepted)
	return out, report, nil
}

// groupLabels returns the node indices of every label, ordered by label.
func groupLabels(labels []int) [][]int {
	var groups [][]int
	for i, l := range labels {
		if l < 0 {
			continue
		}
		for len(groups) <= l {
			groups = append(groups, nil)
		}
		groups[l] = append(groups[l], i)
	}
	return slices.DeleteFunc(groups, func(g []int) bool { return len(g) == 0 })
}

// bound enforces the size limits on one partition: too small groups are
// dropped and oversized ones split into connected components, any of which
// still too large is cut down by breadth-first search.
func (d *Detector) bound(g *graph.Graph, members []int, report *Report) [][]int {
	if len(members) < d.cfg.MinSize {
		report.TooSmall++
		return nil
	}
	if len(members) <= d.cfg.MaxSize {
		return [][]int{members}
	}

	report.Split++
	sub := g.Subgraph(members)
	var out [][]int
	for _, comp := range graph.Components(sub) {
		switch {
		case len(comp) < d.cfg.MinSize:
			report.TooSmall++
			continue
		case len(comp) > d.cfg.MaxSize:
			report.Truncated++
			comp = truncate(sub, comp, d.cfg.MaxSize)
		}
		mapped := make([]int, len(comp))
		for k, i := range comp {
			mapped[k] = members[i]
		}
		slices.Sort(mapped)
		out = append(out, mapped)
	}
	return out
}

// truncate keeps the first limit nodes reached by breadth-first search
// from the highest-degree node of comp.
func truncate(g *graph.Graph, comp []int, limit int) []int {
	start := comp[0]
	for _, i := range comp[1:] {
		if g.Degree(i) > g.Degree(start) || (g.Degree(i) == g.Degree(start) && g.ID(i) < g.ID(start)) {
			start = i
		}
	}
	seen := map[int]struct{}{start: {}}
	order := []int{start}
	for head := 0; head < len(order) && len(order) < limit; head++ {
		for _, w := range g.Neighbors(order[head]) {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			order = append(order, w)
			if len(order) == limit {
				break
			}
		}
	}
	return order
}

// Coherence of a community subgraph: twice its density scaled by the mean
// internal edge weight, capped at 1. Zero below two members or without
// internal edges.
func Coherence(sub *graph.Graph) float64 {
	n := sub.NodeCount()
	e := sub.EdgeCount()
	if n < 2 || e == 0 {
		return 0
	}
	mean := sub.TotalWeight() / float64(e)
	pairs := float64(n*(n-1)) / 2
	return min(1, 2*float64(e)/pairs*mean)
}

// Memberships flattens communities into entity memberships.
func Memberships(communities []common.Community) []common.Membership {
	var out []common.Membership
	for _, c := range communities {
		for _, id := range c.Members {
			out = append(out, common.Membership{CommunityID: c.ID, EntityID: id, Level: c.Level})
		}
	}
	return out
}

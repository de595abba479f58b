package graph

import "github.com/OFFIS-RIT/lexgraph/pkg/common"

// WeightOptions controls how relationship confidence becomes edge weight.
type WeightOptions struct {
	OwnershipBoost float64
	CitationBoost  float64
}

// EdgeWeight returns the boosted, clamped weight of r.
func (o WeightOptions) EdgeWeight(r common.Relationship) float64 {
	w := r.Confidence
	switch {
	case r.Type.IsOwnershipOrRepresentation() && o.OwnershipBoost > 0:
		w *= o.OwnershipBoost
	case r.Type.IsCitation() && o.CitationBoost > 0:
		w *= o.CitationBoost
	}
	return common.Clamp01(w)
}

// Build creates a graph over entities (in their given order) with one edge
// per relationship whose endpoints are both known.
func Build(entities []common.CanonicalEntity, rels []common.Relationship, opts WeightOptions) *Graph {
	g := New()
	for _, e := range entities {
		g.AddNode(e.ID)
	}
	for _, r := range rels {
		if _, ok := g.Index(r.SourceID); !ok {
			continue
		}
		if _, ok := g.Index(r.TargetID); !ok {
			continue
		}
		g.AddEdge(r.SourceID, r.TargetID, opts.EdgeWeight(r))
	}
	return g
}

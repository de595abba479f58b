package analytics

import (
	"fmt"
	"math"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/graph"
)

func (a *Analyzer) community(g *graph.Graph, entities []common.CanonicalEntity, communities []common.Community, b *Bundle) {
	stats := CommunityStats{Classifications: map[string]int{}}
	if len(communities) == 0 {
		b.Community = stats
		b.unavailable(MetricModularity, fmt.Errorf("no communities"))
		return
	}

	// Only the finest-grained level present is measured.
	level := communities[0].Level
	for _, c := range communities {
		level = min(level, c.Level)
	}

	labels := make([]int, g.NodeCount())
	for i := range labels {
		labels[i] = -1
	}
	covered := map[string]struct{}{}
	var coherence float64
	resolution := 1.0
	next := 0
	for _, c := range communities {
		if c.Level != level {
			continue
		}
		resolution = c.Resolution
		stats.Count++
		stats.Sizes = append(stats.Sizes, c.Size())
		stats.LargestSize = max(stats.LargestSize, c.Size())
		stats.Classifications[c.Classification]++
		coherence += c.Coherence
		for _, id := range c.Members {
			covered[id] = struct{}{}
			if i, ok := g.Index(id); ok && labels[i] < 0 {
				labels[i] = next
			}
		}
		next++
	}
	for i := range labels {
		if labels[i] < 0 {
			labels[i] = next
			next++
		}
	}

	total := 0
	for _, s := range stats.Sizes {
		total += s
	}
	stats.MeanSize = float64(total) / float64(stats.Count)
	stats.MeanCoherence = coherence / float64(stats.Count)
	if len(entities) > 0 {
		stats.Coverage = float64(len(covered)) / float64(len(entities))
	}

	if q, err := graph.Modularity(g, labels, resolution); err != nil {
		b.unavailable(MetricModularity, err)
	} else {
		stats.Modularity = &q
	}
	b.Community = stats
}

func (a *Analyzer) domain(g *graph.Graph, entities []common.CanonicalEntity, relationships []common.Relationship, b *Bundle) {
	d := Domain{
		EntityTypes:     map[common.EntityType]int{},
		RelationTypes:   map[common.RelationType]int{},
		Methods:         map[common.DiscoveryMethod]int{},
		CategoryDensity: map[common.EntityType]float64{},
	}

	byCategory := map[common.EntityType][]int{}
	legal := 0
	for _, e := range entities {
		d.EntityTypes[e.Type]++
		if e.Type.IsLegalType() {
			legal++
		}
		if i, ok := g.Index(e.ID); ok {
			cat := e.Type.Category()
			byCategory[cat] = append(byCategory[cat], i)
		}
	}
	if len(entities) > 0 {
		d.LegalEntityRatio = float64(legal) / float64(len(entities))
	}

	citations, crossDoc := 0, 0
	for _, r := range relationships {
		d.RelationTypes[r.Type]++
		if r.Method != "" {
			d.Methods[r.Method]++
		}
		if r.Type.IsCitation() {
			citations++
		}
		if r.Type == common.RelCrossDocument {
			crossDoc++
		}
	}
	if len(relationships) > 0 {
		d.CitationRelationshipRatio = float64(citations) / float64(len(relationships))
		d.CrossDocumentRatio = float64(crossDoc) / float64(len(relationships))
	}

	for cat, nodes := range byCategory {
		if len(nodes) > 1 {
			d.CategoryDensity[cat] = g.Subgraph(nodes).Density()
		}
	}
	b.Domain = d
}

func (a *Analyzer) quality(g *graph.Graph, entities []common.CanonicalEntity, relationships []common.Relationship, b *Bundle) {
	q := Quality{
		Completeness: Completeness(g.NodeCount(), g.EdgeCount(), a.cfg.ExpectedDegree),
		Coherence:    b.Community.MeanCoherence,
		Coverage:     b.Community.Coverage,
	}
	if len(entities) > 0 {
		var sum float64
		for _, e := range entities {
			sum += e.Confidence
		}
		q.EntityConfidence = sum / float64(len(entities))
	}
	if len(relationships) > 0 {
		var sum float64
		for _, r := range relationships {
			sum += r.Confidence
		}
		q.RelationshipConfidence = sum / float64(len(relationships))
	}
	q.Overall = (q.Completeness + q.EntityConfidence + q.RelationshipConfidence + q.Coherence + q.Coverage) / 5
	q.Grade = Grade(q.Overall)

	threshold := a.cfg.LowQualityThreshold
	checks := []struct {
		name       string
		value      float64
		suggestion string
	}{
		{"completeness", q.Completeness, "enable more discovery strategies or supply chunks and citations so entities get connected"},
		{"entity confidence", q.EntityConfidence, "review upstream extraction; entity confidence is low"},
		{"relationship confidence", q.RelationshipConfidence, "raise the minimum relationship confidence or supply extracted relationships"},
		{"community coherence", q.Coherence, "lower the community resolution or raise the coherence threshold"},
		{"community coverage", q.Coverage, "lower the minimum community size to cover more entities"},
	}
	for _, c := range checks {
		if c.value < threshold {
			q.Warnings = append(q.Warnings, fmt.Sprintf("low %s: %.2f", c.name, c.value))
			q.Suggestions = append(q.Suggestions, c.suggestion)
		}
	}
	b.Quality = q
}

// Completeness compares the edge count against expectedDegree*(n-1),
// capped at 1. It is 0 for fewer than two nodes or no edges.
func Completeness(nodes, edges int, expectedDegree float64) float64 {
	if nodes < 2 || edges == 0 {
		return 0
	}
	if expectedDegree <= 0 {
		expectedDegree = 1.5
	}
	return math.Min(1, float64(edges)/(expectedDegree*float64(nodes-1)))
}

// Grade maps an overall quality score to a label.
func Grade(score float64) string {
	switch {
	case score >= 0.8:
		return "excellent"
	case score >= 0.6:
		return "good"
	case score >= 0.4:
		return "fair"
	}
	return "poor"
}

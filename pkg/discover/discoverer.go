// Package discover infers relationships between canonical entities.
//
// Four strategies run after the caller-supplied relationships have been
// admitted: citation co-reference, cross-document association, contextual
// inference from chunk text and chunk co-occurrence. An edge identity is
// admitted once; the first strategy to propose it wins.
package discover

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
)

// Discoverer holds only configuration and may be shared between runs.
type Discoverer struct {
	cfg config.DiscoveryConfig
}

func NewDiscoverer(cfg config.DiscoveryConfig) *Discoverer {
	return &Discoverer{cfg: cfg}
}

type strategy struct {
	name    string
	enabled bool
	missing string
	run     func(ctx context.Context, in *input) ([]common.Relationship, error)
}

// input bundles what every strategy reads.
type input struct {
	entities  *entityIndex
	citations []common.Citation
	chunks    []common.Chunk
	located   [][]int
}

// Discover returns the existing relationships plus everything the enabled
// strategies inferred, filtered by minimum confidence and sorted by
// (source, target, type). Relationships must already reference canonical
// ids. A failing strategy is recorded in the report and the others still
// run; the only error returned is ctx's.
func (d *Discoverer) Discover(
	ctx context.Context,
	entities []common.CanonicalEntity,
	existing []common.Relationship,
	citations []common.Citation,
	chunks []common.Chunk,
) ([]common.Relationship, Report, error) {
	report := newReport(len(entities), len(existing))
	in := &input{
		entities:  newEntityIndex(entities),
		citations: citations,
		chunks:    chunks,
	}
	index := newEdgeIndex()

	d.admitExisting(in.entities, existing, index, &report)

	strategies := []strategy{
		{StrategyCitation, d.cfg.EnableCitation, missingIf(len(citations) == 0, "no citations"), d.citationCoreference},
		{StrategyCrossDoc, d.cfg.EnableCrossDocument, missingIf(len(entities) < 2, "fewer than two entities"), d.crossDocument},
		{StrategyContextual, d.cfg.EnableContextual, missingIf(len(chunks) == 0, "no chunks"), d.contextualInference},
		{StrategyCooccurrence, d.cfg.EnableCooccurrence, missingIf(len(chunks) == 0, "no chunks"), d.cooccurrence},
	}
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		switch {
		case !s.enabled:
			report.skip(s.name, "disabled")
			continue
		case s.missing != "":
			report.skip(s.name, s.missing)
			continue
		}

		candidates, err := s.run(ctx, in)
		stats := StrategyStats{Candidates: len(candidates)}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, report, ctxErr
			}
			logger.Warn("[Discover] Strategy failed", "strategy", s.name, "err", err)
			stats.Error = err.Error()
		}
		for _, r := range candidates {
			if index.add(r) {
				stats.Added++
			} else {
				stats.Duplicates++
			}
		}
		report.Strategies[s.name] = stats
		logger.Debug("[Discover] Strategy finished", "strategy", s.name, "candidates", stats.Candidates, "added", stats.Added)
	}

	out := d.finalize(in.entities, index.edges, &report)
	logger.Info("[Discover] Discovered relationships", "input", len(existing), "total", report.Total, "dropped_low_confidence", report.DroppedLowConfidence)
	return out, report, nil
}

func missingIf(cond bool, reason string) string {
	if cond {
		return reason
	}
	return ""
}

func (d *Discoverer) admitExisting(entities *entityIndex, existing []common.Relationship, index *edgeIndex, report *Report) {
	stats := StrategyStats{Candidates: len(existing)}
	for _, r := range existing {
		_, okSource := entities.lookup(r.SourceID)
		_, okTarget := entities.lookup(r.TargetID)
		switch {
		case !okSource || !okTarget:
			report.Invalid++
			report.warn(&common.ValidationError{Kind: "relationship", RecordID: r.ID, Field: "endpoint", Reason: "references an unknown entity"})
			continue
		case r.SourceID == r.TargetID:
			report.Invalid++
			report.warn(&common.ValidationError{Kind: "relationship", RecordID: r.ID, Field: "endpoint", Reason: "is a self loop"})
			continue
		case r.Type == "":
			r.Type = common.RelRelatedTo
		}
		if r.Method == "" {
			r.Method = common.MethodExtracted
		}
		if r.Confidence == 0 || math.IsNaN(r.Confidence) {
			r.Confidence = d.cfg.DefaultConfidence
		}
		r.Confidence = common.Clamp01(r.Confidence)
		if index.add(r) {
			stats.Added++
		} else {
			stats.Duplicates++
		}
	}
	report.Strategies[StrategyExisting] = stats
}

// finalize denormalizes endpoints, applies the confidence floor, assigns
// edge ids and sorts.
func (d *Discoverer) finalize(entities *entityIndex, edges []common.Relationship, report *Report) []common.Relationship {
	out := make([]common.Relationship, 0, len(edges))
	for _, r := range edges {
		if r.Confidence < d.cfg.MinConfidence {
			report.DroppedLowConfidence++
			continue
		}
		si, _ := entities.lookup(r.SourceID)
		ti, _ := entities.lookup(r.TargetID)
		source, target := entities.entities[si], entities.entities[ti]
		r.SourceText, r.SourceType = source.Text, source.Type
		r.TargetText, r.TargetType = target.Text, target.Type
		r.ID = common.EdgeID(r.SourceID, r.TargetID, r.Type)
		out = append(out, r)

		report.ByType[r.Type]++
		report.ByMethod[r.Method]++
	}
	slices.SortFunc(out, func(a, b common.Relationship) int {
		if c := strings.Compare(a.SourceID, b.SourceID); c != 0 {
			return c
		}
		if c := strings.Compare(a.TargetID, b.TargetID); c != 0 {
			return c
		}
		return strings.Compare(string(a.Type), string(b.Type))
	})
	report.Total = len(out)
	return out
}

// pairEdge builds a candidate between the entities at positions a and b.
func pairEdge(entities *entityIndex, a, b int, t common.RelationType, confidence float64, method common.DiscoveryMethod, evidence string) common.Relationship {
	return common.Relationship{
		SourceID:   entities.entities[a].ID,
		TargetID:   entities.entities[b].ID,
		Type:       t,
		Confidence: common.Clamp01(confidence),
		Method:     method,
		Evidence:   evidence,
	}
}

// locate returns, per chunk, the positions of entities present in it:
// the chunk's known references followed by text matches, deduplicated and
// in first-seen order. The result is cached on in.
func (in *input) locate(ctx context.Context) ([][]int, error) {
	if in.located != nil {
		return in.located, nil
	}
	located := make([][]int, len(in.chunks))
	for ci, chunk := range in.chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seen := map[int]struct{}{}
		var positions []int
		for _, ref := range chunk.EntityRefs {
			if i, ok := in.entities.lookup(ref); ok {
				if _, dup := seen[i]; !dup {
					seen[i] = struct{}{}
					positions = append(positions, i)
				}
			}
		}
		candidates := in.entities.all()
		if chunk.DocumentID != "" {
			if docEntities, ok := in.entities.byDoc[chunk.DocumentID]; ok {
				candidates = docEntities
			}
		}
		for _, i := range in.entities.mentions(common.NormalizeText(chunk.Text), candidates) {
			if _, dup := seen[i]; !dup {
				seen[i] = struct{}{}
				positions = append(positions, i)
			}
		}
		located[ci] = positions
	}
	in.located = located
	return located, nil
}

func sharedEvidence(docs []string) string {
	return fmt.Sprintf("shared documents: %s", strings.Join(docs, ", "))
}

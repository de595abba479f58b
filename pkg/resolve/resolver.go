// Package resolve folds raw entity mentions into canonical entities.
//
// Mentions are grouped by entity category, compared pairwise with a blend
// of character n-gram TF-IDF cosine, edit distance ratio and token overlap,
// and clustered greedily with single linkage against per-category
// thresholds. The resulting canonical entities are compared again until
// none of them match, so resolving the output a second time is a no-op.
package resolve

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
)

// Resolver deduplicates raw entities. It holds no mutable state and may be
// shared between concurrent runs.
type Resolver struct {
	cfg config.ResolutionConfig
}

func NewResolver(cfg config.ResolutionConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// mention is a validated raw entity with its position in the input.
type mention struct {
	raw   common.RawEntity
	norm  string
	index int
}

type cluster struct {
	members []int // indices into the mention slice, ascending
	links   []Link
	method  string
}

// Resolve merges raw into canonical entities. Invalid records are skipped
// and reported; the only error returned is ctx's.
func (r *Resolver) Resolve(ctx context.Context, raw []common.RawEntity, documentID string) ([]common.CanonicalEntity, Report, error) {
	report := newReport(documentID, len(raw))
	mentions := r.validate(raw, documentID, &report)

	groups := map[common.EntityType][]int{}
	for i, m := range mentions {
		cat := m.raw.Type.Category()
		groups[cat] = append(groups[cat], i)
	}
	categories := make([]common.EntityType, 0, len(groups))
	for cat := range groups {
		categories = append(categories, cat)
	}
	slices.Sort(categories)

	var clusters []cluster
	for _, cat := range categories {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		members := groups[cat]
		threshold := r.cfg.Threshold(cat)
		groupClusters := r.clusterGroup(mentions, members, cat)
		groupClusters = r.settle(mentions, groupClusters, cat)

		stats := CategoryStats{Input: len(members), Canonical: len(groupClusters), Threshold: threshold}
		stats.Merged = stats.Input - stats.Canonical
		report.Categories[cat] = stats

		logger.Debug("[Resolve] Clustered category", "category", cat, "mentions", len(members), "clusters", len(groupClusters))
		clusters = append(clusters, groupClusters...)
	}

	slices.SortFunc(clusters, func(a, b cluster) int {
		return a.members[0] - b.members[0]
	})

	out := make([]common.CanonicalEntity, 0, len(clusters))
	for _, c := range clusters {
		entity := buildCanonical(mentions, c.members)
		out = append(out, entity)
		for _, idx := range c.members {
			report.Mapping[mentions[idx].raw.ID] = entity.ID
		}
		if len(c.members) > 1 {
			report.Merges = append(report.Merges, newMergeRecord(mentions, c, entity, r.cfg.Threshold(entity.Type)))
		}
	}

	report.finish(len(mentions), len(out))
	logger.Info("[Resolve] Resolved entities", "document_id", documentID, "input", report.TotalInput, "canonical", report.TotalCanonical, "merges", report.MergeCount)
	return out, report, nil
}

func (r *Resolver) validate(raw []common.RawEntity, documentID string, report *Report) []mention {
	mentions := make([]mention, 0, len(raw))
	seen := map[string]struct{}{}
	for i, e := range raw {
		norm := common.NormalizeText(e.Text)
		if norm == "" {
			report.warn(&common.ValidationError{Kind: "entity", RecordID: e.ID, Field: "text", Reason: "is empty"})
			continue
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("raw_%d", i)
		}
		if _, dup := seen[e.ID]; dup {
			report.warn(&common.ValidationError{Kind: "entity", RecordID: e.ID, Field: "id", Reason: "is duplicated"})
			continue
		}
		seen[e.ID] = struct{}{}

		if e.Type == "" {
			e.Type = common.EntityOther
		}
		if e.Confidence == 0 || math.IsNaN(e.Confidence) {
			e.Confidence = r.cfg.DefaultConfidence
		}
		e.Confidence = common.Clamp01(e.Confidence)
		if len(e.SourceDocumentIDs) == 0 && documentID != "" {
			e.SourceDocumentIDs = []string{documentID}
		}

		mentions = append(mentions, mention{raw: e, norm: norm, index: len(mentions)})
	}
	return mentions
}

// clusterGroup runs greedy single linkage over one category group in
// input order. A mention joins the cluster holding its best-scoring member
// when that score reaches the threshold; the earliest cluster wins ties.
func (r *Resolver) clusterGroup(mentions []mention, members []int, cat common.EntityType) []cluster {
	if len(members) == 1 {
		return []cluster{{members: []int{members[0]}, method: MethodSimilarity}}
	}

	texts := make([]string, len(members))
	for k, idx := range members {
		texts[k] = mentions[idx].norm
	}
	model := newSimilarityModel(texts, r.cfg.NGramMin, r.cfg.NGramMax, r.cfg.TFIDFWeight, r.cfg.EditWeight, r.cfg.TokenWeight)
	threshold := r.cfg.Threshold(cat)
	boost := r.cfg.Boost(cat)

	var clusters []cluster
	// local[k] lists group-local positions of cluster k's members.
	var local [][]int
	for pos, idx := range members {
		bestCluster, bestMember, bestSim := -1, -1, -1.0
		for k, positions := range local {
			for _, other := range positions {
				sim := r.similarity(model, mentions, members, pos, other, boost)
				if sim > bestSim {
					bestCluster, bestMember, bestSim = k, other, sim
				}
			}
		}

		if bestCluster >= 0 && bestSim >= threshold {
			clusters[bestCluster].members = append(clusters[bestCluster].members, idx)
			clusters[bestCluster].links = append(clusters[bestCluster].links, Link{
				EntityID:   mentions[idx].raw.ID,
				LinkedTo:   mentions[members[bestMember]].raw.ID,
				Similarity: bestSim,
			})
			local[bestCluster] = append(local[bestCluster], pos)
			continue
		}
		clusters = append(clusters, cluster{members: []int{idx}, method: MethodSimilarity})
		local = append(local, []int{pos})
	}
	return clusters
}

// similarity is the final pair score in [0,1]: text similarity times the
// clamped domain boost times the mean confidence of both mentions.
func (r *Resolver) similarity(model *similarityModel, mentions []mention, members []int, a, b int, boost float64) float64 {
	text := math.Min(1, model.score(a, b)*boost)
	conf := (mentions[members[a]].raw.Confidence + mentions[members[b]].raw.Confidence) / 2
	return common.Clamp01(text * conf)
}

// settle re-scores the canonical entities of one category group against
// each other, using their merged text and confidence, and merges them until
// no pair reaches the threshold and no two share an id. Resolving the
// result again then merges nothing.
func (r *Resolver) settle(mentions []mention, clusters []cluster, cat common.EntityType) []cluster {
	for {
		clusters = r.foldCollisions(mentions, clusters, cat)
		if len(clusters) < 2 {
			return clusters
		}
		slices.SortFunc(clusters, func(a, b cluster) int {
			return a.members[0] - b.members[0]
		})

		canon := make([]mention, len(clusters))
		positions := make([]int, len(clusters))
		firstRaw := make(map[string]string, len(clusters))
		for k, c := range clusters {
			entity := buildCanonical(mentions, c.members)
			canon[k] = r.canonicalMention(entity, k)
			positions[k] = k
			firstRaw[entity.ID] = mentions[c.members[0]].raw.ID
		}

		regrouped := r.clusterGroup(canon, positions, cat)
		if len(regrouped) == len(clusters) {
			return clusters
		}

		merged := make([]cluster, 0, len(regrouped))
		for _, g := range regrouped {
			c := clusters[g.members[0]]
			for _, k := range g.members[1:] {
				c = absorb(c, clusters[k], c.method)
			}
			for _, l := range g.links {
				c.links = append(c.links, Link{
					EntityID:   firstRaw[l.EntityID],
					LinkedTo:   firstRaw[l.LinkedTo],
					Similarity: l.Similarity,
				})
			}
			merged = append(merged, c)
		}
		logger.Debug("[Resolve] Merged canonical entities", "category", cat, "before", len(clusters), "after", len(merged))
		clusters = merged
	}
}

// canonicalMention turns a canonical entity back into a mention the way
// validate would if the entity were resolved again.
func (r *Resolver) canonicalMention(e common.CanonicalEntity, index int) mention {
	conf := e.Confidence
	if conf == 0 {
		conf = r.cfg.DefaultConfidence
	}
	return mention{
		raw: common.RawEntity{
			ID:         e.ID,
			Text:       e.Text,
			Type:       e.Type,
			Confidence: common.Clamp01(conf),
		},
		norm:  common.NormalizeText(e.Text),
		index: index,
	}
}

// foldCollisions merges clusters whose canonical entities share an id,
// i.e. the same normalized category and text, until ids are unique. The
// fold link carries the real score of the two canonicals, which may be
// below the threshold.
func (r *Resolver) foldCollisions(mentions []mention, clusters []cluster, cat common.EntityType) []cluster {
	for {
		byID := map[string]int{}
		folded := make([]cluster, 0, len(clusters))
		changed := false
		for _, c := range clusters {
			entity := buildCanonical(mentions, c.members)
			if k, ok := byID[entity.ID]; ok {
				target := folded[k]
				sim := r.pairSimilarity(buildCanonical(mentions, target.members), entity, cat)
				folded[k] = absorb(target, c, MethodExactKey)
				folded[k].links = append(folded[k].links, Link{
					EntityID:   mentions[c.members[0]].raw.ID,
					LinkedTo:   mentions[target.members[0]].raw.ID,
					Similarity: sim,
				})
				changed = true
				continue
			}
			byID[entity.ID] = len(folded)
			folded = append(folded, c)
		}
		clusters = folded
		if !changed {
			return clusters
		}
	}
}

// pairSimilarity scores two canonical entities with a model fitted on just
// their texts.
func (r *Resolver) pairSimilarity(a, b common.CanonicalEntity, cat common.EntityType) float64 {
	pair := []mention{r.canonicalMention(a, 0), r.canonicalMention(b, 1)}
	model := newSimilarityModel([]string{pair[0].norm, pair[1].norm}, r.cfg.NGramMin, r.cfg.NGramMax, r.cfg.TFIDFWeight, r.cfg.EditWeight, r.cfg.TokenWeight)
	return r.similarity(model, pair, []int{0, 1}, 0, 1, r.cfg.Boost(cat))
}

// absorb appends src's members and links to dst. Members stay in input
// order; an exact-key fold anywhere marks the whole cluster.
func absorb(dst, src cluster, method string) cluster {
	out := cluster{
		members: append(slices.Clone(dst.members), src.members...),
		links:   append(slices.Clone(dst.links), src.links...),
		method:  method,
	}
	slices.Sort(out.members)
	if src.method == MethodExactKey {
		out.method = MethodExactKey
	}
	return out
}

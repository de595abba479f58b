package discover

import (
	"context"
	"math"
	"slices"

	"github.com/OFFIS-RIT/lexgraph/internal/util"
	"github.com/OFFIS-RIT/lexgraph/pkg/common"
)

type pair struct{ a, b int }

// crossDocument associates entities that appear together in at least
// MinSharedDocuments documents.
func (d *Discoverer) crossDocument(ctx context.Context, in *input) ([]common.Relationship, error) {
	minShared := max(d.cfg.MinSharedDocuments, 2)

	// Only entities seen in enough documents can qualify.
	docs := map[string][]int{}
	for i, e := range in.entities.entities {
		if len(e.DocumentIDs) < minShared {
			continue
		}
		for _, doc := range util.DedupeStrings(e.DocumentIDs) {
			docs[doc] = append(docs[doc], i)
		}
	}
	docIDs := make([]string, 0, len(docs))
	for doc := range docs {
		docIDs = append(docIDs, doc)
	}
	slices.Sort(docIDs)

	shared := map[pair][]string{}
	for _, doc := range docIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members := docs[doc]
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				p := pair{members[x], members[y]}
				shared[p] = append(shared[p], doc)
			}
		}
	}

	pairs := make([]pair, 0, len(shared))
	for p, ds := range shared {
		if len(ds) >= minShared {
			pairs = append(pairs, p)
		}
	}
	slices.SortFunc(pairs, comparePairs)

	out := make([]common.Relationship, 0, len(pairs))
	for _, p := range pairs {
		ds := shared[p]
		confidence := math.Min(d.cfg.CrossDocBase+d.cfg.CrossDocStep*float64(len(ds)), d.cfg.CrossDocCap) * d.cfg.CrossDocBoost
		out = append(out, pairEdge(in.entities, p.a, p.b, common.RelCrossDocument, confidence, common.MethodCrossDocument, sharedEvidence(ds)))
	}
	return out, nil
}

func comparePairs(x, y pair) int {
	if x.a != y.a {
		return x.a - y.a
	}
	return x.b - y.b
}

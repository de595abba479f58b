package discover

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
)

// cooccurrence links entity pairs that share at least
// CooccurrenceThreshold chunks.
func (d *Discoverer) cooccurrence(ctx context.Context, in *input) ([]common.Relationship, error) {
	located, err := in.locate(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[pair]int{}
	for _, positions := range located {
		sorted := slices.Clone(positions)
		slices.Sort(sorted)
		for x := 0; x < len(sorted); x++ {
			for y := x + 1; y < len(sorted); y++ {
				counts[pair{sorted[x], sorted[y]}]++
			}
		}
	}

	pairs := make([]pair, 0, len(counts))
	for p, n := range counts {
		if n >= d.cfg.CooccurrenceThreshold {
			pairs = append(pairs, p)
		}
	}
	slices.SortFunc(pairs, comparePairs)

	out := make([]common.Relationship, 0, len(pairs))
	for _, p := range pairs {
		n := counts[p]
		confidence := math.Min(d.cfg.CooccurrenceBase+d.cfg.CooccurrenceStep*float64(n), d.cfg.CooccurrenceCap)
		evidence := fmt.Sprintf("co-occurs in %d chunks", n)
		out = append(out, pairEdge(in.entities, p.a, p.b, common.RelFrequentlyCooccur, confidence, common.MethodCooccurrence, evidence))
	}
	return out, nil
}

package community

import (
	"fmt"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/graph"
)

const (
	ClassLegalParties        = "LEGAL_PARTIES"
	ClassCitationNetwork     = "CITATION_NETWORK"
	ClassJudicialBodies      = "JUDICIAL_BODIES"
	ClassLegalRepresentation = "LEGAL_REPRESENTATION"
	ClassMixed               = "MIXED_ENTITIES"

	centralCount = 3
)

// describe turns an accepted member set into a community record.
func (d *Detector) describe(
	g, sub *graph.Graph,
	members []int,
	byID map[string]*common.CanonicalEntity,
	coherence float64,
	level int,
	resolution float64,
) common.Community {
	ids := make([]string, len(members))
	for k, i := range members {
		ids[k] = g.ID(i)
	}
	slices.Sort(ids)

	types := make([]common.EntityType, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			types = append(types, e.Type)
		} else {
			types = append(types, common.EntityOther)
		}
	}

	central := centralEntities(sub, d.provider.DegreeCentrality(sub), centralCount)
	classification := Classify(types)
	c := common.Community{
		ID:              common.CommunityID(resolution, ids),
		Level:           level,
		Resolution:      resolution,
		Members:         ids,
		Coherence:       coherence,
		Classification:  classification,
		DominantType:    DominantCategory(types),
		CentralEntities: central,
	}
	c.Description = describeText(classification, len(ids), central, byID)
	return c
}

// centralEntities returns the ids of the k highest scoring nodes, ties
// broken by id.
func centralEntities(sub *graph.Graph, scores []float64, k int) []string {
	order := make([]int, sub.NodeCount())
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		}
		return strings.Compare(sub.ID(a), sub.ID(b))
	})
	if len(order) > k {
		order = order[:k]
	}
	out := make([]string, len(order))
	for pos, i := range order {
		out[pos] = sub.ID(i)
	}
	return out
}

// Classify labels a community by the categories of its members. Rules are
// checked in order; the first that applies wins.
func Classify(types []common.EntityType) string {
	n := len(types)
	if n == 0 {
		return ClassMixed
	}
	counts := map[common.EntityType]int{}
	citations := 0
	for _, t := range types {
		counts[t.Category()]++
		if t.IsCitationType() {
			citations++
		}
	}
	share := func(cats ...common.EntityType) float64 {
		total := 0
		for _, c := range cats {
			total += counts[c]
		}
		return float64(total) / float64(n)
	}

	switch {
	case share(common.EntityParty) > 0.6:
		return ClassLegalParties
	case citations > 2:
		return ClassCitationNetwork
	case share(common.EntityCourt, common.EntityJudge) > 0.5:
		return ClassJudicialBodies
	case share(common.EntityAttorney, common.EntityLawFirm) > 0.5:
		return ClassLegalRepresentation
	}
	if dominant := DominantCategory(types); counts[dominant]*2 > n {
		return string(dominant) + "_GROUP"
	}
	return ClassMixed
}

// DominantCategory returns the most frequent member category, the
// alphabetically first on ties.
func DominantCategory(types []common.EntityType) common.EntityType {
	counts := map[common.EntityType]int{}
	for _, t := range types {
		counts[t.Category()]++
	}
	var best common.EntityType
	for cat, n := range counts {
		if n > counts[best] || (n == counts[best] && (best == "" || cat < best)) {
			best = cat
		}
	}
	return best
}

func describeText(classification string, size int, central []string, byID map[string]*common.CanonicalEntity) string {
	label := strings.ToLower(strings.ReplaceAll(classification, "_", " "))
	names := make([]string, 0, 2)
	for _, id := range central {
		if len(names) == 2 {
			break
		}
		if e, ok := byID[id]; ok {
			names = append(names, e.Text)
		} else {
			names = append(names, id)
		}
	}
	switch len(names) {
	case 0:
		return fmt.Sprintf("%s community of %d entities", label, size)
	case 1:
		return fmt.Sprintf("%s community of %d entities centered on %s", label, size, names[0])
	}
	return fmt.Sprintf("%s community of %d entities centered on %s and %s", label, size, names[0], names[1])
}

package discover

import "github.com/OFFIS-RIT/lexgraph/pkg/common"

// edgeIndex admits each edge identity once. Symmetric relation types
// share a key for both directions (see common.EdgeKey).
type edgeIndex struct {
	keys  map[string]struct{}
	edges []common.Relationship
}

func newEdgeIndex() *edgeIndex {
	return &edgeIndex{keys: map[string]struct{}{}}
}

func (x *edgeIndex) add(r common.Relationship) bool {
	key := common.EdgeKey(r.SourceID, r.TargetID, r.Type)
	if _, ok := x.keys[key]; ok {
		return false
	}
	x.keys[key] = struct{}{}
	x.edges = append(x.edges, r)
	return true
}

// entityIndex gives the strategies positional and per-document access to
// the canonical entities.
type entityIndex struct {
	entities []common.CanonicalEntity
	pos      map[string]int
	norm     []string
	byDoc    map[string][]int
}

func newEntityIndex(entities []common.CanonicalEntity) *entityIndex {
	x := &entityIndex{
		entities: entities,
		pos:      make(map[string]int, len(entities)),
		norm:     make([]string, len(entities)),
		byDoc:    map[string][]int{},
	}
	for i, e := range entities {
		if _, dup := x.pos[e.ID]; dup {
			continue
		}
		x.pos[e.ID] = i
		x.norm[i] = common.NormalizeText(e.Text)
		for _, doc := range e.DocumentIDs {
			x.byDoc[doc] = append(x.byDoc[doc], i)
		}
	}
	return x
}

func (x *entityIndex) lookup(id string) (int, bool) {
	i, ok := x.pos[id]
	return i, ok
}

// minMatchLen keeps very short entity texts ("a", "us") from matching
// everywhere.
const minMatchLen = 3

// mentions returns the entity positions whose normalized text occurs in
// the normalized text t, in entity order.
func (x *entityIndex) mentions(t string, candidates []int) []int {
	var out []int
	for _, i := range candidates {
		n := x.norm[i]
		if len(n) < minMatchLen {
			continue
		}
		if containsWord(t, n) {
			out = append(out, i)
		}
	}
	return out
}

func (x *entityIndex) all() []int {
	out := make([]int, len(x.entities))
	for i := range out {
		out[i] = i
	}
	return out
}

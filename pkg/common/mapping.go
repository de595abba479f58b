package common

import (
	"slices"
	"strconv"
)

// IDMapping maps raw entity ids to canonical entity ids.
type IDMapping map[string]string

// RemapRelationships rewrites endpoints to canonical ids. Relationships with
// an unknown endpoint or that collapse into a self loop are returned in
// dropped.
func (m IDMapping) RemapRelationships(rels []Relationship) (out []Relationship, dropped []Relationship) {
	canonical := m.canonicalSet()
	lookup := func(id string) (string, bool) {
		if c, ok := m[id]; ok {
			return c, true
		}
		_, ok := canonical[id]
		return id, ok
	}

	out = make([]Relationship, 0, len(rels))
	for _, r := range rels {
		src, okS := lookup(r.SourceID)
		dst, okT := lookup(r.TargetID)
		if !okS || !okT || src == dst {
			dropped = append(dropped, r)
			continue
		}
		r.SourceID, r.TargetID = src, dst
		out = append(out, r)
	}
	return out, dropped
}

// RemapCitations rewrites referenced entity ids. Unknown references are
// cleared, the citation itself is kept.
func (m IDMapping) RemapCitations(cits []Citation) []Citation {
	out := make([]Citation, len(cits))
	for i, c := range cits {
		if c.ReferencedEntityID != "" {
			c.ReferencedEntityID = m[c.ReferencedEntityID]
		}
		out[i] = c
	}
	return out
}

// RemapChunks rewrites chunk entity references and removes duplicates that
// appear once several mentions resolve to the same entity.
func (m IDMapping) RemapChunks(chunks []Chunk) []Chunk {
	out := make([]Chunk, len(chunks))
	for i, ch := range chunks {
		refs := make([]string, 0, len(ch.EntityRefs))
		for _, ref := range ch.EntityRefs {
			c, ok := m[ref]
			if !ok || slices.Contains(refs, c) {
				continue
			}
			refs = append(refs, c)
		}
		ch.EntityRefs = refs
		out[i] = ch
	}
	return out
}

func (m IDMapping) canonicalSet() map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for _, c := range m {
		set[c] = struct{}{}
	}
	return set
}

func sortStrings(s []string) {
	slices.Sort(s)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

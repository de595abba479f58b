package resolve

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
)

// buildCanonical merges the mentions of one cluster. members must be in
// input order.
func buildCanonical(mentions []mention, members []int) common.CanonicalEntity {
	rep := representative(mentions, members)
	text := canonicalText(mentions, members, rep)
	typ := mentions[rep].raw.Type

	var confidence float64
	docs := []string{}
	provenance := make([]string, 0, len(members))
	for _, idx := range members {
		m := mentions[idx].raw
		confidence += m.Confidence
		provenance = append(provenance, m.ID)
		for _, d := range m.SourceDocumentIDs {
			if d != "" && !slices.Contains(docs, d) {
				docs = append(docs, d)
			}
		}
	}
	slices.Sort(docs)

	return common.CanonicalEntity{
		ID:          common.EntityID(typ, text),
		Text:        text,
		Type:        typ,
		Confidence:  common.Clamp01(confidence / float64(len(members))),
		Attributes:  mergeAttributes(mentions, members, rep),
		DocumentIDs: docs,
		Provenance:  provenance,
		MergedCount: len(members),
	}
}

// representative is the member with the highest confidence, then the
// longest text; the earliest member wins remaining ties.
func representative(mentions []mention, members []int) int {
	best := members[0]
	for _, idx := range members[1:] {
		a, b := mentions[idx], mentions[best]
		if a.raw.Confidence > b.raw.Confidence ||
			(a.raw.Confidence == b.raw.Confidence && utf8.RuneCountInString(a.norm) > utf8.RuneCountInString(b.norm)) {
			best = idx
		}
	}
	return best
}

func canonicalText(mentions []mention, members []int, rep int) string {
	if len(members) == 1 {
		return tidy(mentions[members[0]].raw.Text)
	}

	switch mentions[rep].raw.Type.Category() {
	case common.EntityCourt, common.EntityJudge:
		return pickBy(mentions, members, rep, func(s string) int { return formality(s) })
	case common.EntityParty:
		return pickBy(mentions, members, rep, func(s string) int { return len(strings.Fields(s)) })
	default:
		return mostFrequent(mentions, members, rep)
	}
}

// tidy collapses runs of whitespace without changing case.
func tidy(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// pickBy returns the text maximizing score, then length. The
// representative is preferred on a full tie, then input order.
func pickBy(mentions []mention, members []int, rep int, score func(string) int) string {
	best := tidy(mentions[rep].raw.Text)
	bestScore, bestLen := score(best), utf8.RuneCountInString(best)
	for _, idx := range members {
		text := tidy(mentions[idx].raw.Text)
		s, l := score(text), utf8.RuneCountInString(text)
		if s > bestScore || (s == bestScore && l > bestLen) {
			best, bestScore, bestLen = text, s, l
		}
	}
	return best
}

// formality counts capitalised words, so "Supreme Court" beats
// "supreme court" and "Hon. Jane Smith" beats "jane smith".
func formality(s string) int {
	n := 0
	for _, w := range strings.Fields(s) {
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) {
			n++
		}
	}
	return n
}

// mostFrequent returns the most common spelling (case-insensitive), then
// the longest. The first mention of the winning spelling supplies the text.
func mostFrequent(mentions []mention, members []int, rep int) string {
	counts := map[string]int{}
	first := map[string]string{}
	order := []string{}
	for _, idx := range members {
		norm := mentions[idx].norm
		if _, ok := first[norm]; !ok {
			first[norm] = tidy(mentions[idx].raw.Text)
			order = append(order, norm)
		}
		counts[norm]++
	}
	if repNorm := mentions[rep].norm; counts[repNorm] > 0 {
		first[repNorm] = tidy(mentions[rep].raw.Text)
	}

	best := order[0]
	for _, norm := range order[1:] {
		if counts[norm] > counts[best] ||
			(counts[norm] == counts[best] && utf8.RuneCountInString(norm) > utf8.RuneCountInString(best)) {
			best = norm
		}
	}
	return first[best]
}

// mergeAttributes starts from the representative's attributes, fills
// missing keys from the other members in order and concatenates list
// values without duplicates.
func mergeAttributes(mentions []mention, members []int, rep int) map[string]any {
	out := map[string]any{}
	for k, v := range mentions[rep].raw.Attributes {
		out[k] = v
	}

	for _, idx := range members {
		if idx == rep {
			continue
		}
		for k, v := range mentions[idx].raw.Attributes {
			existing, ok := out[k]
			if !ok || existing == nil {
				out[k] = v
				continue
			}
			if merged, ok := concatLists(existing, v); ok {
				out[k] = merged
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func concatLists(a, b any) ([]any, bool) {
	la, okA := asList(a)
	lb, okB := asList(b)
	if !okA || !okB {
		return nil, false
	}
	out := append([]any(nil), la...)
	for _, v := range lb {
		if !containsValue(out, v) {
			out = append(out, v)
		}
	}
	return out, true
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func containsValue(list []any, v any) bool {
	for _, x := range list {
		if isComparable(x) && isComparable(v) && x == v {
			return true
		}
	}
	return false
}

func isComparable(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int64, int32, uint, uint64, uint32, nil:
		return true
	}
	return false
}

package resolve

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// feature is one n-gram weight of a sparse vector kept sorted by gram so
// sums run in a fixed order.
type feature struct {
	gram   string
	weight float64
}

// similarityModel scores pairs of texts inside one category group. The
// TF-IDF weights are fitted on the group, so scores are only comparable
// within the group they were computed for.
type similarityModel struct {
	tfidfWeight float64
	editWeight  float64
	tokenWeight float64

	vectors [][]feature
	runes   [][]rune
	tokens  []map[string]struct{}
}

func newSimilarityModel(texts []string, ngramMin, ngramMax int, tfidfW, editW, tokenW float64) *similarityModel {
	m := &similarityModel{
		tfidfWeight: tfidfW,
		editWeight:  editW,
		tokenWeight: tokenW,
		vectors:     make([][]feature, len(texts)),
		runes:       make([][]rune, len(texts)),
		tokens:      make([]map[string]struct{}, len(texts)),
	}

	counts := make([]map[string]float64, len(texts))
	df := map[string]int{}
	for i, text := range texts {
		counts[i] = charNGrams(text, ngramMin, ngramMax)
		for gram := range counts[i] {
			df[gram]++
		}
		m.runes[i] = []rune(text)
		m.tokens[i] = tokenSet(text)
	}

	n := float64(len(texts))
	for i, c := range counts {
		grams := make([]string, 0, len(c))
		for gram := range c {
			grams = append(grams, gram)
		}
		slices.Sort(grams)

		vec := make([]feature, len(grams))
		var norm float64
		for k, gram := range grams {
			idf := math.Log((1+n)/(1+float64(df[gram]))) + 1
			v := c[gram] * idf
			vec[k] = feature{gram: gram, weight: v}
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range vec {
				vec[k].weight /= norm
			}
		}
		m.vectors[i] = vec
	}
	return m
}

// score is the weighted text similarity of i and j before domain boost and
// confidence weighting.
func (m *similarityModel) score(i, j int) float64 {
	total := m.tfidfWeight + m.editWeight + m.tokenWeight
	s := m.tfidfWeight*cosine(m.vectors[i], m.vectors[j]) +
		m.editWeight*editRatio(m.runes[i], m.runes[j]) +
		m.tokenWeight*jaccard(m.tokens[i], m.tokens[j])
	if total > 1 {
		s /= total
	}
	return s
}

func charNGrams(text string, minN, maxN int) map[string]float64 {
	r := []rune(text)
	grams := map[string]float64{}
	for n := minN; n <= maxN; n++ {
		if len(r) < n {
			// Short strings still get one feature so identical texts match.
			if n == minN && len(r) > 0 {
				grams[string(r)]++
			}
			continue
		}
		for i := 0; i+n <= len(r); i++ {
			grams[string(r[i:i+n])]++
		}
	}
	return grams
}

func cosine(a, b []feature) float64 {
	var dot float64
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i].gram == b[j].gram:
			dot += a[i].weight * b[j].weight
			i++
			j++
		case a[i].gram < b[j].gram:
			i++
		default:
			j++
		}
	}
	return math.Min(1, math.Max(0, dot))
}

// editRatio is 1 - levenshtein(a,b)/max(len(a),len(b)).
func editRatio(a, b []rune) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func tokenSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

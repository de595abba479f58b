package discover

import (
	"context"
	"regexp"
	"strings"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
)

// typeRule is a relation implied by the categories of two co-located
// entities, read as source category -> target category.
type typeRule struct {
	relation   common.RelationType
	confidence float64
}

var typePairs = map[[2]common.EntityType]typeRule{
	{common.EntityAttorney, common.EntityParty}:   {common.RelRepresents, 0.75},
	{common.EntityLawFirm, common.EntityParty}:    {common.RelRepresents, 0.7},
	{common.EntityAttorney, common.EntityLawFirm}: {common.RelMemberOf, 0.75},
	{common.EntityJudge, common.EntityCourt}:      {common.RelPresidesOver, 0.8},
	{common.EntityParty, common.EntityContract}:   {common.RelPartyTo, 0.7},
	{common.EntityCourt, common.EntityCase}:       {common.RelDecided, 0.7},
	{common.EntityCase, common.EntityStatute}:     {common.RelInterprets, 0.65},
	{common.EntityCase, common.EntityRegulation}:  {common.RelInterprets, 0.6},
	{common.EntityCase, common.EntityCitation}:    {common.RelCites, 0.6},
}

// cue is a phrase that, found between two mentions, names their relation.
// Passive cues point from the right mention to the left one.
type cue struct {
	relation common.RelationType
	pattern  *regexp.Regexp
	passive  bool
}

func phrase(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\pL\pN])(?:` + alternatives + `)(?:[^\pL\pN]|$)`)
}

// lexicon is checked in order; the first cue found wins.
var lexicon = []cue{
	{common.RelOwns, phrase(`subsidiary of|owned by|wholly[- ]owned by|acquired by`), true},
	{common.RelOwns, phrase(`owns|owner of|parent (?:company|corporation) of|acquired|holds a controlling interest in`), false},
	{common.RelRepresents, phrase(`represented by|defended by`), true},
	{common.RelRepresents, phrase(`counsel for|attorneys? for|on behalf of|represents|representing`), false},
	{common.RelEmploys, phrase(`employed by|employee of|works for|worked for`), true},
	{common.RelEmploys, phrase(`employs|employed|employer of|hired`), false},
	{common.RelSued, phrase(`sued by`), true},
	{common.RelSued, phrase(`v\.|vs\.?|versus|sued|filed (?:suit|a complaint|an action) against|brought (?:an )?action against`), false},
	{common.RelContractedWith, phrase(`entered into (?:an? )?(?:agreement|contract) with|contracted with|agreement with|contract with`), false},
	{common.RelAppealed, phrase(`appealed (?:to|from)|appeal to|sought review (?:in|by)`), false},
	{common.RelCites, phrase(`cited by`), true},
	{common.RelCites, phrase(`cites|cited|citing|relied on|relying on|pursuant to`), false},
	{common.RelDecided, phrase(`decided by`), true},
	{common.RelDecided, phrase(`decided|ruled (?:on|in)|held in`), false},
}

type span struct {
	entity     int
	start, end int
}

// contextualInference reads relations off co-located entity pairs: first
// the type-pair table, then cue phrases between the two mentions.
func (d *Discoverer) contextualInference(ctx context.Context, in *input) ([]common.Relationship, error) {
	positions, err := in.locate(ctx)
	if err != nil {
		return nil, err
	}

	var out []common.Relationship
	for ci, chunk := range in.chunks {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		entities := positions[ci]
		if len(entities) < 2 {
			continue
		}
		text := common.NormalizeText(chunk.Text)
		spans := make([]span, len(entities))
		for k, e := range entities {
			start := indexWord(text, in.entities.norm[e])
			spans[k] = span{entity: e, start: start, end: start + len(in.entities.norm[e])}
		}

		for x := 0; x < len(spans); x++ {
			for y := x + 1; y < len(spans); y++ {
				r, ok := d.inferPair(in.entities, spans[x], spans[y], text)
				if !ok {
					continue
				}
				r.DocumentID = chunk.DocumentID
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (d *Discoverer) inferPair(entities *entityIndex, a, b span, text string) (common.Relationship, bool) {
	catA := entities.entities[a.entity].Type.Category()
	catB := entities.entities[b.entity].Type.Category()
	evidence := excerpt(text, 200)

	if rule, ok := typePairs[[2]common.EntityType{catA, catB}]; ok {
		return pairEdge(entities, a.entity, b.entity, rule.relation, rule.confidence, common.MethodContextual, evidence), true
	}
	if rule, ok := typePairs[[2]common.EntityType{catB, catA}]; ok {
		return pairEdge(entities, b.entity, a.entity, rule.relation, rule.confidence, common.MethodContextual, evidence), true
	}

	// Cue phrases need both mentions in the text, without overlap.
	if a.start < 0 || b.start < 0 {
		return common.Relationship{}, false
	}
	left, right := a, b
	if right.start < left.start {
		left, right = right, left
	}
	if left.end > right.start {
		return common.Relationship{}, false
	}
	between := text[left.end:right.start]
	if strings.TrimSpace(between) == "" {
		return common.Relationship{}, false
	}
	for _, c := range lexicon {
		if !c.pattern.MatchString(between) {
			continue
		}
		source, target := left.entity, right.entity
		if c.passive {
			source, target = target, source
		}
		snippet := excerpt(text[left.start:right.end], 200)
		return pairEdge(entities, source, target, c.relation, d.cfg.ContextualPatternConfidence, common.MethodContextual, snippet), true
	}
	return common.Relationship{}, false
}

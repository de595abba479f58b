package discover

import (
	"context"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
)

// citationCoreference links every entity a citation mentions (or refers
// to) with every other entity of the citing document.
func (d *Discoverer) citationCoreference(ctx context.Context, in *input) ([]common.Relationship, error) {
	var out []common.Relationship
	for _, c := range in.citations {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		docEntities := in.entities.all()
		if c.DocumentID != "" {
			docEntities = in.entities.byDoc[c.DocumentID]
		}
		if len(docEntities) < 2 {
			continue
		}

		cited := in.entities.mentions(common.NormalizeText(c.Text), docEntities)
		if ref, ok := in.entities.lookup(c.ReferencedEntityID); ok && !containsInt(cited, ref) {
			cited = append(cited, ref)
		}
		if len(cited) == 0 {
			continue
		}

		confidence := d.cfg.CitationBaseConfidence * d.cfg.CitationWeight(c.Type)
		evidence := excerpt(c.Text, 200)
		for _, e := range cited {
			for _, f := range docEntities {
				if f == e {
					continue
				}
				r := pairEdge(in.entities, e, f, common.RelCitedTogether, confidence, common.MethodCitation, evidence)
				r.DocumentID = c.DocumentID
				r.CitationID = c.ID
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

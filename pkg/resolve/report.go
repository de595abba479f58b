package resolve

import (
	"strconv"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
)

const (
	MethodSimilarity = "similarity"
	MethodExactKey   = "exact_key"
)

// Link records why a mention joined its cluster: the member it matched
// and the pair similarity.
type Link struct {
	EntityID   string  `json:"entity_id"`
	LinkedTo   string  `json:"linked_to"`
	Similarity float64 `json:"similarity"`
}

// MergeRecord is the provenance of one canonical entity built from more
// than one mention.
type MergeRecord struct {
	CanonicalID   string            `json:"canonical_id"`
	CanonicalText string            `json:"canonical_text"`
	Type          common.EntityType `json:"type"`
	Members       []string          `json:"members"`
	MemberTexts   []string          `json:"member_texts"`
	Links         []Link            `json:"links"`
	Threshold     float64           `json:"threshold"`
	Method        string            `json:"method"`
}

type CategoryStats struct {
	Input     int     `json:"input"`
	Canonical int     `json:"canonical"`
	Merged    int     `json:"merged"`
	Threshold float64 `json:"threshold"`
}

// Report summarizes one resolution run.
type Report struct {
	DocumentID     string                              `json:"document_id,omitempty"`
	TotalInput     int                                 `json:"total_input"`
	Valid          int                                 `json:"valid"`
	Skipped        int                                 `json:"skipped"`
	TotalCanonical int                                 `json:"total_canonical"`
	MergeCount     int                                 `json:"merge_count"`
	DedupRate      float64                             `json:"dedup_rate"`
	Mapping        common.IDMapping                    `json:"mapping"`
	Merges         []MergeRecord                       `json:"merges"`
	Categories     map[common.EntityType]CategoryStats `json:"categories"`
	Warnings       []string                            `json:"warnings,omitempty"`
}

func newReport(documentID string, total int) Report {
	return Report{
		DocumentID: documentID,
		TotalInput: total,
		Mapping:    common.IDMapping{},
		Merges:     []MergeRecord{},
		Categories: map[common.EntityType]CategoryStats{},
	}
}

func (r *Report) warn(err error) {
	r.Skipped++
	r.Warnings = append(r.Warnings, err.Error())
}

func (r *Report) finish(valid, canonical int) {
	r.Valid = valid
	r.TotalCanonical = canonical
	r.MergeCount = valid - canonical
	if valid > 0 {
		r.DedupRate = float64(r.MergeCount) / float64(valid)
	}
}

func newMergeRecord(mentions []mention, c cluster, entity common.CanonicalEntity, threshold float64) MergeRecord {
	rec := MergeRecord{
		CanonicalID:   entity.ID,
		CanonicalText: entity.Text,
		Type:          entity.Type,
		Links:         c.links,
		Threshold:     threshold,
		Method:        c.method,
	}
	for _, idx := range c.members {
		rec.Members = append(rec.Members, mentions[idx].raw.ID)
		rec.MemberTexts = append(rec.MemberTexts, mentions[idx].raw.Text)
	}
	return rec
}

// PassThrough converts raw entities 1:1 into canonical entities without
// any merging. It is used when resolution is switched off; ids are still
// derived from category and text, so exact duplicates share an id and are
// collapsed to the first occurrence.
func PassThrough(raw []common.RawEntity, documentID string) ([]common.CanonicalEntity, Report) {
	report := newReport(documentID, len(raw))
	out := make([]common.CanonicalEntity, 0, len(raw))
	index := map[string]int{}
	for i, e := range raw {
		if common.NormalizeText(e.Text) == "" {
			report.warn(&common.ValidationError{Kind: "entity", RecordID: e.ID, Field: "text", Reason: "is empty"})
			continue
		}
		if e.Type == "" {
			e.Type = common.EntityOther
		}
		docs := e.SourceDocumentIDs
		if len(docs) == 0 && documentID != "" {
			docs = []string{documentID}
		}
		id := common.EntityID(e.Type, e.Text)
		rawID := e.ID
		if rawID == "" {
			rawID = "raw_" + strconv.Itoa(i)
		}
		report.Mapping[rawID] = id
		if _, ok := index[id]; ok {
			continue
		}
		index[id] = len(out)
		out = append(out, common.CanonicalEntity{
			ID:          id,
			Text:        e.Text,
			Type:        e.Type,
			Confidence:  common.Clamp01(e.Confidence),
			Attributes:  e.Attributes,
			DocumentIDs: docs,
			Provenance:  []string{rawID},
			MergedCount: 1,
		})
	}
	report.finish(len(raw)-report.Skipped, len(out))
	return out, report
}

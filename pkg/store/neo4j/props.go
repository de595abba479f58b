package neo4j

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
)

// Neo4j properties hold primitives and lists only, so attribute maps travel
// as JSON strings.

func entityProps(e common.CanonicalEntity) (map[string]any, error) {
	attrs := "{}"
	if len(e.Attributes) > 0 {
		b, err := json.Marshal(e.Attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to encode attributes of %s: %w", e.ID, err)
		}
		attrs = string(b)
	}
	return map[string]any{
		"id":              e.ID,
		"text":            e.Text,
		"type":            string(e.Type),
		"category":        string(e.Type.Category()),
		"confidence":      e.Confidence,
		"attributes_json": attrs,
		"document_ids":    stringList(e.DocumentIDs),
		"provenance":      stringList(e.Provenance),
		"merged_count":    int64(e.MergedCount),
	}, nil
}

func entityFromProps(p map[string]any) (common.CanonicalEntity, error) {
	e := common.CanonicalEntity{
		ID:          asString(p["id"]),
		Text:        asString(p["text"]),
		Type:        common.EntityType(asString(p["type"])),
		Confidence:  asFloat(p["confidence"]),
		DocumentIDs: asStrings(p["document_ids"]),
		Provenance:  asStrings(p["provenance"]),
		MergedCount: int(asInt(p["merged_count"])),
	}
	if raw := asString(p["attributes_json"]); raw != "" && raw != "{}" {
		if err := json.Unmarshal([]byte(raw), &e.Attributes); err != nil {
			return e, fmt.Errorf("failed to decode attributes of %s: %w", e.ID, err)
		}
	}
	return e, nil
}

func relationshipProps(r common.Relationship) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"source_id":   r.SourceID,
		"target_id":   r.TargetID,
		"type":        string(r.Type),
		"confidence":  r.Confidence,
		"method":      string(r.Method),
		"evidence":    r.Evidence,
		"document_id": r.DocumentID,
		"citation_id": r.CitationID,
		"source_text": r.SourceText,
		"source_type": string(r.SourceType),
		"target_text": r.TargetText,
		"target_type": string(r.TargetType),
	}
}

func relationshipFromProps(p map[string]any) common.Relationship {
	return common.Relationship{
		ID:         asString(p["id"]),
		SourceID:   asString(p["source_id"]),
		TargetID:   asString(p["target_id"]),
		Type:       common.RelationType(asString(p["type"])),
		Confidence: asFloat(p["confidence"]),
		Method:     common.DiscoveryMethod(asString(p["method"])),
		Evidence:   asString(p["evidence"]),
		DocumentID: asString(p["document_id"]),
		CitationID: asString(p["citation_id"]),
		SourceText: asString(p["source_text"]),
		SourceType: common.EntityType(asString(p["source_type"])),
		TargetText: asString(p["target_text"]),
		TargetType: common.EntityType(asString(p["target_type"])),
	}
}

func communityProps(c common.Community) map[string]any {
	return map[string]any{
		"id":               c.ID,
		"level":            int64(c.Level),
		"resolution":       c.Resolution,
		"members":          stringList(c.Members),
		"size":             int64(c.Size()),
		"coherence":        c.Coherence,
		"classification":   c.Classification,
		"dominant_type":    string(c.DominantType),
		"central_entities": stringList(c.CentralEntities),
		"description":      c.Description,
		"title":            c.Title,
		"summary":          c.Summary,
		"summary_status":   string(c.SummaryStatus),
	}
}

func communityFromProps(p map[string]any) common.Community {
	return common.Community{
		ID:              asString(p["id"]),
		Level:           int(asInt(p["level"])),
		Resolution:      asFloat(p["resolution"]),
		Members:         asStrings(p["members"]),
		Coherence:       asFloat(p["coherence"]),
		Classification:  asString(p["classification"]),
		DominantType:    common.EntityType(asString(p["dominant_type"])),
		CentralEntities: asStrings(p["central_entities"]),
		Description:     asString(p["description"]),
		Title:           asString(p["title"]),
		Summary:         asString(p["summary"]),
		SummaryStatus:   common.SummaryStatus(asString(p["summary_status"])),
	}
}

func stringList(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	}
	return 0
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	}
	return 0
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

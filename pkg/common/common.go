package common

// RawEntity is a single entity mention as produced by upstream extraction.
// Several raw entities usually denote the same real-world thing; the
// resolver folds them into one CanonicalEntity.
type RawEntity struct {
	ID                string         `json:"id"`
	Text              string         `json:"text"`
	Type              EntityType     `json:"type"`
	Confidence        float64        `json:"confidence"`
	Attributes        map[string]any `json:"attributes,omitempty"`
	SourceDocumentIDs []string       `json:"source_document_ids,omitempty"`
}

// CanonicalEntity is the merged record representing a cluster of raw
// mentions. Its ID is derived from the normalized category and text (see
// EntityID) and is the natural key used when persisting nodes.
//
// Provenance lists the raw entity ids that were merged into this entity.
type CanonicalEntity struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Type        EntityType     `json:"type"`
	Confidence  float64        `json:"confidence"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	DocumentIDs []string       `json:"document_ids"`
	Provenance  []string       `json:"provenance"`
	MergedCount int            `json:"merged_count"`
}

// Relationship is an edge between two entities. Relationships supplied by
// the caller reference raw entity ids; after resolution every relationship
// references canonical ids only.
//
// SourceText, SourceType, TargetText and TargetType are denormalized copies
// of the endpoint entities filled in by the discoverer.
type Relationship struct {
	ID         string          `json:"id"`
	SourceID   string          `json:"source_id"`
	TargetID   string          `json:"target_id"`
	Type       RelationType    `json:"type"`
	Confidence float64         `json:"confidence"`
	Method     DiscoveryMethod `json:"method,omitempty"`
	Evidence   string          `json:"evidence,omitempty"`
	DocumentID string          `json:"document_id,omitempty"`
	CitationID string          `json:"citation_id,omitempty"`
	SourceText string          `json:"source_text,omitempty"`
	SourceType EntityType      `json:"source_type,omitempty"`
	TargetText string          `json:"target_text,omitempty"`
	TargetType EntityType      `json:"target_type,omitempty"`
}

// Citation is a legal citation found in a document.
type Citation struct {
	ID                 string       `json:"id,omitempty"`
	DocumentID         string       `json:"document_id"`
	Text               string       `json:"citation_text"`
	Type               CitationType `json:"type,omitempty"`
	ReferencedEntityID string       `json:"referenced_entity_id,omitempty"`
}

// Chunk is a contiguous text segment of a document together with the
// entities extraction found in it.
type Chunk struct {
	ID         string   `json:"id"`
	DocumentID string   `json:"document_id,omitempty"`
	Text       string   `json:"text"`
	EntityRefs []string `json:"source_entity_refs,omitempty"`
}

// SummaryStatus tells whether a community summary came from the text
// generator or from the heuristic description.
type SummaryStatus string

const (
	SummaryNone      SummaryStatus = ""
	SummaryGenerated SummaryStatus = "generated"
	SummaryFallback  SummaryStatus = "fallback"
)

// Community is a group of densely connected canonical entities.
type Community struct {
	ID              string        `json:"id"`
	Level           int           `json:"level"`
	Resolution      float64       `json:"resolution"`
	Members         []string      `json:"members"`
	Coherence       float64       `json:"coherence"`
	Classification  string        `json:"classification"`
	DominantType    EntityType    `json:"dominant_type,omitempty"`
	CentralEntities []string      `json:"central_entities"`
	Description     string        `json:"description"`
	Title           string        `json:"title,omitempty"`
	Summary         string        `json:"summary,omitempty"`
	SummaryStatus   SummaryStatus `json:"summary_status,omitempty"`
}

// Size returns the number of member entities.
func (c Community) Size() int {
	return len(c.Members)
}

// Membership links an entity to a community. The pair is the natural key.
type Membership struct {
	CommunityID string `json:"community_id"`
	EntityID    string `json:"entity_id"`
	Level       int    `json:"level"`
}

// Tags are opaque tenant, client or case identifiers attached by the caller.
// They are stored alongside every record and never interpreted.
type Tags map[string]string

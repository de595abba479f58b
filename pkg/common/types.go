package common

import "strings"

// EntityType tags the kind of a legal entity.
type EntityType string

const (
	EntityParty            EntityType = "PARTY"
	EntityIndividual       EntityType = "INDIVIDUAL"
	EntityCorporation      EntityType = "CORPORATION"
	EntityGovernmentAgency EntityType = "GOVERNMENT_AGENCY"
	EntityOrganization     EntityType = "ORGANIZATION"
	EntityPlaintiff        EntityType = "PLAINTIFF"
	EntityDefendant        EntityType = "DEFENDANT"
	EntityAppellant        EntityType = "APPELLANT"
	EntityAppellee         EntityType = "APPELLEE"
	EntityPetitioner       EntityType = "PETITIONER"
	EntityRespondent       EntityType = "RESPONDENT"

	EntityCourt          EntityType = "COURT"
	EntityFederalCourt   EntityType = "FEDERAL_COURT"
	EntityStateCourt     EntityType = "STATE_COURT"
	EntityAppellateCourt EntityType = "APPELLATE_COURT"

	EntityJudge      EntityType = "JUDGE"
	EntityJustice    EntityType = "JUSTICE"
	EntityMagistrate EntityType = "MAGISTRATE"

	EntityAttorney EntityType = "ATTORNEY"
	EntityLawyer   EntityType = "LAWYER"
	EntityCounsel  EntityType = "COUNSEL"
	EntityLawFirm  EntityType = "LAW_FIRM"

	EntityCitation           EntityType = "CITATION"
	EntityCaseCitation       EntityType = "CASE_CITATION"
	EntityStatuteCitation    EntityType = "STATUTE_CITATION"
	EntityRegulationCitation EntityType = "REGULATION_CITATION"
	EntityStatute            EntityType = "STATUTE"
	EntityRegulation         EntityType = "REGULATION"
	EntityCase               EntityType = "CASE"

	EntityContract       EntityType = "CONTRACT"
	EntityLegalConcept   EntityType = "LEGAL_CONCEPT"
	EntityDate           EntityType = "DATE"
	EntityMonetaryAmount EntityType = "MONETARY_AMOUNT"
	EntityLocation       EntityType = "LOCATION"
	EntityDocument       EntityType = "DOCUMENT"
	EntityOther          EntityType = "OTHER"
)

// hierarchy folds subtypes into the parent category thresholds and
// domain boosts are keyed on.
var hierarchy = map[EntityType]EntityType{
	EntityIndividual:       EntityParty,
	EntityCorporation:      EntityParty,
	EntityGovernmentAgency: EntityParty,
	EntityOrganization:     EntityParty,
	EntityPlaintiff:        EntityParty,
	EntityDefendant:        EntityParty,
	EntityAppellant:        EntityParty,
	EntityAppellee:         EntityParty,
	EntityPetitioner:       EntityParty,
	EntityRespondent:       EntityParty,

	EntityFederalCourt:   EntityCourt,
	EntityStateCourt:     EntityCourt,
	EntityAppellateCourt: EntityCourt,

	EntityJustice:    EntityJudge,
	EntityMagistrate: EntityJudge,

	EntityLawyer:  EntityAttorney,
	EntityCounsel: EntityAttorney,

	EntityCaseCitation:       EntityCitation,
	EntityStatuteCitation:    EntityCitation,
	EntityRegulationCitation: EntityCitation,
}

var knownTypes = func() map[EntityType]struct{} {
	m := map[EntityType]struct{}{}
	for sub, parent := range hierarchy {
		m[sub] = struct{}{}
		m[parent] = struct{}{}
	}
	for _, t := range []EntityType{
		EntityLawFirm, EntityStatute, EntityRegulation, EntityCase, EntityContract,
		EntityLegalConcept, EntityDate, EntityMonetaryAmount, EntityLocation,
		EntityDocument, EntityOther,
	} {
		m[t] = struct{}{}
	}
	return m
}()

// ParseEntityType normalizes free-form type labels ("corporation",
// "law firm") to an EntityType. Unknown labels map to EntityOther.
func ParseEntityType(s string) EntityType {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	t := EntityType(s)
	if _, ok := knownTypes[t]; ok {
		return t
	}
	return EntityOther
}

// Category returns the parent category of t, or t itself when it has none.
func (t EntityType) Category() EntityType {
	if parent, ok := hierarchy[t]; ok {
		return parent
	}
	if t == "" {
		return EntityOther
	}
	return t
}

// IsCitationType reports whether t denotes a citation or a cited authority.
func (t EntityType) IsCitationType() bool {
	switch t.Category() {
	case EntityCitation, EntityStatute, EntityRegulation, EntityCase:
		return true
	}
	return false
}

// IsLegalType reports whether t is one of the legal-domain entity kinds.
func (t EntityType) IsLegalType() bool {
	switch t.Category() {
	case EntityParty, EntityCourt, EntityJudge, EntityAttorney, EntityLawFirm:
		return true
	}
	return t.IsCitationType()
}

// RelationType tags the kind of a relationship.
type RelationType string

const (
	RelCitedTogether     RelationType = "CITED_TOGETHER"
	RelCrossDocument     RelationType = "CROSS_DOCUMENT_ASSOCIATION"
	RelFrequentlyCooccur RelationType = "FREQUENTLY_COOCCURS"
	RelSharedCitation    RelationType = "SHARED_CITATION"
	RelRelatedTo         RelationType = "RELATED_TO"
	RelCoParty           RelationType = "CO_PARTY"

	RelOwns           RelationType = "OWNS"
	RelSubsidiaryOf   RelationType = "SUBSIDIARY_OF"
	RelRepresents     RelationType = "REPRESENTS"
	RelCounselFor     RelationType = "COUNSEL_FOR"
	RelMemberOf       RelationType = "MEMBER_OF"
	RelEmploys        RelationType = "EMPLOYS"
	RelSued           RelationType = "SUED"
	RelContractedWith RelationType = "CONTRACTED_WITH"
	RelPartyTo        RelationType = "PARTY_TO"
	RelPresidesOver   RelationType = "PRESIDES_OVER"
	RelDecided        RelationType = "DECIDED"
	RelAppealed       RelationType = "APPEALED"
	RelCites          RelationType = "CITES"
	RelInterprets     RelationType = "INTERPRETS"
)

var symmetricRelations = map[RelationType]struct{}{
	RelCitedTogether:     {},
	RelCrossDocument:     {},
	RelFrequentlyCooccur: {},
	RelSharedCitation:    {},
	RelRelatedTo:         {},
	RelCoParty:           {},
}

// IsSymmetric reports whether (a,b,r) and (b,a,r) denote the same edge.
func (r RelationType) IsSymmetric() bool {
	_, ok := symmetricRelations[r]
	return ok
}

// IsOwnershipOrRepresentation covers control and agency relations.
func (r RelationType) IsOwnershipOrRepresentation() bool {
	switch r {
	case RelOwns, RelSubsidiaryOf, RelRepresents, RelCounselFor, RelMemberOf:
		return true
	}
	return false
}

// IsCitation covers relations that stem from citations.
func (r RelationType) IsCitation() bool {
	switch r {
	case RelCites, RelCitedTogether, RelInterprets, RelSharedCitation:
		return true
	}
	return false
}

// DiscoveryMethod records how a relationship was found.
type DiscoveryMethod string

const (
	MethodExtracted     DiscoveryMethod = "extracted"
	MethodCitation      DiscoveryMethod = "citation_coreference"
	MethodCrossDocument DiscoveryMethod = "cross_document"
	MethodContextual    DiscoveryMethod = "contextual_inference"
	MethodCooccurrence  DiscoveryMethod = "cooccurrence"
)

// CitationType tags the kind of authority a citation refers to.
type CitationType string

const (
	CitationCase       CitationType = "CASE"
	CitationStatute    CitationType = "STATUTE"
	CitationRegulation CitationType = "REGULATION"
	CitationOther      CitationType = "OTHER"
)

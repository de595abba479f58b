package analytics

import "github.com/OFFIS-RIT/lexgraph/pkg/common"

// Metric names used as keys of Bundle.Unavailable.
const (
	MetricDiameter         = "diameter"
	MetricRadius           = "radius"
	MetricBetweenness      = "betweenness"
	MetricCloseness        = "closeness"
	MetricEigenvector      = "eigenvector"
	MetricPageRank         = "pagerank"
	MetricNodeConnectivity = "node_connectivity"
	MetricEdgeConnectivity = "edge_connectivity"
	MetricAssortativity    = "degree_assortativity"
	MetricModularity       = "modularity"
)

// Bundle is the complete analytics record of one graph. Metrics that
// could not be computed are nil and listed in Unavailable with a reason.
type Bundle struct {
	Basic        Basic             `json:"basic"`
	Centrality   Centrality        `json:"centrality"`
	Connectivity Connectivity      `json:"connectivity"`
	Community    CommunityStats    `json:"community"`
	Domain       Domain            `json:"domain"`
	Quality      Quality           `json:"quality"`
	Unavailable  map[string]string `json:"unavailable,omitempty"`
}

type Basic struct {
	Nodes             int     `json:"nodes"`
	Edges             int     `json:"edges"`
	Density           float64 `json:"density"`
	AverageDegree     float64 `json:"average_degree"`
	Components        int     `json:"components"`
	Connected         bool    `json:"connected"`
	Diameter          *int    `json:"diameter,omitempty"`
	Radius            *int    `json:"radius,omitempty"`
	AverageClustering float64 `json:"average_clustering"`
	Transitivity      float64 `json:"transitivity"`
}

// Ranked is one entry of a top list.
type Ranked struct {
	EntityID string  `json:"entity_id"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// Summary condenses one centrality measure.
type Summary struct {
	Mean   float64            `json:"mean"`
	Std    float64            `json:"std"`
	Max    float64            `json:"max"`
	Values map[string]float64 `json:"values"`
	Top    []Ranked           `json:"top"`
}

type Centrality struct {
	Degree      *Summary `json:"degree,omitempty"`
	Betweenness *Summary `json:"betweenness,omitempty"`
	Closeness   *Summary `json:"closeness,omitempty"`
	Eigenvector *Summary `json:"eigenvector,omitempty"`
	PageRank    *Summary `json:"pagerank,omitempty"`
}

type Connectivity struct {
	ComponentSizes     []int       `json:"component_sizes"`
	LargestComponent   int         `json:"largest_component"`
	NodeConnectivity   *int        `json:"node_connectivity,omitempty"`
	EdgeConnectivity   *int        `json:"edge_connectivity,omitempty"`
	Bridges            [][2]string `json:"bridges"`
	BridgeCount        int         `json:"bridge_count"`
	ArticulationPoints []string    `json:"articulation_points"`
	ArticulationCount  int         `json:"articulation_count"`
	Assortativity      *float64    `json:"degree_assortativity,omitempty"`
}

type CommunityStats struct {
	Count           int            `json:"count"`
	Sizes           []int          `json:"sizes"`
	MeanSize        float64        `json:"mean_size"`
	LargestSize     int            `json:"largest_size"`
	MeanCoherence   float64        `json:"mean_coherence"`
	Classifications map[string]int `json:"classifications"`
	Coverage        float64        `json:"coverage"`
	Modularity      *float64       `json:"modularity,omitempty"`
}

type Domain struct {
	EntityTypes               map[common.EntityType]int      `json:"entity_types"`
	RelationTypes             map[common.RelationType]int    `json:"relation_types"`
	Methods                   map[common.DiscoveryMethod]int `json:"methods"`
	LegalEntityRatio          float64                        `json:"legal_entity_ratio"`
	CitationRelationshipRatio float64                        `json:"citation_relationship_ratio"`
	CrossDocumentRatio        float64                        `json:"cross_document_ratio"`
	CategoryDensity           map[common.EntityType]float64  `json:"category_density"`
}

// Quality grades the graph. Overall is the plain mean of the five
// component scores.
type Quality struct {
	Completeness           float64  `json:"completeness"`
	EntityConfidence       float64  `json:"entity_confidence"`
	RelationshipConfidence float64  `json:"relationship_confidence"`
	Coherence              float64  `json:"coherence"`
	Coverage               float64  `json:"coverage"`
	Overall                float64  `json:"overall"`
	Grade                  string   `json:"grade"`
	Warnings               []string `json:"warnings,omitempty"`
	Suggestions            []string `json:"suggestions,omitempty"`
}

func (b *Bundle) unavailable(metric string, err error) {
	if b.Unavailable == nil {
		b.Unavailable = map[string]string{}
	}
	b.Unavailable[metric] = err.Error()
}

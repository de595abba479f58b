package discover

import "github.com/OFFIS-RIT/lexgraph/pkg/common"

// Strategy names used as report keys.
const (
	StrategyExisting     = "existing"
	StrategyCitation     = "citation_coreference"
	StrategyCrossDoc     = "cross_document"
	StrategyContextual   = "contextual_inference"
	StrategyCooccurrence = "cooccurrence"
)

// StrategyStats counts what one strategy produced. Duplicates are
// candidates rejected because an edge with the same identity already
// existed.
type StrategyStats struct {
	Candidates int    `json:"candidates"`
	Added      int    `json:"added"`
	Duplicates int    `json:"duplicates"`
	Skipped    bool   `json:"skipped,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report summarizes one discovery run.
type Report struct {
	InputEntities        int                            `json:"input_entities"`
	InputRelationships   int                            `json:"input_relationships"`
	Strategies           map[string]StrategyStats       `json:"strategies"`
	Invalid              int                            `json:"invalid"`
	DroppedLowConfidence int                            `json:"dropped_low_confidence"`
	Total                int                            `json:"total"`
	ByType               map[common.RelationType]int    `json:"by_type"`
	ByMethod             map[common.DiscoveryMethod]int `json:"by_method"`
	Warnings             []string                       `json:"warnings,omitempty"`
}

func newReport(entities, relationships int) Report {
	return Report{
		InputEntities:      entities,
		InputRelationships: relationships,
		Strategies:         map[string]StrategyStats{},
		ByType:             map[common.RelationType]int{},
		ByMethod:           map[common.DiscoveryMethod]int{},
	}
}

func (r *Report) warn(err error) {
	r.Warnings = append(r.Warnings, err.Error())
}

func (r *Report) skip(strategy, reason string) {
	r.Strategies[strategy] = StrategyStats{Skipped: true, Reason: reason}
}

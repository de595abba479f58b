package pipeline

import (
	"fmt"

	"github.com/OFFIS-RIT/lexgraph/pkg/analytics"
	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/community"
	"github.com/OFFIS-RIT/lexgraph/pkg/discover"
	"github.com/OFFIS-RIT/lexgraph/pkg/resolve"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
)

// Stage is a state of the run state machine.
type Stage string

const (
	StageInit      Stage = "INIT"
	StageResolve   Stage = "RESOLVE_ENTITIES"
	StageDiscover  Stage = "DISCOVER_RELATIONSHIPS"
	StageDetect    Stage = "DETECT_COMMUNITIES"
	StageSummarize Stage = "SUMMARIZE_COMMUNITIES"
	StageAnalytics Stage = "COMPUTE_ANALYTICS"
	StagePersist   Stage = "PERSIST"
	StageDone      Stage = "DONE"
	StageError     Stage = "ERROR"
)

// Input is everything a caller supplies for one run. Relationships,
// citations and chunks reference raw entity ids.
type Input struct {
	RunID         string                `json:"run_id,omitempty"`
	DocumentID    string                `json:"document_id"`
	Tags          common.Tags           `json:"tags,omitempty"`
	Entities      []common.RawEntity    `json:"entities"`
	Relationships []common.Relationship `json:"relationships,omitempty"`
	Citations     []common.Citation     `json:"citations,omitempty"`
	Chunks        []common.Chunk        `json:"chunks,omitempty"`
}

// StageRecord is the metadata of one stage. Disabled or skipped stages
// still produce a record so consumers always see all stages.
type StageRecord struct {
	Stage     Stage  `json:"stage"`
	Enabled   bool   `json:"enabled"`
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
	Input     int    `json:"input"`
	Output    int    `json:"output"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Summary is the headline of a run.
type Summary struct {
	RunID             string  `json:"run_id"`
	DocumentID        string  `json:"document_id,omitempty"`
	RawEntities       int     `json:"raw_entities"`
	CanonicalEntities int     `json:"canonical_entities"`
	Merges            int     `json:"merges"`
	DedupRate         float64 `json:"dedup_rate"`
	Relationships     int     `json:"relationships"`
	Communities       int     `json:"communities"`
	Density           float64 `json:"density"`
	ElapsedMs         int64   `json:"elapsed_ms"`
}

// Reports gathers the per-stage reports.
type Reports struct {
	Resolution resolve.Report          `json:"resolution"`
	Discovery  discover.Report         `json:"discovery"`
	Detection  []community.Report      `json:"detection"`
	Summaries  community.SummaryReport `json:"summaries"`
}

// Result is returned by every run. On failure Success is false, State is
// ERROR and Failure says where and why; the remaining fields hold what was
// computed before the failing stage.
type Result struct {
	Success       bool                     `json:"success"`
	State         Stage                    `json:"state"`
	Summary       Summary                  `json:"summary"`
	Quality       analytics.Quality        `json:"quality"`
	Entities      []common.CanonicalEntity `json:"entities"`
	Relationships []common.Relationship    `json:"relationships"`
	Communities   []common.Community       `json:"communities"`
	Levels        []community.Level        `json:"levels,omitempty"`
	Memberships   []common.Membership      `json:"memberships"`
	Analytics     analytics.Bundle         `json:"analytics"`
	Highlights    []string                 `json:"highlights"`
	Provenance    []resolve.MergeRecord    `json:"provenance"`
	Reports       Reports                  `json:"reports"`
	Receipt       *store.Receipt           `json:"receipt,omitempty"`
	Stages        []StageRecord            `json:"stages"`
	Warnings      []string                 `json:"warnings,omitempty"`
	Failure       *Failure                 `json:"failure,omitempty"`
}

// Failure is the structured error of a failed run. Retryable is set when
// the cause was outside the input: persistence errors, timeouts and
// cancellation.
type Failure struct {
	Stage     Stage  `json:"stage"`
	Message   string `json:"message"`
	RunID     string `json:"run_id"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Retryable bool   `json:"retryable"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("run %s failed in %s: %s", f.RunID, f.Stage, f.Message)
}

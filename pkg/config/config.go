// Package config holds the immutable configuration injected into every
// graph-construction component. A Config is built once (Default, Load,
// ApplyEnv), validated, and then only read.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"

	"github.com/go-playground/validator"
)

// ErrInvalidConfig is returned (wrapped) by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Stage keys used in PipelineConfig.Stages.
const (
	StageResolve   = "resolve_entities"
	StageDiscover  = "discover_relationships"
	StageDetect    = "detect_communities"
	StageSummarize = "summarize_communities"
	StageAnalytics = "compute_analytics"
	StagePersist   = "persist"
)

// Duration wraps time.Duration so YAML, TOML and JSON can all carry "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("failed to parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Resolution ResolutionConfig `yaml:"resolution" toml:"resolution" json:"resolution"`
	Discovery  DiscoveryConfig  `yaml:"discovery" toml:"discovery" json:"discovery"`
	Community  CommunityConfig  `yaml:"community" toml:"community" json:"community"`
	Analytics  AnalyticsConfig  `yaml:"analytics" toml:"analytics" json:"analytics"`
	Summary    SummaryConfig    `yaml:"summary" toml:"summary" json:"summary"`
	Pipeline   PipelineConfig   `yaml:"pipeline" toml:"pipeline" json:"pipeline"`
	Store      StoreConfig      `yaml:"store" toml:"store" json:"store"`
}

// ResolutionConfig drives entity resolution. Map keys are entity
// categories ("PARTY", "COURT", ...).
type ResolutionConfig struct {
	Thresholds        map[string]float64 `yaml:"thresholds" toml:"thresholds" json:"thresholds" validate:"dive,gte=0,lte=1"`
	DefaultThreshold  float64            `yaml:"default_threshold" toml:"default_threshold" json:"default_threshold" validate:"gte=0,lte=1"`
	DomainBoosts      map[string]float64 `yaml:"domain_boosts" toml:"domain_boosts" json:"domain_boosts" validate:"dive,gte=0"`
	TFIDFWeight       float64            `yaml:"tfidf_weight" toml:"tfidf_weight" json:"tfidf_weight" validate:"gte=0,lte=1"`
	EditWeight        float64            `yaml:"edit_weight" toml:"edit_weight" json:"edit_weight" validate:"gte=0,lte=1"`
	TokenWeight       float64            `yaml:"token_weight" toml:"token_weight" json:"token_weight" validate:"gte=0,lte=1"`
	NGramMin          int                `yaml:"ngram_min" toml:"ngram_min" json:"ngram_min" validate:"min=1"`
	NGramMax          int                `yaml:"ngram_max" toml:"ngram_max" json:"ngram_max" validate:"min=1"`
	DefaultConfidence float64            `yaml:"default_confidence" toml:"default_confidence" json:"default_confidence" validate:"gt=0,lte=1"`
}

// Threshold returns the merge threshold for the category of t.
func (r ResolutionConfig) Threshold(t common.EntityType) float64 {
	if v, ok := r.Thresholds[string(t.Category())]; ok {
		return v
	}
	return r.DefaultThreshold
}

// Boost returns the domain boost for the category of t, 1.0 when unset.
func (r ResolutionConfig) Boost(t common.EntityType) float64 {
	if v, ok := r.DomainBoosts[string(t.Category())]; ok {
		return v
	}
	return 1.0
}

type DiscoveryConfig struct {
	EnableCitation      bool `yaml:"enable_citation" toml:"enable_citation" json:"enable_citation"`
	EnableCrossDocument bool `yaml:"enable_cross_document" toml:"enable_cross_document" json:"enable_cross_document"`
	EnableContextual    bool `yaml:"enable_contextual" toml:"enable_contextual" json:"enable_contextual"`
	EnableCooccurrence  bool `yaml:"enable_cooccurrence" toml:"enable_cooccurrence" json:"enable_cooccurrence"`

	CitationBaseConfidence float64            `yaml:"citation_base_confidence" toml:"citation_base_confidence" json:"citation_base_confidence" validate:"gte=0,lte=1"`
	CitationWeights        map[string]float64 `yaml:"citation_weights" toml:"citation_weights" json:"citation_weights" validate:"dive,gte=0"`
	DefaultCitationWeight  float64            `yaml:"default_citation_weight" toml:"default_citation_weight" json:"default_citation_weight" validate:"gte=0"`

	MinSharedDocuments int     `yaml:"min_shared_documents" toml:"min_shared_documents" json:"min_shared_documents" validate:"min=2"`
	CrossDocBase       float64 `yaml:"cross_doc_base" toml:"cross_doc_base" json:"cross_doc_base" validate:"gte=0,lte=1"`
	CrossDocStep       float64 `yaml:"cross_doc_step" toml:"cross_doc_step" json:"cross_doc_step" validate:"gte=0,lte=1"`
	CrossDocCap        float64 `yaml:"cross_doc_cap" toml:"cross_doc_cap" json:"cross_doc_cap" validate:"gte=0,lte=1"`
	CrossDocBoost      float64 `yaml:"cross_doc_boost" toml:"cross_doc_boost" json:"cross_doc_boost" validate:"gte=0"`

	ContextualPatternConfidence float64 `yaml:"contextual_pattern_confidence" toml:"contextual_pattern_confidence" json:"contextual_pattern_confidence" validate:"gte=0,lte=1"`

	CooccurrenceThreshold int     `yaml:"cooccurrence_threshold" toml:"cooccurrence_threshold" json:"cooccurrence_threshold" validate:"min=1"`
	CooccurrenceBase      float64 `yaml:"cooccurrence_base" toml:"cooccurrence_base" json:"cooccurrence_base" validate:"gte=0,lte=1"`
	CooccurrenceStep      float64 `yaml:"cooccurrence_step" toml:"cooccurrence_step" json:"cooccurrence_step" validate:"gte=0,lte=1"`
	CooccurrenceCap       float64 `yaml:"cooccurrence_cap" toml:"cooccurrence_cap" json:"cooccurrence_cap" validate:"gte=0,lte=1"`

	DefaultConfidence float64 `yaml:"default_confidence" toml:"default_confidence" json:"default_confidence" validate:"gt=0,lte=1"`
	MinConfidence     float64 `yaml:"min_confidence" toml:"min_confidence" json:"min_confidence" validate:"gte=0,lte=1"`
}

// CitationWeight returns the weight of a citation type.
func (d DiscoveryConfig) CitationWeight(t common.CitationType) float64 {
	if v, ok := d.CitationWeights[strings.ToUpper(string(t))]; ok {
		return v
	}
	return d.DefaultCitationWeight
}

type CommunityConfig struct {
	MinSize              int       `yaml:"min_size" toml:"min_size" json:"min_size" validate:"min=1"`
	MaxSize              int       `yaml:"max_size" toml:"max_size" json:"max_size" validate:"min=1"`
	Resolution           float64   `yaml:"resolution" toml:"resolution" json:"resolution" validate:"gte=0"`
	CoherenceThreshold   float64   `yaml:"coherence_threshold" toml:"coherence_threshold" json:"coherence_threshold" validate:"gte=0,lte=1"`
	Seed                 int64     `yaml:"seed" toml:"seed" json:"seed"`
	MaxLevels            int       `yaml:"max_levels" toml:"max_levels" json:"max_levels" validate:"min=1"`
	OwnershipBoost       float64   `yaml:"ownership_boost" toml:"ownership_boost" json:"ownership_boost" validate:"gte=0"`
	CitationBoost        float64   `yaml:"citation_boost" toml:"citation_boost" json:"citation_boost" validate:"gte=0"`
	SharedCitationEdges  bool      `yaml:"shared_citation_edges" toml:"shared_citation_edges" json:"shared_citation_edges"`
	SharedCitationWeight float64   `yaml:"shared_citation_weight" toml:"shared_citation_weight" json:"shared_citation_weight" validate:"gte=0,lte=1"`
	Hierarchical         bool      `yaml:"hierarchical" toml:"hierarchical" json:"hierarchical"`
	HierarchyResolutions []float64 `yaml:"hierarchy_resolutions" toml:"hierarchy_resolutions" json:"hierarchy_resolutions" validate:"dive,gte=0"`
}

type AnalyticsConfig struct {
	BetweennessMaxNodes  int     `yaml:"betweenness_max_nodes" toml:"betweenness_max_nodes" json:"betweenness_max_nodes" validate:"min=0"`
	ConnectivityMaxNodes int     `yaml:"connectivity_max_nodes" toml:"connectivity_max_nodes" json:"connectivity_max_nodes" validate:"min=0"`
	MaxListed            int     `yaml:"max_listed" toml:"max_listed" json:"max_listed" validate:"min=1"`
	TopK                 int     `yaml:"top_k" toml:"top_k" json:"top_k" validate:"min=1"`
	MaxIterations        int     `yaml:"max_iterations" toml:"max_iterations" json:"max_iterations" validate:"min=1"`
	Tolerance            float64 `yaml:"tolerance" toml:"tolerance" json:"tolerance" validate:"gt=0"`
	PageRankDamping      float64 `yaml:"pagerank_damping" toml:"pagerank_damping" json:"pagerank_damping" validate:"gt=0,lt=1"`
	ExpectedDegree       float64 `yaml:"expected_degree" toml:"expected_degree" json:"expected_degree" validate:"gt=0"`
	LowQualityThreshold  float64 `yaml:"low_quality_threshold" toml:"low_quality_threshold" json:"low_quality_threshold" validate:"gte=0,lte=1"`
}

type SummaryConfig struct {
	Adapter         string   `yaml:"adapter" toml:"adapter" json:"adapter" validate:"omitempty,oneof=openai ollama none"`
	Model           string   `yaml:"model" toml:"model" json:"model"`
	Temperature     float64  `yaml:"temperature" toml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	Concurrency     int      `yaml:"concurrency" toml:"concurrency" json:"concurrency" validate:"min=1"`
	Timeout         Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	MaxPromptTokens int      `yaml:"max_prompt_tokens" toml:"max_prompt_tokens" json:"max_prompt_tokens" validate:"min=64"`
}

type PipelineConfig struct {
	Stages         map[string]bool `yaml:"stages" toml:"stages" json:"stages"`
	PersistTimeout Duration        `yaml:"persist_timeout" toml:"persist_timeout" json:"persist_timeout"`
	PersistRetries int             `yaml:"persist_retries" toml:"persist_retries" json:"persist_retries" validate:"min=1"`
	PersistBackoff Duration        `yaml:"persist_backoff" toml:"persist_backoff" json:"persist_backoff"`
}

// Enabled reports whether stage is switched on. Unlisted stages are on,
// except summarization which needs an explicit opt-in.
func (p PipelineConfig) Enabled(stage string) bool {
	if v, ok := p.Stages[stage]; ok {
		return v
	}
	return stage != StageSummarize
}

type StoreConfig struct {
	Backend       string `yaml:"backend" toml:"backend" json:"backend" validate:"oneof=memory sqlite postgres neo4j"`
	DSN           string `yaml:"dsn" toml:"dsn" json:"dsn"`
	SQLitePath    string `yaml:"sqlite_path" toml:"sqlite_path" json:"sqlite_path"`
	Neo4jURI      string `yaml:"neo4j_uri" toml:"neo4j_uri" json:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user" toml:"neo4j_user" json:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password" toml:"neo4j_password" json:"-"`
	Neo4jDatabase string `yaml:"neo4j_database" toml:"neo4j_database" json:"neo4j_database"`
	BatchSize     int    `yaml:"batch_size" toml:"batch_size" json:"batch_size" validate:"min=1"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() Config {
	return Config{
		Resolution: ResolutionConfig{
			Thresholds: map[string]float64{
				string(common.EntityParty):    0.85,
				string(common.EntityCourt):    0.90,
				string(common.EntityJudge):    0.88,
				string(common.EntityAttorney): 0.88,
				string(common.EntityCitation): 0.95,
			},
			DefaultThreshold: 0.85,
			DomainBoosts: map[string]float64{
				string(common.EntityParty):    1.10,
				string(common.EntityCourt):    1.15,
				string(common.EntityJudge):    1.10,
				string(common.EntityAttorney): 1.10,
			},
			TFIDFWeight:       0.3,
			EditWeight:        0.4,
			TokenWeight:       0.3,
			NGramMin:          2,
			NGramMax:          3,
			DefaultConfidence: 0.5,
		},
		Discovery: DiscoveryConfig{
			EnableCitation:         true,
			EnableCrossDocument:    true,
			EnableContextual:       true,
			EnableCooccurrence:     true,
			CitationBaseConfidence: 0.7,
			CitationWeights: map[string]float64{
				string(common.CitationCase):       1.0,
				string(common.CitationStatute):    0.9,
				string(common.CitationRegulation): 0.85,
			},
			DefaultCitationWeight:       0.8,
			MinSharedDocuments:          2,
			CrossDocBase:                0.3,
			CrossDocStep:                0.15,
			CrossDocCap:                 0.95,
			CrossDocBoost:               1.05,
			ContextualPatternConfidence: 0.6,
			CooccurrenceThreshold:       3,
			CooccurrenceBase:            0.5,
			CooccurrenceStep:            0.05,
			CooccurrenceCap:             0.9,
			DefaultConfidence:           0.5,
			MinConfidence:               0.3,
		},
		Community: CommunityConfig{
			MinSize:              3,
			MaxSize:              50,
			Resolution:           1.0,
			CoherenceThreshold:   0.5,
			Seed:                 42,
			MaxLevels:            10,
			OwnershipBoost:       1.5,
			CitationBoost:        1.2,
			SharedCitationWeight: 0.6,
			HierarchyResolutions: []float64{0.5, 1.0, 1.5, 2.0},
		},
		Analytics: AnalyticsConfig{
			BetweennessMaxNodes:  1000,
			ConnectivityMaxNodes: 300,
			MaxListed:            50,
			TopK:                 10,
			MaxIterations:        100,
			Tolerance:            1e-6,
			PageRankDamping:      0.85,
			ExpectedDegree:       1.5,
			LowQualityThreshold:  0.5,
		},
		Summary: SummaryConfig{
			Adapter:         "none",
			Temperature:     0.2,
			Concurrency:     4,
			Timeout:         Duration{30 * time.Second},
			MaxPromptTokens: 3000,
		},
		Pipeline: PipelineConfig{
			Stages:         map[string]bool{},
			PersistTimeout: Duration{60 * time.Second},
			PersistRetries: 3,
			PersistBackoff: Duration{500 * time.Millisecond},
		},
		Store: StoreConfig{
			Backend:   "memory",
			Neo4jUser: "neo4j",
			BatchSize: 500,
		},
	}
}

var validate = validator.New()

// Validate checks field ranges and cross-field rules. The returned error
// wraps ErrInvalidConfig.
func (c Config) Validate() error {
	var problems []string
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if c.Community.MinSize > c.Community.MaxSize {
		problems = append(problems, fmt.Sprintf("community.min_size (%d) exceeds community.max_size (%d)", c.Community.MinSize, c.Community.MaxSize))
	}
	if c.Resolution.NGramMin > c.Resolution.NGramMax {
		problems = append(problems, fmt.Sprintf("resolution.ngram_min (%d) exceeds resolution.ngram_max (%d)", c.Resolution.NGramMin, c.Resolution.NGramMax))
	}
	if c.Resolution.TFIDFWeight+c.Resolution.EditWeight+c.Resolution.TokenWeight <= 0 {
		problems = append(problems, "resolution similarity weights sum to zero")
	}
	if c.Community.Hierarchical && len(c.Community.HierarchyResolutions) == 0 {
		problems = append(problems, "community.hierarchical needs at least one resolution")
	}
	if c.Summary.Timeout.Duration < 0 || c.Pipeline.PersistTimeout.Duration < 0 || c.Pipeline.PersistBackoff.Duration < 0 {
		problems = append(problems, "timeouts must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

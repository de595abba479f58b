package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadCommunitySettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min above max", func(c *Config) { c.Community.MinSize, c.Community.MaxSize = 10, 5 }},
		{"negative resolution", func(c *Config) { c.Community.Resolution = -0.5 }},
		{"coherence above one", func(c *Config) { c.Community.CoherenceThreshold = 1.2 }},
		{"threshold above one", func(c *Config) { c.Resolution.Thresholds["COURT"] = 1.5 }},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "mongo" }},
		{"zero weights", func(c *Config) {
			c.Resolution.TFIDFWeight, c.Resolution.EditWeight, c.Resolution.TokenWeight = 0, 0, 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestThresholdAndBoostUseCategory(t *testing.T) {
	cfg := Default().Resolution
	assert.Equal(t, 0.85, cfg.Threshold(common.EntityCorporation))
	assert.Equal(t, 0.90, cfg.Threshold(common.EntityStateCourt))
	assert.Equal(t, 0.85, cfg.Threshold(common.EntityDate))
	assert.Equal(t, 1.15, cfg.Boost(common.EntityCourt))
	assert.Equal(t, 1.0, cfg.Boost(common.EntityContract))
}

func TestPipelineEnabledDefaults(t *testing.T) {
	p := Default().Pipeline
	assert.True(t, p.Enabled(StageResolve))
	assert.False(t, p.Enabled(StageSummarize))

	p.Stages = map[string]bool{StageDetect: false, StageSummarize: true}
	assert.False(t, p.Enabled(StageDetect))
	assert.True(t, p.Enabled(StageSummarize))
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
community:
  min_size: 4
  resolution: 1.5
summary:
  timeout: 5s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Community.MinSize)
	assert.Equal(t, 1.5, cfg.Community.Resolution)
	assert.Equal(t, 50, cfg.Community.MaxSize)
	assert.Equal(t, 5*time.Second, cfg.Summary.Timeout.Duration)
	assert.Equal(t, 0.9, cfg.Discovery.CooccurrenceCap)
	require.NoError(t, cfg.Validate())
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexgraph.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[discovery]
min_confidence = 0.4
cooccurrence_threshold = 5

[pipeline]
persist_timeout = "2m"

[pipeline.stages]
detect_communities = false
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Discovery.MinConfidence)
	assert.Equal(t, 5, cfg.Discovery.CooccurrenceThreshold)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.PersistTimeout.Duration)
	assert.False(t, cfg.Pipeline.Enabled(StageDetect))
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexgraph.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LEXGRAPH_COMMUNITY_MAX_SIZE", "20")
	t.Setenv("LEXGRAPH_COMMUNITY_SEED", "7")
	t.Setenv("LEXGRAPH_STAGE_COMPUTE_ANALYTICS", "false")
	t.Setenv("LEXGRAPH_SUMMARY_TIMEOUT", "3")
	t.Setenv("LEXGRAPH_STORE_BACKEND", "sqlite")

	base := Default()
	cfg := ApplyEnv(base)
	assert.Equal(t, 20, cfg.Community.MaxSize)
	assert.Equal(t, int64(7), cfg.Community.Seed)
	assert.False(t, cfg.Pipeline.Enabled(StageAnalytics))
	assert.Equal(t, 3*time.Second, cfg.Summary.Timeout.Duration)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.True(t, base.Pipeline.Enabled(StageAnalytics), "ApplyEnv must not mutate its input")
}

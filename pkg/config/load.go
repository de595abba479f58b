package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OFFIS-RIT/lexgraph/internal/util"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file on top of Default. The format follows the
// file extension: .yaml/.yml, .toml or .json. Keys missing from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overlays LEXGRAPH_* environment variables on cfg and returns the
// result. Only the settings operators usually tune per deployment are
// exposed; everything else belongs in the config file.
func ApplyEnv(cfg Config) Config {
	c := cfg

	c.Community.MinSize = util.GetEnvInt("LEXGRAPH_COMMUNITY_MIN_SIZE", c.Community.MinSize)
	c.Community.MaxSize = util.GetEnvInt("LEXGRAPH_COMMUNITY_MAX_SIZE", c.Community.MaxSize)
	c.Community.Resolution = util.GetEnvNumeric("LEXGRAPH_COMMUNITY_RESOLUTION", c.Community.Resolution)
	c.Community.CoherenceThreshold = util.GetEnvNumeric("LEXGRAPH_COMMUNITY_COHERENCE_THRESHOLD", c.Community.CoherenceThreshold)
	c.Community.Seed = int64(util.GetEnvInt("LEXGRAPH_COMMUNITY_SEED", int(c.Community.Seed)))
	c.Community.Hierarchical = util.GetEnvBool("LEXGRAPH_COMMUNITY_HIERARCHICAL", c.Community.Hierarchical)

	c.Discovery.MinConfidence = util.GetEnvNumeric("LEXGRAPH_DISCOVERY_MIN_CONFIDENCE", c.Discovery.MinConfidence)

	c.Summary.Adapter = util.GetEnvString("LEXGRAPH_SUMMARY_ADAPTER", c.Summary.Adapter)
	c.Summary.Model = util.GetEnvString("LEXGRAPH_SUMMARY_MODEL", c.Summary.Model)
	c.Summary.Concurrency = util.GetEnvInt("LEXGRAPH_SUMMARY_CONCURRENCY", c.Summary.Concurrency)
	c.Summary.Timeout.Duration = util.GetEnvDuration("LEXGRAPH_SUMMARY_TIMEOUT", c.Summary.Timeout.Duration)

	stages := make(map[string]bool, len(c.Pipeline.Stages))
	for k, v := range c.Pipeline.Stages {
		stages[k] = v
	}
	for _, stage := range []string{StageResolve, StageDiscover, StageDetect, StageSummarize, StageAnalytics, StagePersist} {
		key := "LEXGRAPH_STAGE_" + strings.ToUpper(stage)
		if util.GetEnv(key) != "" {
			stages[stage] = util.GetEnvBool(key, c.Pipeline.Enabled(stage))
		}
	}
	c.Pipeline.Stages = stages
	c.Pipeline.PersistTimeout.Duration = util.GetEnvDuration("LEXGRAPH_PERSIST_TIMEOUT", c.Pipeline.PersistTimeout.Duration)
	c.Pipeline.PersistRetries = util.GetEnvInt("LEXGRAPH_PERSIST_RETRIES", c.Pipeline.PersistRetries)

	c.Store.Backend = util.GetEnvString("LEXGRAPH_STORE_BACKEND", c.Store.Backend)
	c.Store.DSN = util.GetEnvString("DATABASE_URL", c.Store.DSN)
	c.Store.SQLitePath = util.GetEnvString("LEXGRAPH_SQLITE_PATH", c.Store.SQLitePath)
	c.Store.Neo4jURI = util.GetEnvString("NEO4J_URI", c.Store.Neo4jURI)
	c.Store.Neo4jUser = util.GetEnvString("NEO4J_USER", c.Store.Neo4jUser)
	c.Store.Neo4jPassword = util.GetEnvString("NEO4J_PASSWORD", c.Store.Neo4jPassword)
	c.Store.Neo4jDatabase = util.GetEnvString("NEO4J_DATABASE", c.Store.Neo4jDatabase)
	c.Store.BatchSize = util.GetEnvInt("LEXGRAPH_STORE_BATCH_SIZE", c.Store.BatchSize)

	return c
}

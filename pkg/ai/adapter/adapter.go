// Package adapter picks the text generation backend named in the summary
// configuration.
package adapter

import (
	"fmt"

	"github.com/OFFIS-RIT/lexgraph/internal/util"
	"github.com/OFFIS-RIT/lexgraph/pkg/ai"
	oai "github.com/OFFIS-RIT/lexgraph/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/lexgraph/pkg/ai/openai"
	"github.com/OFFIS-RIT/lexgraph/pkg/config"
)

// New returns the generator for cfg.Adapter, or nil for "none". Endpoint
// and key come from AI_CHAT_URL and AI_CHAT_KEY.
func New(cfg config.SummaryConfig) (ai.TextGenerator, error) {
	switch cfg.Adapter {
	case "", "none":
		return nil, nil
	case "ollama":
		client, err := oai.NewClient(oai.NewClientParams{
			Model:   cfg.Model,
			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvInt("AI_PARALLEL_REQ", cfg.Concurrency)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return client, nil
	case "openai":
		return gai.NewClient(gai.NewClientParams{
			Model:   cfg.Model,
			BaseURL: util.GetEnv("AI_CHAT_URL"),
			APIKey:  util.GetEnv("AI_CHAT_KEY"),
		}), nil
	}
	return nil, fmt.Errorf("unknown summary adapter %q", cfg.Adapter)
}

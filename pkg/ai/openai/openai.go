// Package openai adapts the OpenAI chat completions API (and compatible
// endpoints) to ai.TextGenerator.
package openai

import (
	"sync"

	"github.com/OFFIS-RIT/lexgraph/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client generates completions through an OpenAI compatible endpoint.
//
// A Client should be created using NewClient.
type Client struct {
	model   string
	baseURL string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewClientParams defines the configuration for NewClient. BaseURL may be
// empty to use the public OpenAI API.
type NewClientParams struct {
	Model   string
	BaseURL string
	APIKey  string
}

var (
	_ ai.TextGenerator   = (*Client)(nil)
	_ ai.MetricsReporter = (*Client)(nil)
)

// NewClient creates a Client from params.
//
// Example:
//
//	client := openai.NewClient(openai.NewClientParams{
//		Model:  "gpt-4o-mini",
//		APIKey: os.Getenv("OPENAI_API_KEY"),
//	})
func NewClient(params NewClientParams) *Client {
	options := []option.RequestOption{
		option.WithAPIKey(params.APIKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	return &Client{
		model:      params.Model,
		baseURL:    params.BaseURL,
		ChatClient: &client,
	}
}

// ResetMetrics clears the accumulated usage counters.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.ModelMetrics{}
	c.metricsLock.Unlock()
}

// GetMetrics returns the usage accumulated since the last reset.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *Client) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.Add(m)
}

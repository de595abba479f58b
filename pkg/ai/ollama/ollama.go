// Package ollama adapts a (possibly remote) Ollama server to
// ai.TextGenerator.
package ollama

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/OFFIS-RIT/lexgraph/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// Client generates completions through the Ollama chat API. Concurrent
// requests are bounded by a weighted semaphore.
type Client struct {
	model string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

// NewClientParams contains configuration options for NewClient.
type NewClientParams struct {
	Model   string
	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

var (
	_ ai.TextGenerator   = (*Client)(nil)
	_ ai.MetricsReporter = (*Client)(nil)
)

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient connects to the Ollama server at BaseURL, or the default
// address from the environment when empty.
func NewClient(params NewClientParams) (*Client, error) {
	var u *url.URL
	if params.BaseURL != "" {
		parsed, err := url.Parse(params.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ollama url: %w", err)
		}
		u = parsed
	}

	headers := map[string]string{}
	if params.ApiKey != "" {
		headers["Authorization"] = "Bearer " + params.ApiKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{headers: headers, rt: http.DefaultTransport},
	}

	var cli *api.Client
	if u != nil {
		cli = api.NewClient(u, httpClient)
	} else {
		env, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		cli = env
	}

	limit := params.MaxConcurrentRequests
	if limit <= 0 {
		limit = 1
	}

	return &Client{
		model:   params.Model,
		reqLock: semaphore.NewWeighted(limit),
		Client:  cli,
	}, nil
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.ModelMetrics{}
	c.metricsLock.Unlock()
}

// GetMetrics returns the accumulated token usage and timing metrics since the last reset.
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

// Package ai defines the text generation contract used to summarize
// communities, together with prompt and response helpers shared by the
// provider adapters in ai/openai and ai/ollama.
package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned by adapters when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// GenerateOptions holds configuration for a generation request.
type GenerateOptions struct {
	Model         string         // Model identifier to use for generation
	SystemPrompts []string       // System prompts prepended to the request
	Temperature   float64        // Sampling temperature (0.0-2.0)
	SchemaName    string         // Name of the structured output schema
	Schema        map[string]any // JSON schema the response must follow, if any
}

// ModelMetrics contains token and timing counters of an adapter.
type ModelMetrics struct {
	Requests       int     `json:"requests"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// Add accumulates m into the receiver and recomputes the throughput.
func (mm *ModelMetrics) Add(m ModelMetrics) {
	mm.Requests += m.Requests
	mm.InputTokens += m.InputTokens
	mm.OutputTokens += m.OutputTokens
	mm.TotalTokens += m.TotalTokens
	mm.DurationMs += m.DurationMs
	if mm.DurationMs > 0 {
		mm.TokenPerSecond = float32(float64(mm.TotalTokens) * 1000.0 / float64(mm.DurationMs))
	}
}

// GenerateOption is a functional option for configuring generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithSchema asks the adapter to constrain the response to schema, when
// the backend supports structured output.
func WithSchema(name string, schema map[string]any) GenerateOption {
	return func(o *GenerateOptions) {
		o.SchemaName = name
		o.Schema = schema
	}
}

// ApplyOptions folds opts over defaults.
func ApplyOptions(defaults GenerateOptions, opts ...GenerateOption) GenerateOptions {
	for _, o := range opts {
		o(&defaults)
	}
	return defaults
}

// TextGenerator produces a completion for a single prompt. Implementations
// must be safe for concurrent use.
type TextGenerator interface {
	GenerateCompletion(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)
}

// MetricsReporter is implemented by adapters that track usage.
type MetricsReporter interface {
	GetMetrics() ModelMetrics
	ResetMetrics()
}

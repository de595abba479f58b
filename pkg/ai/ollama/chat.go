package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/lexgraph/pkg/ai"

	"github.com/ollama/ollama/api"
)

// defaultContext is Ollama's context window when num_ctx is not sent.
const defaultContext = 4096

// GenerateCompletion sends a single-turn prompt and returns assistant text.
// A schema set through ai.WithSchema is passed as the response format.
func (c *Client) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.model,
		Temperature: 0.3,
	}, opts...)

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}
	if options.Schema != nil {
		format, err := json.Marshal(options.Schema)
		if err != nil {
			return "", fmt.Errorf("failed to marshal response schema: %w", err)
		}
		req.Format = format
	}

	// Leave room for the answer on top of the prompt.
	if tokens, err := ai.CountTokens(prompt); err == nil && tokens+200 > defaultContext {
		req.Options["num_ctx"] = tokens + 200
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to chat with ollama: %w", err)
	}

	c.modifyMetrics(ai.ModelMetrics{
		Requests:     1,
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	if final.Message.Content == "" {
		return "", ai.ErrEmptyResponse
	}
	return final.Message.Content, nil
}

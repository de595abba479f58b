package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/lexgraph/pkg/ai"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"

	"github.com/openai/openai-go/v3"
)

// GenerateCompletion sends a single-turn prompt to the chat model and
// returns the generated completion as plain text. When a schema is set
// through ai.WithSchema the request asks for strict structured output.
//
// Example:
//
//	resp, err := client.GenerateCompletion(ctx, "Summarize this community...")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(resp)
func (c *Client) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.model,
		Temperature: 0.3,
	}, opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}
	if options.Schema != nil {
		body.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   options.SchemaName,
					Schema: options.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	duration := time.Since(start).Milliseconds()

	c.modifyMetrics(ai.ModelMetrics{
		Requests:     1,
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
	})

	if len(response.Choices) == 0 {
		return "", ai.ErrEmptyResponse
	}
	content := response.Choices[0].Message.Content
	if content == "" {
		logger.Debug("[AI] Empty completion", "model", options.Model, "finish_reason", response.Choices[0].FinishReason)
		return "", ai.ErrEmptyResponse
	}
	return content, nil
}

package provider

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"momentum/pkg/errs"
)

// AnthropicClient wraps the Anthropic API client to implement
// TextCompleter.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient creates a Claude-backed client for the given model.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		client: client,
		model:  anthropic.Model(model),
	}
}

// Complete implements TextCompleter. Anthropic has no JSON response mode;
// the strict-JSON directive lives in the prompt and the gateway's balanced
// JSON extraction covers models that wrap the payload in prose.
func (c *AnthropicClient) Complete(ctx context.Context, in Request) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokensOrDefault(in.MaxTokens)),
		Messages: []anthropic.MessageParam{
			{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(in.Prompt)},
			},
		},
	}
	if in.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(in.Temperature))
	}
	if in.System != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: in.System,
			Type: "text",
		}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, classifyTransportError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return Response{}, errs.New(errs.KindUpstream, "empty response from Anthropic")
	}

	var text string
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	if text == "" {
		return Response{}, errs.New(errs.KindUpstream, "no text content in Anthropic response")
	}

	return Response{Content: text}, nil
}

// ModelName implements TextCompleter.
func (c *AnthropicClient) ModelName() string {
	return string(c.model)
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"momentum/pkg/errs"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint OpenRouter exposes.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient wraps the official OpenAI Go client pointed at
// OpenRouter to implement TextCompleter.
type OpenRouterClient struct {
	client openai.Client
	model  string
}

// NewOpenRouterClient creates an OpenRouter-backed client for the given
// model.
func NewOpenRouterClient(apiKey, model string) *OpenRouterClient {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(OpenRouterBaseURL),
	)
	return &OpenRouterClient{
		client: client,
		model:  model,
	}
}

// NewOpenAICompatClient creates a client for any OpenAI-compatible
// endpoint. Used by tests to point at an httptest server.
func NewOpenAICompatClient(apiKey, baseURL, model string) *OpenRouterClient {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &OpenRouterClient{
		client: client,
		model:  model,
	}
}

// Complete implements TextCompleter.
func (c *OpenRouterClient) Complete(ctx context.Context, in Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if in.System != "" {
		messages = append(messages, openai.SystemMessage(in.System))
	}
	messages = append(messages, openai.UserMessage(in.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(c.model),
		Messages:  messages,
		MaxTokens: openai.Int(int64(maxTokensOrDefault(in.MaxTokens))),
	}
	if in.Temperature > 0 {
		params.Temperature = openai.Float(float64(in.Temperature))
	}
	if in.JSONOnly {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, classifyTransportError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Response{}, errs.New(errs.KindUpstream, "empty response from OpenRouter")
	}

	return Response{Content: resp.Choices[0].Message.Content}, nil
}

// ModelName implements TextCompleter.
func (c *OpenRouterClient) ModelName() string {
	return c.model
}

// classifyTransportError maps SDK transport errors to the shared taxonomy.
// Auth failures are configuration problems (a bad or missing key); anything
// else from the wire is an upstream failure.
func classifyTransportError(err error) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.NewWithCause(errs.KindUpstream, err, "request canceled or timed out")
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key") {
		return errs.NewWithCause(errs.KindConfig, err, "provider rejected the API key")
	}

	return errs.NewWithCause(errs.KindUpstream, err, fmt.Sprintf("provider call failed: %v", err))
}

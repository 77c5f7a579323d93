package provider

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"momentum/pkg/errs"
)

// GoogleClient wraps the Google GenAI client to implement TextCompleter.
// One instance is shared across concurrent requests.
type GoogleClient struct {
	initOnce sync.Once
	client   *genai.Client
	initErr  error
	apiKey   string
	model    string
}

// NewGoogleClient creates a Gemini-backed client for the given model.
// Client creation requires a context, so it is deferred to the first
// Complete call.
func NewGoogleClient(apiKey, model string) *GoogleClient {
	return &GoogleClient{
		apiKey: apiKey,
		model:  model,
	}
}

func (c *GoogleClient) init(ctx context.Context) error {
	c.initOnce.Do(func() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			c.initErr = errs.NewWithCause(errs.KindConfig, err, "failed to create Gemini client")
			return
		}
		c.client = client
	})
	return c.initErr
}

// Complete implements TextCompleter.
func (c *GoogleClient) Complete(ctx context.Context, in Request) (Response, error) {
	if err := c.init(ctx); err != nil {
		return Response{}, err
	}

	//nolint:gosec // MaxTokens bounded by DefaultMaxTokens, overflow not possible
	maxTokens := int32(maxTokensOrDefault(in.MaxTokens))
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: maxTokens,
	}
	if in.Temperature > 0 {
		temp := in.Temperature
		cfg.Temperature = &temp
	}
	if in.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: in.System}},
		}
	}
	if in.JSONOnly {
		cfg.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: in.Prompt}}},
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return Response{}, classifyTransportError(err)
	}
	if result == nil {
		return Response{}, errs.New(errs.KindUpstream, "empty response from Gemini")
	}

	text := result.Text()
	if text == "" {
		return Response{}, errs.New(errs.KindUpstream, fmt.Sprintf("no text content in Gemini response for model %s", c.model))
	}

	return Response{Content: text}, nil
}

// ModelName implements TextCompleter.
func (c *GoogleClient) ModelName() string {
	return c.model
}

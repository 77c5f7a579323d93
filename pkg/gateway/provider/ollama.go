package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"momentum/pkg/errs"
)

// OllamaClient wraps the Ollama API client to implement TextCompleter.
// Ollama is a local model runtime, so this backend needs no credential;
// it serves as a direct path in fully-offline setups.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates an Ollama-backed client. hostURL should be the
// Ollama server URL, e.g. "http://localhost:11434".
func NewOllamaClient(hostURL, model string) *OllamaClient {
	parsed, err := url.Parse(hostURL)
	if err != nil {
		parsed, _ = url.Parse("http://localhost:11434")
	}
	return &OllamaClient{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}
}

// Complete implements TextCompleter.
func (c *OllamaClient) Complete(ctx context.Context, in Request) (Response, error) {
	messages := make([]api.Message, 0, 2)
	if in.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: in.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: in.Prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": maxTokensOrDefault(in.MaxTokens),
		},
	}
	if in.JSONOnly {
		req.Format = json.RawMessage(`"json"`)
	}

	var response api.ChatResponse
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return Response{}, errs.NewWithCause(errs.KindUpstream, err, "ollama chat failed")
	}
	if response.Message.Content == "" {
		return Response{}, errs.New(errs.KindUpstream, "empty response from ollama")
	}

	return Response{Content: response.Message.Content}, nil
}

// ModelName implements TextCompleter.
func (c *OllamaClient) ModelName() string {
	return c.model
}

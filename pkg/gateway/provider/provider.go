// Package provider defines the text-generation backend interface and its
// implementations. Every Momentum AI operation is a single-turn request: a
// system instruction, one user message, and a strict-JSON output directive.
package provider

import "context"

// Request is a single-turn completion request.
type Request struct {
	System      string  // System instruction
	Prompt      string  // User message
	MaxTokens   int     // Output token cap; 0 uses the provider default
	Temperature float32 // Sampling temperature
	JSONOnly    bool    // Ask the backend for structural JSON when it supports it
}

// Response is the backend's reply.
type Response struct {
	Content string
}

// TextCompleter is the interface every backend implements.
type TextCompleter interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in Request) (Response, error)

	// ModelName returns the model identifier this client targets.
	ModelName() string
}

// Default request limits. The playbook generation payload is the largest
// response; 4k tokens covers it with headroom.
const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.8
)

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}

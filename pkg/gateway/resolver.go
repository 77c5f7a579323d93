package gateway

import (
	"context"
	"fmt"

	"momentum/pkg/errs"
	"momentum/pkg/gateway/provider"
	"momentum/pkg/logx"
	"momentum/pkg/metrics"
)

// Path names which resolution path produced a response.
type Path string

const (
	PathServer Path = "server"
	PathDirect Path = "direct"
)

// DirectFactory builds a fresh client-direct completer for one attempt.
// Returning a KindConfig error means no local credential is available and
// the direct path is not an option for this call.
type DirectFactory func() (provider.TextCompleter, error)

// Resolver routes each operation through the server function first and
// falls back to a client-direct provider call when the server path fails
// with a retryable error. Both paths return raw model text; the caller
// parses once, so a shape failure is never retried against the second
// path.
type Resolver struct {
	server  *ServerClient
	direct  DirectFactory
	logger  *logx.Logger
	metrics *metrics.Recorder
}

func NewResolver(server *ServerClient, direct DirectFactory, rec *metrics.Recorder) *Resolver {
	return &Resolver{
		server:  server,
		direct:  direct,
		logger:  logx.NewLogger("resolver"),
		metrics: rec,
	}
}

// Resolve returns the raw text for op along with the path that produced it.
func (r *Resolver) Resolve(ctx context.Context, op Operation, params Params) (string, Path, error) {
	raw, serverErr := r.server.Invoke(ctx, op, params)
	if serverErr == nil {
		return raw, PathServer, nil
	}

	var classified *errs.Error
	if e, ok := serverErr.(*errs.Error); ok {
		classified = e
	}
	if classified != nil && !classified.Retryable() {
		return "", PathServer, serverErr
	}
	if ctx.Err() != nil {
		return "", PathServer, serverErr
	}

	completer, factoryErr := r.direct()
	if factoryErr != nil {
		// No usable local credential. The server failure is the real story.
		r.logger.Debug("no direct path available after server failure: %v", factoryErr)
		return "", PathServer, serverErr
	}

	r.logger.Warn("server path failed for %s, falling back to direct provider %s: %v",
		op, completer.ModelName(), serverErr)
	r.metrics.RecordFallback(string(op))

	raw, directErr := r.complete(ctx, op, params, completer)
	if directErr != nil {
		return "", PathDirect, directErr
	}
	return raw, PathDirect, nil
}

func (r *Resolver) complete(ctx context.Context, op Operation, params Params, completer provider.TextCompleter) (string, error) {
	prompt, err := BuildPrompt(op, params)
	if err != nil {
		return "", err
	}
	resp, err := completer.Complete(ctx, provider.Request{
		System:      SystemPrompt,
		Prompt:      prompt,
		MaxTokens:   provider.DefaultMaxTokens,
		Temperature: provider.DefaultTemperature,
		JSONOnly:    true,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// BuildPrompt returns the user prompt for an operation. The server AI
// function uses it with the same provider clients as the direct path.
func BuildPrompt(op Operation, params Params) (string, error) {
	switch op {
	case OpGenerate:
		return generatePrompt(params.FocusArea), nil
	case OpReroll:
		return rerollPrompt(params.FocusArea, params.RejectedTaskTitle), nil
	case OpBreakdown:
		return breakdownPrompt(params.ParentTask), nil
	case OpClassifyBlock:
		return classifyBlockPrompt(params.StuckInput, params.FrictionInput), nil
	case OpMomentumSequence:
		return momentumSequencePrompt(params.StuckInput, params.FrictionInput, params.BlockPattern), nil
	default:
		return "", errs.New(errs.KindUnknown, fmt.Sprintf("unknown operation %q", op))
	}
}

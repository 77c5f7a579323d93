package gateway

import (
	"context"
	"time"

	"momentum/pkg/logx"
	"momentum/pkg/metrics"
	"momentum/pkg/playbook"
	"momentum/pkg/utils"
)

// Client is the typed entry point for Momentum AI operations. Each method
// resolves through the dual-path strategy, parses the raw text once, and
// validates the operation shape.
type Client struct {
	resolver *Resolver
	logger   *logx.Logger
	metrics  *metrics.Recorder
}

func NewClient(resolver *Resolver, rec *metrics.Recorder) *Client {
	return &Client{
		resolver: resolver,
		logger:   logx.NewLogger("gateway"),
		metrics:  rec,
	}
}

// Generate produces a full playbook draft for a focus area.
func (c *Client) Generate(ctx context.Context, focusArea string) (*playbook.Draft, error) {
	raw, err := c.invoke(ctx, OpGenerate, Params{FocusArea: focusArea})
	if err != nil {
		return nil, err
	}
	return parseGenerate(raw)
}

// Reroll proposes a replacement for a rejected action. The caller pins the
// replacement's identity and ordinal slot; this only produces content.
func (c *Client) Reroll(ctx context.Context, focusArea, rejectedTitle string) (*playbook.Action, error) {
	raw, err := c.invoke(ctx, OpReroll, Params{FocusArea: focusArea, RejectedTaskTitle: rejectedTitle})
	if err != nil {
		return nil, err
	}
	return parseReroll(raw)
}

// Breakdown splits a parent task into micro-steps.
func (c *Client) Breakdown(ctx context.Context, parentTask string) ([]playbook.SubAction, error) {
	raw, err := c.invoke(ctx, OpBreakdown, Params{ParentTask: parentTask})
	if err != nil {
		return nil, err
	}
	return parseBreakdown(raw)
}

// ClassifyBlockPattern names the kind of block behind the user's stuck and
// friction descriptions.
func (c *Client) ClassifyBlockPattern(ctx context.Context, stuckInput, frictionInput string) (*BlockPatternResult, error) {
	raw, err := c.invoke(ctx, OpClassifyBlock, Params{StuckInput: stuckInput, FrictionInput: frictionInput})
	if err != nil {
		return nil, err
	}
	return parseBlockPattern(raw)
}

// MomentumSequence builds the three-move protocol for a classified block.
func (c *Client) MomentumSequence(ctx context.Context, stuckInput, frictionInput, blockPattern string) (*SequenceResult, error) {
	raw, err := c.invoke(ctx, OpMomentumSequence, Params{
		StuckInput:    stuckInput,
		FrictionInput: frictionInput,
		BlockPattern:  blockPattern,
	})
	if err != nil {
		return nil, err
	}
	return parseSequence(raw)
}

func (c *Client) invoke(ctx context.Context, op Operation, params Params) (string, error) {
	start := time.Now()
	raw, path, err := c.resolver.Resolve(ctx, op, params)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordRequest(string(op), string(path), "error", elapsed)
		c.logger.Error("%s failed via %s path after %v: %v", op, path, elapsed.Round(time.Millisecond), err)
		return "", err
	}
	tokens := utils.CountTokens(raw)
	c.metrics.RecordRequest(string(op), string(path), "ok", elapsed)
	c.metrics.RecordResponseTokens(string(op), tokens)
	c.logger.Info("%s resolved via %s path in %v (%d tokens)",
		op, path, elapsed.Round(time.Millisecond), tokens)
	return raw, nil
}

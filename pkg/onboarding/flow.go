// Package onboarding drives the first-run flow: the user describes where
// they are stuck, the AI names the block pattern, proposes a three-move
// momentum sequence, and the result lands in the user's profile.
package onboarding

import (
	"context"
	"strings"
	"sync"

	"momentum/pkg/auth"
	"momentum/pkg/errs"
	"momentum/pkg/gateway"
	"momentum/pkg/logx"
	"momentum/pkg/persistence"
)

// Step is the flow position. Steps only advance; Reset starts over.
type Step string

const (
	StepInputs     Step = "inputs"
	StepClassified Step = "classified"
	StepSequenced  Step = "sequenced"
	StepDone       Step = "done"
)

// Classifier is the slice of the gateway the flow depends on.
type Classifier interface {
	ClassifyBlockPattern(ctx context.Context, stuckInput, frictionInput string) (*gateway.BlockPatternResult, error)
	MomentumSequence(ctx context.Context, stuckInput, frictionInput, blockPattern string) (*gateway.SequenceResult, error)
}

// ProfileSaver persists the finished onboarding profile.
type ProfileSaver interface {
	SaveProfile(ctx context.Context, profile *persistence.UserProfile) error
}

// Flow is the onboarding step machine. Safe for concurrent use; each AI
// step validates that its prerequisite completed.
type Flow struct {
	mu       sync.Mutex
	ai       Classifier
	profiles ProfileSaver
	identity auth.Provider
	logger   *logx.Logger

	step          Step
	stuckInput    string
	frictionInput string
	pattern       *gateway.BlockPatternResult
	sequence      *gateway.SequenceResult
}

func NewFlow(ai Classifier, profiles ProfileSaver, identity auth.Provider) *Flow {
	return &Flow{
		ai:       ai,
		profiles: profiles,
		identity: identity,
		logger:   logx.NewLogger("onboarding"),
		step:     StepInputs,
	}
}

// Step returns the current flow position.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// SetInputs records the stuck and friction descriptions. Allowed at any
// point before completion; changing them rewinds the flow to the start.
func (f *Flow) SetInputs(stuckInput, frictionInput string) error {
	if strings.TrimSpace(stuckInput) == "" || strings.TrimSpace(frictionInput) == "" {
		return errs.New(errs.KindValidation, "both stuck and friction descriptions are required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step == StepDone {
		return errs.New(errs.KindValidation, "onboarding already completed")
	}
	f.stuckInput = stuckInput
	f.frictionInput = frictionInput
	f.pattern = nil
	f.sequence = nil
	f.step = StepInputs
	return nil
}

// ClassifyBlock names the block pattern behind the inputs. On failure the
// flow stays where it was.
func (f *Flow) ClassifyBlock(ctx context.Context) (*gateway.BlockPatternResult, error) {
	f.mu.Lock()
	if f.stuckInput == "" {
		f.mu.Unlock()
		return nil, errs.New(errs.KindValidation, "inputs not set")
	}
	stuck, friction := f.stuckInput, f.frictionInput
	f.mu.Unlock()

	pattern, err := f.ai.ClassifyBlockPattern(ctx, stuck, friction)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.pattern = pattern
	f.step = StepClassified
	f.mu.Unlock()

	f.logger.Info("block classified as %s", pattern.BlockPattern)
	return pattern, nil
}

// GenerateSequence builds the three-move protocol for the classified
// block.
func (f *Flow) GenerateSequence(ctx context.Context) (*gateway.SequenceResult, error) {
	f.mu.Lock()
	if f.pattern == nil {
		f.mu.Unlock()
		return nil, errs.New(errs.KindValidation, "block not classified yet")
	}
	stuck, friction, pattern := f.stuckInput, f.frictionInput, f.pattern.BlockPattern
	f.mu.Unlock()

	sequence, err := f.ai.MomentumSequence(ctx, stuck, friction, pattern)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.sequence = sequence
	f.step = StepSequenced
	f.mu.Unlock()
	return sequence, nil
}

// Complete writes the onboarding profile for the signed-in user. With no
// identity the flow cannot finish; the result stays available locally.
func (f *Flow) Complete(ctx context.Context) error {
	id, ok := f.identity.Current()
	if !ok {
		return errs.New(errs.KindAuth, "sign in to save your onboarding profile")
	}

	f.mu.Lock()
	if f.sequence == nil {
		f.mu.Unlock()
		return errs.New(errs.KindValidation, "sequence not generated yet")
	}
	profile := &persistence.UserProfile{
		UserID:         id.UserID,
		StuckInput:     f.stuckInput,
		FrictionInput:  f.frictionInput,
		BlockPattern:   f.pattern.BlockPattern,
		Reasoning:      f.pattern.Reasoning,
		ActivationMove: f.sequence.ActivationMove,
		MomentumMove:   f.sequence.MomentumMove,
		SystemsMove:    f.sequence.SystemsMove,
	}
	f.mu.Unlock()

	if err := f.profiles.SaveProfile(ctx, profile); err != nil {
		return err
	}

	f.mu.Lock()
	f.step = StepDone
	f.mu.Unlock()
	return nil
}

// Reset starts the flow over.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.step = StepInputs
	f.stuckInput = ""
	f.frictionInput = ""
	f.pattern = nil
	f.sequence = nil
}

// Package gateway is the AI client for Momentum operations. It resolves
// each call through the dual-path strategy (server function first, then
// the client-direct provider), recovers structural JSON from free text,
// and validates operation-specific shapes.
package gateway

// Operation identifies one of the Momentum AI calls.
type Operation string

const (
	OpGenerate         Operation = "generate"
	OpReroll           Operation = "reroll"
	OpBreakdown        Operation = "breakdown"
	OpClassifyBlock    Operation = "classifyBlockPattern"
	OpMomentumSequence Operation = "generateMomentumSequence"
)

// Params carries the operation-specific request fields. Only the fields an
// operation uses are read; the rest stay empty.
type Params struct {
	FocusArea         string `json:"focusArea,omitempty"`
	RejectedTaskTitle string `json:"rejectedTaskTitle,omitempty"`
	ParentTask        string `json:"parentTask,omitempty"`
	StuckInput        string `json:"stuckInput,omitempty"`
	FrictionInput     string `json:"frictionInput,omitempty"`
	BlockPattern      string `json:"blockPattern,omitempty"`
}

// BlockPatternResult is the payload of a classifyBlockPattern call.
type BlockPatternResult struct {
	BlockPattern string `json:"blockPattern"`
	Reasoning    string `json:"reasoning"`
}

// SequenceResult is the payload of a generateMomentumSequence call: the
// three-move protocol the onboarding flow presents.
type SequenceResult struct {
	ActivationMove string `json:"activationMove"`
	MomentumMove   string `json:"momentumMove"`
	SystemsMove    string `json:"systemsMove"`
}

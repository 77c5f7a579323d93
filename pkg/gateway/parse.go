package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"momentum/pkg/errs"
	"momentum/pkg/playbook"
)

// ExtractJSON recovers the first complete JSON object or array embedded in
// free-form model output. Models wrap payloads in markdown fences or prose
// often enough that a plain Unmarshal of the raw text is not reliable.
func ExtractJSON(text string) (string, error) {
	start := -1
	var opener, closer byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			opener = text[i]
			if opener == '{' {
				closer = '}'
			} else {
				closer = ']'
			}
			break
		}
	}
	if start < 0 {
		return "", errs.NewValidation(text, "no JSON value found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errs.NewValidation(text, "unterminated JSON value in response")
}

func decodeObject(raw string, out any) error {
	body, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return errs.NewValidation(raw, fmt.Sprintf("malformed JSON payload: %v", err))
	}
	return nil
}

func parseGenerate(raw string) (*playbook.Draft, error) {
	var result playbook.Draft
	if err := decodeObject(raw, &result); err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.FocusArea) == "" {
		return nil, errs.NewValidation(raw, "generate payload missing focusArea")
	}
	if len(result.Actions) != playbook.GeneratedActionCount {
		return nil, errs.NewValidation(raw, fmt.Sprintf("generate payload has %d actions, want %d", len(result.Actions), playbook.GeneratedActionCount))
	}
	counts := map[playbook.Horizon]int{}
	for i := range result.Actions {
		a := &result.Actions[i]
		if strings.TrimSpace(a.Title) == "" {
			return nil, errs.NewValidation(raw, fmt.Sprintf("action %d has no title", i))
		}
		if !playbook.IsValidHorizon(a.Horizon) {
			return nil, errs.NewValidation(raw, fmt.Sprintf("action %d has invalid horizon %q", i, a.Horizon))
		}
		if a.ID == "" {
			a.ID = playbook.GenerateActionID()
		}
		a.IsCompleted = false
		a.SubActions = nil
		counts[a.Horizon]++
	}
	if counts[playbook.HorizonImmediate] != playbook.ImmediateActionCount ||
		counts[playbook.HorizonMedium] != playbook.MediumActionCount ||
		counts[playbook.HorizonLong] != playbook.LongActionCount {
		return nil, errs.NewValidation(raw, fmt.Sprintf("generate payload horizon split %d/%d/%d, want %d/%d/%d",
			counts[playbook.HorizonImmediate], counts[playbook.HorizonMedium], counts[playbook.HorizonLong],
			playbook.ImmediateActionCount, playbook.MediumActionCount, playbook.LongActionCount))
	}
	if strings.TrimSpace(result.Opportunities.Internal) == "" ||
		strings.TrimSpace(result.Opportunities.External) == "" ||
		strings.TrimSpace(result.Opportunities.Hidden) == "" {
		return nil, errs.NewValidation(raw, "generate payload has an empty opportunities field")
	}
	if result.Pitfalls == nil {
		return nil, errs.NewValidation(raw, "generate payload missing pitfalls")
	}
	return &result, nil
}

func parseReroll(raw string) (*playbook.Action, error) {
	var action playbook.Action
	if err := decodeObject(raw, &action); err != nil {
		return nil, err
	}
	if strings.TrimSpace(action.Title) == "" {
		return nil, errs.NewValidation(raw, "reroll payload missing title")
	}
	if !playbook.IsValidHorizon(action.Horizon) {
		action.Horizon = playbook.HorizonImmediate
	}
	action.IsCompleted = false
	action.SubActions = nil
	return &action, nil
}

// parseBreakdown accepts either a bare array or an object wrapping the
// array under a "steps" or "actions" key, which smaller models produce
// despite the prompt asking for an array.
func parseBreakdown(raw string) ([]playbook.SubAction, error) {
	body, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var steps []playbook.SubAction
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &steps); err != nil {
			return nil, errs.NewValidation(raw, fmt.Sprintf("malformed breakdown array: %v", err))
		}
	} else {
		var wrapper struct {
			Steps   []playbook.SubAction `json:"steps"`
			Actions []playbook.SubAction `json:"actions"`
		}
		if err := json.Unmarshal([]byte(body), &wrapper); err != nil {
			return nil, errs.NewValidation(raw, fmt.Sprintf("malformed breakdown object: %v", err))
		}
		steps = wrapper.Steps
		if len(steps) == 0 {
			steps = wrapper.Actions
		}
	}

	if len(steps) == 0 {
		return nil, errs.NewValidation(raw, "breakdown payload has no steps")
	}
	for i := range steps {
		if strings.TrimSpace(steps[i].Title) == "" {
			return nil, errs.NewValidation(raw, fmt.Sprintf("breakdown step %d has no title", i))
		}
		if steps[i].ID == "" {
			steps[i].ID = playbook.GenerateActionID()
		}
		steps[i].IsCompleted = false
	}
	return steps, nil
}

func parseBlockPattern(raw string) (*BlockPatternResult, error) {
	var result BlockPatternResult
	if err := decodeObject(raw, &result); err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.BlockPattern) == "" {
		return nil, errs.NewValidation(raw, "classification payload missing blockPattern")
	}
	return &result, nil
}

func parseSequence(raw string) (*SequenceResult, error) {
	var result SequenceResult
	if err := decodeObject(raw, &result); err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.ActivationMove) == "" ||
		strings.TrimSpace(result.MomentumMove) == "" ||
		strings.TrimSpace(result.SystemsMove) == "" {
		return nil, errs.NewValidation(raw, "sequence payload missing one of the three moves")
	}
	return &result, nil
}

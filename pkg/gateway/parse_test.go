package gateway

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum/pkg/errs"
	"momentum/pkg/playbook"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "markdown fenced",
			input: "Here you go:\n```json\n{\"a\": 1}\n```\nLet me know!",
			want:  `{"a": 1}`,
		},
		{
			name:  "array payload",
			input: "Steps:\n[{\"id\": \"1\"}, {\"id\": \"2\"}]",
			want:  `[{"id": "1"}, {"id": "2"}]`,
		},
		{
			name:  "braces inside strings",
			input: `{"title": "use {curly} braces", "desc": "a \" quote"}`,
			want:  `{"title": "use {curly} braces", "desc": "a \" quote"}`,
		},
		{
			name:  "nested objects",
			input: `prefix {"a": {"b": [1, 2]}} suffix {"c": 3}`,
			want:  `{"a": {"b": [1, 2]}}`,
		},
		{
			name:    "no json at all",
			input:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "unterminated",
			input:   `{"a": [1, 2`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.Is(err, errs.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func validGenerateJSON() string {
	actions := ""
	horizons := []string{"immediate", "immediate", "immediate", "medium", "medium", "long"}
	for i, h := range horizons {
		if i > 0 {
			actions += ","
		}
		actions += fmt.Sprintf(`{"id": "a%d", "title": "Action %d", "description": "do it", "horizon": %q, "rationale": "because"}`, i, i, h)
	}
	return fmt.Sprintf(`{
		"focusArea": "Ship the side project",
		"analysis": "You have momentum but no deadline.",
		"opportunities": {"internal": "discipline", "external": "community", "hidden": "constraints"},
		"actions": [%s],
		"pitfalls": [{"title": "Scope creep", "desc": "Adding features instead of shipping."}]
	}`, actions)
}

func TestParseGenerate(t *testing.T) {
	result, err := parseGenerate("```json\n" + validGenerateJSON() + "\n```")
	require.NoError(t, err)

	assert.Equal(t, "Ship the side project", result.FocusArea)
	require.Len(t, result.Actions, playbook.GeneratedActionCount)
	assert.Equal(t, playbook.HorizonImmediate, result.Actions[0].Horizon)
	assert.Equal(t, playbook.HorizonLong, result.Actions[5].Horizon)
	assert.Len(t, result.Pitfalls, 1)

	// Completion state and breakdowns never come from the model.
	for _, a := range result.Actions {
		assert.False(t, a.IsCompleted)
		assert.Empty(t, a.SubActions)
	}
}

func TestParseGenerateWrongActionCount(t *testing.T) {
	payload := `{
		"focusArea": "f", "analysis": "a",
		"opportunities": {"internal": "x", "external": "y", "hidden": "z"},
		"actions": [{"id": "a0", "title": "only one", "horizon": "immediate"}],
		"pitfalls": []
	}`
	_, err := parseGenerate(payload)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestParseGenerateWrongHorizonSplit(t *testing.T) {
	actions := ""
	for i := 0; i < playbook.GeneratedActionCount; i++ {
		if i > 0 {
			actions += ","
		}
		actions += fmt.Sprintf(`{"id": "a%d", "title": "t%d", "horizon": "immediate"}`, i, i)
	}
	payload := fmt.Sprintf(`{
		"focusArea": "f", "analysis": "a",
		"opportunities": {"internal": "x", "external": "y", "hidden": "z"},
		"actions": [%s],
		"pitfalls": []
	}`, actions)
	_, err := parseGenerate(payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "horizon split")
}

func TestParseGenerateEmptyOpportunities(t *testing.T) {
	actions := ""
	horizons := []string{"immediate", "immediate", "immediate", "medium", "medium", "long"}
	for i, h := range horizons {
		if i > 0 {
			actions += ","
		}
		actions += fmt.Sprintf(`{"id": "a%d", "title": "t%d", "horizon": %q}`, i, i, h)
	}
	payload := fmt.Sprintf(`{
		"focusArea": "f", "analysis": "a",
		"opportunities": {"internal": "", "external": "y", "hidden": "z"},
		"actions": [%s],
		"pitfalls": []
	}`, actions)
	_, err := parseGenerate(payload)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestParseGenerateMissingPitfalls(t *testing.T) {
	actions := ""
	horizons := []string{"immediate", "immediate", "immediate", "medium", "medium", "long"}
	for i, h := range horizons {
		if i > 0 {
			actions += ","
		}
		actions += fmt.Sprintf(`{"id": "a%d", "title": "t%d", "horizon": %q}`, i, i, h)
	}
	payload := fmt.Sprintf(`{
		"focusArea": "f", "analysis": "a",
		"opportunities": {"internal": "x", "external": "y", "hidden": "z"},
		"actions": [%s]
	}`, actions)
	_, err := parseGenerate(payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pitfalls")
}

func TestParseReroll(t *testing.T) {
	action, err := parseReroll(`{"id": "x", "title": "Call one customer", "description": "d", "horizon": "medium", "rationale": "r"}`)
	require.NoError(t, err)
	assert.Equal(t, "Call one customer", action.Title)
	assert.Equal(t, playbook.HorizonMedium, action.Horizon)
	assert.False(t, action.IsCompleted)
}

func TestParseRerollBadHorizonDefaultsImmediate(t *testing.T) {
	action, err := parseReroll(`{"title": "t", "horizon": "someday"}`)
	require.NoError(t, err)
	assert.Equal(t, playbook.HorizonImmediate, action.Horizon)
}

func TestParseBreakdownBareArray(t *testing.T) {
	steps, err := parseBreakdown(`[{"id": "s1", "title": "Open the doc"}, {"title": "Write one line"}]`)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "s1", steps[0].ID)
	assert.NotEmpty(t, steps[1].ID, "missing ids get generated")
}

func TestParseBreakdownWrappedObject(t *testing.T) {
	for _, key := range []string{"steps", "actions"} {
		steps, err := parseBreakdown(fmt.Sprintf(`{%q: [{"id": "s1", "title": "t"}]}`, key))
		require.NoError(t, err, "key %q", key)
		assert.Len(t, steps, 1)
	}
}

func TestParseBreakdownEmpty(t *testing.T) {
	_, err := parseBreakdown(`{"steps": []}`)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestParseBlockPattern(t *testing.T) {
	result, err := parseBlockPattern(`{"blockPattern": "overwhelm", "reasoning": "Too many open loops."}`)
	require.NoError(t, err)
	assert.Equal(t, "overwhelm", result.BlockPattern)

	_, err = parseBlockPattern(`{"reasoning": "no pattern"}`)
	require.Error(t, err)
}

func TestParseSequence(t *testing.T) {
	result, err := parseSequence(`{"activationMove": "a", "momentumMove": "m", "systemsMove": "s"}`)
	require.NoError(t, err)
	assert.Equal(t, "a", result.ActivationMove)

	_, err = parseSequence(`{"activationMove": "a", "momentumMove": "m"}`)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

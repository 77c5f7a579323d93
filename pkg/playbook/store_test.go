package playbook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAI struct {
	draft     *Draft
	reroll    *Action
	breakdown []SubAction
	err       error
}

func (s *stubAI) Generate(_ context.Context, _ string) (*Draft, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.draft, nil
}

func (s *stubAI) Reroll(_ context.Context, _, _ string) (*Action, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.reroll, nil
}

func (s *stubAI) Breakdown(_ context.Context, _ string) ([]SubAction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.breakdown, nil
}

func testDraft() *Draft {
	horizons := []Horizon{
		HorizonImmediate, HorizonImmediate, HorizonImmediate,
		HorizonMedium, HorizonMedium, HorizonLong,
	}
	draft := &Draft{
		FocusArea: "Ship the side project",
		Analysis:  "Momentum without a deadline.",
		Opportunities: Opportunities{
			Internal: "discipline",
			External: "community",
			Hidden:   "constraints",
		},
		Pitfalls: []Pitfall{{Title: "Scope creep", Desc: "Features instead of shipping."}},
	}
	for i, h := range horizons {
		draft.Actions = append(draft.Actions, Action{
			ID:      "model-id", // identical on purpose, the store must replace these
			Title:   "Action " + string(rune('A'+i)),
			Horizon: h,
		})
	}
	return draft
}

func drainChange(t *testing.T, s *Store) Change {
	t.Helper()
	select {
	case c := <-s.Changes():
		return c
	default:
		t.Fatal("expected a change to be emitted")
		return Change{}
	}
}

func requireNoChange(t *testing.T, s *Store) {
	t.Helper()
	select {
	case c := <-s.Changes():
		t.Fatalf("unexpected change emitted: %s", c.Kind)
	default:
	}
}

func TestGenerateInstallsPlaybook(t *testing.T) {
	s := NewStore(&stubAI{draft: testDraft()})

	p, err := s.Generate(context.Background(), "Ship the side project")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	require.Len(t, p.Actions, GeneratedActionCount)

	seen := map[string]bool{}
	for _, a := range p.Actions {
		assert.NotEqual(t, "model-id", a.ID)
		assert.False(t, seen[a.ID], "action ids must be unique")
		seen[a.ID] = true
	}

	change := drainChange(t, s)
	assert.Equal(t, ChangePlaybookCreated, change.Kind)
	assert.Equal(t, p.ID, change.PlaybookID)
	require.NotNil(t, change.Playbook)
	assert.Len(t, change.Playbook.Actions, GeneratedActionCount)
}

func TestGenerateFailureLeavesStateUntouched(t *testing.T) {
	ai := &stubAI{draft: testDraft()}
	s := NewStore(ai)
	first, err := s.Generate(context.Background(), "f")
	require.NoError(t, err)
	drainChange(t, s)

	ai.err = errors.New("model unavailable")
	_, err = s.Generate(context.Background(), "g")
	require.Error(t, err)

	current := s.Current()
	require.NotNil(t, current)
	assert.Equal(t, first.ID, current.ID)
	requireNoChange(t, s)
}

func TestToggleAction(t *testing.T) {
	s := NewStore(&stubAI{draft: testDraft()})
	p, err := s.Generate(context.Background(), "f")
	require.NoError(t, err)
	drainChange(t, s)

	target := p.Actions[2]
	require.NoError(t, s.ToggleAction(target.ID))

	change := drainChange(t, s)
	assert.Equal(t, ChangeActionUpdated, change.Kind)
	assert.Equal(t, target.ID, change.ActionID)
	assert.Equal(t, 2, change.Position)
	require.NotNil(t, change.Action)
	assert.True(t, change.Action.IsCompleted)

	require.NoError(t, s.ToggleAction(target.ID))
	change = drainChange(t, s)
	assert.False(t, change.Action.IsCompleted)
}

func TestToggleActionUnknownID(t *testing.T) {
	s := NewStore(&stubAI{draft: testDraft()})
	_, err := s.Generate(context.Background(), "f")
	require.NoError(t, err)
	drainChange(t, s)

	err = s.ToggleAction("nope")
	require.Error(t, err)
	requireNoChange(t, s)
}

func TestRerollPinsIdentityAndSlot(t *testing.T) {
	ai := &stubAI{draft: testDraft()}
	s := NewStore(ai)
	p, err := s.Generate(context.Background(), "f")
	require.NoError(t, err)
	drainChange(t, s)

	target := p.Actions[4] // medium horizon slot
	require.NoError(t, s.ToggleAction(target.ID))
	drainChange(t, s)

	ai.breakdown = []SubAction{{ID: "s1", Title: "step"}}
	_, err = s.DeepDive(context.Background(), target.ID)
	require.NoError(t, err)
	drainChange(t, s)

	ai.reroll = &Action{
		ID:          "model-id",
		Title:       "Different angle",
		Description: "d",
		Horizon:     HorizonImmediate, // model output, must not override the slot
		Rationale:   "r",
	}
	replaced, err := s.Reroll(context.Background(), target.ID)
	require.NoError(t, err)

	assert.Equal(t, target.ID, replaced.ID, "identity pinned")
	assert.Equal(t, HorizonMedium, replaced.Horizon, "horizon pinned to the slot")
	assert.Equal(t, "Different angle", replaced.Title)
	assert.False(t, replaced.IsCompleted, "completion resets")
	assert.Empty(t, replaced.SubActions, "breakdown discarded")

	change := drainChange(t, s)
	assert.Equal(t, ChangeActionReplaced, change.Kind)
	assert.Equal(t, 4, change.Position)
}

func TestDeepDiveReplacesSubActions(t *testing.T) {
	ai := &stubAI{
		draft:     testDraft(),
		breakdown: []SubAction{{ID: "s1", Title: "Open the doc"}, {ID: "s2", Title: "Write one line"}},
	}
	s := NewStore(ai)
	p, err := s.Generate(context.Background(), "f")
	require.NoError(t, err)
	drainChange(t, s)

	target := p.Actions[0]
	steps, err := s.DeepDive(context.Background(), target.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	drainChange(t, s)

	require.NoError(t, s.ToggleSubAction(target.ID, "s1"))
	change := drainChange(t, s)
	assert.Equal(t, ChangeSubActionUpdated, change.Kind)
	assert.Equal(t, "s1", change.SubActionID)
	assert.True(t, change.SubAction.IsCompleted)

	// A second dive replaces wholesale, completion state goes with it.
	ai.breakdown = []SubAction{{ID: "s3", Title: "Fresh step"}}
	steps, err = s.DeepDive(context.Background(), target.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "s3", steps[0].ID)

	change = drainChange(t, s)
	assert.Equal(t, ChangeSubActionsReplaced, change.Kind)
	assert.Len(t, change.SubActions, 1)
}

func TestUpdateJournal(t *testing.T) {
	s := NewStore(&stubAI{draft: testDraft()})
	require.Error(t, s.UpdateJournal("too early"))

	_, err := s.Generate(context.Background(), "f")
	require.NoError(t, err)
	drainChange(t, s)

	require.NoError(t, s.UpdateJournal("Shipped the landing page."))
	change := drainChange(t, s)
	assert.Equal(t, ChangeJournalSaved, change.Kind)
	assert.Equal(t, "Shipped the landing page.", change.Journal)
	assert.Equal(t, "Shipped the landing page.", s.Current().JournalEntry)
}

func TestArchive(t *testing.T) {
	s := NewStore(&stubAI{draft: testDraft()})
	first, err := s.Generate(context.Background(), "f")
	require.NoError(t, err)
	drainChange(t, s)

	archived, err := s.Archive()
	require.NoError(t, err)
	require.NotNil(t, archived.ArchivedAt)
	assert.Nil(t, s.Current())

	change := drainChange(t, s)
	assert.Equal(t, ChangePlaybookArchived, change.Kind)

	second, err := s.Generate(context.Background(), "g")
	require.NoError(t, err)
	drainChange(t, s)
	_, err = s.Archive()
	require.NoError(t, err)
	drainChange(t, s)

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "newest first")
	assert.Equal(t, first.ID, history[1].ID)

	_, err = s.Archive()
	require.Error(t, err, "nothing active to archive")
}

func TestSaveEmitsFullPlaybook(t *testing.T) {
	s := NewStore(&stubAI{draft: testDraft()})
	require.Error(t, s.Save())

	p, err := s.Generate(context.Background(), "f")
	require.NoError(t, err)
	drainChange(t, s)

	require.NoError(t, s.Save())
	change := drainChange(t, s)
	assert.Equal(t, ChangePlaybookSaved, change.Kind)
	require.NotNil(t, change.Playbook)
	assert.Equal(t, p.ID, change.Playbook.ID)
}

func TestResetEmitsNothing(t *testing.T) {
	s := NewStore(&stubAI{draft: testDraft()})
	_, err := s.Generate(context.Background(), "f")
	require.NoError(t, err)
	drainChange(t, s)

	s.Reset()
	assert.Nil(t, s.Current())
	assert.Empty(t, s.History())
	requireNoChange(t, s)
}

func TestHydrate(t *testing.T) {
	s := NewStore(&stubAI{})
	current := &Playbook{ID: "p1", FocusArea: "f", Actions: []Action{{ID: "a1", Title: "t"}}}
	history := []*Playbook{{ID: "p0", FocusArea: "old"}}

	s.Hydrate(current, history)
	requireNoChange(t, s)

	got := s.Current()
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ID)

	// Mutating the hydrated inputs must not leak into the store.
	current.Actions[0].Title = "mutated"
	assert.Equal(t, "t", s.Current().Actions[0].Title)

	require.Len(t, s.History(), 1)
}

func TestCurrentReturnsClone(t *testing.T) {
	s := NewStore(&stubAI{draft: testDraft()})
	_, err := s.Generate(context.Background(), "f")
	require.NoError(t, err)
	drainChange(t, s)

	clone := s.Current()
	clone.Actions[0].IsCompleted = true
	assert.False(t, s.Current().Actions[0].IsCompleted)
}

func TestSubscribeNotifiesOnMutation(t *testing.T) {
	s := NewStore(&stubAI{draft: testDraft()})
	notified := 0
	s.Subscribe(func() { notified++ })

	_, err := s.Generate(context.Background(), "focus")
	require.NoError(t, err)
	drainChange(t, s)
	assert.Equal(t, 1, notified)

	require.NoError(t, s.ToggleAction(s.Current().Actions[0].ID))
	drainChange(t, s)
	assert.Equal(t, 2, notified)

	// Reset notifies readers even though it emits no change.
	s.Reset()
	requireNoChange(t, s)
	assert.Equal(t, 3, notified)
}

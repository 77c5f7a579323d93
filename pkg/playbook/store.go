package playbook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"momentum/pkg/logx"
)

// AIClient is the slice of the gateway the store depends on. Declared here
// so the store can be exercised with a stub.
type AIClient interface {
	Generate(ctx context.Context, focusArea string) (*Draft, error)
	Reroll(ctx context.Context, focusArea, rejectedTitle string) (*Action, error)
	Breakdown(ctx context.Context, parentTask string) ([]SubAction, error)
}

// changeBufferSize bounds the pending-change queue. The sync layer drains
// continuously; hitting the bound means sync has stalled and the oldest
// semantics win, so new changes are dropped with a logged warning.
const changeBufferSize = 256

// Store is the single writer for the active playbook and its archive
// history. All mutations go through its methods; readers get deep clones.
// Changes are emitted as commands on the Changes channel for the sync
// layer to replay against the persistence backend.
type Store struct {
	mu      sync.Mutex
	ai      AIClient
	current *Playbook
	history []*Playbook
	changes chan Change
	logger  *logx.Logger
	now     func() time.Time

	listenersMu sync.Mutex
	listeners   []func()
}

// NewStore creates a store backed by the given AI client.
func NewStore(ai AIClient) *Store {
	return &Store{
		ai:      ai,
		changes: make(chan Change, changeBufferSize),
		logger:  logx.NewLogger("store"),
		now:     time.Now,
	}
}

// Changes returns the channel of emitted change commands. The store never
// closes it.
func (s *Store) Changes() <-chan Change {
	return s.changes
}

// Subscribe registers fn to run after every state change, including
// Hydrate and Reset. Callbacks fire outside the store lock; readers pull
// fresh state through Current and History.
func (s *Store) Subscribe(fn func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notifyListeners() {
	s.listenersMu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Current returns a deep clone of the active playbook, or nil when none
// is active.
func (s *Store) Current() *Playbook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// History returns deep clones of the archived playbooks, newest first.
func (s *Store) History() []*Playbook {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Playbook, len(s.history))
	for i, p := range s.history {
		out[i] = p.Clone()
	}
	return out
}

// Hydrate seeds the store from persisted state. It replaces both the
// active playbook and the history and emits no changes: hydration mirrors
// the backend, so there is nothing to sync back.
func (s *Store) Hydrate(current *Playbook, history []*Playbook) {
	s.mu.Lock()
	s.current = current.Clone()
	s.history = make([]*Playbook, len(history))
	for i, p := range history {
		s.history[i] = p.Clone()
	}
	s.mu.Unlock()
	s.notifyListeners()
}

// Generate asks the AI for a new playbook draft and installs it as the
// active playbook, replacing any previous one without archiving it. On AI
// failure the existing state is untouched.
func (s *Store) Generate(ctx context.Context, focusArea string) (*Playbook, error) {
	draft, err := s.ai.Generate(ctx, focusArea)
	if err != nil {
		return nil, err
	}

	p := &Playbook{
		ID:            GeneratePlaybookID(),
		FocusArea:     draft.FocusArea,
		Analysis:      draft.Analysis,
		Opportunities: draft.Opportunities,
		Pitfalls:      draft.Pitfalls,
		CreatedAt:     s.now().UTC(),
		Actions:       append([]Action(nil), draft.Actions...),
	}
	// Model-supplied ids are discarded so identity is collision-safe.
	for i := range p.Actions {
		p.Actions[i].ID = GenerateActionID()
	}

	s.mu.Lock()
	s.current = p
	snapshot := p.Clone()
	s.mu.Unlock()

	s.emit(Change{
		Kind:       ChangePlaybookCreated,
		PlaybookID: p.ID,
		Playbook:   snapshot,
	})
	return snapshot, nil
}

// ToggleAction flips the completion state of one action.
func (s *Store) ToggleAction(actionID string) error {
	s.mu.Lock()
	action, position, err := s.findAction(actionID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	action.IsCompleted = !action.IsCompleted
	change := Change{
		Kind:       ChangeActionUpdated,
		PlaybookID: s.current.ID,
		ActionID:   actionID,
		Action:     cloneAction(action),
		Position:   position,
	}
	s.mu.Unlock()

	s.emit(change)
	return nil
}

// ToggleSubAction flips the completion state of one sub-action.
func (s *Store) ToggleSubAction(actionID, subActionID string) error {
	s.mu.Lock()
	action, _, err := s.findAction(actionID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var sub *SubAction
	var position int
	for i := range action.SubActions {
		if action.SubActions[i].ID == subActionID {
			sub = &action.SubActions[i]
			position = i
			break
		}
	}
	if sub == nil {
		s.mu.Unlock()
		return fmt.Errorf("no sub-action %q under action %q", subActionID, actionID)
	}
	sub.IsCompleted = !sub.IsCompleted
	subCopy := *sub
	change := Change{
		Kind:        ChangeSubActionUpdated,
		PlaybookID:  s.current.ID,
		ActionID:    actionID,
		SubActionID: subActionID,
		SubAction:   &subCopy,
		Position:    position,
	}
	s.mu.Unlock()

	s.emit(change)
	return nil
}

// Reroll replaces the content of a rejected action with a fresh AI
// proposal. Identity and slot are pinned: the replacement keeps the
// rejected action's id, ordinal position, and horizon. Completion state
// resets and any breakdown is discarded.
func (s *Store) Reroll(ctx context.Context, actionID string) (*Action, error) {
	s.mu.Lock()
	action, _, err := s.findAction(actionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	focusArea := s.current.FocusArea
	rejectedTitle := action.Title
	s.mu.Unlock()

	proposal, err := s.ai.Reroll(ctx, focusArea, rejectedTitle)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// Re-resolve: the playbook may have changed during the AI call.
	action, position, err := s.findAction(actionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	action.Title = proposal.Title
	action.Description = proposal.Description
	action.Rationale = proposal.Rationale
	action.IsCompleted = false
	action.SubActions = nil
	change := Change{
		Kind:       ChangeActionReplaced,
		PlaybookID: s.current.ID,
		ActionID:   actionID,
		Action:     cloneAction(action),
		Position:   position,
	}
	result := cloneAction(action)
	s.mu.Unlock()

	s.emit(change)
	return result, nil
}

// DeepDive breaks an action into micro-steps and replaces its sub-actions
// wholesale. Completion state of previous sub-actions is discarded with
// them.
func (s *Store) DeepDive(ctx context.Context, actionID string) ([]SubAction, error) {
	s.mu.Lock()
	action, _, err := s.findAction(actionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	parentTask := action.Title
	s.mu.Unlock()

	steps, err := s.ai.Breakdown(ctx, parentTask)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	action, _, err = s.findAction(actionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	action.SubActions = append([]SubAction(nil), steps...)
	change := Change{
		Kind:       ChangeSubActionsReplaced,
		PlaybookID: s.current.ID,
		ActionID:   actionID,
		SubActions: append([]SubAction(nil), steps...),
	}
	result := append([]SubAction(nil), action.SubActions...)
	s.mu.Unlock()

	s.emit(change)
	return result, nil
}

// UpdateJournal sets the journal entry on the active playbook.
func (s *Store) UpdateJournal(entry string) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return fmt.Errorf("no active playbook")
	}
	s.current.JournalEntry = entry
	change := Change{
		Kind:       ChangeJournalSaved,
		PlaybookID: s.current.ID,
		Journal:    entry,
	}
	s.mu.Unlock()

	s.emit(change)
	return nil
}

// Save re-emits the entire active playbook as one change. Used to force a
// full upsert, typically after the sync layer reported an error and the
// user asked for a retry.
func (s *Store) Save() error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return fmt.Errorf("no active playbook")
	}
	change := Change{
		Kind:       ChangePlaybookSaved,
		PlaybookID: s.current.ID,
		Playbook:   s.current.Clone(),
	}
	s.mu.Unlock()

	s.emit(change)
	return nil
}

// Archive freezes the active playbook, prepends it to the history, and
// clears the active slot. Archiving is terminal: archived playbooks are
// never mutated again.
func (s *Store) Archive() (*Playbook, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no active playbook")
	}
	archivedAt := s.now().UTC()
	s.current.ArchivedAt = &archivedAt
	archived := s.current
	s.history = append([]*Playbook{archived}, s.history...)
	s.current = nil
	snapshot := archived.Clone()
	s.mu.Unlock()

	s.emit(Change{
		Kind:       ChangePlaybookArchived,
		PlaybookID: snapshot.ID,
		Playbook:   snapshot.Clone(),
	})
	return snapshot, nil
}

// Reset discards the active playbook without archiving it. Nothing is
// emitted: a playbook the user threw away has no business in the backend.
func (s *Store) Reset() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.notifyListeners()
}

// findAction must be called with the lock held.
func (s *Store) findAction(actionID string) (*Action, int, error) {
	if s.current == nil {
		return nil, 0, fmt.Errorf("no active playbook")
	}
	for i := range s.current.Actions {
		if s.current.Actions[i].ID == actionID {
			return &s.current.Actions[i], i, nil
		}
	}
	return nil, 0, fmt.Errorf("no action %q in current playbook", actionID)
}

func (s *Store) emit(change Change) {
	change.At = s.now().UTC()
	select {
	case s.changes <- change:
	default:
		s.logger.Warn("change queue full, dropping %s for playbook %s", change.Kind, change.PlaybookID)
	}
	s.notifyListeners()
}

func cloneAction(a *Action) *Action {
	out := *a
	out.SubActions = append([]SubAction(nil), a.SubActions...)
	return &out
}

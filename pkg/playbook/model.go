// Package playbook owns the active plan: its data model, the single-writer
// store that mutates it, and the archive history.
package playbook

import (
	"time"

	"github.com/google/uuid"
)

// Horizon is the coarse urgency bucket used to group actions.
type Horizon string

const (
	HorizonImmediate Horizon = "immediate"
	HorizonMedium    Horizon = "medium"
	HorizonLong      Horizon = "long"
)

// ValidHorizons returns all valid horizon values.
func ValidHorizons() []Horizon {
	return []Horizon{HorizonImmediate, HorizonMedium, HorizonLong}
}

// IsValidHorizon checks if a horizon string is valid.
func IsValidHorizon(h Horizon) bool {
	for _, valid := range ValidHorizons() {
		if h == valid {
			return true
		}
	}
	return false
}

// Canonical action distribution for a generated playbook: six actions,
// three immediate, two medium, one long.
const (
	GeneratedActionCount = 6
	ImmediateActionCount = 3
	MediumActionCount    = 2
	LongActionCount      = 1
)

// SubAction is a micro-step produced by breaking an action down.
type SubAction struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
}

// Action is a single task within a playbook, tagged with a time horizon.
// Its ID is stable across reroll: content is replaced, identity retained,
// so completion and sync tracking keyed off the ID never orphans.
type Action struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Horizon     Horizon     `json:"horizon"`
	Rationale   string      `json:"rationale"`
	IsCompleted bool        `json:"isCompleted"`
	SubActions  []SubAction `json:"subActions,omitempty"`
}

// Opportunities is the internal/external/hidden analysis triple.
type Opportunities struct {
	Internal string `json:"internal"`
	External string `json:"external"`
	Hidden   string `json:"hidden"`
}

// Pitfall is a titled warning attached to a playbook.
type Pitfall struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

// Draft is a validated model payload for a new playbook before the store
// assigns identity and timestamps.
type Draft struct {
	FocusArea     string        `json:"focusArea"`
	Analysis      string        `json:"analysis"`
	Opportunities Opportunities `json:"opportunities"`
	Actions       []Action      `json:"actions"`
	Pitfalls      []Pitfall     `json:"pitfalls"`
}

// Playbook is the AI-generated, user-tracked set of actions for one focus
// area. At most one non-archived playbook is active at a time; archiving is
// terminal.
//
//nolint:govet // struct alignment optimization not critical for this type
type Playbook struct {
	ID            string        `json:"id"`
	FocusArea     string        `json:"focusArea"`
	Analysis      string        `json:"analysis"`
	Opportunities Opportunities `json:"opportunities"`
	Pitfalls      []Pitfall     `json:"pitfalls"`
	JournalEntry  string        `json:"journalEntry"`
	CreatedAt     time.Time     `json:"createdAt"`
	ArchivedAt    *time.Time    `json:"archivedAt,omitempty"`
	Actions       []Action      `json:"actions"`
}

// Action returns the action with the given id, or nil if absent.
func (p *Playbook) Action(actionID string) *Action {
	for i := range p.Actions {
		if p.Actions[i].ID == actionID {
			return &p.Actions[i]
		}
	}
	return nil
}

// CompletedActionIDs derives the completed-id-set view from the action
// booleans. The booleans are the source of truth; this view exists for
// consumers that want set semantics.
func (p *Playbook) CompletedActionIDs() []string {
	var ids []string
	for i := range p.Actions {
		if p.Actions[i].IsCompleted {
			ids = append(ids, p.Actions[i].ID)
		}
	}
	return ids
}

// Clone returns a deep copy of the playbook. Readers get clones so the
// store's copy is never aliased outside the single writer.
func (p *Playbook) Clone() *Playbook {
	if p == nil {
		return nil
	}
	out := *p
	if p.ArchivedAt != nil {
		t := *p.ArchivedAt
		out.ArchivedAt = &t
	}
	out.Pitfalls = append([]Pitfall(nil), p.Pitfalls...)
	out.Actions = make([]Action, len(p.Actions))
	for i := range p.Actions {
		out.Actions[i] = p.Actions[i]
		out.Actions[i].SubActions = append([]SubAction(nil), p.Actions[i].SubActions...)
	}
	return &out
}

// GeneratePlaybookID generates a new UUID for a playbook.
func GeneratePlaybookID() string {
	return uuid.New().String()
}

// GenerateActionID generates a new UUID for an action or sub-action.
// Model-supplied ids are replaced with these so identity is always
// collision-safe regardless of what the backend returned.
func GenerateActionID() string {
	return uuid.New().String()
}

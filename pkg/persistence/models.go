package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"momentum/pkg/playbook"
)

// PlaybookRow is the playbooks table record. Actions and sub-actions live
// in their own tables with explicit position ordinals; pitfalls are small
// and read-only once generated, so they stay as a JSON column.
//
//nolint:govet // struct alignment optimization not critical for this type
type PlaybookRow struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	FocusArea    string     `json:"focus_area"`
	Analysis     string     `json:"analysis"`
	OppInternal  string     `json:"opp_internal"`
	OppExternal  string     `json:"opp_external"`
	OppHidden    string     `json:"opp_hidden"`
	PitfallsJSON string     `json:"pitfalls_json"`
	JournalEntry string     `json:"journal_entry"`
	CreatedAt    time.Time  `json:"created_at"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
}

// UserProfile is the onboarding record for one user.
//
//nolint:govet // struct alignment optimization not critical for this type
type UserProfile struct {
	UserID         string    `json:"user_id"`
	StuckInput     string    `json:"stuck_input"`
	FrictionInput  string    `json:"friction_input"`
	BlockPattern   string    `json:"block_pattern"`
	Reasoning      string    `json:"reasoning"`
	ActivationMove string    `json:"activation_move"`
	MomentumMove   string    `json:"momentum_move"`
	SystemsMove    string    `json:"systems_move"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func playbookToRow(userID string, p *playbook.Playbook) (*PlaybookRow, error) {
	pitfalls := p.Pitfalls
	if pitfalls == nil {
		pitfalls = []playbook.Pitfall{}
	}
	pitfallsJSON, err := json.Marshal(pitfalls)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pitfalls: %w", err)
	}
	return &PlaybookRow{
		ID:           p.ID,
		UserID:       userID,
		FocusArea:    p.FocusArea,
		Analysis:     p.Analysis,
		OppInternal:  p.Opportunities.Internal,
		OppExternal:  p.Opportunities.External,
		OppHidden:    p.Opportunities.Hidden,
		PitfallsJSON: string(pitfallsJSON),
		JournalEntry: p.JournalEntry,
		CreatedAt:    p.CreatedAt,
		ArchivedAt:   p.ArchivedAt,
	}, nil
}

func rowToPlaybook(row *PlaybookRow) (*playbook.Playbook, error) {
	var pitfalls []playbook.Pitfall
	if err := json.Unmarshal([]byte(row.PitfallsJSON), &pitfalls); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pitfalls for playbook %s: %w", row.ID, err)
	}
	return &playbook.Playbook{
		ID:        row.ID,
		FocusArea: row.FocusArea,
		Analysis:  row.Analysis,
		Opportunities: playbook.Opportunities{
			Internal: row.OppInternal,
			External: row.OppExternal,
			Hidden:   row.OppHidden,
		},
		Pitfalls:     pitfalls,
		JournalEntry: row.JournalEntry,
		CreatedAt:    row.CreatedAt,
		ArchivedAt:   row.ArchivedAt,
	}, nil
}

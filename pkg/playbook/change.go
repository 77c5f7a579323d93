package playbook

import "time"

// ChangeKind identifies which entity a mutation touched.
type ChangeKind string

const (
	// ChangePlaybookCreated is emitted by Generate with the full new playbook.
	ChangePlaybookCreated ChangeKind = "playbook_created"
	// ChangeActionUpdated is emitted by ToggleAction.
	ChangeActionUpdated ChangeKind = "action_updated"
	// ChangeActionReplaced is emitted by Reroll; content changed, id kept.
	ChangeActionReplaced ChangeKind = "action_replaced"
	// ChangeSubActionsReplaced is emitted by DeepDive with the full new set.
	ChangeSubActionsReplaced ChangeKind = "subactions_replaced"
	// ChangeSubActionUpdated is emitted by ToggleSubAction.
	ChangeSubActionUpdated ChangeKind = "subaction_updated"
	// ChangeJournalSaved is emitted by explicit journal save requests.
	ChangeJournalSaved ChangeKind = "journal_saved"
	// ChangePlaybookSaved is emitted by explicit whole-playbook save requests.
	ChangePlaybookSaved ChangeKind = "playbook_saved"
	// ChangePlaybookArchived is emitted by Archive with the frozen record.
	ChangePlaybookArchived ChangeKind = "playbook_archived"
)

// Change describes one local mutation for the sync layer. The store emits
// these and knows nothing about sync status; a coordinator consumes them
// from a channel and performs best-effort remote upserts. Payload fields
// are snapshots taken at mutation time so the remote write is unaffected
// by later mutations.
//
//nolint:govet // struct alignment optimization not critical for this type
type Change struct {
	Kind        ChangeKind
	PlaybookID  string
	ActionID    string    // Set for action and sub-action changes
	SubActionID string    // Set for sub-action updates
	At          time.Time // Mutation timestamp

	Playbook   *Playbook   // Set for playbook-level changes
	Action     *Action     // Set for action-level changes
	SubAction  *SubAction  // Set for sub-action updates
	SubActions []SubAction // Set for wholesale sub-action replacement
	Position   int         // Ordinal of the affected action within the playbook
	Journal    string      // Set for journal saves
}

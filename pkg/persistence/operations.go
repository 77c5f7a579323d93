package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"momentum/pkg/playbook"
)

// ErrNotFound is returned when a referenced playbook or action does not
// exist for the requesting user.
var ErrNotFound = errors.New("record not found")

// Operations provides the playbook row operations used by the persistence
// function handler.
type Operations struct {
	db *sql.DB
}

// NewOperations wraps an initialized database.
func NewOperations(db *sql.DB) *Operations {
	return &Operations{db: db}
}

// UpsertPlaybook writes the full playbook: the playbook row plus a
// wholesale replacement of its action and sub-action rows. Used for
// creation, explicit full saves, and archival.
func (o *Operations) UpsertPlaybook(userID string, p *playbook.Playbook) error {
	row, err := playbookToRow(userID, p)
	if err != nil {
		return err
	}

	tx, err := o.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// An existing row owned by someone else must not be touched, and the
	// wholesale action replacement below runs regardless of the upsert's
	// own ownership guard, so check up front.
	var ownerID string
	err = tx.QueryRow("SELECT user_id FROM playbooks WHERE id = ?", p.ID).Scan(&ownerID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// New playbook.
	case err != nil:
		return fmt.Errorf("failed to verify playbook owner: %w", err)
	case ownerID != userID:
		return ErrNotFound
	}

	_, err = tx.Exec(`
		INSERT INTO playbooks (id, user_id, focus_area, analysis, opp_internal, opp_external, opp_hidden,
			pitfalls_json, journal_entry, created_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			focus_area = excluded.focus_area,
			analysis = excluded.analysis,
			opp_internal = excluded.opp_internal,
			opp_external = excluded.opp_external,
			opp_hidden = excluded.opp_hidden,
			pitfalls_json = excluded.pitfalls_json,
			journal_entry = excluded.journal_entry,
			archived_at = excluded.archived_at
		WHERE playbooks.user_id = excluded.user_id`,
		row.ID, row.UserID, row.FocusArea, row.Analysis, row.OppInternal, row.OppExternal, row.OppHidden,
		row.PitfallsJSON, row.JournalEntry, row.CreatedAt, row.ArchivedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert playbook: %w", err)
	}

	// Replace rows wholesale; sub_actions cascade with their actions.
	if _, err := tx.Exec("DELETE FROM actions WHERE playbook_id = ?", p.ID); err != nil {
		return fmt.Errorf("failed to clear action rows: %w", err)
	}
	for position := range p.Actions {
		if err := insertAction(tx, p.ID, position, &p.Actions[position]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playbook upsert: %w", err)
	}
	return nil
}

// UpsertAction writes one action row at its ordinal position and replaces
// its sub-action rows with the payload's set. A reroll arrives here with
// an empty set, which clears any previous breakdown.
func (o *Operations) UpsertAction(userID, playbookID string, position int, a *playbook.Action) error {
	if err := o.verifyPlaybookOwner(userID, playbookID); err != nil {
		return err
	}

	tx, err := o.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(`
		INSERT INTO actions (id, playbook_id, position, title, description, horizon, rationale, is_completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(playbook_id, id) DO UPDATE SET
			position = excluded.position,
			title = excluded.title,
			description = excluded.description,
			horizon = excluded.horizon,
			rationale = excluded.rationale,
			is_completed = excluded.is_completed`,
		a.ID, playbookID, position, a.Title, a.Description, string(a.Horizon), a.Rationale, a.IsCompleted)
	if err != nil {
		return fmt.Errorf("failed to upsert action: %w", err)
	}

	if err := replaceSubActions(tx, playbookID, a.ID, a.SubActions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit action upsert: %w", err)
	}
	return nil
}

// UpsertSubAction writes one sub-action row at its ordinal position.
func (o *Operations) UpsertSubAction(userID, playbookID, actionID string, position int, sub *playbook.SubAction) error {
	if err := o.verifyActionOwner(userID, playbookID, actionID); err != nil {
		return err
	}

	_, err := o.db.Exec(`
		INSERT INTO sub_actions (id, playbook_id, action_id, position, title, is_completed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(playbook_id, action_id, id) DO UPDATE SET
			position = excluded.position,
			title = excluded.title,
			is_completed = excluded.is_completed`,
		sub.ID, playbookID, actionID, position, sub.Title, sub.IsCompleted)
	if err != nil {
		return fmt.Errorf("failed to upsert sub-action: %w", err)
	}
	return nil
}

// ReplaceSubActions swaps an action's sub-action rows for the given set.
func (o *Operations) ReplaceSubActions(userID, playbookID, actionID string, subs []playbook.SubAction) error {
	if err := o.verifyActionOwner(userID, playbookID, actionID); err != nil {
		return err
	}

	tx, err := o.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := replaceSubActions(tx, playbookID, actionID, subs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sub-action replacement: %w", err)
	}
	return nil
}

// SaveJournal updates the journal entry on a playbook row.
func (o *Operations) SaveJournal(userID, playbookID, entry string) error {
	result, err := o.db.Exec(
		"UPDATE playbooks SET journal_entry = ? WHERE id = ? AND user_id = ?",
		entry, playbookID, userID)
	if err != nil {
		return fmt.Errorf("failed to save journal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check journal update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetActivePlaybooks returns the user's non-archived playbooks, newest
// first, with action and sub-action rows assembled in position order.
func (o *Operations) GetActivePlaybooks(userID string) ([]*playbook.Playbook, error) {
	return o.getPlaybooks(userID, false)
}

// GetHistory returns the user's archived playbooks, most recently archived
// first.
func (o *Operations) GetHistory(userID string) ([]*playbook.Playbook, error) {
	return o.getPlaybooks(userID, true)
}

func (o *Operations) getPlaybooks(userID string, archived bool) ([]*playbook.Playbook, error) {
	query := `
		SELECT id, user_id, focus_area, analysis, opp_internal, opp_external, opp_hidden,
			pitfalls_json, journal_entry, created_at, archived_at
		FROM playbooks WHERE user_id = ? AND archived_at IS NULL
		ORDER BY created_at DESC`
	if archived {
		query = `
		SELECT id, user_id, focus_area, analysis, opp_internal, opp_external, opp_hidden,
			pitfalls_json, journal_entry, created_at, archived_at
		FROM playbooks WHERE user_id = ? AND archived_at IS NOT NULL
		ORDER BY archived_at DESC`
	}

	rows, err := o.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playbooks: %w", err)
	}
	defer rows.Close()

	var playbooks []*playbook.Playbook
	for rows.Next() {
		var row PlaybookRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.FocusArea, &row.Analysis,
			&row.OppInternal, &row.OppExternal, &row.OppHidden,
			&row.PitfallsJSON, &row.JournalEntry, &row.CreatedAt, &row.ArchivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playbook row: %w", err)
		}
		p, err := rowToPlaybook(&row)
		if err != nil {
			return nil, err
		}
		playbooks = append(playbooks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate playbook rows: %w", err)
	}

	for _, p := range playbooks {
		if err := o.loadActions(p); err != nil {
			return nil, err
		}
	}
	return playbooks, nil
}

func (o *Operations) loadActions(p *playbook.Playbook) error {
	rows, err := o.db.Query(`
		SELECT id, title, description, horizon, rationale, is_completed
		FROM actions WHERE playbook_id = ? ORDER BY position`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a playbook.Action
		var horizon string
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &horizon, &a.Rationale, &a.IsCompleted); err != nil {
			return fmt.Errorf("failed to scan action row: %w", err)
		}
		a.Horizon = playbook.Horizon(horizon)
		p.Actions = append(p.Actions, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate action rows: %w", err)
	}

	for i := range p.Actions {
		if err := o.loadSubActions(p.ID, &p.Actions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (o *Operations) loadSubActions(playbookID string, a *playbook.Action) error {
	rows, err := o.db.Query(`
		SELECT id, title, is_completed
		FROM sub_actions WHERE playbook_id = ? AND action_id = ? ORDER BY position`,
		playbookID, a.ID)
	if err != nil {
		return fmt.Errorf("failed to query sub-actions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sub playbook.SubAction
		if err := rows.Scan(&sub.ID, &sub.Title, &sub.IsCompleted); err != nil {
			return fmt.Errorf("failed to scan sub-action row: %w", err)
		}
		a.SubActions = append(a.SubActions, sub)
	}
	return rows.Err()
}

// IsPlaybookArchived reports whether the stored playbook carries an
// archive timestamp. Absent rows are not archived.
func (o *Operations) IsPlaybookArchived(userID, playbookID string) (bool, error) {
	var archived bool
	err := o.db.QueryRow(
		"SELECT archived_at IS NOT NULL FROM playbooks WHERE id = ? AND user_id = ?", playbookID, userID).Scan(&archived)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read archive state: %w", err)
	}
	return archived, nil
}

func (o *Operations) verifyPlaybookOwner(userID, playbookID string) error {
	var one int
	err := o.db.QueryRow(
		"SELECT 1 FROM playbooks WHERE id = ? AND user_id = ?", playbookID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to verify playbook owner: %w", err)
	}
	return nil
}

func (o *Operations) verifyActionOwner(userID, playbookID, actionID string) error {
	var one int
	err := o.db.QueryRow(`
		SELECT 1 FROM actions a
		JOIN playbooks p ON p.id = a.playbook_id
		WHERE a.playbook_id = ? AND a.id = ? AND p.user_id = ?`,
		playbookID, actionID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to verify action owner: %w", err)
	}
	return nil
}

func insertAction(tx *sql.Tx, playbookID string, position int, a *playbook.Action) error {
	_, err := tx.Exec(`
		INSERT INTO actions (id, playbook_id, position, title, description, horizon, rationale, is_completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, playbookID, position, a.Title, a.Description, string(a.Horizon), a.Rationale, a.IsCompleted)
	if err != nil {
		return fmt.Errorf("failed to insert action row: %w", err)
	}
	for subPosition := range a.SubActions {
		sub := &a.SubActions[subPosition]
		_, err := tx.Exec(`
			INSERT INTO sub_actions (id, playbook_id, action_id, position, title, is_completed)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sub.ID, playbookID, a.ID, subPosition, sub.Title, sub.IsCompleted)
		if err != nil {
			return fmt.Errorf("failed to insert sub-action row: %w", err)
		}
	}
	return nil
}

// replaceSubActions deletes and reinserts an action's sub-action rows.
func replaceSubActions(tx *sql.Tx, playbookID, actionID string, subs []playbook.SubAction) error {
	if _, err := tx.Exec(
		"DELETE FROM sub_actions WHERE playbook_id = ? AND action_id = ?",
		playbookID, actionID); err != nil {
		return fmt.Errorf("failed to clear sub-action rows: %w", err)
	}
	for position := range subs {
		sub := &subs[position]
		_, err := tx.Exec(`
			INSERT INTO sub_actions (id, playbook_id, action_id, position, title, is_completed)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sub.ID, playbookID, actionID, position, sub.Title, sub.IsCompleted)
		if err != nil {
			return fmt.Errorf("failed to insert sub-action row: %w", err)
		}
	}
	return nil
}

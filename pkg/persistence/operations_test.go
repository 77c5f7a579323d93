package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"momentum/pkg/playbook"
)

// Helper function to create a new database for each test.
func createTestDB(t *testing.T) *Operations {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := InitializeDatabase(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return NewOperations(db)
}

func testPlaybook(id string) *playbook.Playbook {
	return &playbook.Playbook{
		ID:        id,
		FocusArea: "Ship the side project",
		Analysis:  "Momentum without a deadline.",
		Opportunities: playbook.Opportunities{
			Internal: "discipline",
			External: "community",
			Hidden:   "constraints",
		},
		Pitfalls:  []playbook.Pitfall{{Title: "Scope creep", Desc: "Features instead of shipping."}},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Actions: []playbook.Action{
			{ID: "a1", Title: "First", Horizon: playbook.HorizonImmediate},
			{ID: "a2", Title: "Second", Horizon: playbook.HorizonMedium, SubActions: []playbook.SubAction{
				{ID: "s1", Title: "Step one"},
				{ID: "s2", Title: "Step two", IsCompleted: true},
			}},
		},
	}
}

func TestUpsertAndGetPlaybook(t *testing.T) {
	ops := createTestDB(t)

	p := testPlaybook("p1")
	if err := ops.UpsertPlaybook("u1", p); err != nil {
		t.Fatalf("Failed to upsert playbook: %v", err)
	}

	active, err := ops.GetActivePlaybooks("u1")
	if err != nil {
		t.Fatalf("Failed to get active playbooks: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("Expected 1 active playbook, got %d", len(active))
	}

	got := active[0]
	if got.FocusArea != p.FocusArea {
		t.Errorf("Expected focus area %q, got %q", p.FocusArea, got.FocusArea)
	}
	if len(got.Actions) != 2 {
		t.Fatalf("Expected 2 actions, got %d", len(got.Actions))
	}
	if got.Actions[0].ID != "a1" || got.Actions[1].ID != "a2" {
		t.Errorf("Actions out of position order: %q, %q", got.Actions[0].ID, got.Actions[1].ID)
	}
	if len(got.Actions[1].SubActions) != 2 {
		t.Fatalf("Expected 2 sub-actions, got %d", len(got.Actions[1].SubActions))
	}
	if !got.Actions[1].SubActions[1].IsCompleted {
		t.Error("Expected second sub-action completed")
	}
	if len(got.Pitfalls) != 1 || got.Pitfalls[0].Title != "Scope creep" {
		t.Errorf("Pitfalls did not round-trip: %+v", got.Pitfalls)
	}

	// The other user sees nothing.
	other, err := ops.GetActivePlaybooks("u2")
	if err != nil {
		t.Fatalf("Failed to get playbooks for other user: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no playbooks for other user, got %d", len(other))
	}
}

func TestUpsertPlaybookReplacesRows(t *testing.T) {
	ops := createTestDB(t)

	p := testPlaybook("p1")
	if err := ops.UpsertPlaybook("u1", p); err != nil {
		t.Fatalf("Failed to upsert playbook: %v", err)
	}

	// Second save drops an action; its rows must go with it.
	p.Actions = p.Actions[:1]
	if err := ops.UpsertPlaybook("u1", p); err != nil {
		t.Fatalf("Failed to re-upsert playbook: %v", err)
	}

	active, err := ops.GetActivePlaybooks("u1")
	if err != nil {
		t.Fatalf("Failed to get active playbooks: %v", err)
	}
	if len(active[0].Actions) != 1 {
		t.Fatalf("Expected 1 action after replace, got %d", len(active[0].Actions))
	}
}

func TestUpsertActionRow(t *testing.T) {
	ops := createTestDB(t)

	p := testPlaybook("p1")
	if err := ops.UpsertPlaybook("u1", p); err != nil {
		t.Fatalf("Failed to upsert playbook: %v", err)
	}

	// Toggle completion on a1.
	toggled := p.Actions[0]
	toggled.IsCompleted = true
	if err := ops.UpsertAction("u1", "p1", 0, &toggled); err != nil {
		t.Fatalf("Failed to upsert action: %v", err)
	}

	active, _ := ops.GetActivePlaybooks("u1")
	if !active[0].Actions[0].IsCompleted {
		t.Error("Expected action a1 completed after upsert")
	}

	// A reroll-style upsert with no sub-actions clears a2's breakdown.
	replaced := p.Actions[1]
	replaced.Title = "Different angle"
	replaced.SubActions = nil
	if err := ops.UpsertAction("u1", "p1", 1, &replaced); err != nil {
		t.Fatalf("Failed to upsert replaced action: %v", err)
	}

	active, _ = ops.GetActivePlaybooks("u1")
	if active[0].Actions[1].Title != "Different angle" {
		t.Errorf("Expected replaced title, got %q", active[0].Actions[1].Title)
	}
	if len(active[0].Actions[1].SubActions) != 0 {
		t.Errorf("Expected breakdown cleared, got %d sub-actions", len(active[0].Actions[1].SubActions))
	}

	// Wrong user cannot touch the row.
	if err := ops.UpsertAction("u2", "p1", 0, &toggled); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for wrong user, got %v", err)
	}
}

func TestSubActionRows(t *testing.T) {
	ops := createTestDB(t)

	p := testPlaybook("p1")
	if err := ops.UpsertPlaybook("u1", p); err != nil {
		t.Fatalf("Failed to upsert playbook: %v", err)
	}

	// Toggle one sub-action row.
	sub := playbook.SubAction{ID: "s1", Title: "Step one", IsCompleted: true}
	if err := ops.UpsertSubAction("u1", "p1", "a2", 0, &sub); err != nil {
		t.Fatalf("Failed to upsert sub-action: %v", err)
	}
	active, _ := ops.GetActivePlaybooks("u1")
	if !active[0].Actions[1].SubActions[0].IsCompleted {
		t.Error("Expected sub-action s1 completed")
	}

	// Replace wholesale.
	fresh := []playbook.SubAction{{ID: "s9", Title: "Fresh step"}}
	if err := ops.ReplaceSubActions("u1", "p1", "a2", fresh); err != nil {
		t.Fatalf("Failed to replace sub-actions: %v", err)
	}
	active, _ = ops.GetActivePlaybooks("u1")
	subs := active[0].Actions[1].SubActions
	if len(subs) != 1 || subs[0].ID != "s9" {
		t.Errorf("Expected single fresh sub-action, got %+v", subs)
	}

	// Unknown action.
	if err := ops.ReplaceSubActions("u1", "p1", "missing", fresh); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown action, got %v", err)
	}
}

func TestSaveJournal(t *testing.T) {
	ops := createTestDB(t)

	p := testPlaybook("p1")
	if err := ops.UpsertPlaybook("u1", p); err != nil {
		t.Fatalf("Failed to upsert playbook: %v", err)
	}

	if err := ops.SaveJournal("u1", "p1", "Shipped the landing page."); err != nil {
		t.Fatalf("Failed to save journal: %v", err)
	}
	active, _ := ops.GetActivePlaybooks("u1")
	if active[0].JournalEntry != "Shipped the landing page." {
		t.Errorf("Journal did not persist: %q", active[0].JournalEntry)
	}

	if err := ops.SaveJournal("u1", "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown playbook, got %v", err)
	}
}

func TestHistoryOrdering(t *testing.T) {
	ops := createTestDB(t)

	older := testPlaybook("p1")
	archivedOld := time.Now().UTC().Add(-time.Hour)
	older.ArchivedAt = &archivedOld
	newer := testPlaybook("p2")
	archivedNew := time.Now().UTC()
	newer.ArchivedAt = &archivedNew

	if err := ops.UpsertPlaybook("u1", older); err != nil {
		t.Fatalf("Failed to upsert older playbook: %v", err)
	}
	if err := ops.UpsertPlaybook("u1", newer); err != nil {
		t.Fatalf("Failed to upsert newer playbook: %v", err)
	}

	history, err := ops.GetHistory("u1")
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 archived playbooks, got %d", len(history))
	}
	if history[0].ID != "p2" || history[1].ID != "p1" {
		t.Errorf("History not newest first: %q, %q", history[0].ID, history[1].ID)
	}

	active, err := ops.GetActivePlaybooks("u1")
	if err != nil {
		t.Fatalf("Failed to get active playbooks: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Archived playbooks leaked into the active set: %d", len(active))
	}
}

func TestSchemaIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := InitializeDatabase(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	db.Close()

	// Reopen the same file; migrations must be a no-op.
	db, err = InitializeDatabase(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("Database file missing: %v", err)
	}
}

func TestUpsertPlaybookRejectsOtherOwner(t *testing.T) {
	ops := createTestDB(t)

	if err := ops.UpsertPlaybook("u1", testPlaybook("p1")); err != nil {
		t.Fatalf("Failed to upsert playbook: %v", err)
	}

	intruder := testPlaybook("p1")
	intruder.Actions = []playbook.Action{{ID: "x1", Title: "Replaced", Horizon: playbook.HorizonImmediate}}
	if err := ops.UpsertPlaybook("u2", intruder); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for foreign playbook id, got %v", err)
	}

	// The owner's rows must be untouched.
	active, err := ops.GetActivePlaybooks("u1")
	if err != nil {
		t.Fatalf("Failed to get active playbooks: %v", err)
	}
	if len(active) != 1 || len(active[0].Actions) != 2 {
		t.Fatalf("Owner's playbook was modified: %+v", active)
	}
	if active[0].Actions[0].ID != "a1" {
		t.Errorf("Expected action a1, got %s", active[0].Actions[0].ID)
	}
}

func TestIsPlaybookArchived(t *testing.T) {
	ops := createTestDB(t)

	p := testPlaybook("p1")
	if err := ops.UpsertPlaybook("u1", p); err != nil {
		t.Fatalf("Failed to upsert playbook: %v", err)
	}

	archived, err := ops.IsPlaybookArchived("u1", "p1")
	if err != nil {
		t.Fatalf("Failed to read archive state: %v", err)
	}
	if archived {
		t.Error("Active playbook reported as archived")
	}

	// Absent rows and other users' rows read as not archived.
	if archived, _ := ops.IsPlaybookArchived("u1", "nope"); archived {
		t.Error("Missing playbook reported as archived")
	}

	at := time.Now().UTC()
	p.ArchivedAt = &at
	if err := ops.UpsertPlaybook("u1", p); err != nil {
		t.Fatalf("Failed to archive playbook: %v", err)
	}
	archived, err = ops.IsPlaybookArchived("u1", "p1")
	if err != nil {
		t.Fatalf("Failed to read archive state: %v", err)
	}
	if !archived {
		t.Error("Archived playbook reported as active")
	}
	if archived, _ := ops.IsPlaybookArchived("u2", "p1"); archived {
		t.Error("Other user's playbook reported as archived")
	}
}

// Package syncer replays store changes against the persistence backend
// and tracks per-entity sync status. Sync is best effort: remote failures
// surface as status only and never roll back local state.
package syncer

import (
	"sync"
	"time"

	"momentum/pkg/config"
)

// Status is the sync state of one entity (an action, or the playbook as a
// whole).
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSynced Status = "synced"
	StatusError  Status = "error"
)

type statusEntry struct {
	status Status
	revert *time.Timer
}

// Tracker holds per-key sync status with timed reverts: synced and error
// are transient display states that fall back to idle after their
// configured delay. A new transition on the same key restarts the cycle
// and cancels the pending revert.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*statusEntry
	cfg     config.SyncConfig
	notify  func(key string, status Status)
}

// NewTracker creates a tracker with the given revert delays. notify, if
// non-nil, is called on every transition including timed reverts; it runs
// without the tracker lock held.
func NewTracker(cfg config.SyncConfig, notify func(key string, status Status)) *Tracker {
	return &Tracker{
		entries: make(map[string]*statusEntry),
		cfg:     cfg,
		notify:  notify,
	}
}

// Begin marks key as saving.
func (t *Tracker) Begin(key string) {
	t.transition(key, StatusSaving, 0)
}

// Succeed marks key as synced, reverting to idle after the synced delay.
func (t *Tracker) Succeed(key string) {
	t.transition(key, StatusSynced, t.cfg.SyncedRevert)
}

// Fail marks key as errored, reverting to idle after the error delay.
func (t *Tracker) Fail(key string) {
	t.transition(key, StatusError, t.cfg.ErrorRevert)
}

// Status returns the current status for key, idle when unknown.
func (t *Tracker) Status(key string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		return e.status
	}
	return StatusIdle
}

// Overall collapses all tracked keys into one status for a global
// indicator. Error wins over saving, saving over synced, synced over idle.
func (t *Tracker) Overall() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	overall := StatusIdle
	for _, e := range t.entries {
		switch e.status {
		case StatusError:
			return StatusError
		case StatusSaving:
			overall = StatusSaving
		case StatusSynced:
			if overall == StatusIdle {
				overall = StatusSynced
			}
		case StatusIdle:
		}
	}
	return overall
}

func (t *Tracker) transition(key string, status Status, revertAfter time.Duration) {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &statusEntry{}
		t.entries[key] = e
	}
	if e.revert != nil {
		e.revert.Stop()
		e.revert = nil
	}
	e.status = status
	if revertAfter > 0 {
		e.revert = time.AfterFunc(revertAfter, func() {
			t.revert(key, status)
		})
	}
	t.mu.Unlock()

	if t.notify != nil {
		t.notify(key, status)
	}
}

// revert drops key back to idle, but only if it still holds the status the
// timer was armed for.
func (t *Tracker) revert(key string, from Status) {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok || e.status != from {
		t.mu.Unlock()
		return
	}
	e.status = StatusIdle
	e.revert = nil
	t.mu.Unlock()

	if t.notify != nil {
		t.notify(key, StatusIdle)
	}
}

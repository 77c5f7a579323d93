package syncer

import (
	"context"
	"fmt"
	"time"

	"momentum/pkg/auth"
	"momentum/pkg/logx"
	"momentum/pkg/metrics"
	"momentum/pkg/playbook"
)

// Remote is the slice of the persistence client the coordinator writes
// through. Declared here so tests can substitute a stub.
type Remote interface {
	SavePlaybook(ctx context.Context, p *playbook.Playbook) error
	SaveHistory(ctx context.Context, p *playbook.Playbook) error
	SaveAction(ctx context.Context, playbookID string, position int, a *playbook.Action) error
	SaveSubAction(ctx context.Context, playbookID, actionID string, position int, sub *playbook.SubAction) error
	SaveSubActions(ctx context.Context, playbookID, actionID string, subs []playbook.SubAction) error
	SaveJournal(ctx context.Context, playbookID, entry string) error
}

// Coordinator drains store changes and replays them against the remote,
// one at a time in emission order. With no identity it consumes and drops
// changes: the app runs local-only and sync status never leaves idle.
type Coordinator struct {
	remote   Remote
	identity auth.Provider
	tracker  *Tracker
	metrics  *metrics.Recorder
	logger   *logx.Logger
	done     chan struct{}
}

func NewCoordinator(remote Remote, identity auth.Provider, tracker *Tracker, rec *metrics.Recorder) *Coordinator {
	return &Coordinator{
		remote:   remote,
		identity: identity,
		tracker:  tracker,
		metrics:  rec,
		logger:   logx.NewLogger("syncer"),
		done:     make(chan struct{}),
	}
}

// Tracker exposes the status tracker for UI-facing readers.
func (c *Coordinator) Tracker() *Tracker {
	return c.tracker
}

// Run consumes changes until the channel context is canceled. Callers run
// it on its own goroutine; Done is closed when the loop exits.
func (c *Coordinator) Run(ctx context.Context, changes <-chan playbook.Change) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-changes:
			c.process(ctx, change)
		}
	}
}

// Done reports when the run loop has exited.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) process(ctx context.Context, change playbook.Change) {
	if _, ok := c.identity.Current(); !ok {
		c.logger.Debug("no identity, dropping %s for playbook %s", change.Kind, change.PlaybookID)
		return
	}

	key := statusKey(change)
	c.tracker.Begin(key)

	start := time.Now()
	err := c.apply(ctx, change)
	c.metrics.RecordSync(string(change.Kind), err == nil, time.Since(start))

	if err != nil {
		// Local state already moved on; the failure is status-only.
		c.logger.Error("sync %s for playbook %s failed: %v", change.Kind, change.PlaybookID, err)
		c.tracker.Fail(key)
		return
	}
	c.logger.Debug("synced %s for playbook %s", change.Kind, change.PlaybookID)
	c.tracker.Succeed(key)
}

func (c *Coordinator) apply(ctx context.Context, change playbook.Change) error {
	switch change.Kind {
	case playbook.ChangePlaybookCreated, playbook.ChangePlaybookSaved:
		return c.remote.SavePlaybook(ctx, change.Playbook)
	case playbook.ChangePlaybookArchived:
		return c.remote.SaveHistory(ctx, change.Playbook)
	case playbook.ChangeActionUpdated, playbook.ChangeActionReplaced:
		return c.remote.SaveAction(ctx, change.PlaybookID, change.Position, change.Action)
	case playbook.ChangeSubActionUpdated:
		return c.remote.SaveSubAction(ctx, change.PlaybookID, change.ActionID, change.Position, change.SubAction)
	case playbook.ChangeSubActionsReplaced:
		return c.remote.SaveSubActions(ctx, change.PlaybookID, change.ActionID, change.SubActions)
	case playbook.ChangeJournalSaved:
		return c.remote.SaveJournal(ctx, change.PlaybookID, change.Journal)
	default:
		return fmt.Errorf("unknown change kind %q", change.Kind)
	}
}

// statusKey picks the entity a change's status attaches to: the action for
// action and sub-action changes, the playbook otherwise.
func statusKey(change playbook.Change) string {
	if change.ActionID != "" {
		return change.ActionID
	}
	return change.PlaybookID
}

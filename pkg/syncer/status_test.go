package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"momentum/pkg/config"
)

func shortSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		SyncedRevert: 30 * time.Millisecond,
		ErrorRevert:  60 * time.Millisecond,
	}
}

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker(shortSyncConfig(), nil)

	assert.Equal(t, StatusIdle, tr.Status("a1"))

	tr.Begin("a1")
	assert.Equal(t, StatusSaving, tr.Status("a1"))

	tr.Succeed("a1")
	assert.Equal(t, StatusSynced, tr.Status("a1"))

	// Synced reverts to idle after the configured delay.
	assert.Eventually(t, func() bool {
		return tr.Status("a1") == StatusIdle
	}, time.Second, 5*time.Millisecond)
}

func TestTrackerErrorRevert(t *testing.T) {
	tr := NewTracker(shortSyncConfig(), nil)
	tr.Begin("a1")
	tr.Fail("a1")
	assert.Equal(t, StatusError, tr.Status("a1"))

	assert.Eventually(t, func() bool {
		return tr.Status("a1") == StatusIdle
	}, time.Second, 5*time.Millisecond)
}

func TestTrackerNewChangeRestartsCycle(t *testing.T) {
	tr := NewTracker(shortSyncConfig(), nil)
	tr.Succeed("a1")

	// A new save before the revert fires must hold saving, not fall to
	// idle under the stale timer.
	tr.Begin("a1")
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, StatusSaving, tr.Status("a1"))
}

func TestTrackerOverall(t *testing.T) {
	tr := NewTracker(config.SyncConfig{SyncedRevert: time.Minute, ErrorRevert: time.Minute}, nil)
	assert.Equal(t, StatusIdle, tr.Overall())

	tr.Succeed("a1")
	assert.Equal(t, StatusSynced, tr.Overall())

	tr.Begin("a2")
	assert.Equal(t, StatusSaving, tr.Overall())

	tr.Fail("a3")
	assert.Equal(t, StatusError, tr.Overall())
}

func TestTrackerNotify(t *testing.T) {
	var got []Status
	ch := make(chan struct{}, 16)
	tr := NewTracker(shortSyncConfig(), func(key string, s Status) {
		assert.Equal(t, "a1", key)
		got = append(got, s)
		ch <- struct{}{}
	})

	tr.Begin("a1")
	tr.Succeed("a1")
	<-ch
	<-ch
	// The timed revert also notifies.
	<-ch
	assert.Equal(t, []Status{StatusSaving, StatusSynced, StatusIdle}, got)
}

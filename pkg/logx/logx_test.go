package logx

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

// capture redirects a logger's output to a buffer for assertions.
func capture(l *Logger) *bytes.Buffer {
	var buf bytes.Buffer
	l.logger = log.New(&buf, "", 0)
	return &buf
}

func TestLogLineFormat(t *testing.T) {
	logger := NewLogger("store")
	buf := capture(logger)

	logger.Info("saved playbook %s", "pb-1")

	line := buf.String()
	if !strings.Contains(line, "[store]") {
		t.Errorf("expected component tag in %q", line)
	}
	if !strings.Contains(line, "INFO: saved playbook pb-1") {
		t.Errorf("expected level and message in %q", line)
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	SetDebug(false)
	logger := NewLogger("syncer")
	buf := capture(logger)

	logger.Debug("dropped change")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}

	SetDebug(true)
	defer SetDebug(false)
	logger.Debug("dropped change")
	if !strings.Contains(buf.String(), "DEBUG: dropped change") {
		t.Errorf("expected debug line after SetDebug, got %q", buf.String())
	}
}

func TestWarnfUsesDefaultLogger(t *testing.T) {
	buf := capture(defaultLogger)
	defer func() { defaultLogger = NewLogger("system") }()

	Warnf("sync failed after %d attempts", 3)
	line := buf.String()
	if !strings.Contains(line, "[system]") || !strings.Contains(line, "WARN: sync failed after 3 attempts") {
		t.Errorf("unexpected warn line %q", line)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("wrapping nil should return nil")
	}

	base := errors.New("connection refused")
	wrapped := Wrap(base, "failed to sync")
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match the base error")
	}
	if wrapped.Error() != "failed to sync: connection refused" {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

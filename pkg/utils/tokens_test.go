package utils

import (
	"strings"
	"testing"
)

func TestCountTokens(t *testing.T) {
	counter, err := NewTokenCounter()
	if err != nil {
		t.Fatalf("failed to create token counter: %v", err)
	}

	if got := counter.CountTokens(""); got != 0 {
		t.Errorf("empty text should be 0 tokens, got %d", got)
	}

	count := counter.CountTokens("Break the launch checklist into micro-steps.")
	if count < 5 || count > 20 {
		t.Errorf("implausible token count %d", count)
	}
}

func TestNilCounterFallsBackToEstimate(t *testing.T) {
	var counter *TokenCounter
	text := strings.Repeat("a", 40)
	if got := counter.CountTokens(text); got != 10 {
		t.Errorf("expected 4-chars-per-token estimate of 10, got %d", got)
	}
}

func TestValidateTokenLimit(t *testing.T) {
	counter, err := NewTokenCounter()
	if err != nil {
		t.Fatalf("failed to create token counter: %v", err)
	}

	if !counter.ValidateTokenLimit("short", 100) {
		t.Error("short text should fit in 100 tokens")
	}
	if counter.ValidateTokenLimit(strings.Repeat("word ", 500), 10) {
		t.Error("long text should not fit in 10 tokens")
	}
}

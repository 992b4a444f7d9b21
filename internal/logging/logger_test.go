package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Debug("probing", "url", "https://example.com")
	log.Warn("cleanup failed", "dir", "/tmp/x", "error", "busy")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel || entries[0].Message != "probing" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if got := entries[1].ContextMap()["dir"]; got != "/tmp/x" {
		t.Errorf("dir field = %v, want /tmp/x", got)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	OrNop(nil).Error("discarded", "k", "v")

	core, logs := observer.New(zapcore.InfoLevel)
	l := FromZap(zap.New(core))
	OrNop(l).Info("kept")
	if logs.Len() != 1 {
		t.Errorf("expected the given logger to be used")
	}
}

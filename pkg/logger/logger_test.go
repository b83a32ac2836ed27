package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"taskmanager/pkg/config"
	"taskmanager/pkg/trace"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	l, err := New(config.LogConfig{Level: "debug", Format: "console", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	WithTrace(trace.WithContext(context.Background(), "abc"), l).Info("hello")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log file to contain the entry")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"error":   LogError,
		"WARNING": LogWarning,
		"warn":    LogWarning,
		"info":    LogInfo,
		"debug":   LogDebug,
		"":        LogInfo,
		"bogus":   LogInfo,
	}
	for input, want := range cases {
		if got := ParseLogLevel(input); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewLoggerDisabledIsNoop(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("logging.enabled", "0")
	logger := NewLogger(cfg)
	logger.Infof("should not panic or write anywhere: %d", 42)
	if err := logger.Sync(); err != nil {
		t.Fatalf("unexpected sync error on a no-op logger: %v", err)
	}
}

func TestNewLoggerWritesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.log")

	cfg := NewConfig()
	cfg.Set("logging.enabled", "1")
	cfg.Set("logging.filename", path)
	cfg.Set("logging.level", "debug")
	cfg.Set("logging.mode", "truncate")

	logger := NewLogger(cfg)
	logger.Infof("hello %s", "world")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected the log file to exist: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected the log file to contain the written entry")
	}
}

func TestRotatingWriterRollsOverPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rolling.log")

	w, err := newRotatingWriter(path, "truncate", 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunk := make([]byte, 600)
	for i := range chunk {
		chunk[i] = 'a'
	}
	for i := 0; i < 5; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}
	}
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected a rotated .1 file to exist: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected the active log file to exist: %v", err)
	}
}

func TestRotatingWriterUnboundedWhenMaxSizeNonPositive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unbounded.log")

	w, err := newRotatingWriter(path, "truncate", -1, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunk := make([]byte, 4096)
	for i := 0; i < 10; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}
	}
	if _, err := os.Stat(path + ".1"); err == nil {
		t.Fatal("expected no rotation to occur with an unbounded size limit")
	}
}

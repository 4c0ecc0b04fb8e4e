package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"streamdigest/internal/config"
	"streamdigest/internal/logging"
	"streamdigest/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "streamdigest.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format: "console",
		Level:  "info",
		Paths:  []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{
		Format: "console",
		Level:  "debug",
		Paths:  []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersRunSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "subject.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Paths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "0123456789abcdef")
	ctx = services.WithPhase(ctx, "notifying")
	ctx = services.WithBatchIndex(ctx, 2)
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "delivery")).Info("email sent", logging.Int("images", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"[run 01234567 · notifying #2]", "delivery: email sent", "images=3"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithRunID(context.Background(), "run-xyz")
	ctx = services.WithPhase(ctx, "remote_push")

	logger, rec := logging.NewRecorder()
	logging.WithContext(ctx, logger).Info("contextual log")

	entries := rec.Find("contextual log")
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if got := entries[0].Attrs[logging.FieldRunID]; got != "run-xyz" {
		t.Fatalf("run_id = %q", got)
	}
	if got := entries[0].Attrs[logging.FieldPhase]; got != "remote_push" {
		t.Fatalf("phase = %q", got)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logger, rec := logging.NewRecorder()
	logging.WarnWithContext(logger, "capture failed", "capture_failure", logging.Int(logging.FieldSegmentIndex, 4))

	entries := rec.Find("capture failed")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	attrs := entries[0].Attrs
	if attrs[logging.FieldEventType] != "capture_failure" {
		t.Fatalf("unexpected event type %q", attrs[logging.FieldEventType])
	}
	if attrs[logging.FieldErrorHint] == "" || attrs[logging.FieldImpact] == "" {
		t.Fatalf("expected hint and impact defaults, got %v", attrs)
	}
	if attrs[logging.FieldSegmentIndex] != "4" {
		t.Fatalf("unexpected segment index %q", attrs[logging.FieldSegmentIndex])
	}
}

func TestFormatSubject(t *testing.T) {
	tests := []struct {
		run, phase, batch string
		want              string
	}{
		{"", "", "", ""},
		{"abc", "", "", "run abc"},
		{"abc", "formatted", "", "run abc · formatted"},
		{"", "", "3", "batch #3"},
	}
	for _, tc := range tests {
		if got := logging.FormatSubject(tc.run, tc.phase, tc.batch); got != tc.want {
			t.Fatalf("FormatSubject(%q,%q,%q) = %q, want %q", tc.run, tc.phase, tc.batch, got, tc.want)
		}
	}
}

func TestJSONLoggerWritesLowercaseLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", Paths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("dropped")
	logging.WarnWithContext(logger, "kept", "oversized_artifact")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, "dropped") {
		t.Fatalf("info line should be filtered at warn level: %q", line)
	}
	for _, fragment := range []string{`"level":"warn"`, `"msg":"kept"`, `"event_type":"oversized_artifact"`, `"ts":`} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %s in %q", fragment, line)
		}
	}
}

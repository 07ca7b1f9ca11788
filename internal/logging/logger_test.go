package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mvspipe/internal/config"
	"mvspipe/internal/logging"
	"mvspipe/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if !strings.Contains(content, "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithStage(context.Background(), "run")
	ctx = services.WithJobID(ctx, "0123456789abcdef")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "jobs")).Info(
		"stage finished",
		logging.String(logging.FieldEventType, "job_complete"),
	)

	content := readLog(t, logPath)
	for _, want := range []string{"[jobs]", "Run (job 01234567)", "stage finished", "Event: job_complete"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestJSONLoggerFieldNames(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"), logging.Duration("elapsed", 1500*time.Millisecond))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace([]byte(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["msg"] != "json message" || entry["level"] != "info" || entry["k"] != "v" {
		t.Fatalf("unexpected json entry %#v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key in %#v", entry)
	}
	if entry["elapsed_ms"] != float64(1500) {
		t.Fatalf("expected elapsed_ms=1500 in %#v", entry)
	}
	if _, ok := entry["elapsed"]; ok {
		t.Fatalf("duration should only be written in milliseconds: %#v", entry)
	}
}

func TestConsoleFieldFormatting(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	logPath := filepath.Join(t.TempDir(), "fields.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("workspace rebuilt",
		logging.String(logging.FieldWorkspace, filepath.Join(home, "scans", "courtyard")),
		logging.String(logging.FieldJobID, "0123456789abcdef"),
		logging.Duration("duration", 1234567*time.Microsecond),
		logging.String("error", "exit status 3"),
		logging.String("hint", ""),
	)

	content := readLog(t, logPath)
	for _, want := range []string{
		"workspace: ~/scans/courtyard",
		"job_id: 01234567\n",
		"duration: 1.235s",
		"error: exit status 3",
		`hint: ""`,
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestShortJobID(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"abc":             "abc",
		" 0123456789abc ": "01234567",
		"01234567":        "01234567",
	}
	for in, want := range tests {
		if got := logging.ShortJobID(in); got != want {
			t.Errorf("ShortJobID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible")
	content := readLog(t, logPath)
	if strings.Contains(content, "hidden") || !strings.Contains(content, "visible") {
		t.Fatalf("unexpected level filtering: %q", content)
	}
}

type captureHandler struct {
	attrs   []slog.Attr
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(h.attrs, attrs...)
	return h
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithStage(ctx, "prepare")
	ctx = services.WithWorkspace(ctx, "/data/ws")

	handler := &captureHandler{}
	logging.WithContext(ctx, slog.New(handler)).Info("contextual log")

	if len(handler.records) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(handler.records))
	}
	got := map[string]string{}
	for _, attr := range handler.attrs {
		got[attr.Key] = attr.Value.String()
	}
	want := map[string]string{
		logging.FieldJobID:     "job-1",
		logging.FieldStage:     "prepare",
		logging.FieldWorkspace: "/data/ws",
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("field %s = %q, want %q", key, got[key], value)
		}
	}
}

func TestWithContextNilLogger(t *testing.T) {
	logger := logging.WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected no-op logger")
	}
	logger.Info("discarded")
}

func recordAttrs(r slog.Record) map[string]string {
	got := map[string]string{}
	r.Attrs(func(attr slog.Attr) bool {
		got[attr.Key] = attr.Value.String()
		return true
	})
	return got
}

func TestEventAttachesTypeHintAndImpact(t *testing.T) {
	handler := &captureHandler{}
	logger := slog.New(handler)

	lockStuck := logging.Event{Type: "stage_lock_release_failed", Impact: "next launch may be rejected"}
	lockStuck.Warn(logger, "failed to release stage lock", logging.String("stage", "run"))
	logging.Event{Type: "job_failed", Hint: "inspect the tool output"}.Error(logger, "Run job failed")
	logging.Event{Type: "ignored"}.Warn(nil, "nil logger is a no-op")

	if len(handler.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(handler.records))
	}
	warn := recordAttrs(handler.records[0])
	if handler.records[0].Level != slog.LevelWarn || warn[logging.FieldEventType] != "stage_lock_release_failed" ||
		warn[logging.FieldImpact] != "next launch may be rejected" || warn["stage"] != "run" {
		t.Fatalf("unexpected warn attrs %#v", warn)
	}
	if warn[logging.FieldErrorHint] == "" {
		t.Fatal("expected a default hint")
	}
	failed := recordAttrs(handler.records[1])
	if handler.records[1].Level != slog.LevelError || failed[logging.FieldErrorHint] != "inspect the tool output" {
		t.Fatalf("unexpected error attrs %#v", failed)
	}
	if _, ok := failed[logging.FieldImpact]; ok {
		t.Fatalf("impact should be omitted when unset: %#v", failed)
	}
}

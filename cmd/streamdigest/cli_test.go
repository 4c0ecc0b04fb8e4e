package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"streamdigest/internal/config"
	"streamdigest/internal/ledger"
	"streamdigest/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Remote push: no")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[email]")
	requireContains(t, out, "********")
	for _, leaked := range []string{`password = 'test'`, `password = "test"`} {
		if strings.Contains(out, leaked) {
			t.Fatalf("expected password masked, got:\n%s", out)
		}
	}
}

func TestHistoryListsRunsAndReceipts(t *testing.T) {
	env := setupCLITestEnv(t)

	store, err := ledger.Open(env.cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	ctx := context.Background()
	if err := store.StartRun(ctx, ledger.Run{
		ID:        "0123456789abcdef",
		Title:     "lecture",
		VideoPath: "/videos/lecture.mp4",
		StartedAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.RecordReceipt(ctx, "0123456789abcdef", ledger.Receipt{BatchIndex: 1, BatchTotal: 2, Status: "sent", Images: 4}); err != nil {
		t.Fatalf("RecordReceipt: %v", err)
	}
	if err := store.RecordReceipt(ctx, "0123456789abcdef", ledger.Receipt{BatchIndex: 2, BatchTotal: 2, Status: "failed", Reason: "550 rejected"}); err != nil {
		t.Fatalf("RecordReceipt: %v", err)
	}
	if err := store.FinishRun(ctx, "0123456789abcdef", ledger.Summary{
		Status: ledger.StatusPartial, Screenshots: 4, BatchesTotal: 2, BatchesSent: 1, BatchesFailed: 1, RemoteStatus: "skipped",
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	_ = store.Close()

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "01234567")
	requireContains(t, out, "partial")
	requireContains(t, out, "1/2")

	out, _, err = runCLI(t, []string{"history", "0123456789abcdef"}, env.configPath)
	if err != nil {
		t.Fatalf("history <id>: %v", err)
	}
	requireContains(t, out, "== lecture ==")
	requireContains(t, out, "550 rejected")

	if _, _, err := runCLI(t, []string{"history", "missing"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestHistoryEmptyLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestProcessRejectsMissingInputs(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"process", "--video", filepath.Join(t.TempDir(), "nope.mp4")}, env.configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	requireContains(t, err.Error(), "transcript_path is required")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "not configured")
}

func TestPruneDryRunListsOldDays(t *testing.T) {
	env := setupCLITestEnv(t)
	old := filepath.Join(env.cfg.Paths.WorkDir, "2020-01-01", "lecture")
	if err := os.MkdirAll(old, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, _, err := runCLI(t, []string{"prune", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("prune --dry-run: %v", err)
	}
	requireContains(t, out, "2020-01-01")
	if _, err := os.Stat(old); err != nil {
		t.Fatal("dry run must not remove anything")
	}

	out, _, err = runCLI(t, []string{"prune"}, env.configPath)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Removed 1 run directory")
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old day removed")
	}
}

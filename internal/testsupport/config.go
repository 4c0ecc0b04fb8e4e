package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"streamdigest/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials are filled with placeholders so the result validates.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.InboxDir = filepath.Join(base, "inbox")
	cfgVal.Email.Sender = "bot@example.com"
	cfgVal.Email.Password = "test"
	cfgVal.Email.Recipient = "reviewer@example.com"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithRemote enables the remote push against host.
func WithRemote(host, uploadDir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.Enabled = true
		b.cfg.Remote.Host = host
		b.cfg.Remote.Username = "bosh"
		b.cfg.Remote.Password = "test"
		b.cfg.Remote.UploadDir = uploadDir
	}
}

// WithEmailBudget overrides the per-email size budget.
func WithEmailBudget(maxBytes, reserveBytes int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Email.MaxEmailBytes = maxBytes
		b.cfg.Email.BodyReserveBytes = reserveBytes
	}
}

// WithoutBurn disables subtitle burn-in.
func WithoutBurn() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Subtitles.Burn = false
	}
}

// WithStubbedBinaries puts no-op executables for names (ffmpeg when empty)
// at the front of PATH for the duration of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}

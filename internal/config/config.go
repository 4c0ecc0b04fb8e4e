package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	InboxDir string `toml:"inbox_dir"`
}

// Email contains SMTP submission settings and the attachment budget.
type Email struct {
	SMTPHost         string `toml:"smtp_host"`
	SMTPPort         int    `toml:"smtp_port"`
	Sender           string `toml:"sender"`
	Password         string `toml:"password"`
	Recipient        string `toml:"recipient"`
	SubjectPrefix    string `toml:"subject_prefix"`
	MaxEmailBytes    int64  `toml:"max_email_bytes"`
	BodyReserveBytes int64  `toml:"body_reserve_bytes"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
}

// Remote contains SFTP upload and SSH post-processing settings.
type Remote struct {
	Enabled        bool   `toml:"enabled"`
	Host           string `toml:"host"`
	SFTPPort       int    `toml:"sftp_port"`
	SSHPort        int    `toml:"ssh_port"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	UploadDir      string `toml:"upload_dir"`
	CommandDir     string `toml:"command_dir"`
	PostCommand    string `toml:"post_command"`
	KnownHosts     string `toml:"known_hosts"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Capture contains screenshot extraction settings.
type Capture struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	Workers       int    `toml:"workers"`
	Quality       int    `toml:"quality"`
	SequenceWidth int    `toml:"sequence_width"`
}

// Subtitles contains subtitle track and burn-in settings.
type Subtitles struct {
	Burn            bool   `toml:"burn"`
	ForceStyle      string `toml:"force_style"`
	VideoCodec      string `toml:"video_codec"`
	AudioCodec      string `toml:"audio_codec"`
	AudioBitrate    string `toml:"audio_bitrate"`
	MalformedPolicy string `toml:"malformed_policy"`
}

// Notifications contains configuration for ntfy operator alerts.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for streamdigest.
//
// Configuration sections by subsystem:
//   - Paths: work, log, and inbox directories
//   - Email: SMTP submission and the per-message size budget
//   - Remote: SFTP upload and the remote post-processing command
//   - Capture: ffmpeg screenshot extraction
//   - Subtitles: subtitle track policy and burn-in encoding
//   - Notifications: ntfy operator alerts
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Email         Email         `toml:"email"`
	Remote        Remote        `toml:"remote"`
	Capture       Capture       `toml:"capture"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/streamdigest/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("streamdigest.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, log, and inbox directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.InboxDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for capture and burn-in.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Capture.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// MaxAttachmentBytes is the per-message budget left for inline images once
// the body reserve is taken out.
func (c *Config) MaxAttachmentBytes() int64 {
	return c.Email.MaxEmailBytes - c.Email.BodyReserveBytes
}

// LedgerPath returns the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.LogDir, "ledger.db")
}

// LockPath returns the workspace lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "streamdigest.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

package preflight

import (
	"context"
	"strings"

	"streamdigest/internal/config"
)

// CheckEmailFromConfig reports whether SMTP submission is configured. It does
// not dial the server; a bad password only surfaces on the first send.
func CheckEmailFromConfig(cfg *config.Config) Result {
	const name = "Email"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	switch {
	case strings.TrimSpace(cfg.Email.Sender) == "":
		return Result{Name: name, Detail: "Missing sender (set SENDER_EMAIL)"}
	case strings.TrimSpace(cfg.Email.Password) == "":
		return Result{Name: name, Detail: "Missing password (set EMAIL_PASSWORD)"}
	case cfg.MaxAttachmentBytes() <= 0:
		return Result{Name: name, Detail: "Body reserve leaves no attachment budget"}
	}
	detail := cfg.Email.SMTPHost
	if strings.TrimSpace(cfg.Email.Recipient) == "" {
		detail += " (no default recipient; jobs must name one)"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckRemoteFromConfig checks remote settings and, when present, that the
// SFTP and SSH ports accept connections.
func CheckRemoteFromConfig(ctx context.Context, cfg *config.Config) []Result {
	const name = "Remote host"

	if cfg == nil {
		return []Result{{Name: name, Detail: "Unknown"}}
	}
	if !cfg.Remote.Enabled {
		return []Result{{Name: name, Passed: true, Detail: "Disabled"}}
	}
	host := strings.TrimSpace(cfg.Remote.Host)
	if host == "" {
		return []Result{{Name: name, Detail: "Missing host (set SFTP_HOSTNAME)"}}
	}
	if strings.TrimSpace(cfg.Remote.Username) == "" || strings.TrimSpace(cfg.Remote.Password) == "" {
		return []Result{{Name: name, Detail: "Missing credentials (set SFTP_USERNAME and SFTP_PASSWORD)"}}
	}
	results := []Result{CheckTCP(ctx, "Remote SFTP", host, cfg.Remote.SFTPPort)}
	if cfg.Remote.SSHPort != cfg.Remote.SFTPPort {
		results = append(results, CheckTCP(ctx, "Remote SSH", host, cfg.Remote.SSHPort))
	}
	return results
}

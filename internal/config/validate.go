package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEmail(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEmail() error {
	if c.Email.Sender == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/streamdigest/config.toml"
		}
		return fmt.Errorf("email.sender is required. Set SENDER_EMAIL env var or edit %s (create with 'streamdigest config init')", defaultPath)
	}
	if c.Email.Password == "" {
		return errors.New("email.password is required (or set EMAIL_PASSWORD)")
	}
	if c.Email.SMTPPort <= 0 || c.Email.SMTPPort > 65535 {
		return errors.New("email.smtp_port must be between 1 and 65535")
	}
	if c.Email.MaxEmailBytes <= 0 {
		return errors.New("email.max_email_bytes must be positive")
	}
	if c.Email.BodyReserveBytes < 0 {
		return errors.New("email.body_reserve_bytes must be >= 0")
	}
	if c.MaxAttachmentBytes() <= 0 {
		return errors.New("email.body_reserve_bytes must be smaller than email.max_email_bytes")
	}
	return nil
}

func (c *Config) validateRemote() error {
	if !c.Remote.Enabled {
		return nil
	}
	if c.Remote.Host == "" {
		return errors.New("remote.host must be set when remote.enabled is true (or set SFTP_HOSTNAME)")
	}
	if c.Remote.Username == "" {
		return errors.New("remote.username must be set when remote.enabled is true (or set SFTP_USERNAME)")
	}
	if c.Remote.Password == "" {
		return errors.New("remote.password must be set when remote.enabled is true (or set SFTP_PASSWORD)")
	}
	if c.Remote.UploadDir == "" {
		return errors.New("remote.upload_dir must be set when remote.enabled is true")
	}
	if err := ensurePort(map[string]int{
		"remote.sftp_port": c.Remote.SFTPPort,
		"remote.ssh_port":  c.Remote.SSHPort,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.Workers > 64 {
		return errors.New("capture.workers must be <= 64")
	}
	if c.Capture.Quality < 1 || c.Capture.Quality > 31 {
		return errors.New("capture.quality must be between 1 and 31")
	}
	if c.Capture.SequenceWidth > 12 {
		return errors.New("capture.sequence_width must be <= 12")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	switch c.Subtitles.MalformedPolicy {
	case "abort", "skip":
	default:
		return fmt.Errorf("subtitles.malformed_policy must be \"abort\" or \"skip\", got %q", c.Subtitles.MalformedPolicy)
	}
	if c.Subtitles.Burn && strings.ContainsAny(c.Subtitles.ForceStyle, "'") {
		return errors.New("subtitles.force_style must not contain single quotes")
	}
	return nil
}

func ensurePort(values map[string]int) error {
	for key, value := range values {
		if value <= 0 || value > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535", key)
		}
	}
	return nil
}

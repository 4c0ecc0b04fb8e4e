package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEmail()
	if err := c.normalizeRemote(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeSubtitles()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		c.Paths.InboxDir = defaultInboxDir
	}
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEmail() {
	c.Email.SMTPHost = strings.TrimSpace(c.Email.SMTPHost)
	if c.Email.SMTPHost == "" {
		c.Email.SMTPHost = defaultSMTPHost
	}
	if c.Email.SMTPPort <= 0 {
		c.Email.SMTPPort = defaultSMTPPort
	}
	c.Email.Sender = envFallback(c.Email.Sender, "SENDER_EMAIL")
	c.Email.Password = envFallback(c.Email.Password, "EMAIL_PASSWORD")
	c.Email.Recipient = envFallback(c.Email.Recipient, "STREAMDIGEST_RECIPIENT")
	if c.Email.TimeoutSeconds <= 0 {
		c.Email.TimeoutSeconds = defaultEmailTimeoutSeconds
	}
}

func (c *Config) normalizeRemote() error {
	c.Remote.Host = envFallback(c.Remote.Host, "SFTP_HOSTNAME")
	c.Remote.Username = envFallback(c.Remote.Username, "SFTP_USERNAME")
	c.Remote.Password = envFallback(c.Remote.Password, "SFTP_PASSWORD")
	if value, ok := os.LookupEnv("SFTP_PORT"); ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("SFTP_PORT: invalid port %q", value)
		}
		c.Remote.SFTPPort = port
	}
	if c.Remote.SFTPPort == 0 {
		c.Remote.SFTPPort = defaultSFTPPort
	}
	if c.Remote.SSHPort == 0 {
		c.Remote.SSHPort = defaultSSHPort
	}
	c.Remote.UploadDir = strings.TrimRight(strings.TrimSpace(c.Remote.UploadDir), "/")
	c.Remote.CommandDir = strings.TrimSpace(c.Remote.CommandDir)
	c.Remote.PostCommand = strings.TrimSpace(c.Remote.PostCommand)
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = defaultRemoteTimeoutSeconds
	}
	if strings.TrimSpace(c.Remote.KnownHosts) != "" {
		expanded, err := expandPath(c.Remote.KnownHosts)
		if err != nil {
			return fmt.Errorf("remote.known_hosts: %w", err)
		}
		c.Remote.KnownHosts = expanded
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.FFmpegBinary = strings.TrimSpace(c.Capture.FFmpegBinary)
	if c.Capture.FFmpegBinary == "" {
		c.Capture.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Capture.Workers <= 0 {
		c.Capture.Workers = defaultCaptureWorkers
	}
	if c.Capture.Quality <= 0 {
		c.Capture.Quality = defaultCaptureQuality
	}
	if c.Capture.SequenceWidth <= 0 {
		c.Capture.SequenceWidth = defaultSequenceWidth
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.ForceStyle = strings.TrimSpace(c.Subtitles.ForceStyle)
	if c.Subtitles.VideoCodec = strings.TrimSpace(c.Subtitles.VideoCodec); c.Subtitles.VideoCodec == "" {
		c.Subtitles.VideoCodec = defaultVideoCodec
	}
	if c.Subtitles.AudioCodec = strings.TrimSpace(c.Subtitles.AudioCodec); c.Subtitles.AudioCodec == "" {
		c.Subtitles.AudioCodec = defaultAudioCodec
	}
	if c.Subtitles.AudioBitrate = strings.TrimSpace(c.Subtitles.AudioBitrate); c.Subtitles.AudioBitrate == "" {
		c.Subtitles.AudioBitrate = defaultAudioBitrate
	}
	c.Subtitles.MalformedPolicy = strings.ToLower(strings.TrimSpace(c.Subtitles.MalformedPolicy))
	if c.Subtitles.MalformedPolicy == "" {
		c.Subtitles.MalformedPolicy = defaultMalformedPolicy
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(current, key string) string {
	current = strings.TrimSpace(current)
	if current != "" {
		return current
	}
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

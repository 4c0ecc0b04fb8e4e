package config

const (
	defaultWorkDir              = "~/.local/share/streamdigest/work"
	defaultLogDir               = "~/.local/share/streamdigest/logs"
	defaultInboxDir             = "~/.local/share/streamdigest/inbox"
	defaultSMTPHost             = "smtp.gmail.com"
	defaultSMTPPort             = 587
	defaultSubjectPrefix        = "🎧 Transcribed "
	defaultMaxEmailBytes        = 15 * 1024 * 1024
	defaultBodyReserveBytes     = 1 * 1024 * 1024
	defaultEmailTimeoutSeconds  = 60
	defaultSFTPPort             = 22
	defaultSSHPort              = 2222
	defaultPostCommand          = "./generate_png.sh"
	defaultRemoteTimeoutSeconds = 30
	defaultFFmpegBinary         = "ffmpeg"
	defaultCaptureWorkers       = 1
	defaultCaptureQuality       = 2
	defaultSequenceWidth        = 7
	defaultForceStyle           = "FontSize=24"
	defaultVideoCodec           = "libx264"
	defaultAudioCodec           = "aac"
	defaultAudioBitrate         = "192k"
	defaultMalformedPolicy      = "abort"
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			InboxDir: defaultInboxDir,
		},
		Email: Email{
			SMTPHost:         defaultSMTPHost,
			SMTPPort:         defaultSMTPPort,
			SubjectPrefix:    defaultSubjectPrefix,
			MaxEmailBytes:    defaultMaxEmailBytes,
			BodyReserveBytes: defaultBodyReserveBytes,
			TimeoutSeconds:   defaultEmailTimeoutSeconds,
		},
		Remote: Remote{
			SFTPPort:       defaultSFTPPort,
			SSHPort:        defaultSSHPort,
			PostCommand:    defaultPostCommand,
			TimeoutSeconds: defaultRemoteTimeoutSeconds,
		},
		Capture: Capture{
			FFmpegBinary:  defaultFFmpegBinary,
			Workers:       defaultCaptureWorkers,
			Quality:       defaultCaptureQuality,
			SequenceWidth: defaultSequenceWidth,
		},
		Subtitles: Subtitles{
			Burn:            true,
			ForceStyle:      defaultForceStyle,
			VideoCodec:      defaultVideoCodec,
			AudioCodec:      defaultAudioCodec,
			AudioBitrate:    defaultAudioBitrate,
			MalformedPolicy: defaultMalformedPolicy,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"streamdigest/internal/batching"
	"streamdigest/internal/compose"
	"streamdigest/internal/config"
	"streamdigest/internal/delivery"
	"streamdigest/internal/ffmpeg"
	"streamdigest/internal/jobs"
	"streamdigest/internal/ledger"
	"streamdigest/internal/logging"
	"streamdigest/internal/mailer"
	"streamdigest/internal/notifications"
	"streamdigest/internal/remote"
	"streamdigest/internal/screenshots"
	"streamdigest/internal/services"
	"streamdigest/internal/textutil"
	"streamdigest/internal/transcript"
)

// ErrRunInProgress is returned when another run holds the workspace lock.
var ErrRunInProgress = errors.New("another run is in progress")

// Burner renders a subtitle track onto a video.
type Burner interface {
	BurnSubtitles(ctx context.Context, opts ffmpeg.BurnOptions) error
}

// Dependencies are the external capabilities a Runner drives. Ledger and
// Notifier are optional.
type Dependencies struct {
	Frames    screenshots.FrameCapturer
	Burner    Burner
	Transport delivery.Transport
	Uploader  delivery.Uploader
	Commander delivery.Commander
	Ledger    *ledger.Store
	Notifier  notifications.Service
	Now       func() time.Time
	NewRunID  func() string
}

// Runner executes jobs.
type Runner struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger
}

// New constructs a Runner around explicit dependencies.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Runner {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(&config.Config{})
	}
	return &Runner{cfg: cfg, deps: deps, logger: logging.NewComponentLogger(logger, "pipeline")}
}

// NewFromConfig wires ffmpeg, SMTP, and (when enabled) SFTP/SSH from cfg.
func NewFromConfig(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Runner {
	tool := ffmpeg.New(cfg.FFmpegBinary(), cfg.Capture.Quality)
	deps := Dependencies{
		Frames:    tool,
		Burner:    tool,
		Transport: mailer.New(mailer.FromConfig(cfg), logger),
		Ledger:    store,
		Notifier:  notifications.NewService(cfg),
	}
	if cfg.Remote.Enabled {
		client := remote.New(remote.FromConfig(cfg), logger)
		deps.Uploader = client
		deps.Commander = client
	}
	return New(cfg, deps, logger)
}

// DeliveryConfig derives the delivery settings from cfg.
func DeliveryConfig(cfg *config.Config) delivery.Config {
	out := delivery.Config{
		Recipient:        cfg.Email.Recipient,
		MaxEmailBytes:    cfg.Email.MaxEmailBytes,
		BodyReserveBytes: cfg.Email.BodyReserveBytes,
	}
	if cfg.Remote.Enabled {
		rc := remote.FromConfig(cfg)
		out.RemoteHost = rc.Host
		out.RemotePort = rc.SFTPPort
		out.RemoteUsername = rc.Username
		out.RemoteCredential = rc.Password
		out.RemoteDir = rc.UploadDir
		out.RemoteCommand = rc.Command()
	}
	return out
}

// Run executes job. The returned error is non-nil only when the run could
// not start or was aborted before delivery; per-batch and remote failures
// are reported in the Outcome.
func (r *Runner) Run(ctx context.Context, job jobs.Job) (*Outcome, error) {
	job = job.Normalized()
	if job.Recipient == "" {
		job.Recipient = strings.TrimSpace(r.cfg.Email.Recipient)
	}
	if err := job.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "setup", "validate job", "Job is incomplete", err)
	}
	if job.Recipient == "" {
		return nil, services.Wrap(services.ErrValidation, "setup", "validate job", "No recipient in job or email.recipient", nil)
	}
	policy, err := transcript.ParsePolicy(r.cfg.Subtitles.MalformedPolicy)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "parse policy", "Invalid subtitles.malformed_policy", err)
	}
	budget := DeliveryConfig(r.cfg).Budget()
	if err := budget.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "email budget", "Invalid email size budget", err)
	}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "ensure directories", "Failed to create working directories", err)
	}
	lock := flock.New(r.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	defer func() { _ = lock.Unlock() }()

	run := &runState{
		runner:  r,
		job:     job,
		policy:  policy,
		budget:  budget,
		started: r.deps.Now(),
		outcome: &Outcome{RunID: r.deps.NewRunID()},
	}
	return run.execute(services.WithRunID(ctx, run.outcome.RunID))
}

// ProcessManifest runs the job described by a manifest file once. A
// manifest already handled at its current modification time is skipped.
func (r *Runner) ProcessManifest(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat manifest: %w", err)
	}
	if r.deps.Ledger != nil {
		done, err := r.deps.Ledger.ManifestProcessed(ctx, path, info.ModTime())
		if err != nil {
			return err
		}
		if done {
			r.logger.Debug("manifest already processed", logging.String("manifest", path))
			return nil
		}
	}

	job, err := jobs.LoadManifest(path)
	if err != nil {
		r.markManifest(ctx, path, info.ModTime(), "")
		return services.Wrap(services.ErrValidation, "setup", "load manifest", "Unreadable job manifest", err)
	}
	outcome, runErr := r.Run(ctx, job)
	if errors.Is(runErr, ErrRunInProgress) {
		return runErr
	}
	runID := ""
	if outcome != nil {
		runID = outcome.RunID
	}
	r.markManifest(ctx, path, info.ModTime(), runID)
	return runErr
}

func (r *Runner) markManifest(ctx context.Context, path string, modTime time.Time, runID string) {
	if r.deps.Ledger == nil {
		return
	}
	if err := r.deps.Ledger.MarkManifestProcessed(ctx, path, modTime, runID); err != nil {
		logging.WarnWithContext(r.logger, "failed to record processed manifest", "ledger_write_failed",
			logging.String("manifest", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "manifest may be processed again after restart"),
		)
	}
}

// OutputDir returns where a run started at now writes its artifacts.
func OutputDir(workDir string, now time.Time, videoPath string) string {
	return filepath.Join(workDir, now.Format("2006-01-02"), artifactBase(videoPath))
}

// artifactBase names the run directory and the files inside it.
func artifactBase(videoPath string) string {
	return textutil.SanitizeFileName(jobs.BaseName(videoPath), "video")
}

// composeMessages builds one message per batch. With no screenshots at all a
// single link-only message is still produced.
func composeMessages(composer *compose.Composer, batches []batching.Batch, src compose.Source) []compose.Message {
	if len(batches) == 0 {
		batches = []batching.Batch{{Index: 1, Total: 1}}
	}
	messages := make([]compose.Message, 0, len(batches))
	for _, batch := range batches {
		messages = append(messages, composer.Compose(batch, src))
	}
	return messages
}

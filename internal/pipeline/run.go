package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"streamdigest/internal/batching"
	"streamdigest/internal/compose"
	"streamdigest/internal/delivery"
	"streamdigest/internal/ffmpeg"
	"streamdigest/internal/jobs"
	"streamdigest/internal/ledger"
	"streamdigest/internal/logging"
	"streamdigest/internal/notifications"
	"streamdigest/internal/screenshots"
	"streamdigest/internal/services"
	"streamdigest/internal/transcript"
)

// Phase names a pipeline transition.
type Phase string

const (
	PhaseStarted       Phase = "started"
	PhaseFormatted     Phase = "formatted"
	PhaseScreenshotted Phase = "screenshotted"
	PhasePartitioned   Phase = "partitioned"
	PhaseNotifying     Phase = "notifying"
	PhaseRemotePushed  Phase = "remote_pushed"
	PhaseDone          Phase = "done"
)

// Outcome describes everything a run produced.
type Outcome struct {
	RunID        string
	Title        string
	OutputDir    string
	SubtitlePath string
	// VideoPath is the video that was captured and pushed: the burned copy
	// when burn-in succeeded, otherwise the source video.
	VideoPath string
	Burned    bool
	Segments  int
	Report    transcript.Report
	Capture   screenshots.Result
	Batches   []batching.Batch
	Receipts  delivery.Receipts
	Remote    delivery.RemoteResult
	Status    ledger.Status
	Duration  time.Duration
}

type runState struct {
	runner  *Runner
	job     jobs.Job
	policy  transcript.Policy
	budget  batching.Budget
	started time.Time
	outcome *Outcome
	logger  *slog.Logger
}

func (s *runState) execute(ctx context.Context) (*Outcome, error) {
	r := s.runner
	s.logger = logging.WithContext(ctx, r.logger)
	out := s.outcome
	out.Title = s.job.Title
	out.OutputDir = OutputDir(r.cfg.Paths.WorkDir, s.started, s.job.VideoPath)
	out.VideoPath = s.job.VideoPath

	s.logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("title", s.job.Title),
		logging.String("video", s.job.VideoPath),
		logging.String("recipient", s.job.Recipient),
	)
	if r.deps.Ledger != nil {
		if err := r.deps.Ledger.StartRun(ctx, ledger.Run{
			ID:           out.RunID,
			Title:        s.job.Title,
			VideoPath:    s.job.VideoPath,
			VideoURL:     s.job.VideoURL,
			Recipient:    s.job.Recipient,
			ManifestPath: s.job.ManifestPath,
			OutputDir:    out.OutputDir,
			Phase:        string(PhaseStarted),
			StartedAt:    s.started,
		}); err != nil {
			s.ledgerWarning("start run", err)
		}
	}

	if err := os.MkdirAll(out.OutputDir, 0o755); err != nil {
		err = services.Wrap(services.ErrConfiguration, string(PhaseStarted), "create output dir", "Failed to create run output directory", err)
		return out, s.fail(ctx, ledger.StatusFailed, err)
	}

	segments, err := transcript.Load(s.job.TranscriptPath)
	if err != nil {
		err = services.Wrap(services.ErrValidation, string(PhaseStarted), "load transcript", "Transcript could not be read", err)
		return out, s.fail(ctx, ledger.StatusFailed, err)
	}
	out.Segments = len(segments)

	if err := s.format(ctx, segments); err != nil {
		return out, err
	}
	s.burn(ctx)
	if err := s.capture(ctx, segments); err != nil {
		return out, err
	}
	s.partition(ctx)
	s.notify(ctx)
	s.pushRemote(ctx)
	s.finish(ctx)
	return out, nil
}

func (s *runState) format(ctx context.Context, segments []transcript.Segment) error {
	out := s.outcome
	out.SubtitlePath = filepath.Join(out.OutputDir, artifactBase(s.job.VideoPath)+".srt")
	report, err := transcript.WriteSRT(out.SubtitlePath, segments, s.policy)
	if err != nil {
		var malformed *transcript.MalformedSegmentError
		if errors.As(err, &malformed) {
			logging.ErrorWithContext(s.logger, "transcript rejected", "malformed_transcript",
				logging.Any("segments", malformed.Indices),
				logging.String(logging.FieldErrorHint, "fix segment timings or set subtitles.malformed_policy = \"skip\""),
			)
			out.SubtitlePath = ""
			return s.fail(ctx, ledger.StatusAborted, err)
		}
		out.SubtitlePath = ""
		return s.fail(ctx, ledger.StatusFailed, services.Wrap(services.ErrExternalTool, string(PhaseFormatted), "write srt", "Failed to write subtitle file", err))
	}
	out.Report = report
	if len(report.Skipped) > 0 {
		logging.WarnWithContext(s.logger, "malformed segments skipped", "segments_skipped",
			logging.Any("segments", report.Skipped),
			logging.String(logging.FieldImpact, "subtitle cues omitted for these segments"),
		)
	}
	s.transition(ctx, PhaseFormatted, logging.Int("cues", report.Cues), logging.String("srt", out.SubtitlePath))
	return nil
}

// burn renders the subtitles into a copy of the video. Any failure leaves
// the source video as the capture and push target.
func (s *runState) burn(ctx context.Context) {
	r := s.runner
	out := s.outcome
	if !r.cfg.Subtitles.Burn || r.deps.Burner == nil || out.Report.Cues == 0 {
		return
	}
	target := filepath.Join(out.OutputDir, artifactBase(s.job.VideoPath)+"_subtitled.mp4")
	err := r.deps.Burner.BurnSubtitles(ctx, ffmpeg.BurnOptions{
		Video:        s.job.VideoPath,
		Subtitles:    out.SubtitlePath,
		Output:       target,
		ForceStyle:   r.cfg.Subtitles.ForceStyle,
		VideoCodec:   r.cfg.Subtitles.VideoCodec,
		AudioCodec:   r.cfg.Subtitles.AudioCodec,
		AudioBitrate: r.cfg.Subtitles.AudioBitrate,
	})
	if err != nil {
		logging.WarnWithContext(s.logger, "subtitle burn-in failed", "burn_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "screenshots and remote push use the source video"),
			logging.String(logging.FieldErrorHint, "check ffmpeg libass support and subtitles.force_style"),
		)
		return
	}
	out.VideoPath = target
	out.Burned = true
	s.logger.Info("subtitles burned", logging.String("video", target))
}

func (s *runState) capture(ctx context.Context, segments []transcript.Segment) error {
	r := s.runner
	out := s.outcome
	indexer := screenshots.NewIndexer(r.deps.Frames, s.logger,
		screenshots.WithWorkers(r.cfg.Capture.Workers),
		screenshots.WithSequenceWidth(r.cfg.Capture.SequenceWidth),
	)
	result, err := indexer.Capture(ctx, out.VideoPath, segments, filepath.Join(out.OutputDir, "screenshots"))
	out.Capture = result
	if err != nil {
		return s.fail(ctx, ledger.StatusFailed, services.Wrap(services.ErrTransient, string(PhaseScreenshotted), "capture", "Screenshot capture cancelled", err))
	}
	s.transition(ctx, PhaseScreenshotted,
		logging.Int("screenshots", len(result.Artifacts)),
		logging.Int("capture_failures", result.Failed()),
	)
	return nil
}

func (s *runState) partition(ctx context.Context) {
	out := s.outcome
	out.Batches = batching.Partition(out.Capture.Artifacts, s.budget.MaxAttachmentBytes())
	for _, batch := range out.Batches {
		if batch.Oversized {
			logging.WarnWithContext(s.logger, "screenshot exceeds attachment budget", "oversized_artifact",
				logging.Int(logging.FieldBatchIndex, batch.Index),
				logging.Int64("size_bytes", batch.SizeBytes),
				logging.Int64("limit_bytes", s.budget.MaxAttachmentBytes()),
				logging.String(logging.FieldImpact, "sent alone; the provider may reject it"),
			)
		}
	}
	s.transition(ctx, PhasePartitioned, logging.Int(logging.FieldBatchTotal, len(out.Batches)))
}

func (s *runState) notify(ctx context.Context) {
	r := s.runner
	out := s.outcome
	composer := compose.New(s.logger, r.cfg.Email.SubjectPrefix)
	messages := composeMessages(composer, out.Batches, compose.Source{
		VideoURL:  s.job.VideoURL,
		Title:     s.job.Title,
		Recipient: s.job.Recipient,
	})
	if len(out.Capture.Artifacts) == 0 {
		logging.WarnWithContext(s.logger, "no screenshots captured", "no_screenshots",
			logging.String(logging.FieldImpact, "sending a link-only message"),
		)
	}

	orchestrator := s.orchestrator()
	out.Receipts = make(delivery.Receipts, 0, len(messages))
	for _, msg := range messages {
		s.transition(ctx, Phase(fmt.Sprintf("%s(%d/%d)", PhaseNotifying, msg.BatchIndex, msg.BatchTotal)))
		receipts := orchestrator.Notify(ctx, []compose.Message{msg})
		out.Receipts = append(out.Receipts, receipts...)
		if r.deps.Ledger == nil {
			continue
		}
		for _, receipt := range receipts {
			if err := r.deps.Ledger.RecordReceipt(ctx, out.RunID, ledger.Receipt{
				BatchIndex: receipt.BatchIndex,
				BatchTotal: receipt.BatchTotal,
				Status:     string(receipt.Status),
				Reason:     receipt.Reason,
				Images:     receipt.Images,
				Skipped:    receipt.Skipped,
			}); err != nil {
				s.ledgerWarning("record receipt", err)
			}
		}
	}
}

func (s *runState) pushRemote(ctx context.Context) {
	out := s.outcome
	out.Remote = s.orchestrator().PushRemote(ctx, out.VideoPath)
	s.transition(ctx, PhaseRemotePushed, logging.String("remote_status", string(out.Remote.Status)))
}

func (s *runState) orchestrator() *delivery.Orchestrator {
	r := s.runner
	cfg := DeliveryConfig(r.cfg)
	cfg.Recipient = s.job.Recipient
	opts := []delivery.Option{delivery.WithLogger(r.logger)}
	if r.deps.Uploader != nil {
		opts = append(opts, delivery.WithRemote(r.deps.Uploader, r.deps.Commander))
	}
	return delivery.New(cfg, r.deps.Transport, opts...)
}

func (s *runState) finish(ctx context.Context) {
	r := s.runner
	out := s.outcome
	out.Status = resolveStatus(out)
	out.Duration = r.deps.Now().Sub(s.started)

	s.transition(ctx, PhaseDone,
		logging.String("status", string(out.Status)),
		logging.Int("batches_sent", out.Receipts.Sent()),
		logging.Int("batches_failed", out.Receipts.Failed()),
		logging.Duration("duration", out.Duration),
	)
	s.record(ctx, out.Status, "")

	summary := notifications.RunSummary{
		Title:           out.Title,
		BatchesSent:     out.Receipts.Sent(),
		BatchesTotal:    len(out.Receipts),
		CaptureFailures: out.Capture.Failed(),
		RemoteStatus:    string(out.Remote.Status),
		Duration:        out.Duration,
	}
	if err := r.deps.Notifier.NotifyRunCompleted(ctx, summary); err != nil {
		s.logger.Warn("operator notification failed", logging.Error(err))
	}
}

// resolveStatus is completed only when every batch was sent, no capture
// failed, and the remote push did not fail.
func resolveStatus(out *Outcome) ledger.Status {
	total := len(out.Receipts)
	sent := out.Receipts.Sent()
	switch {
	case total > 0 && sent == 0:
		return ledger.StatusFailed
	case sent < total,
		out.Capture.Failed() > 0,
		out.Remote.Status == delivery.RemoteTransferFailed,
		out.Remote.Status == delivery.RemoteCommandFailed:
		return ledger.StatusPartial
	default:
		return ledger.StatusCompleted
	}
}

// fail ends the run early. Artifacts already written stay on disk.
func (s *runState) fail(ctx context.Context, status ledger.Status, err error) error {
	r := s.runner
	out := s.outcome
	out.Status = status
	out.Duration = r.deps.Now().Sub(s.started)
	logging.ErrorWithContext(s.logger, "run ended early", "run_"+string(status),
		logging.String("status", string(status)),
		logging.Error(err),
	)
	s.record(ctx, status, err.Error())
	if notifyErr := r.deps.Notifier.NotifyRunFailed(ctx, out.Title, err); notifyErr != nil {
		s.logger.Warn("operator notification failed", logging.Error(notifyErr))
	}
	return err
}

func (s *runState) record(ctx context.Context, status ledger.Status, message string) {
	r := s.runner
	if r.deps.Ledger == nil {
		return
	}
	out := s.outcome
	summary := ledger.Summary{
		Status:          status,
		ErrorMessage:    message,
		Segments:        out.Segments,
		Screenshots:     len(out.Capture.Artifacts),
		CaptureFailures: out.Capture.Failed(),
		BatchesTotal:    len(out.Receipts),
		BatchesSent:     out.Receipts.Sent(),
		BatchesFailed:   out.Receipts.Failed(),
		RemoteStatus:    string(out.Remote.Status),
	}
	if err := r.deps.Ledger.FinishRun(context.WithoutCancel(ctx), out.RunID, summary); err != nil {
		s.ledgerWarning("finish run", err)
	}
}

func (s *runState) transition(ctx context.Context, phase Phase, attrs ...logging.Attr) {
	fields := append([]logging.Attr{
		logging.String(logging.FieldEventType, "phase"),
		logging.String(logging.FieldPhase, string(phase)),
	}, attrs...)
	s.logger.Info("phase reached", logging.Args(fields...)...)
	if s.runner.deps.Ledger == nil {
		return
	}
	if err := s.runner.deps.Ledger.UpdatePhase(ctx, s.outcome.RunID, string(phase)); err != nil {
		s.ledgerWarning("update phase", err)
	}
}

func (s *runState) ledgerWarning(op string, err error) {
	logging.WarnWithContext(s.logger, "ledger write failed", "ledger_write_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldImpact, "run history may be incomplete"),
	)
}

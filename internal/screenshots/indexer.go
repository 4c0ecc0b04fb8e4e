package screenshots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"streamdigest/internal/logging"
	"streamdigest/internal/services"
	"streamdigest/internal/transcript"
)

// FrameCapturer grabs the frame at a timestamp and writes it to dest.
type FrameCapturer interface {
	CaptureFrame(ctx context.Context, video string, seconds float64, dest string) error
}

// Artifact is a captured still image.
type Artifact struct {
	Sequence  int
	Path      string
	Timestamp float64
	SizeBytes int64
}

// Result summarizes a capture pass.
type Result struct {
	Artifacts     []Artifact
	FailedIndices []int
}

// Failed returns the number of segments that produced no usable image.
func (r Result) Failed() int {
	return len(r.FailedIndices)
}

// ArtifactName returns the zero-padded file name for sequence.
func ArtifactName(sequence, width int) string {
	if width <= 0 {
		width = 7
	}
	return fmt.Sprintf("screenshot_%0*d.jpg", width, sequence)
}

// Indexer captures frames for transcript segments.
type Indexer struct {
	capturer FrameCapturer
	logger   *slog.Logger
	workers  int
	width    int
}

// Option customizes an Indexer.
type Option func(*Indexer)

// WithWorkers bounds concurrent captures.
func WithWorkers(n int) Option {
	return func(i *Indexer) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithSequenceWidth sets the zero padding of artifact names.
func WithSequenceWidth(width int) Option {
	return func(i *Indexer) {
		if width > 0 {
			i.width = width
		}
	}
}

// NewIndexer constructs an Indexer around capturer.
func NewIndexer(capturer FrameCapturer, logger *slog.Logger, opts ...Option) *Indexer {
	idx := &Indexer{
		capturer: capturer,
		logger:   logging.NewComponentLogger(logger, "screenshots"),
		workers:  1,
		width:    7,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

type outcome struct {
	artifact Artifact
	ok       bool
}

// Capture grabs one frame at each segment's start time into dir. Only
// cancellation of ctx is returned as an error; individual capture failures
// are reported through Result.
func (i *Indexer) Capture(ctx context.Context, video string, segments []transcript.Segment, dir string) (Result, error) {
	if i.capturer == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "screenshots", "capture", "No frame capturer configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrCaptureFailure, "screenshots", "create dir", "Failed to create screenshot directory", err)
	}

	// Each worker owns one slot so results reassemble in segment order.
	outcomes := make([]outcome, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for idx, seg := range segments {
		sequence := idx + 1
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			artifact, ok := i.captureOne(gctx, video, sequence, seg, dir)
			outcomes[sequence-1] = outcome{artifact: artifact, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var result Result
	for idx, o := range outcomes {
		if o.ok {
			result.Artifacts = append(result.Artifacts, o.artifact)
			continue
		}
		result.FailedIndices = append(result.FailedIndices, idx+1)
	}
	i.logger.Info("screenshot capture complete",
		logging.Int("captured", len(result.Artifacts)),
		logging.Int("failed", result.Failed()),
		logging.Int("segments", len(segments)),
	)
	return result, nil
}

func (i *Indexer) captureOne(ctx context.Context, video string, sequence int, seg transcript.Segment, dir string) (Artifact, bool) {
	dest := filepath.Join(dir, ArtifactName(sequence, i.width))
	if !seg.Valid() {
		logging.WarnWithContext(i.logger, "segment skipped", "capture_skipped",
			logging.Int(logging.FieldSegmentIndex, sequence),
			logging.String("reason", "malformed timing"),
		)
		return Artifact{}, false
	}

	err := i.capturer.CaptureFrame(ctx, video, seg.Start, dest)
	if err == nil {
		info, statErr := os.Stat(dest)
		switch {
		case statErr != nil:
			err = fmt.Errorf("no output written: %w", statErr)
		case info.Size() == 0:
			err = errors.New("empty output written")
		default:
			return Artifact{Sequence: sequence, Path: dest, Timestamp: seg.Start, SizeBytes: info.Size()}, true
		}
	}

	if errors.Is(err, context.Canceled) {
		return Artifact{}, false
	}
	_ = os.Remove(dest)
	logging.WarnWithContext(i.logger, "screenshot capture failed", "capture_failed",
		logging.Int(logging.FieldSegmentIndex, sequence),
		logging.String("timestamp", transcript.FormatTimestamp(seg.Start)),
		logging.Error(err),
	)
	return Artifact{}, false
}

package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"streamdigest/internal/compose"
	"streamdigest/internal/config"
	"streamdigest/internal/delivery"
	"streamdigest/internal/ffmpeg"
	"streamdigest/internal/jobs"
	"streamdigest/internal/ledger"
	"streamdigest/internal/logging"
	"streamdigest/internal/pipeline"
	"streamdigest/internal/testsupport"
	"streamdigest/internal/transcript"
)

type fakeFrames struct {
	size int64
	fail map[float64]bool
}

func (f *fakeFrames) CaptureFrame(_ context.Context, _ string, seconds float64, dest string) error {
	if f.fail[seconds] {
		return errors.New("decoder error")
	}
	return os.WriteFile(dest, make([]byte, f.size), 0o644)
}

type fakeBurner struct {
	err   error
	calls []ffmpeg.BurnOptions
}

func (f *fakeBurner) BurnSubtitles(_ context.Context, opts ffmpeg.BurnOptions) error {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(opts.Output, []byte("burned"), 0o644)
}

type fakeTransport struct {
	mu     sync.Mutex
	failOn map[int]bool
	sent   []compose.Message
}

func (f *fakeTransport) Send(_ context.Context, msg compose.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[msg.BatchIndex] {
		return errors.New("550 rejected")
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeRemote struct {
	uploaded []string
	commands []string
	failRun  bool
}

func (f *fakeRemote) Upload(_ context.Context, local, remotePath string) error {
	f.uploaded = append(f.uploaded, local+"->"+remotePath)
	return nil
}

func (f *fakeRemote) Run(_ context.Context, command string) (delivery.CommandOutput, error) {
	f.commands = append(f.commands, command)
	if f.failRun {
		return delivery.CommandOutput{ExitCode: 1}, errors.New("exit status 1")
	}
	return delivery.CommandOutput{Stdout: "ok"}, nil
}

type fixture struct {
	cfg       *config.Config
	job       jobs.Job
	frames    *fakeFrames
	burner    *fakeBurner
	transport *fakeTransport
	store     *ledger.Store
}

func newFixture(t *testing.T, segments []transcript.Segment, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)

	video := filepath.Join(base, "input", "lecture.mp4")
	testsupport.WriteFile(t, video, 64)
	transcriptPath := filepath.Join(base, "input", "lecture.json")
	testsupport.WriteTranscript(t, transcriptPath, segments)

	return &fixture{
		cfg: cfg,
		job: jobs.Job{
			VideoPath:      video,
			VideoURL:       "https://videos.example.com/lecture",
			TranscriptPath: transcriptPath,
		},
		frames:    &fakeFrames{size: 4},
		burner:    &fakeBurner{},
		transport: &fakeTransport{},
		store:     testsupport.MustOpenLedger(t, cfg),
	}
}

func (f *fixture) runner(extra func(*pipeline.Dependencies)) *pipeline.Runner {
	deps := pipeline.Dependencies{
		Frames:    f.frames,
		Burner:    f.burner,
		Transport: f.transport,
		Ledger:    f.store,
		Now:       func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) },
		NewRunID:  func() string { return "run-1" },
	}
	if extra != nil {
		extra(&deps)
	}
	return pipeline.New(f.cfg, deps, logging.NewNop())
}

func threeSegments() []transcript.Segment {
	return []transcript.Segment{
		{Start: 0, End: 1.5, Text: "hello"},
		{Start: 2, End: 3, Text: "world"},
		{Start: 4, End: 5.25, Text: "bye"},
	}
}

func TestRunCompletesAllPhases(t *testing.T) {
	f := newFixture(t, threeSegments())
	outcome, err := f.runner(nil).Run(context.Background(), f.job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != ledger.StatusCompleted {
		t.Fatalf("status = %s, want completed", outcome.Status)
	}
	wantDir := filepath.Join(f.cfg.Paths.WorkDir, "2026-03-04", "lecture")
	if outcome.OutputDir != wantDir {
		t.Fatalf("output dir = %q, want %q", outcome.OutputDir, wantDir)
	}

	srt, err := os.ReadFile(filepath.Join(wantDir, "lecture.srt"))
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	if !strings.HasPrefix(string(srt), "1\n00:00:00,000 --> 00:00:01,500\nhello\n\n") {
		t.Fatalf("unexpected srt:\n%s", srt)
	}

	if !outcome.Burned || len(f.burner.calls) != 1 {
		t.Fatalf("expected one burn, got %d (burned=%v)", len(f.burner.calls), outcome.Burned)
	}
	if outcome.VideoPath != filepath.Join(wantDir, "lecture_subtitled.mp4") {
		t.Fatalf("unexpected captured video %q", outcome.VideoPath)
	}
	for _, name := range []string{"screenshot_0000001.jpg", "screenshot_0000002.jpg", "screenshot_0000003.jpg"} {
		if _, err := os.Stat(filepath.Join(wantDir, "screenshots", name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	if len(f.transport.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(f.transport.sent))
	}
	msg := f.transport.sent[0]
	if msg.Recipient != "reviewer@example.com" {
		t.Fatalf("recipient fallback not applied: %q", msg.Recipient)
	}
	if msg.Subject != "🎧 Transcribed lecture (Part 1 of 1)" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if len(msg.Inline) != 3 {
		t.Fatalf("expected 3 inline images, got %d", len(msg.Inline))
	}
	if outcome.Remote.Status != delivery.RemoteSkipped {
		t.Fatalf("remote status = %s, want skipped", outcome.Remote.Status)
	}

	run, err := f.store.GetRun(context.Background(), "run-1")
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v (run=%v)", err, run)
	}
	if run.Status != ledger.StatusCompleted || run.Phase != "done" {
		t.Fatalf("ledger run = %s/%s", run.Status, run.Phase)
	}
	if run.Screenshots != 3 || run.BatchesSent != 1 || run.Segments != 3 {
		t.Fatalf("unexpected counters: %+v", run)
	}
}

func TestRunSplitsBatchesAndContinuesPastFailure(t *testing.T) {
	f := newFixture(t, threeSegments(), testsupport.WithEmailBudget(1100, 1090), testsupport.WithoutBurn())
	f.frames.size = 6
	f.transport.failOn = map[int]bool{2: true}

	outcome, err := f.runner(nil).Run(context.Background(), f.job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcome.Batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(outcome.Batches))
	}
	var got []string
	for _, receipt := range outcome.Receipts {
		got = append(got, fmt.Sprintf("%d/%d:%s", receipt.BatchIndex, receipt.BatchTotal, receipt.Status))
	}
	want := []string{"1/3:sent", "2/3:failed", "3/3:sent"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("receipts mismatch (-want +got):\n%s", diff)
	}
	if outcome.Status != ledger.StatusPartial {
		t.Fatalf("status = %s, want partial", outcome.Status)
	}
	if outcome.Burned {
		t.Fatal("burn should be disabled")
	}

	stored, err := f.store.Receipts(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Receipts: %v", err)
	}
	if len(stored) != 3 || stored[1].Status != "failed" {
		t.Fatalf("unexpected stored receipts: %+v", stored)
	}
}

func TestRunAbortsOnMalformedTranscript(t *testing.T) {
	segments := threeSegments()
	segments[1] = transcript.Segment{Start: 3, End: 2, Text: "backwards"}
	f := newFixture(t, segments)

	outcome, err := f.runner(nil).Run(context.Background(), f.job)
	var malformed *transcript.MalformedSegmentError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedSegmentError, got %v", err)
	}
	if diff := cmp.Diff([]int{2}, malformed.Indices); diff != "" {
		t.Fatalf("indices mismatch (-want +got):\n%s", diff)
	}
	if outcome.Status != ledger.StatusAborted {
		t.Fatalf("status = %s, want aborted", outcome.Status)
	}
	if len(f.transport.sent) != 0 || len(f.burner.calls) != 0 {
		t.Fatal("aborted run must not burn or send")
	}
	if _, err := os.Stat(filepath.Join(outcome.OutputDir, "lecture.srt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no srt on abort, stat err=%v", err)
	}
	run, _ := f.store.GetRun(context.Background(), "run-1")
	if run == nil || run.Status != ledger.StatusAborted {
		t.Fatalf("ledger status not aborted: %+v", run)
	}
	if run.Phase != string(pipeline.PhaseStarted) {
		t.Fatalf("expected phase to stay at %q, got %q", pipeline.PhaseStarted, run.Phase)
	}
}

func TestRunSkipPolicyKeepsGoing(t *testing.T) {
	segments := threeSegments()
	segments[1] = transcript.Segment{Start: -1, End: 2, Text: "negative"}
	f := newFixture(t, segments, testsupport.WithoutBurn())
	f.cfg.Subtitles.MalformedPolicy = "skip"

	outcome, err := f.runner(nil).Run(context.Background(), f.job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff(transcript.Report{Cues: 2, Skipped: []int{2}}, outcome.Report); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2}, outcome.Capture.FailedIndices); diff != "" {
		t.Fatalf("capture failures mismatch (-want +got):\n%s", diff)
	}
	if outcome.Status != ledger.StatusPartial {
		t.Fatalf("status = %s, want partial", outcome.Status)
	}
}

func TestRunFallsBackToSourceVideoWhenBurnFails(t *testing.T) {
	f := newFixture(t, threeSegments())
	f.burner.err = errors.New("no libass")

	outcome, err := f.runner(nil).Run(context.Background(), f.job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Burned || outcome.VideoPath != f.job.VideoPath {
		t.Fatalf("expected source video fallback, got %q (burned=%v)", outcome.VideoPath, outcome.Burned)
	}
	if outcome.Status != ledger.StatusCompleted {
		t.Fatalf("status = %s, want completed", outcome.Status)
	}
}

func TestRunPushesToRemote(t *testing.T) {
	f := newFixture(t, threeSegments(), testsupport.WithRemote("media.local", "/srv/videos"), testsupport.WithoutBurn())
	f.cfg.Remote.CommandDir = "/srv"
	remote := &fakeRemote{failRun: true}

	outcome, err := f.runner(func(d *pipeline.Dependencies) {
		d.Uploader = remote
		d.Commander = remote
	}).Run(context.Background(), f.job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{f.job.VideoPath + "->/srv/videos/lecture.mp4"}, remote.uploaded); diff != "" {
		t.Fatalf("upload mismatch (-want +got):\n%s", diff)
	}
	if len(remote.commands) != 1 || !strings.Contains(remote.commands[0], "./generate_png.sh") {
		t.Fatalf("unexpected commands: %v", remote.commands)
	}
	if outcome.Remote.Status != delivery.RemoteCommandFailed {
		t.Fatalf("remote status = %s, want command_failed", outcome.Remote.Status)
	}
	if outcome.Status != ledger.StatusPartial {
		t.Fatalf("status = %s, want partial", outcome.Status)
	}
	if len(f.transport.sent) != 1 {
		t.Fatal("email delivery should not depend on remote push")
	}
}

func TestRunWithNoScreenshotsSendsLinkOnlyMessage(t *testing.T) {
	f := newFixture(t, nil, testsupport.WithoutBurn())

	outcome, err := f.runner(nil).Run(context.Background(), f.job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.transport.sent) != 1 || len(f.transport.sent[0].Inline) != 0 {
		t.Fatalf("expected one link-only message, got %+v", f.transport.sent)
	}
	if !strings.Contains(f.transport.sent[0].HTMLBody, "https://videos.example.com/lecture") {
		t.Fatal("message should carry the video link")
	}
	if outcome.Status != ledger.StatusCompleted {
		t.Fatalf("status = %s, want completed", outcome.Status)
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t, threeSegments())
	if err := f.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	held := flock.New(f.cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	if _, err := f.runner(nil).Run(context.Background(), f.job); !errors.Is(err, pipeline.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}

func TestRunRejectsMissingInputs(t *testing.T) {
	f := newFixture(t, threeSegments())
	job := f.job
	job.TranscriptPath = filepath.Join(t.TempDir(), "missing.json")

	if _, err := f.runner(nil).Run(context.Background(), job); err == nil || !strings.Contains(err.Error(), "transcript_path") {
		t.Fatalf("expected transcript_path error, got %v", err)
	}
	if len(f.transport.sent) != 0 {
		t.Fatal("nothing should be sent")
	}
}

func TestProcessManifestRunsOnce(t *testing.T) {
	f := newFixture(t, threeSegments(), testsupport.WithoutBurn())
	manifest := filepath.Join(f.cfg.Paths.InboxDir, "lecture.yaml")
	if err := os.MkdirAll(f.cfg.Paths.InboxDir, 0o755); err != nil {
		t.Fatalf("mkdir inbox: %v", err)
	}
	if err := jobs.WriteManifest(manifest, f.job); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	runner := f.runner(nil)
	for i := 0; i < 2; i++ {
		if err := runner.ProcessManifest(context.Background(), manifest); err != nil {
			t.Fatalf("ProcessManifest #%d: %v", i+1, err)
		}
	}
	if len(f.transport.sent) != 1 {
		t.Fatalf("expected manifest processed once, sent %d messages", len(f.transport.sent))
	}
}

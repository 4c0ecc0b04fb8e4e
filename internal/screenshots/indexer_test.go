package screenshots_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"streamdigest/internal/logging"
	"streamdigest/internal/screenshots"
	"streamdigest/internal/transcript"
)

type fakeCapturer struct {
	mu     sync.Mutex
	calls  []float64
	fail   map[float64]error
	empty  map[float64]bool
	silent map[float64]bool
}

func (f *fakeCapturer) CaptureFrame(_ context.Context, _ string, seconds float64, dest string) error {
	f.mu.Lock()
	f.calls = append(f.calls, seconds)
	f.mu.Unlock()
	if err := f.fail[seconds]; err != nil {
		return err
	}
	if f.silent[seconds] {
		return nil
	}
	data := []byte("jpeg-bytes")
	if f.empty[seconds] {
		data = nil
	}
	return os.WriteFile(dest, data, 0o644)
}

func segmentsAt(starts ...float64) []transcript.Segment {
	out := make([]transcript.Segment, len(starts))
	for i, s := range starts {
		out[i] = transcript.Segment{Start: s, End: s + 1, Text: "x"}
	}
	return out
}

func TestArtifactName(t *testing.T) {
	if got := screenshots.ArtifactName(1, 7); got != "screenshot_0000001.jpg" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := screenshots.ArtifactName(42, 3); got != "screenshot_042.jpg" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestCaptureNamesArtifactsBySegmentPosition(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "screenshots")
	capturer := &fakeCapturer{}
	idx := screenshots.NewIndexer(capturer, logging.NewNop())

	result, err := idx.Capture(context.Background(), "in.mp4", segmentsAt(0, 2.5, 7), dir)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	var names []string
	for _, a := range result.Artifacts {
		names = append(names, filepath.Base(a.Path))
	}
	want := []string{"screenshot_0000001.jpg", "screenshot_0000002.jpg", "screenshot_0000003.jpg"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0, 2.5, 7}, capturer.calls); diff != "" {
		t.Fatalf("timestamps mismatch (-want +got):\n%s", diff)
	}
}

func TestCaptureContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	capturer := &fakeCapturer{
		fail:   map[float64]error{2: errors.New("decoder error")},
		empty:  map[float64]bool{3: true},
		silent: map[float64]bool{4: true},
	}
	logger, rec := logging.NewRecorder()
	idx := screenshots.NewIndexer(capturer, logger, screenshots.WithWorkers(3))

	result, err := idx.Capture(context.Background(), "in.mp4", segmentsAt(1, 2, 3, 4, 5), dir)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	var sequences []int
	for _, a := range result.Artifacts {
		sequences = append(sequences, a.Sequence)
		if a.SizeBytes == 0 {
			t.Fatalf("artifact %d has no size", a.Sequence)
		}
	}
	if diff := cmp.Diff([]int{1, 5}, sequences); diff != "" {
		t.Fatalf("sequences mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3, 4}, result.FailedIndices); diff != "" {
		t.Fatalf("failed indices mismatch (-want +got):\n%s", diff)
	}
	if result.Failed() != 3 {
		t.Fatalf("expected 3 failures, got %d", result.Failed())
	}
	if got := len(rec.Find("screenshot capture failed")); got != 3 {
		t.Fatalf("expected 3 failure log lines, got %d", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "screenshot_0000003.jpg")); !os.IsNotExist(err) {
		t.Fatalf("expected empty output removed, stat err=%v", err)
	}
}

func TestCaptureOrderStableWithWorkers(t *testing.T) {
	capturer := &fakeCapturer{}
	idx := screenshots.NewIndexer(capturer, nil, screenshots.WithWorkers(8), screenshots.WithSequenceWidth(3))

	starts := make([]float64, 20)
	for i := range starts {
		starts[i] = float64(i)
	}
	result, err := idx.Capture(context.Background(), "in.mp4", segmentsAt(starts...), t.TempDir())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(result.Artifacts) != 20 {
		t.Fatalf("expected 20 artifacts, got %d", len(result.Artifacts))
	}
	for i, a := range result.Artifacts {
		if a.Sequence != i+1 {
			t.Fatalf("artifact %d out of order: sequence %d", i, a.Sequence)
		}
		if want := screenshots.ArtifactName(i+1, 3); filepath.Base(a.Path) != want {
			t.Fatalf("unexpected name %q want %q", filepath.Base(a.Path), want)
		}
	}
}

func TestCaptureEmptySegments(t *testing.T) {
	idx := screenshots.NewIndexer(&fakeCapturer{}, nil)
	result, err := idx.Capture(context.Background(), "in.mp4", nil, t.TempDir())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(result.Artifacts) != 0 || result.Failed() != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestCaptureHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idx := screenshots.NewIndexer(&fakeCapturer{}, nil)
	if _, err := idx.Capture(ctx, "in.mp4", segmentsAt(1, 2), t.TempDir()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

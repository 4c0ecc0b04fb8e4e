package transcript_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"streamdigest/internal/services"
	"streamdigest/internal/transcript"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{3725.125, "01:02:05,125"},
		{0.3, "00:00:00,300"},
		{59.9999, "00:00:59,999"},
		{90061.5, "25:01:01,500"},
		{-4, "00:00:00,000"},
	}
	for _, tc := range tests {
		if got := transcript.FormatTimestamp(tc.seconds); got != tc.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestParseTimestampRoundTripsFormattedValues(t *testing.T) {
	for _, value := range []string{"00:00:00,000", "01:02:05,125", "25:01:01,500"} {
		seconds, err := transcript.ParseTimestamp(value)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", value, err)
		}
		if got := transcript.FormatTimestamp(seconds); got != value {
			t.Fatalf("round trip %q -> %v -> %q", value, seconds, got)
		}
	}
	if _, err := transcript.ParseTimestamp("1:02"); err == nil {
		t.Fatal("expected error for short timestamp")
	}
}

func TestRenderProducesNumberedCues(t *testing.T) {
	segments := []transcript.Segment{
		{Start: 0, End: 2.5, Text: " Hello there "},
		{Start: 2.5, End: 5, Text: "General Kenobi"},
	}
	got, report, err := transcript.Render(segments, transcript.PolicyAbort)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:02,500\nHello there\n\n" +
		"2\n00:00:02,500 --> 00:00:05,000\nGeneral Kenobi\n\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("render mismatch (-want +got):\n%s", diff)
	}
	if report.Cues != 2 || len(report.Skipped) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	again, _, err := transcript.Render(segments, transcript.PolicyAbort)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if again != got {
		t.Fatal("expected identical output for identical input")
	}
}

func TestRenderEmptyInput(t *testing.T) {
	got, report, err := transcript.Render(nil, transcript.PolicyAbort)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "" || report.Cues != 0 {
		t.Fatalf("expected empty output, got %q %+v", got, report)
	}
}

func TestRenderAbortCollectsAllMalformedIndices(t *testing.T) {
	segments := []transcript.Segment{
		{Start: 0, End: 1, Text: "ok"},
		{Start: 3, End: 2, Text: "inverted"},
		{Start: 4, End: 5, Text: "ok"},
		{Start: -1, End: 6, Text: "negative"},
	}
	_, _, err := transcript.Render(segments, transcript.PolicyAbort)
	if err == nil {
		t.Fatal("expected malformed segment error")
	}
	if !errors.Is(err, services.ErrMalformedSegment) {
		t.Fatalf("expected ErrMalformedSegment, got %v", err)
	}
	var malformed *transcript.MalformedSegmentError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedSegmentError, got %T", err)
	}
	if diff := cmp.Diff([]int{2, 4}, malformed.Indices); diff != "" {
		t.Fatalf("indices mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderSkipKeepsNumberingContiguous(t *testing.T) {
	segments := []transcript.Segment{
		{Start: 0, End: 1, Text: "first"},
		{Start: 2, End: 2, Text: "zero length"},
		{Start: 3, End: 4, Text: "third"},
	}
	got, report, err := transcript.Render(segments, transcript.PolicySkip)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(got, "1\n") || !strings.Contains(got, "\n2\n00:00:03,000 --> 00:00:04,000\nthird\n") {
		t.Fatalf("unexpected output:\n%s", got)
	}
	if diff := cmp.Diff(transcript.Report{Cues: 2, Skipped: []int{2}}, report); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := transcript.ParsePolicy(""); err != nil || p != transcript.PolicyAbort {
		t.Fatalf("empty policy: %v %v", p, err)
	}
	if p, err := transcript.ParsePolicy(" Skip "); err != nil || p != transcript.PolicySkip {
		t.Fatalf("skip policy: %v %v", p, err)
	}
	if _, err := transcript.ParsePolicy("ignore"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestWriteSRTAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "clip.srt")
	segments := []transcript.Segment{
		{Start: 1.25, End: 3, Text: "one"},
		{Start: 3, End: 7.5, Text: "two"},
	}
	if _, err := transcript.WriteSRT(path, segments, transcript.PolicyAbort); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the subtitle file, found %d entries", len(entries))
	}

	loaded, err := transcript.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(segments, loaded); diff != "" {
		t.Fatalf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteSRTAbortLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.srt")
	_, err := transcript.WriteSRT(path, []transcript.Segment{{Start: 5, End: 1}}, transcript.PolicyAbort)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("expected no subtitle file, stat err=%v", statErr)
	}
}

func TestLoadWhisperJSON(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "clip.json")
	payload := `{"text":"hi there","segments":[{"id":0,"start":0.0,"end":1.5,"text":" hi"},{"id":1,"start":1.5,"end":2.0,"text":" there"}]}`
	if err := os.WriteFile(doc, []byte(payload), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := transcript.Load(doc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []transcript.Segment{{Start: 0, End: 1.5, Text: " hi"}, {Start: 1.5, End: 2, Text: " there"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("segments mismatch (-want +got):\n%s", diff)
	}

	bare := filepath.Join(dir, "bare.json")
	if err := os.WriteFile(bare, []byte(`[{"start":1,"end":2,"text":"x"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err = transcript.Load(bare)
	if err != nil {
		t.Fatalf("Load bare: %v", err)
	}
	if len(got) != 1 || got[0].Text != "x" {
		t.Fatalf("unexpected bare segments: %+v", got)
	}
}

package transcript

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Policy selects how Render treats malformed segments.
type Policy string

const (
	// PolicyAbort rejects the whole sequence when any segment is malformed.
	PolicyAbort Policy = "abort"
	// PolicySkip drops malformed segments and keeps numbering contiguous.
	PolicySkip Policy = "skip"
)

// ParsePolicy maps a configuration value onto a Policy, defaulting to abort.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown malformed segment policy %q", value)
	}
}

// Report describes what Render emitted.
type Report struct {
	Cues    int
	Skipped []int
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Fractional milliseconds
// are truncated and hours are not wrapped at 24.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	// The epsilon absorbs float noise such as 0.3*1000 = 299.99999.
	total := int64(math.Floor(seconds*1000 + 1e-6))
	millis := total % 1000
	totalSeconds := total / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	secs := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp converts an HH:MM:SS,mmm (or HH:MM:SS.mmm) value to seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Render produces the subtitle track text for segments. Each cue is the
// 1-based index, the time range, the trimmed text, and a blank line.
func Render(segments []Segment, policy Policy) (string, Report, error) {
	bad := MalformedIndices(segments)
	if len(bad) > 0 && policy != PolicySkip {
		return "", Report{}, &MalformedSegmentError{Indices: bad}
	}

	skipped := make(map[int]struct{}, len(bad))
	for _, idx := range bad {
		skipped[idx] = struct{}{}
	}

	var b strings.Builder
	cue := 0
	for i, seg := range segments {
		if _, drop := skipped[i+1]; drop {
			continue
		}
		cue++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", cue, FormatTimestamp(seg.Start), FormatTimestamp(seg.End), strings.TrimSpace(seg.Text))
	}
	return b.String(), Report{Cues: cue, Skipped: bad}, nil
}

// WriteSRT renders segments and writes them to path through a temp file so a
// reader never sees a partial track.
func WriteSRT(path string, segments []Segment, policy Policy) (Report, error) {
	content, report, err := Render(segments, policy)
	if err != nil {
		return Report{}, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create subtitle directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".srt-*")
	if err != nil {
		return Report{}, fmt.Errorf("create temp subtitle: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return Report{}, fmt.Errorf("write subtitle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Report{}, fmt.Errorf("close subtitle: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return Report{}, fmt.Errorf("chmod subtitle: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return Report{}, fmt.Errorf("rename subtitle: %w", err)
	}
	return report, nil
}

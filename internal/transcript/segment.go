package transcript

import (
	"fmt"
	"math"
	"strings"

	"streamdigest/internal/services"
)

// Segment is one time-bounded unit of transcribed speech. Start and End are
// seconds from the beginning of the video.
type Segment struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Text  string  `json:"text" yaml:"text"`
}

// Valid reports whether the segment has usable timing.
func (s Segment) Valid() bool {
	if math.IsNaN(s.Start) || math.IsNaN(s.End) || math.IsInf(s.Start, 0) || math.IsInf(s.End, 0) {
		return false
	}
	return s.Start >= 0 && s.End >= 0 && s.End > s.Start
}

// MalformedSegmentError lists the 1-based positions of every segment with
// unusable timing.
type MalformedSegmentError struct {
	Indices []int
}

func (e *MalformedSegmentError) Error() string {
	parts := make([]string, len(e.Indices))
	for i, idx := range e.Indices {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return fmt.Sprintf("malformed segment timing at index %s", strings.Join(parts, ", "))
}

func (e *MalformedSegmentError) Unwrap() error {
	return services.ErrMalformedSegment
}

// MalformedIndices returns the 1-based positions of invalid segments.
func MalformedIndices(segments []Segment) []int {
	var out []int
	for i, seg := range segments {
		if !seg.Valid() {
			out = append(out, i+1)
		}
	}
	return out
}

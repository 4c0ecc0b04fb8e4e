package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type whisperDocument struct {
	Segments []Segment `json:"segments"`
}

// Load reads segments from a Whisper-style JSON document ({"segments": [...]}),
// a bare JSON segment array, or an existing .srt file.
func Load(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".srt") {
		return ParseSRT(data)
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) ([]Segment, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var segments []Segment
		if err := json.Unmarshal(trimmed, &segments); err != nil {
			return nil, fmt.Errorf("decode transcript segments: %w", err)
		}
		return segments, nil
	}
	var doc whisperDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode transcript document: %w", err)
	}
	return doc.Segments, nil
}

// ParseSRT reads SubRip cues back into segments. Cue numbers are ignored and
// multi-line text is joined with newlines.
func ParseSRT(data []byte) ([]Segment, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		segments []Segment
		current  *Segment
		lines    []string
		lineNo   int
	)
	flush := func() {
		if current != nil {
			current.Text = strings.Join(lines, "\n")
			segments = append(segments, *current)
		}
		current = nil
		lines = nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		line = strings.TrimPrefix(line, "\ufeff")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if current == nil {
			if !strings.Contains(trimmed, "-->") {
				// cue number
				continue
			}
			parts := strings.SplitN(trimmed, "-->", 2)
			start, err := ParseTimestamp(parts[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			endFields := strings.Fields(parts[1])
			if len(endFields) == 0 {
				return nil, fmt.Errorf("line %d: missing end timestamp", lineNo)
			}
			end, err := ParseTimestamp(endFields[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current = &Segment{Start: start, End: end}
			continue
		}
		lines = append(lines, trimmed)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan subtitles: %w", err)
	}
	flush()
	return segments, nil
}

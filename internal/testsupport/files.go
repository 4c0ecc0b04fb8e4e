package testsupport

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"streamdigest/internal/transcript"
)

// WriteFile writes size filler bytes to path, creating parent directories.
// A size <= 0 writes a single byte so the file is never empty.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	writeBytes(t, path, bytes.Repeat([]byte{0x42}, int(size)))
}

// WriteTranscript stores segments as a whisper-style JSON document.
func WriteTranscript(t testing.TB, path string, segments []transcript.Segment) {
	t.Helper()
	if segments == nil {
		segments = []transcript.Segment{}
	}
	data, err := json.Marshal(map[string]any{"segments": segments})
	if err != nil {
		t.Fatalf("marshal transcript: %v", err)
	}
	writeBytes(t, path, data)
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

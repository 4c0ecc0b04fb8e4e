package logging

import (
	"context"
	"log/slog"
	"sync"
)

// Entry is a captured log record with its attributes flattened to strings.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Recorder captures log records in memory. Tests use it to assert that a
// skipped or failed unit left a log line behind.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder returns a debug-level logger that writes into the returned Recorder.
func NewRecorder() (*slog.Logger, *Recorder) {
	rec := &Recorder{}
	return slog.New(&recordingHandler{rec: rec}), rec
}

// Entries returns a snapshot of the captured records.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Find returns the captured records whose message equals msg.
func (r *Recorder) Find(msg string) []Entry {
	var out []Entry
	for _, entry := range r.Entries() {
		if entry.Message == msg {
			out = append(out, entry)
		}
	}
	return out
}

type recordingHandler struct {
	rec   *Recorder
	attrs []slog.Attr
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	var fields []field
	for _, attr := range h.attrs {
		fields = appendField(fields, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, "", attr)
		return true
	})
	attrs := make(map[string]string, len(fields))
	for _, f := range fields {
		attrs[f.key] = valueString(f.value)
	}
	h.rec.mu.Lock()
	h.rec.entries = append(h.rec.entries, Entry{Level: record.Level, Message: record.Message, Attrs: attrs})
	h.rec.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &recordingHandler{rec: h.rec}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

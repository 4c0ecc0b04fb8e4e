package batching

import (
	"errors"

	"streamdigest/internal/screenshots"
)

// Budget bounds a single outgoing email.
type Budget struct {
	MaxEmailBytes    int64
	BodyReserveBytes int64
}

// MaxAttachmentBytes is the space left for attachments once the body
// reserve is taken out.
func (b Budget) MaxAttachmentBytes() int64 {
	return b.MaxEmailBytes - b.BodyReserveBytes
}

// Validate reports whether the budget leaves room for attachments.
func (b Budget) Validate() error {
	if b.MaxEmailBytes <= 0 {
		return errors.New("max email bytes must be positive")
	}
	if b.BodyReserveBytes < 0 {
		return errors.New("body reserve bytes must not be negative")
	}
	if b.MaxAttachmentBytes() <= 0 {
		return errors.New("body reserve leaves no room for attachments")
	}
	return nil
}

// Batch is one email's worth of artifacts. Index is 1-based.
type Batch struct {
	Index     int
	Total     int
	Artifacts []screenshots.Artifact
	SizeBytes int64
	Oversized bool
}

// Partition walks artifacts in order and starts a new batch whenever adding
// the next artifact would push the running total past limit.
func Partition(artifacts []screenshots.Artifact, limit int64) []Batch {
	if len(artifacts) == 0 {
		return nil
	}
	var (
		batches []Batch
		current Batch
	)
	closeCurrent := func() {
		if len(current.Artifacts) == 0 {
			return
		}
		current.Oversized = len(current.Artifacts) == 1 && current.SizeBytes > limit
		batches = append(batches, current)
		current = Batch{}
	}
	for _, artifact := range artifacts {
		if len(current.Artifacts) > 0 && current.SizeBytes+artifact.SizeBytes > limit {
			closeCurrent()
		}
		current.Artifacts = append(current.Artifacts, artifact)
		current.SizeBytes += artifact.SizeBytes
	}
	closeCurrent()

	for i := range batches {
		batches[i].Index = i + 1
		batches[i].Total = len(batches)
	}
	return batches
}

// Flatten concatenates the artifacts of batches in order.
func Flatten(batches []Batch) []screenshots.Artifact {
	var out []screenshots.Artifact
	for _, b := range batches {
		out = append(out, b.Artifacts...)
	}
	return out
}

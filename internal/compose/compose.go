package compose

import (
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"streamdigest/internal/batching"
	"streamdigest/internal/logging"
	"streamdigest/internal/services"
)

// DefaultSubjectPrefix precedes the video title in every subject line.
const DefaultSubjectPrefix = "🎧 Transcribed "

// Reader loads artifact bytes.
type Reader interface {
	ReadFile(path string) ([]byte, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(path string) ([]byte, error)

// ReadFile calls f(path).
func (f ReaderFunc) ReadFile(path string) ([]byte, error) { return f(path) }

// Source identifies the video a message is about.
type Source struct {
	VideoURL  string
	Title     string
	Recipient string
}

// InlineImage is an image part referenced from the HTML body by ContentID.
type InlineImage struct {
	ContentID string
	Filename  string
	Data      []byte
}

// SkippedImage records an artifact that could not be embedded.
type SkippedImage struct {
	Sequence int
	Path     string
	Reason   string
}

// Message is a fully composed notification ready for a transport.
type Message struct {
	Subject    string
	Recipient  string
	HTMLBody   string
	Inline     []InlineImage
	BatchIndex int
	BatchTotal int
	Oversized  bool
	Skipped    []SkippedImage
}

// AttachmentBytes sums the inline image payloads.
func (m Message) AttachmentBytes() int64 {
	var total int64
	for _, img := range m.Inline {
		total += int64(len(img.Data))
	}
	return total
}

// Composer builds messages from batches.
type Composer struct {
	Reader        Reader
	Logger        *slog.Logger
	SubjectPrefix string
}

// New returns a Composer that reads artifacts from disk.
func New(logger *slog.Logger, subjectPrefix string) *Composer {
	return &Composer{
		Reader:        ReaderFunc(os.ReadFile),
		Logger:        logger,
		SubjectPrefix: subjectPrefix,
	}
}

// Subject returns the subject line for part index of total.
func (c *Composer) Subject(title string, index, total int) string {
	prefix := c.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return fmt.Sprintf("%s%s (Part %d of %d)", prefix, title, index, total)
}

// Compose builds the message for batch. It never fails: unreadable artifacts
// are dropped and recorded in Message.Skipped.
func (c *Composer) Compose(batch batching.Batch, src Source) Message {
	logger := logging.NewComponentLogger(c.Logger, "compose").With(
		logging.Int(logging.FieldBatchIndex, batch.Index),
		logging.Int(logging.FieldBatchTotal, batch.Total),
	)
	reader := c.Reader
	if reader == nil {
		reader = ReaderFunc(os.ReadFile)
	}

	msg := Message{
		Subject:    c.Subject(src.Title, batch.Index, batch.Total),
		Recipient:  src.Recipient,
		BatchIndex: batch.Index,
		BatchTotal: batch.Total,
		Oversized:  batch.Oversized,
	}
	for _, artifact := range batch.Artifacts {
		data, err := reader.ReadFile(artifact.Path)
		if err != nil {
			wrapped := services.Wrap(services.ErrAttachmentRead, "compose", "read artifact", "Failed to read screenshot", err)
			logging.WarnWithContext(logger, "screenshot omitted from message", "attachment_read_failed",
				logging.Int(logging.FieldSegmentIndex, artifact.Sequence),
				logging.String(logging.FieldArtifact, artifact.Path),
				logging.Error(wrapped),
				logging.String(logging.FieldImpact, "message sent without this screenshot"),
			)
			msg.Skipped = append(msg.Skipped, SkippedImage{Sequence: artifact.Sequence, Path: artifact.Path, Reason: err.Error()})
			continue
		}
		msg.Inline = append(msg.Inline, InlineImage{
			ContentID: fmt.Sprintf("image%d", len(msg.Inline)+1),
			Filename:  filepath.Base(artifact.Path),
			Data:      data,
		})
	}
	msg.HTMLBody = renderBody(src.VideoURL, batch.Index, batch.Total, msg.Inline)
	logger.Debug("message composed",
		logging.Int("images", len(msg.Inline)),
		logging.Int("skipped", len(msg.Skipped)),
		logging.Int64("attachment_bytes", msg.AttachmentBytes()),
	)
	return msg
}

func renderBody(videoURL string, index, total int, images []InlineImage) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<p><b>Part %d of %d</b></p>\n", index, total)
	escapedURL := html.EscapeString(videoURL)
	fmt.Fprintf(&b, "<p>Video URL: <a href=\"%s\">%s</a></p>\n", escapedURL, escapedURL)
	b.WriteString("<p>Screenshots:</p>\n")
	for _, img := range images {
		fmt.Fprintf(&b, "<p><img src=\"cid:%s\" alt=\"Screenshot %s\" style=\"max-width:800px;\"></p>\n",
			img.ContentID, html.EscapeString(img.Filename))
	}
	b.WriteString("</body></html>\n")
	return b.String()
}

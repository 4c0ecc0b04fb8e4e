package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"streamdigest/internal/compose"
	"streamdigest/internal/config"
	"streamdigest/internal/logging"
	"streamdigest/internal/services"
)

// Config holds SMTP submission settings.
type Config struct {
	Host          string
	Port          int
	Sender        string
	Password      string
	MaxEmailBytes int64
	Timeout       time.Duration
}

// FromConfig extracts mailer settings from the application config.
func FromConfig(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		Host:          cfg.Email.SMTPHost,
		Port:          cfg.Email.SMTPPort,
		Sender:        cfg.Email.Sender,
		Password:      cfg.Email.Password,
		MaxEmailBytes: cfg.Email.MaxEmailBytes,
		Timeout:       time.Duration(cfg.Email.TimeoutSeconds) * time.Second,
	}
}

// Transport sends compose.Message values over SMTP with STARTTLS.
type Transport struct {
	cfg    Config
	logger *slog.Logger
	send   func(ctx context.Context, msg *mail.Msg) error
}

// New constructs a Transport.
func New(cfg Config, logger *slog.Logger) *Transport {
	t := &Transport{cfg: cfg, logger: logging.NewComponentLogger(logger, "mailer")}
	t.send = t.dialAndSend
	return t
}

// Build converts a composed message into a MIME message with its images as
// inline related parts.
func (t *Transport) Build(msg compose.Message) (*mail.Msg, error) {
	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		return nil, errors.New("message has no recipient")
	}
	m := mail.NewMsg()
	if err := m.From(t.cfg.Sender); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(recipient); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	for _, img := range msg.Inline {
		if err := m.EmbedReader(img.Filename, bytes.NewReader(img.Data), mail.WithFileContentID(img.ContentID)); err != nil {
			return nil, fmt.Errorf("embed %s: %w", img.Filename, err)
		}
	}
	return m, nil
}

// RenderedSize returns the byte length of the serialized message.
func RenderedSize(m *mail.Msg) (int64, error) {
	return m.WriteTo(io.Discard)
}

// Send builds and submits msg in a fresh SMTP session. A message larger
// than the configured limit is logged and still attempted.
func (t *Transport) Send(ctx context.Context, msg compose.Message) error {
	m, err := t.Build(msg)
	if err != nil {
		return services.Wrap(services.ErrDeliveryFailure, "notify", "build message", "Failed to build email", err)
	}

	logger := logging.WithContext(ctx, t.logger)
	size, sizeErr := RenderedSize(m)
	if sizeErr != nil {
		return services.Wrap(services.ErrDeliveryFailure, "notify", "render message", "Failed to render email", sizeErr)
	}
	logger.Info("email rendered",
		logging.Int64("size_bytes", size),
		logging.Int("images", len(msg.Inline)),
	)
	if t.cfg.MaxEmailBytes > 0 && size > t.cfg.MaxEmailBytes {
		logging.WarnWithContext(logger, "email exceeds size budget", "email_oversized",
			logging.Int64("size_bytes", size),
			logging.Int64("max_email_bytes", t.cfg.MaxEmailBytes),
			logging.String(logging.FieldErrorHint, "lower capture quality or email.body_reserve_bytes"),
			logging.String(logging.FieldImpact, "provider may reject this part"),
		)
	}

	if err := t.send(ctx, m); err != nil {
		return services.Wrap(services.ErrDeliveryFailure, "notify", "smtp send", "SMTP delivery failed", err)
	}
	return nil
}

func (t *Transport) dialAndSend(ctx context.Context, m *mail.Msg) error {
	timeout := t.cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	client, err := mail.NewClient(t.cfg.Host,
		mail.WithPort(t.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.cfg.Sender),
		mail.WithPassword(t.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(timeout),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

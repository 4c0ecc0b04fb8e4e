package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"streamdigest/internal/batching"
	"streamdigest/internal/compose"
	"streamdigest/internal/logging"
	"streamdigest/internal/remote"
	"streamdigest/internal/services"
)

// Transport submits one message per call in its own session.
type Transport interface {
	Send(ctx context.Context, msg compose.Message) error
}

// Uploader copies a local file to a remote path.
type Uploader interface {
	Upload(ctx context.Context, local, remotePath string) error
}

// CommandOutput is what a remote command printed.
type CommandOutput = remote.CommandOutput

// Commander runs a shell command on the remote host.
type Commander interface {
	Run(ctx context.Context, command string) (CommandOutput, error)
}

// Config is the delivery configuration, read once at startup.
type Config struct {
	Recipient        string
	MaxEmailBytes    int64
	BodyReserveBytes int64
	RemoteHost       string
	RemotePort       int
	RemoteUsername   string
	RemoteCredential string
	RemoteDir        string
	RemoteCommand    string
}

// Budget returns the email size budget.
func (c Config) Budget() batching.Budget {
	return batching.Budget{MaxEmailBytes: c.MaxEmailBytes, BodyReserveBytes: c.BodyReserveBytes}
}

// RemoteEnabled reports whether enough is configured to attempt a push.
func (c Config) RemoteEnabled() bool {
	return strings.TrimSpace(c.RemoteHost) != "" && strings.TrimSpace(c.RemoteDir) != ""
}

// Orchestrator drives notification and the remote push.
type Orchestrator struct {
	cfg       Config
	transport Transport
	uploader  Uploader
	commander Commander
	logger    *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRemote enables the remote phase.
func WithRemote(uploader Uploader, commander Commander) Option {
	return func(o *Orchestrator) {
		o.uploader = uploader
		o.commander = commander
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New constructs an Orchestrator.
func New(cfg Config, transport Transport, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg, transport: transport}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "delivery")
	return o
}

// Config returns the configuration the orchestrator was built with.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Notify sends messages strictly in order. Every message is attempted once
// regardless of earlier failures.
func (o *Orchestrator) Notify(ctx context.Context, messages []compose.Message) Receipts {
	receipts := make(Receipts, 0, len(messages))
	for _, msg := range messages {
		if msg.Recipient == "" {
			msg.Recipient = o.cfg.Recipient
		}
		batchCtx := services.WithBatchIndex(services.WithPhase(ctx, "notifying"), msg.BatchIndex)
		logger := logging.WithContext(batchCtx, o.logger)

		receipt := Receipt{
			BatchIndex: msg.BatchIndex,
			BatchTotal: msg.BatchTotal,
			Images:     len(msg.Inline),
			Skipped:    len(msg.Skipped),
		}
		err := o.send(batchCtx, msg)
		if err != nil {
			receipt.Status = StatusFailed
			receipt.Reason = err.Error()
			logging.ErrorWithContext(logger, "batch delivery failed", "delivery_failed",
				logging.Int(logging.FieldBatchTotal, msg.BatchTotal),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check smtp credentials and message size"),
			)
		} else {
			receipt.Status = StatusSent
			logger.Info("batch delivered",
				logging.Int(logging.FieldBatchTotal, msg.BatchTotal),
				logging.Int("images", receipt.Images),
			)
		}
		receipts = append(receipts, receipt)
	}
	return receipts
}

func (o *Orchestrator) send(ctx context.Context, msg compose.Message) (err error) {
	if o.transport == nil {
		return services.Wrap(services.ErrConfiguration, "notifying", "send", "No mail transport configured", nil)
	}
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrDeliveryFailure, "notifying", "send", "Run cancelled", err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrDeliveryFailure, "notifying", "send", "Transport panicked", fmt.Errorf("%v", r))
		}
	}()
	if err := o.transport.Send(ctx, msg); err != nil {
		if errors.Is(err, services.ErrDeliveryFailure) {
			return err
		}
		return services.Wrap(services.ErrDeliveryFailure, "notifying", "send", "Delivery failed", err)
	}
	return nil
}

// PushRemote uploads localVideo into the remote directory and then runs the
// post-processing command. A failed upload skips the command. Failures are
// returned in the result, never as a panic.
func (o *Orchestrator) PushRemote(ctx context.Context, localVideo string) (result RemoteResult) {
	ctx = services.WithPhase(ctx, "remote_push")
	logger := logging.WithContext(ctx, o.logger)

	if o.uploader == nil || !o.cfg.RemoteEnabled() {
		result.Status = RemoteSkipped
		logger.Info("remote push skipped", logging.String("reason", "remote not configured"))
		return result
	}
	result.RemotePath = path.Join(o.cfg.RemoteDir, filepath.Base(localVideo))

	defer func() {
		if r := recover(); r != nil {
			result.Status = RemoteTransferFailed
			result.Err = services.Wrap(services.ErrRemoteTransfer, "remote_push", "push", "Remote push panicked", fmt.Errorf("%v", r))
			logging.ErrorWithContext(logger, "remote push aborted", "remote_push_panic", logging.Error(result.Err))
		}
	}()

	if err := o.uploader.Upload(ctx, localVideo, result.RemotePath); err != nil {
		result.Status = RemoteTransferFailed
		result.Err = services.Wrap(services.ErrRemoteTransfer, "remote_push", "upload", "Video upload failed", err)
		logging.ErrorWithContext(logger, "remote upload failed", "remote_transfer_failed",
			logging.String("remote_path", result.RemotePath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check remote host credentials and upload_dir"),
		)
		return result
	}
	result.Uploaded = true
	logger.Info("video uploaded", logging.String("remote_path", result.RemotePath))

	command := strings.TrimSpace(o.cfg.RemoteCommand)
	if o.commander == nil || command == "" {
		result.Status = RemoteOK
		return result
	}
	output, err := o.commander.Run(ctx, command)
	result.CommandRan = true
	result.Output = output
	if output.Stdout != "" {
		logger.Info("remote command stdout", logging.String("stdout", output.Stdout))
	}
	if output.Stderr != "" {
		logger.Info("remote command stderr", logging.String("stderr", output.Stderr))
	}
	if err != nil {
		result.Status = RemoteCommandFailed
		result.Err = services.Wrap(services.ErrRemoteCommand, "remote_push", "run command", "Remote command failed", err)
		logging.ErrorWithContext(logger, "remote command failed", "remote_command_failed",
			logging.Int("exit_code", output.ExitCode),
			logging.Error(err),
		)
		return result
	}
	result.Status = RemoteOK
	return result
}

package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"streamdigest/internal/config"
	"streamdigest/internal/logging"
)

// Config holds connection settings for the remote host.
type Config struct {
	Host        string
	SFTPPort    int
	SSHPort     int
	Username    string
	Password    string
	UploadDir   string
	CommandDir  string
	PostCommand string
	KnownHosts  string
	Timeout     time.Duration
}

// FromConfig extracts remote settings from the application config.
func FromConfig(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		Host:        cfg.Remote.Host,
		SFTPPort:    cfg.Remote.SFTPPort,
		SSHPort:     cfg.Remote.SSHPort,
		Username:    cfg.Remote.Username,
		Password:    cfg.Remote.Password,
		UploadDir:   cfg.Remote.UploadDir,
		CommandDir:  cfg.Remote.CommandDir,
		PostCommand: cfg.Remote.PostCommand,
		KnownHosts:  cfg.Remote.KnownHosts,
		Timeout:     time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
	}
}

// CommandOutput is what a remote command wrote.
type CommandOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RemotePath returns where a local file lands on the remote host.
func (c Config) RemotePath(local string) string {
	return path.Join(c.UploadDir, baseName(local))
}

// Command returns the shell line run after an upload. The login profile is
// sourced so the remote script sees the user's normal environment.
func (c Config) Command() string {
	cmd := strings.TrimSpace(c.PostCommand)
	if cmd == "" {
		return ""
	}
	parts := []string{"source ~/.bashrc"}
	if dir := strings.TrimSpace(c.CommandDir); dir != "" {
		parts = append(parts, "cd "+shellQuote(dir))
	}
	parts = append(parts, cmd)
	return strings.Join(parts, "; ")
}

// Client dials SFTP and SSH sessions on demand.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dial   func(ctx context.Context, network, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error)
}

// New constructs a Client.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "remote"),
		dial:   dialContext,
	}
}

// Upload copies local to remotePath over a single SFTP session.
func (c *Client) Upload(ctx context.Context, local, remotePath string) error {
	conn, err := c.connect(ctx, c.cfg.SFTPPort)
	if err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("start sftp session: %w", err)
	}
	defer client.Close()

	src, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("open %s: %w", local, err)
	}
	defer src.Close()

	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote %s: %w", remotePath, err)
	}
	written, err := dst.ReadFrom(src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write remote %s: %w", remotePath, err)
	}
	c.logger.Info("upload complete",
		logging.String("remote_path", remotePath),
		logging.Int64("bytes", written),
	)
	return nil
}

// Run executes command in one SSH session and returns what it printed. A
// non-zero exit status is returned as an error alongside the output.
func (c *Client) Run(ctx context.Context, command string) (CommandOutput, error) {
	conn, err := c.connect(ctx, c.cfg.SSHPort)
	if err != nil {
		return CommandOutput{}, err
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		return CommandOutput{}, fmt.Errorf("open ssh session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	var runErr error
	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		_ = conn.Close()
		runErr = ctx.Err()
	case runErr = <-done:
	}

	out := CommandOutput{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *ssh.ExitError
	if errors.As(runErr, &exitErr) {
		out.ExitCode = exitErr.ExitStatus()
	}
	if runErr != nil {
		return out, fmt.Errorf("run remote command: %w", runErr)
	}
	return out, nil
}

func (c *Client) connect(ctx context.Context, port int) (*ssh.Client, error) {
	hostKeys, err := c.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientCfg := &ssh.ClientConfig{
		User:            c.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(c.cfg.Password)},
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(port))
	conn, err := c.dial(ctx, "tcp", addr, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return conn, nil
}

func (c *Client) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if file := strings.TrimSpace(c.cfg.KnownHosts); file != "" {
		callback, err := knownhosts.New(file)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts %s: %w", file, err)
		}
		return callback, nil
	}
	logging.WarnWithContext(c.logger, "host key verification disabled", "host_key_unverified",
		logging.String(logging.FieldErrorHint, "set remote.known_hosts to pin the host key"),
		logging.String(logging.FieldImpact, "remote host identity is not checked"),
	)
	return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec
}

func dialContext(ctx context.Context, network, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: cfg.Timeout}
	netConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = netConn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		_ = netConn.Close()
		return nil, err
	}
	_ = netConn.SetDeadline(time.Time{})
	return ssh.NewClient(sshConn, chans, reqs), nil
}

func baseName(local string) string {
	local = strings.ReplaceAll(local, "\\", "/")
	return path.Base(local)
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	if strings.IndexFunc(value, func(r rune) bool {
		return !(r == '/' || r == '.' || r == '_' || r == '-' || r == '~' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

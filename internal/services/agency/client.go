package agency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/jlaffaye/ftp"
)

const (
	defaultPort     = 21
	defaultTimeout  = 30 * time.Second
	defaultPoolSize = 2
)

// Failure kinds reported by the transfer endpoint. Timeout and ConnectionLost
// are worth retrying on a fresh session; AuthFailed and Rejected will fail the
// same way every time.
const (
	KindAuthFailed     = "auth_failed"
	KindRejected       = "rejected"
	KindTimeout        = "timeout"
	KindConnectionLost = "connection_lost"
)

// Error describes a failed agency interaction with enough detail for the
// pipeline to decide between retrying and parking the record.
type Error struct {
	Kind    string
	Code    int // FTP reply code when the server sent one
	Message string

	cause error
}

func (e *Error) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("agency %s: ftp %d: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("agency %s: %s", e.Kind, e.Message)
}

// ErrorKind implements the failure classification contract used by the catalog.
func (e *Error) ErrorKind() string { return e.Kind }

// Retryable reports whether another attempt could plausibly succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindConnectionLost
}

func (e *Error) Unwrap() error { return e.cause }

// Session is the subset of FTP connection behaviour the client depends on.
// *ftp.ServerConn satisfies it.
type Session interface {
	NoOp() error
	Stor(path string, r io.Reader) error
	Quit() error
}

// DialFunc establishes an authenticated session. The default implementation
// dials the configured server and logs in; tests substitute fakes.
type DialFunc func(ctx context.Context) (Session, error)

// Config holds connection settings for the agency FTP endpoint.
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	RemoteDir      string
	TimeoutSeconds int
	// PoolSize bounds the idle sessions kept for reuse. It should match the
	// delivery worker count so uploads never queue on each other's sessions.
	PoolSize int
}

// Option customizes the agency client.
type Option func(*Client)

// WithDialer overrides session establishment (primarily for tests).
func WithDialer(dial DialFunc) Option {
	return func(c *Client) {
		if dial != nil {
			c.dial = dial
		}
	}
}

// Client uploads staged files to a stock agency over FTP. Sessions are pooled
// and reused across uploads; a NoOp probe on checkout weeds out sessions the
// server has dropped since the last transfer, and dead sessions are replaced
// by a fresh dial.
type Client struct {
	addr      string
	username  string
	password  string
	remoteDir string
	timeout   time.Duration
	dial      DialFunc
	pool      chan Session
}

// NewClient constructs an agency client from configuration.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("agency host required")
	}
	port := cfg.Port
	if port <= 0 {
		port = defaultPort
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = defaultPoolSize
	}
	client := &Client{
		addr:      net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		username:  strings.TrimSpace(cfg.Username),
		password:  cfg.Password,
		remoteDir: strings.Trim(strings.TrimSpace(cfg.RemoteDir), "/"),
		timeout:   timeout,
		pool:      make(chan Session, size),
	}
	client.dial = client.dialServer
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Upload streams the staged file to the agency under remoteName. The session
// used is returned to the pool on success and discarded on failure so a
// poisoned connection never serves the next upload.
func (c *Client) Upload(ctx context.Context, localPath, remoteName string) error {
	remoteName = strings.TrimSpace(remoteName)
	if remoteName == "" {
		return &Error{Kind: KindRejected, Message: "remote name required"}
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open staged file: %w", err)
	}
	defer file.Close()

	sess, err := c.checkout(ctx)
	if err != nil {
		return err
	}

	err = storWithContext(ctx, sess, c.remotePath(remoteName), file)
	switch {
	case err == nil:
		c.checkin(sess)
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "upload " + remoteName + " timed out", cause: err}
	default:
		_ = sess.Quit()
		return classify("upload "+remoteName, err)
	}
}

// HealthCheck verifies the server accepts a dial and login.
func (c *Client) HealthCheck(ctx context.Context) error {
	sess, err := c.checkout(ctx)
	if err != nil {
		return err
	}
	c.checkin(sess)
	return nil
}

// Close drains the pool and quits every idle session.
func (c *Client) Close() {
	for {
		select {
		case sess := <-c.pool:
			_ = sess.Quit()
		default:
			return
		}
	}
}

func (c *Client) remotePath(name string) string {
	if c.remoteDir == "" {
		return name
	}
	return path.Join(c.remoteDir, name)
}

// checkout hands back a live pooled session, quitting any that fail the NoOp
// probe, and dials fresh once the pool is empty.
func (c *Client) checkout(ctx context.Context) (Session, error) {
	for {
		select {
		case sess := <-c.pool:
			if sess.NoOp() == nil {
				return sess, nil
			}
			_ = sess.Quit()
		default:
			return c.dial(ctx)
		}
	}
}

func (c *Client) checkin(sess Session) {
	select {
	case c.pool <- sess:
	default:
		_ = sess.Quit()
	}
}

func (c *Client) dialServer(ctx context.Context) (Session, error) {
	type result struct {
		sess Session
		err  error
	}
	results := make(chan result, 1)
	go func() {
		conn, err := ftp.Dial(c.addr, ftp.DialWithTimeout(c.timeout))
		if err != nil {
			results <- result{err: fmt.Errorf("dial %s: %w", c.addr, err)}
			return
		}
		if err := conn.Login(c.username, c.password); err != nil {
			_ = conn.Quit()
			results <- result{err: fmt.Errorf("login as %s: %w", c.username, err)}
			return
		}
		results <- result{sess: conn}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if res := <-results; res.sess != nil {
				_ = res.sess.Quit()
			}
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &Error{Kind: KindTimeout, Message: "connect to " + c.addr + " timed out", cause: ctx.Err()}
		}
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			return nil, classify("connect", res.err)
		}
		return res.sess, nil
	}
}

// storWithContext runs the blocking transfer in a goroutine so a done context
// unblocks the caller. The abandoned transfer fails on its own once Upload
// closes the local file, and the goroutine retires the session afterwards.
func storWithContext(ctx context.Context, sess Session, remotePath string, r io.Reader) error {
	done := make(chan error, 1)
	go func() { done <- sess.Stor(remotePath, r) }()
	select {
	case <-ctx.Done():
		go func() {
			<-done
			_ = sess.Quit()
		}()
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// classify maps FTP reply codes and transport errors onto failure kinds.
//
// Reply codes follow the agency contract: 530 is a login rejection, 550/552/553
// reject the file itself (permissions, quota, name), and 421/425/426 mean the
// session or data connection died. Unrecognized 5xx replies count as
// rejections; everything else network-shaped counts as a lost connection.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var proto *textproto.Error
	if errors.As(err, &proto) {
		detail := fmt.Sprintf("%s: %s", op, strings.TrimSpace(proto.Msg))
		switch proto.Code {
		case 530:
			return &Error{Kind: KindAuthFailed, Code: proto.Code, Message: detail, cause: err}
		case 550, 552, 553:
			return &Error{Kind: KindRejected, Code: proto.Code, Message: detail, cause: err}
		case 421, 425, 426:
			return &Error{Kind: KindConnectionLost, Code: proto.Code, Message: detail, cause: err}
		}
		if proto.Code >= 500 {
			return &Error{Kind: KindRejected, Code: proto.Code, Message: detail, cause: err}
		}
		return &Error{Kind: KindConnectionLost, Code: proto.Code, Message: detail, cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: op + ": " + err.Error(), cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: op + ": " + err.Error(), cause: err}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, net.ErrClosed) {
		return &Error{Kind: KindConnectionLost, Message: op + ": " + err.Error(), cause: err}
	}
	return &Error{Kind: KindConnectionLost, Message: op + ": " + err.Error(), cause: err}
}

package exiftool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"darkroom/internal/fileutil"
)

// successMarker is printed by exiftool after a confirmed tag write. The embed
// only counts when this line shows up; a zero exit code alone is not enough
// because exiftool exits 0 after "0 image files updated".
const successMarker = "1 image files updated"

// Failure kinds reported by the embedder. Every kind is permanent: rerunning
// the same binary against the same file and tag set fails the same way.
const (
	KindToolUnavailable   = "tool_unavailable"
	KindUnsupportedFormat = "unsupported_format"
	KindWriteFailed       = "write_failed"
)

// Error describes a failed embed invocation.
type Error struct {
	Kind    string
	Message string

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("exiftool %s: %s", e.Kind, e.Message)
}

// ErrorKind implements the failure classification contract used by the catalog.
func (e *Error) ErrorKind() string { return e.Kind }

// Retryable reports whether another attempt could plausibly succeed. It never
// can here; nothing about the file or the tag set changes between attempts.
func (e *Error) Retryable() bool { return false }

func (e *Error) Unwrap() error { return e.cause }

// Metadata is the tag payload written into an image file.
type Metadata struct {
	Title       string
	Description string
	Keywords    []string
	Category    string
}

// Executor abstracts command execution for testability. Run returns the
// combined stdout/stderr output.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps exiftool CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs an exiftool client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("exiftool binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Embed writes meta into the file at path without ever exposing a partially
// written original: tags go into a temp copy in the same directory and the
// copy replaces the original only after exiftool confirms the write. On any
// failure the copy is removed and the original stays byte-identical.
func (c *Client) Embed(ctx context.Context, path string, meta Metadata) error {
	if strings.TrimSpace(path) == "" {
		return &Error{Kind: KindWriteFailed, Message: "image path required"}
	}

	tempPath, err := stageCopy(path)
	if err != nil {
		return &Error{Kind: KindWriteFailed, Message: "stage working copy", cause: err}
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := append([]string{"-overwrite_original"}, tagArgs(meta)...)
	args = append(args, tempPath)

	output, err := c.exec.Run(runCtx, c.binary, args)
	if err != nil {
		_ = os.Remove(tempPath)
		return classifyRunError(err, output)
	}
	if !strings.Contains(output, successMarker) {
		_ = os.Remove(tempPath)
		return &Error{Kind: KindWriteFailed, Message: "exiftool did not confirm the write: " + condense(output)}
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return &Error{Kind: KindWriteFailed, Message: "replace original", cause: err}
	}
	return nil
}

// HealthCheck verifies the binary can be invoked at all.
func (c *Client) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.exec.Run(checkCtx, c.binary, []string{"-ver"}); err != nil {
		return classifyRunError(err, "")
	}
	return nil
}

// tagArgs expands meta into the full tag set: baseline tags plus the IPTC and
// XMP mirrors stock agencies read. List-valued tags repeat per keyword.
func tagArgs(meta Metadata) []string {
	args := []string{
		"-Title=" + meta.Title,
		"-Description=" + meta.Description,
	}
	for _, keyword := range meta.Keywords {
		args = append(args, "-Keywords="+keyword)
	}
	args = append(args,
		"-Category="+meta.Category,
		"-IPTC:Caption-Abstract="+meta.Description,
	)
	for _, keyword := range meta.Keywords {
		args = append(args, "-IPTC:Keywords="+keyword)
	}
	args = append(args,
		"-XMP:Title="+meta.Title,
		"-XMP:Description="+meta.Description,
	)
	for _, keyword := range meta.Keywords {
		args = append(args, "-XMP:Subject="+keyword)
	}
	return args
}

func classifyRunError(err error, output string) *Error {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return &Error{Kind: KindToolUnavailable, Message: "exiftool binary not found", cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindWriteFailed, Message: "exiftool run exceeded its deadline", cause: err}
	}
	if isUnsupportedFormat(output) {
		return &Error{Kind: KindUnsupportedFormat, Message: condense(output), cause: err}
	}
	detail := condense(output)
	if detail == "" {
		detail = err.Error()
	}
	return &Error{Kind: KindWriteFailed, Message: detail, cause: err}
}

func isUnsupportedFormat(output string) bool {
	lower := strings.ToLower(output)
	for _, marker := range []string{
		"not yet supported",
		"format error in file",
		"file format error",
		"unknown file type",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// stageCopy duplicates path into a hidden temp file beside it so the final
// rename stays on one filesystem. The copy is verified by size and checksum
// before exiftool ever touches it.
func stageCopy(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(path), ".darkroom-embed-*")
	if err != nil {
		return "", fmt.Errorf("create working copy: %w", err)
	}
	tempPath := temp.Name()
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("close working copy: %w", err)
	}

	if err := fileutil.CopyVerified(path, tempPath); err != nil {
		_ = os.Remove(tempPath)
		return "", err
	}
	if err := os.Chmod(tempPath, info.Mode().Perm()); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("set working copy mode: %w", err)
	}
	return tempPath, nil
}

// condense flattens multi-line tool output into a single trimmed message.
func condense(output string) string {
	fields := strings.Fields(output)
	joined := strings.Join(fields, " ")
	if len(joined) > 300 {
		joined = joined[:300]
	}
	return joined
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return combined.String(), err
}

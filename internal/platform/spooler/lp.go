// Package spooler shells out to the CUPS command-line tools. The spooler
// itself is treated as an opaque service: stdout is captured verbatim and
// handed back to the caller.
package spooler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"printerbot-backend/internal/common/logger"
)

// completedHead bounds the completed-jobs listing the same way the
// classic `lpstat -W completed | head` invocation does.
const completedHead = 10

type Client struct {
	timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{timeout: timeout}
}

// Status returns the printer state as reported by `lpstat -p`.
func (c *Client) Status(ctx context.Context) (string, error) {
	return c.capture(ctx, "lpstat", "-p")
}

// Queue returns the current print queue as reported by `lpq`.
func (c *Client) Queue(ctx context.Context) (string, error) {
	return c.capture(ctx, "lpq")
}

// Pending returns the not-yet-completed jobs. Empty output means the
// queue is empty.
func (c *Client) Pending(ctx context.Context) (string, error) {
	return c.capture(ctx, "lpstat", "-W", "not-completed")
}

// Completed returns the most recent completed jobs, truncated to the
// first lines like `lpstat -W completed | head`.
func (c *Client) Completed(ctx context.Context) (string, error) {
	out, err := c.capture(ctx, "lpstat", "-W", "completed")
	if err != nil {
		return "", err
	}
	return headLines(out, completedHead), nil
}

// Cancel removes a job from the queue. The job id must already be
// validated by the caller, it is passed to the subprocess verbatim.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	return c.run(ctx, "cancel", jobID)
}

// Submit sends a file to the default printer via `lpr`.
func (c *Client) Submit(ctx context.Context, path string) error {
	return c.run(ctx, "lpr", path)
}

// capture runs a status-style command and returns its stdout. A nonzero
// exit with output is not an error: lpstat reports some conditions that
// way and the text is still what the user wants to see.
func (c *Client) capture(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout

	err := cmd.Run()
	out := stdout.String()

	logger.Debug().Str("command", name).Strs("args", args).Msg("Spooler query executed")

	if err != nil && out == "" {
		return "", fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// run executes a command where only the exit status matters.
func (c *Client) run(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)

	logger.Info().Str("command", name).Strs("args", args).Msg("Executing spooler command")

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func headLines(s string, n int) string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "")
}

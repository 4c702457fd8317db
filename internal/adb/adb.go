// Package adb wraps the adb command-line tool as the single command channel
// to the target Android device. Every device interaction in androprof goes
// through a Client bound to one device.
package adb

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mozperf/androprof/internal/execx"
)

// CommandError reports a device command that ran but exited non-zero.
type CommandError struct {
	Args   []string
	Result execx.Result
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("adb %s exited with status %d", strings.Join(e.Args, " "), e.Result.ExitCode)
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Client issues adb commands against a single device.
type Client struct {
	path   string
	serial string
	runner execx.Runner
	logger zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRunner replaces the process runner. Used by tests.
func WithRunner(r execx.Runner) Option {
	return func(c *Client) { c.runner = r }
}

// NewClient creates a client bound to the adb binary at path. serial may be
// empty when the sole attached device should be addressed implicitly.
func NewClient(path, serial string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		path:   path,
		serial: serial,
		runner: execx.New(),
		logger: logger.With().Str("component", "adb").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Serial returns the device serial the client is bound to, if any.
func (c *Client) Serial() string {
	return c.serial
}

func (c *Client) deviceArgs(args ...string) []string {
	if c.serial == "" {
		return args
	}
	return append([]string{"-s", c.serial}, args...)
}

// Run executes an adb subcommand and waits for it. A non-zero exit is
// returned as a *CommandError alongside the captured result; callers decide
// whether that is routine (debug log) or fatal.
func (c *Client) Run(ctx context.Context, args ...string) (execx.Result, error) {
	full := c.deviceArgs(args...)
	c.logger.Debug().Strs("args", full).Msg("running adb command")

	res, err := c.runner.Run(ctx, c.path, full...)
	if err != nil {
		return res, fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	if res.ExitCode != 0 {
		return res, &CommandError{Args: args, Result: res}
	}
	return res, nil
}

// Shell executes a command in the device shell.
func (c *Client) Shell(ctx context.Context, args ...string) (execx.Result, error) {
	return c.Run(ctx, append([]string{"shell"}, args...)...)
}

// ShellStart launches a device shell command in the background and returns
// its join handle without waiting.
func (c *Client) ShellStart(ctx context.Context, args ...string) (execx.Handle, error) {
	full := c.deviceArgs(append([]string{"shell"}, args...)...)
	c.logger.Debug().Strs("args", full).Msg("starting background adb command")

	handle, err := c.runner.Start(ctx, c.path, full...)
	if err != nil {
		return nil, fmt.Errorf("adb shell %s: %w", strings.Join(args, " "), err)
	}
	return handle, nil
}

// Push copies a local file to the device.
func (c *Client) Push(ctx context.Context, local, remote string) error {
	if _, err := c.Run(ctx, "push", local, remote); err != nil {
		return fmt.Errorf("push %s to %s: %w", local, remote, err)
	}
	return nil
}

// Pull copies a file from the device to a local path.
func (c *Client) Pull(ctx context.Context, remote, local string) error {
	if _, err := c.Run(ctx, "pull", remote, local); err != nil {
		return fmt.Errorf("pull %s to %s: %w", remote, local, err)
	}
	return nil
}

// ReadContent reads a content-provider URI on the device and writes the
// returned byte stream verbatim to w.
func (c *Client) ReadContent(ctx context.Context, uri string, w io.Writer) error {
	res, err := c.Shell(ctx, "content", "read", "--uri", uri)
	if err != nil {
		return fmt.Errorf("content read %s: %w", uri, err)
	}
	if _, err := io.WriteString(w, res.Stdout); err != nil {
		return fmt.Errorf("writing content of %s: %w", uri, err)
	}
	return nil
}

// Devices enumerates attached device serials using `adb devices`. Only
// devices in the "device" state are returned; unauthorized or offline
// entries are skipped.
func Devices(ctx context.Context, runner execx.Runner, path string) ([]string, error) {
	res, err := runner.Run(ctx, path, "devices")
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, &CommandError{Args: []string{"devices"}, Result: res}
	}

	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	if len(lines) > 0 {
		lines = lines[1:] // "List of devices attached" header
	}

	var serials []string
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != "device" {
			continue
		}
		serials = append(serials, fields[0])
	}
	return serials, nil
}

// Package execx runs external processes and captures their outcome. It is
// the single seam between androprof and the binaries it orchestrates (adb,
// samply, the merge tool); tests substitute a recording fake for the Runner.
package execx

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Result holds the outcome of a completed command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Handle is the only surface of a backgrounded command: it joins the
// process exactly once.
type Handle interface {
	Wait() error
}

// Runner executes local processes.
type Runner interface {
	// Run executes the command and blocks until it exits. A non-zero exit
	// status is reported through Result.ExitCode, not the error.
	Run(ctx context.Context, name string, args ...string) (Result, error)
	// Start launches the command without waiting and returns a join handle.
	Start(ctx context.Context, name string, args ...string) (Handle, error)
	// RunInteractive executes the command wired to the caller's terminal,
	// with extra environment variables appended.
	RunInteractive(ctx context.Context, env []string, name string, args ...string) error
}

type execRunner struct{}

// New returns the default Runner backed by os/exec.
func New() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		// The process ran to completion with a non-zero status; that is a
		// Result, not a spawn error.
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, err
	}
	return res, nil
}

func (execRunner) Start(ctx context.Context, name string, args ...string) (Handle, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	// Output is discarded: background captures write to on-device files,
	// and their stdout is noise.
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &processHandle{cmd: cmd}, nil
}

func (execRunner) RunInteractive(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(cmd.Environ(), env...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// processHandle joins a backgrounded os/exec command.
type processHandle struct {
	cmd *exec.Cmd
}

func (h *processHandle) Wait() error {
	return h.cmd.Wait()
}

package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/mozperf/androprof/internal/execx"
)

// FakeRunner is a scripted execx.Runner that records every invocation.
// Respond, when set, decides the result per command; the default is a
// successful empty result.
type FakeRunner struct {
	mu sync.Mutex

	// Calls records each Run invocation as "name arg arg...".
	Calls []string
	// Started records each Start invocation the same way.
	Started []string
	// Interactive records each RunInteractive invocation.
	Interactive []string

	// Respond decides the outcome of a Run call.
	Respond func(name string, args []string) (execx.Result, error)
	// StartErr, when set, makes Start fail.
	StartErr error
	// WaitErr is returned by the handles Start hands out.
	WaitErr error

	// Handles are the join handles Start returned, in order.
	Handles []*FakeHandle
}

func (r *FakeRunner) Run(ctx context.Context, name string, args ...string) (execx.Result, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, commandLine(name, args))
	respond := r.Respond
	r.mu.Unlock()

	if respond != nil {
		return respond(name, args)
	}
	return execx.Result{}, nil
}

func (r *FakeRunner) Start(ctx context.Context, name string, args ...string) (execx.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Started = append(r.Started, commandLine(name, args))
	if r.StartErr != nil {
		return nil, r.StartErr
	}
	h := &FakeHandle{err: r.WaitErr}
	r.Handles = append(r.Handles, h)
	return h, nil
}

func (r *FakeRunner) RunInteractive(ctx context.Context, env []string, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Interactive = append(r.Interactive, commandLine(name, args))
	return nil
}

// CallsMatching returns the recorded Run invocations containing substr.
func (r *FakeRunner) CallsMatching(substr string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, c := range r.Calls {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

// FakeHandle is a join handle for a command started by FakeRunner.
type FakeHandle struct {
	mu     sync.Mutex
	err    error
	Waited int
}

func (h *FakeHandle) Wait() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Waited++
	return h.err
}

func commandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

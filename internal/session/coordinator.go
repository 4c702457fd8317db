package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mozperf/androprof/internal/adb"
	"github.com/mozperf/androprof/internal/artifact"
	"github.com/mozperf/androprof/internal/config"
	"github.com/mozperf/androprof/internal/gecko"
	"github.com/mozperf/androprof/internal/sampler"
)

// Paths are the local destinations for the session's artifacts.
type Paths struct {
	// SamplerProfile is where the converted intermediate profile goes.
	SamplerProfile string
	// GeckoCapture is where the in-app tracer capture goes.
	GeckoCapture string
	// MergedOutput is where the final combined profile goes.
	MergedOutput string
}

// BackgroundCapture is the coordinator's exclusive handle to the running
// sampler process, from spawn until the join in collect. It can only be
// joined; no other surface is exposed.
type BackgroundCapture interface {
	Wait() error
}

type sleepFunc func(ctx context.Context, d time.Duration)

func defaultSleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Coordinator owns the session timeline from arming the tracer through
// producing the final profile. It holds the only reference to the background
// sampler between spawn and join.
type Coordinator struct {
	cfg    *config.Session
	device *adb.Client
	proc   *artifact.Processor
	paths  Paths
	logger zerolog.Logger
	sleep  sleepFunc
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithSleep replaces the pacing sleeps. Used by tests.
func WithSleep(fn func(ctx context.Context, d time.Duration)) Option {
	return func(c *Coordinator) { c.sleep = fn }
}

// NewCoordinator creates a coordinator for one validated session.
func NewCoordinator(cfg *config.Session, device *adb.Client, proc *artifact.Processor, paths Paths, logger zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		device: device,
		proc:   proc,
		paths:  paths,
		logger: logger.With().Str("component", "session").Logger(),
		sleep:  defaultSleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run drives the state machine from Validated to a terminal state. Any
// error leaves st in StateFailed with every device mutation still recorded,
// so Cleanup can reverse them; the caller must invoke Cleanup regardless of
// the returned error.
func (c *Coordinator) Run(ctx context.Context, st *SessionState) error {
	if st.State != StateValidated {
		return fmt.Errorf("session in state %q, expected %q", st.State, StateValidated)
	}

	if err := c.run(ctx, st); err != nil {
		st.State = StateFailed
		return err
	}
	st.State = StateSucceeded
	return nil
}

func (c *Coordinator) run(ctx context.Context, st *SessionState) error {
	// The unmeasured warmup happens before any device mutation is recorded;
	// it only exercises the app, it does not arm anything.
	if c.cfg.WarmupFirst {
		c.logger.Info().Msg("Warming up app and OS caches...")
		c.killRelevantProcesses(ctx)
		if err := c.runWarmupScenario(ctx); err != nil {
			return err
		}
	}

	if err := c.arm(ctx, st); err != nil {
		return err
	}

	capture, err := c.record(ctx, st)
	if err != nil {
		return err
	}

	if err := c.trigger(ctx, st); err != nil {
		return err
	}

	c.stopTracer(ctx, st)

	if err := c.collect(ctx, st, capture); err != nil {
		return err
	}

	return c.process(ctx, st)
}

// arm pushes the tracer config and sets the debug-app flag, recording each
// mutation in st as it happens so a failure between the two still leaves the
// first one reversible.
func (c *Coordinator) arm(ctx context.Context, st *SessionState) error {
	c.logger.Info().Msg("Setting up gecko profiling...")

	remotePath, err := gecko.PushConfig(ctx, c.device, c.cfg.PackageName, st.ScratchDir)
	if remotePath != "" {
		st.PushedConfigPath = remotePath
	}
	if err != nil {
		return err
	}

	if err := gecko.SetDebugApp(ctx, c.device, c.cfg.PackageName); err != nil {
		return err
	}
	st.DebugAppSet = true

	st.State = StateArmed
	return nil
}

// record kills residual browser processes, spawns the background sampler,
// and waits out the attach grace delay. The returned handle is the only
// reference to the running capture.
func (c *Coordinator) record(ctx context.Context, st *SessionState) (capture BackgroundCapture, err error) {
	c.killRelevantProcesses(ctx)

	opts := c.samplerOptions()
	c.logger.Info().
		Bool("java_stacks", opts.JavaStacks).
		Msg("Starting simpleperf recording...")

	capture, err = sampler.Start(ctx, c.device, opts)
	if err != nil {
		return nil, err
	}

	// Let simpleperf attach before the workload starts; its own startup
	// latency would otherwise eat the head of the capture.
	c.sleep(ctx, opts.GraceDelay())

	st.State = StateRecording
	return capture, nil
}

func (c *Coordinator) samplerOptions() sampler.Options {
	return sampler.Options{
		DurationSeconds: c.cfg.DurationSeconds,
		FrequencyHz:     c.cfg.FrequencyHz,
		JavaStacks:      c.cfg.Unwind == config.UnwindJavaStacks,
	}
}

// trigger runs the one configured measured scenario. The scenario owns the
// pacing: it does not return before the sampler window has elapsed.
func (c *Coordinator) trigger(ctx context.Context, st *SessionState) error {
	var err error
	switch c.cfg.Scenario {
	case config.ScenarioWarmup:
		if err = c.runWarmupScenario(ctx); err == nil {
			c.sleep(ctx, warmupSettleDelay)
			err = ctx.Err()
		}
	default:
		err = c.runStartupScenario(ctx)
	}
	if err != nil {
		return err
	}

	st.State = StateTriggered
	return nil
}

// stopTracer asks the in-app profiler to stop and hand over its buffer. A
// failure here is a warning, not a fatal error: the sampler capture alone
// still has diagnostic value.
func (c *Coordinator) stopTracer(ctx context.Context, st *SessionState) {
	c.logger.Info().Msg("Capturing gecko profile...")

	if err := gecko.Capture(ctx, c.device, c.cfg.PackageName, c.paths.GeckoCapture); err != nil {
		c.logger.Warn().Err(err).Msg("failed to stop profiler via content provider, continuing without app markers")
	} else {
		st.AppCapture = c.paths.GeckoCapture
	}

	st.State = StateStopping
}

// collect joins the background sampler, then pulls the capture and any
// auxiliary artifact files. The join is the session's sole synchronization
// barrier: nothing after it may assume the sampler is live.
func (c *Coordinator) collect(ctx context.Context, st *SessionState, capture BackgroundCapture) error {
	c.logger.Info().Msg("Waiting for simpleperf recording to complete...")
	if err := capture.Wait(); err != nil {
		c.logger.Warn().Err(err).Msg("simpleperf recording exited with an error")
	}

	localCapture := filepath.Join(st.ScratchDir, filepath.Base(sampler.RemoteCapturePath))
	if err := c.device.Pull(ctx, sampler.RemoteCapturePath, localCapture); err != nil {
		return fmt.Errorf("failed to collect sampler capture: %w", err)
	}
	st.SamplerCapture = localCapture

	c.collectAuxFiles(ctx, st)

	st.State = StateCollected
	return nil
}

// collectAuxFiles pulls JIT and marker logs from the app's data directory.
// These are optional; failures are logged, not fatal.
func (c *Coordinator) collectAuxFiles(ctx context.Context, st *SessionState) {
	find := fmt.Sprintf(`find %s \( -name 'jit-*' -or -name 'marker-*' \) -print0`, gecko.SpewDir(c.cfg.PackageName))
	res, err := c.device.Shell(ctx, find)
	if err != nil {
		c.logger.Debug().Err(err).Msg("no auxiliary artifact files found")
		return
	}

	for _, remote := range strings.Split(res.Stdout, "\x00") {
		remote = strings.TrimSpace(remote)
		if remote == "" {
			continue
		}
		local := filepath.Join(st.ScratchDir, filepath.Base(remote))
		if err := c.device.Pull(ctx, remote, local); err != nil {
			c.logger.Warn().Err(err).Str("file", remote).Msg("failed to pull auxiliary file")
		}
	}
}

// process converts the sampler capture and merges it with the app capture.
func (c *Coordinator) process(ctx context.Context, st *SessionState) error {
	c.logger.Info().Msg("Processing simpleperf data...")
	intermediate, err := c.proc.Convert(ctx, st.SamplerCapture, artifact.ConvertOptions{
		SymbolDirs:            c.cfg.SymbolDirs,
		BreakpadSymbolDirs:    c.cfg.BreakpadSymbolDirs,
		BreakpadSymbolServers: c.cfg.BreakpadSymbolServers,
	}, c.paths.SamplerProfile)
	if err != nil {
		return err
	}
	st.Intermediate = intermediate

	if st.AppCapture == "" {
		// Nothing to merge; the converted profile is the final output.
		c.logger.Warn().Msg("no app capture available, skipping merge")
		st.Output = intermediate
		return nil
	}

	c.logger.Info().Msg("Merging profiles...")
	output, err := c.proc.Merge(ctx, intermediate, st.AppCapture, c.paths.MergedOutput,
		c.cfg.PackageName, c.cfg.MergeMode == config.MergeStrict)
	if err != nil {
		return err
	}
	st.Output = output
	return nil
}

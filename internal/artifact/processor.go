// Package artifact turns the pulled captures into the final combined
// profile: samply converts the raw sampler capture into a symbolicated
// intermediate profile, and the external merge tool folds the Gecko capture
// into it.
package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mozperf/androprof/internal/execx"
)

// ViewerURL is the profiler frontend samply opens captures in.
const ViewerURL = "https://deploy-preview-5190--perf-html.netlify.app/"

// ConversionError reports a samply import failure. Conversion failures are
// fatal: without the intermediate profile there is nothing to merge or view.
type ConversionError struct {
	Result execx.Result
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("samply import exited with status %d", e.Result.ExitCode)
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// MergeError reports a merge-tool failure. Whether it fails the session
// depends on the configured merge mode.
type MergeError struct {
	Result execx.Result
}

func (e *MergeError) Error() string {
	msg := fmt.Sprintf("merge tool exited with status %d", e.Result.ExitCode)
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// ConvertOptions carries the symbol sources passed to samply import.
type ConvertOptions struct {
	SymbolDirs            []string
	BreakpadSymbolDirs    []string
	BreakpadSymbolServers []string
}

// Processor invokes the local conversion and merge tools.
type Processor struct {
	samply      string
	mergeScript string
	runner      execx.Runner
	logger      zerolog.Logger
}

// Option customizes a Processor.
type Option func(*Processor)

// WithRunner replaces the process runner. Used by tests.
func WithRunner(r execx.Runner) Option {
	return func(p *Processor) { p.runner = r }
}

// NewProcessor creates a processor using the samply binary and merge script
// from the session config.
func NewProcessor(samply, mergeScript string, logger zerolog.Logger, opts ...Option) *Processor {
	p := &Processor{
		samply:      samply,
		mergeScript: mergeScript,
		runner:      execx.New(),
		logger:      logger.With().Str("component", "artifact").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Convert runs samply import on the raw sampler capture, presymbolicating
// against the configured symbol sources, and writes the intermediate profile
// to outPath. A non-zero exit is a fatal *ConversionError.
func (p *Processor) Convert(ctx context.Context, rawPath string, opts ConvertOptions, outPath string) (string, error) {
	args := []string{"import", rawPath}
	for _, dir := range opts.SymbolDirs {
		args = append(args, "--symbol-dir", dir)
	}
	for _, server := range opts.BreakpadSymbolServers {
		args = append(args, "--breakpad-symbol-server", server)
	}
	for _, dir := range opts.BreakpadSymbolDirs {
		args = append(args, "--breakpad-symbol-dir", dir)
	}
	args = append(args, "--presymbolicate", "--save-only", "-o", outPath)

	p.logger.Debug().Strs("args", args).Msg("running samply import")
	res, err := p.runner.Run(ctx, p.samply, args...)
	if err != nil {
		return "", fmt.Errorf("failed to run samply import: %w", err)
	}
	if res.ExitCode != 0 {
		return "", &ConversionError{Result: res}
	}
	return outPath, nil
}

// Merge combines the converted sampler profile with the Gecko capture,
// keeping only processes whose name starts with processPrefix, and writes
// the result to outPath. When strict is false a merge failure degrades to
// returning samplesPath so the user still gets usable data.
func (p *Processor) Merge(ctx context.Context, samplesPath, markersPath, outPath, processPrefix string, strict bool) (string, error) {
	args := []string{
		p.mergeScript,
		"--samples-file", samplesPath,
		"--markers-file", markersPath,
		"--output-file", outPath,
		"--filter-by-process-prefix", processPrefix,
	}

	p.logger.Debug().Strs("args", args).Msg("running merge tool")
	res, err := p.runner.Run(ctx, "node", args...)

	var mergeErr error
	switch {
	case err != nil:
		mergeErr = fmt.Errorf("failed to run merge tool: %w", err)
	case res.ExitCode != 0:
		mergeErr = &MergeError{Result: res}
	default:
		return outPath, nil
	}

	if strict {
		return "", mergeErr
	}
	p.logger.Warn().Err(mergeErr).Msg("merge failed, falling back to the unmerged sampler profile")
	return samplesPath, nil
}

// OpenInViewer loads the profile in samply's interactive viewer. The viewer
// blocks until the user closes it; an interrupt while viewing is expected.
func (p *Processor) OpenInViewer(ctx context.Context, profilePath string) error {
	env := []string{"PROFILER_URL=" + ViewerURL}
	if err := p.runner.RunInteractive(ctx, env, p.samply, "load", profilePath); err != nil {
		return fmt.Errorf("failed to run samply load: %w", err)
	}
	return nil
}

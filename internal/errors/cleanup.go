// Package errors provides utilities for error handling in androprof.
package errors

import (
	"context"

	"github.com/rs/zerolog"
)

// Step is one independent reversal attempted during best-effort cleanup.
type Step struct {
	// Name identifies the step in logs and outcomes.
	Name string
	// Run performs the reversal.
	Run func(ctx context.Context) error
}

// Outcome records one attempted cleanup step and its result.
type Outcome struct {
	Name string
	Err  error
}

// RunBestEffort executes every step in order regardless of earlier failures.
// Failures are logged at warning level and collected; they are never
// propagated. The returned outcomes list exactly the steps that were
// attempted, so callers and tests can assert on what cleanup tried to do.
func RunBestEffort(ctx context.Context, logger zerolog.Logger, steps []Step) []Outcome {
	outcomes := make([]Outcome, 0, len(steps))
	for _, step := range steps {
		err := step.Run(ctx)
		if err != nil {
			logger.Warn().Err(err).Str("step", step.Name).Msg("cleanup step failed")
		} else {
			logger.Debug().Str("step", step.Name).Msg("cleanup step done")
		}
		outcomes = append(outcomes, Outcome{Name: step.Name, Err: err})
	}
	return outcomes
}

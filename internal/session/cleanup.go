package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mozperf/androprof/internal/adb"
	xerrors "github.com/mozperf/androprof/internal/errors"
)

// Cleanup reverses every device mutation recorded in st: the debug-app flag
// and the pushed tracer config. Each reversal is attempted independently;
// failures are logged at warning level and never propagated. Successful
// reversals reset their SessionState flag, so a second invocation attempts
// nothing. The returned outcomes list what was attempted, for tests.
func Cleanup(ctx context.Context, client *adb.Client, st *SessionState, logger zerolog.Logger) []xerrors.Outcome {
	logger = logger.With().Str("component", "cleanup").Logger()

	var steps []xerrors.Step
	if st.DebugAppSet {
		steps = append(steps, xerrors.Step{
			Name: "clear-debug-app",
			Run: func(ctx context.Context) error {
				if _, err := client.Shell(ctx, "am", "clear-debug-app"); err != nil {
					return err
				}
				st.DebugAppSet = false
				return nil
			},
		})
	}
	if st.PushedConfigPath != "" {
		path := st.PushedConfigPath
		steps = append(steps, xerrors.Step{
			Name: "remove-tracer-config",
			Run: func(ctx context.Context) error {
				if _, err := client.Shell(ctx, "rm", path); err != nil {
					return err
				}
				st.PushedConfigPath = ""
				return nil
			},
		})
	}

	return xerrors.RunBestEffort(ctx, logger, steps)
}

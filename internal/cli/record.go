package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mozperf/androprof/internal/artifact"
	"github.com/mozperf/androprof/internal/config"
	"github.com/mozperf/androprof/internal/execx"
	"github.com/mozperf/androprof/internal/logging"
	"github.com/mozperf/androprof/internal/session"
)

// cleanupTimeout bounds device cleanup after the session context is gone.
const cleanupTimeout = 30 * time.Second

func newRecordCmd() *cobra.Command {
	var (
		configPath    string
		device        string
		javaStacks    bool
		withWarmup    bool
		profileWarmup bool
		pkg           string
		url           string
		duration      int
		frequency     int
		outPath       string
		strictMerge   bool
		logLevel      string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Run one profiling session against the connected device",
		Long: `Run one profiling session: validate the environment, arm the in-app
profiler, record with simpleperf while driving the app through a startup
scenario, then convert and merge the captures.

Examples:
  # Record the startup scenario from config.yaml
  androprof record

  # DWARF unwinding for Java stacks, explicit device
  androprof record --java --device emulator-5554

  # Warm caches first, then measure, and keep the output file
  androprof record --with-warmup -o startup.json.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(logging.Config{
				Level:  logLevel,
				Pretty: term.IsTerminal(int(os.Stderr.Fd())),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			absConfig, err := filepath.Abs(configPath)
			if err != nil {
				return fmt.Errorf("failed to resolve config path: %w", err)
			}
			file, err := config.Load(absConfig)
			if err != nil {
				return err
			}

			cfg, err := config.Resolve(file, filepath.Dir(absConfig), config.Overrides{
				PackageName:     pkg,
				StartupURL:      url,
				DurationSeconds: duration,
				FrequencyHz:     frequency,
				JavaStacks:      javaStacks,
				StrictMerge:     strictMerge,
				ProfileWarmup:   profileWarmup,
				WithWarmup:      withWarmup,
			})
			if err != nil {
				return err
			}

			return runRecord(ctx, logger, cfg, filepath.Dir(absConfig), device, outPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	cmd.Flags().StringVar(&device, "device", "", "Device serial (required when multiple devices are connected)")
	cmd.Flags().BoolVar(&javaStacks, "java", false, "Use DWARF unwinding (gives you Java stacks) instead of frame-pointer unwinding (deeper stacks and JS JIT stacks)")
	cmd.Flags().BoolVar(&withWarmup, "with-warmup", false, "Clear app data and run a warmup before the measured run")
	cmd.Flags().BoolVar(&profileWarmup, "profile-warmup", false, "Measure the applink warmup run itself")

	// Config overrides.
	cmd.Flags().StringVar(&pkg, "package", "", "Override package name from config")
	cmd.Flags().StringVar(&url, "url", "", "Override startup URL from config")
	cmd.Flags().IntVar(&duration, "duration", 0, "Override profiling duration in seconds from config")
	cmd.Flags().IntVar(&frequency, "frequency", 0, "Override sampling frequency in Hz from config")

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path for the merged profile (if not specified, auto-loads the result in the profiler viewer)")
	cmd.Flags().BoolVar(&strictMerge, "strict-merge", false, "Fail the session when the merge tool fails instead of falling back to the unmerged profile")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func runRecord(ctx context.Context, logger zerolog.Logger, cfg *config.Session, baseDir, device, outPath string) error {
	logger.Info().
		Str("package", cfg.PackageName).
		Str("scenario", string(cfg.Scenario)).
		Msg("Starting Android profiling session...")

	outDir := filepath.Join(baseDir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	paths := session.Paths{
		SamplerProfile: filepath.Join(outDir, fmt.Sprintf("simpleperf-profile_%s.json.gz", timestamp)),
		GeckoCapture:   filepath.Join(outDir, fmt.Sprintf("gecko-profile_%s.json.gz", timestamp)),
	}

	// Without -o the profile lands in out/ and is auto-loaded in the viewer.
	openViewer := outPath == ""
	if openViewer {
		paths.MergedOutput = filepath.Join(outDir, fmt.Sprintf("merged-profile_%s.json.gz", timestamp))
	} else {
		abs, err := filepath.Abs(outPath)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		paths.MergedOutput = abs
	}

	scratchDir, err := os.MkdirTemp("", "androprof_")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratchDir)
	st := session.NewState(scratchDir)
	logger.Debug().Str("session", st.ID).Str("scratch_dir", scratchDir).Msg("session created")

	validator := &session.Validator{
		Samply:  cfg.SamplyBinary,
		ADBPath: "adb",
		Serial:  device,
		Runner:  execx.New(),
		Logger:  logger,
	}
	client, err := validator.Validate(ctx)
	if err != nil {
		// Validation failed before any device mutation; nothing to clean up.
		return err
	}
	st.State = session.StateValidated

	// Cleanup runs unconditionally, on a fresh context so an interrupted
	// session still gets its device state reversed.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		session.Cleanup(cleanupCtx, client, st, logger)
	}()

	proc := artifact.NewProcessor(cfg.SamplyBinary, cfg.MergeScript, logger)
	coordinator := session.NewCoordinator(cfg, client, proc, paths, logger)

	if err := coordinator.Run(ctx, st); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			logger.Info().Msg("Operation cancelled by user")
			return nil
		}
		return err
	}

	logger.Info().Msg("Profiling session completed successfully!")

	if openViewer {
		logger.Info().Msg("Auto-loading profile with samply...")
		if err := proc.OpenInViewer(ctx, st.Output); err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("Profile viewer closed")
				return nil
			}
			logger.Error().Err(err).Msg("failed to open profile viewer")
		}
		return nil
	}

	logger.Info().Str("path", st.Output).Msg("Merged profile saved")
	logger.Info().Msgf("To view the profile, run: samply load %q", st.Output)
	return nil
}

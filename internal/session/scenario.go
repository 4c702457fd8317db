package session

import (
	"context"
	"time"
)

// warmupBackgroundTabs are opened in order during the warmup scenario to
// bring OS and app caches into a realistic warmed state.
var warmupBackgroundTabs = []string{
	"https://www.google.com/search?q=toronto+weather",
	"https://en.m.wikipedia.org/wiki/Anemone_hepatica",
	"https://www.temu.com",
	"https://www.espn.com/nfl/game/_/gameId/401671793/chiefs-falcons",
}

// browserPackages are force-stopped before a measured run so residual
// browser processes do not skew the sampling.
var browserPackages = []string{
	"org.mozilla.firefox",
	"org.mozilla.fenix",
	"org.mozilla.fenix.debug",
	"org.chromium.chrome",
	"com.android.chrome",
}

// warmupMainActivity is the activity launched in performance-test mode
// during warmup.
const warmupMainActivity = "org.mozilla.fenix.App"

const notificationsPermission = "android.permission.POST_NOTIFICATIONS"

const (
	// killSettleDelay lets force-stopped processes die before proceeding.
	killSettleDelay = 2 * time.Second
	// clearSettleDelay lets `pm clear` finish tearing the app down.
	clearSettleDelay = 3 * time.Second
	// tabOpenDelay paces the warmup tab opens.
	tabOpenDelay = 3 * time.Second
	// warmupSettleDelay keeps the measured warmup run inside the sampler
	// window after the last tab opened.
	warmupSettleDelay = 10 * time.Second
)

// runRoutine issues a device command whose failure is routine: it is logged
// at debug level and otherwise ignored.
func (c *Coordinator) runRoutine(ctx context.Context, args ...string) {
	if _, err := c.device.Shell(ctx, args...); err != nil {
		c.logger.Debug().Err(err).Strs("args", args).Msg("device command failed")
	}
}

// killRelevantProcesses force-stops the target package, every known browser
// package, and their zygote variants, then waits for them to die.
func (c *Coordinator) killRelevantProcesses(ctx context.Context) {
	packages := []string{c.cfg.PackageName}
	packages = append(packages, browserPackages...)

	for _, pkg := range packages {
		c.runRoutine(ctx, "am", "force-stop", pkg)
		c.runRoutine(ctx, "am", "force-stop", pkg+"_zygote")
	}
	c.sleep(ctx, killSettleDelay)
}

// runWarmupScenario clears the app, launches it in performance-test mode,
// and opens the background tabs at a fixed pace.
func (c *Coordinator) runWarmupScenario(ctx context.Context) error {
	pkg := c.cfg.PackageName

	c.runRoutine(ctx, "am", "force-stop", pkg)
	// pm clear also kills any running processes.
	c.runRoutine(ctx, "pm", "clear", pkg)
	c.sleep(ctx, clearSettleDelay)
	c.runRoutine(ctx, "pm", "grant", pkg, notificationsPermission)
	c.runRoutine(ctx,
		"am", "start-activity", "-W",
		"-a", "android.intent.action.MAIN",
		"--ez", "performancetest", "true",
		"-n", pkg+"/"+warmupMainActivity,
	)

	for _, tab := range warmupBackgroundTabs {
		c.runRoutine(ctx,
			"am", "start-activity",
			"-d", tab,
			"-a", "android.intent.action.VIEW",
			pkg+"/"+c.cfg.ActivityName,
		)
		c.sleep(ctx, tabOpenDelay)
	}
	return ctx.Err()
}

// runStartupScenario launches the target activity with the configured URL
// and blocks for the full capture duration so the sampler window elapses
// before the session moves on.
func (c *Coordinator) runStartupScenario(ctx context.Context) error {
	pkg := c.cfg.PackageName

	c.runRoutine(ctx, "am", "force-stop", pkg)
	c.runRoutine(ctx, "pm", "grant", pkg, notificationsPermission)
	c.runRoutine(ctx,
		"am", "start-activity",
		"-d", c.cfg.StartupURL,
		"-a", "android.intent.action.VIEW",
		pkg+"/"+c.cfg.ActivityName,
	)

	c.logger.Info().
		Int("duration_s", c.cfg.DurationSeconds).
		Msg("App startup triggered. Waiting for profiling to complete...")
	c.sleep(ctx, time.Duration(c.cfg.DurationSeconds)*time.Second)
	return ctx.Err()
}

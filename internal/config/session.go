package config

import (
	"fmt"
	"strings"
)

// UnwindMode selects the sampler's call-graph strategy.
type UnwindMode string

const (
	// UnwindFramePointer uses frame-pointer unwinding: deeper stacks and
	// JS JIT frames, no Java stacks.
	UnwindFramePointer UnwindMode = "fp"
	// UnwindJavaStacks uses DWARF unwinding, which captures Java stacks.
	UnwindJavaStacks UnwindMode = "java"
)

// MergeMode decides how a merge-tool failure is treated.
type MergeMode string

const (
	// MergeLenient falls back to the unmerged converted profile.
	MergeLenient MergeMode = "lenient"
	// MergeStrict fails the session on merge errors.
	MergeStrict MergeMode = "strict"
)

// Scenario selects the measured run.
type Scenario string

const (
	// ScenarioStartup launches the target activity with the startup URL and
	// blocks for the capture duration.
	ScenarioStartup Scenario = "startup"
	// ScenarioWarmup measures the applink warmup run itself.
	ScenarioWarmup Scenario = "warmup"
)

// Default capture windows, in seconds. The warmup scenario opens several
// tabs and needs a much longer window than a single startup.
const (
	defaultStartupDuration = 6
	defaultWarmupDuration  = 26
	defaultFrequency       = 1000
)

// Activity names for the supported browsers. Chrome dispatches VIEW intents
// through its own activity.
const (
	fenixIntentActivity  = "org.mozilla.fenix.IntentReceiverActivity"
	chromeIntentActivity = "com.google.android.apps.chrome.IntentDispatcher"
)

// Session is the immutable, resolved configuration for one profiling
// session. It is constructed once by Resolve and never mutated afterwards.
type Session struct {
	PackageName  string
	StartupURL   string
	ActivityName string

	DurationSeconds int
	FrequencyHz     int
	Unwind          UnwindMode

	SamplyBinary string
	MergeScript  string

	SymbolDirs            []string
	BreakpadSymbolDirs    []string
	BreakpadSymbolServers []string

	MergeMode MergeMode

	Scenario    Scenario
	WarmupFirst bool
}

// Overrides carries the command-line overrides applied on top of the file.
// Zero values mean "not set".
type Overrides struct {
	PackageName     string
	StartupURL      string
	DurationSeconds int
	FrequencyHz     int
	JavaStacks      bool
	StrictMerge     bool
	ProfileWarmup   bool
	WithWarmup      bool
}

// Resolve merges the config file with command-line overrides (override
// wins), applies defaults, resolves every path-like field to an absolute
// path, and validates the result.
func Resolve(file *File, baseDir string, ov Overrides) (*Session, error) {
	p := file.Profiling

	s := &Session{
		PackageName: p.PackageName,
		StartupURL:  p.StartupURL,

		DurationSeconds: p.Duration,
		FrequencyHz:     p.Frequency,
		Unwind:          UnwindFramePointer,

		SamplyBinary: p.SamplyBinary,
		MergeScript:  p.MergeScript,

		SymbolDirs:            symbolSources(p.SymbolDirs, p.SymbolDir),
		BreakpadSymbolDirs:    symbolSources(p.BreakpadSymbolDirs, p.BreakpadSymbolDir),
		BreakpadSymbolServers: symbolSources(p.BreakpadSymbolServers, p.BreakpadSymbolServer),

		MergeMode: MergeLenient,
		Scenario:  ScenarioStartup,
	}

	if ov.PackageName != "" {
		s.PackageName = ov.PackageName
	}
	if ov.StartupURL != "" {
		s.StartupURL = ov.StartupURL
	}
	if ov.DurationSeconds != 0 {
		s.DurationSeconds = ov.DurationSeconds
	}
	if ov.FrequencyHz != 0 {
		s.FrequencyHz = ov.FrequencyHz
	}
	if ov.JavaStacks {
		s.Unwind = UnwindJavaStacks
	}
	if ov.ProfileWarmup {
		s.Scenario = ScenarioWarmup
	}
	s.WarmupFirst = ov.WithWarmup

	switch MergeMode(p.MergeMode) {
	case MergeStrict:
		s.MergeMode = MergeStrict
	case MergeLenient, "":
	default:
		return nil, fmt.Errorf("invalid merge_mode %q: must be %q or %q", p.MergeMode, MergeStrict, MergeLenient)
	}
	if ov.StrictMerge {
		s.MergeMode = MergeStrict
	}

	if s.DurationSeconds == 0 {
		if s.Scenario == ScenarioWarmup {
			s.DurationSeconds = defaultWarmupDuration
		} else {
			s.DurationSeconds = defaultStartupDuration
		}
	}
	if s.FrequencyHz == 0 {
		s.FrequencyHz = defaultFrequency
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	s.ActivityName = fenixIntentActivity
	if strings.Contains(s.PackageName, ".chrome") {
		s.ActivityName = chromeIntentActivity
	}

	s.SamplyBinary = expandBinaryPath(s.SamplyBinary)
	s.MergeScript = expandPath(s.MergeScript, baseDir)
	s.SymbolDirs = expandPaths(s.SymbolDirs, baseDir)
	s.BreakpadSymbolDirs = expandPaths(s.BreakpadSymbolDirs, baseDir)

	return s, nil
}

func (s *Session) validate() error {
	if s.PackageName == "" {
		return fmt.Errorf("package_name is required (config profiling.package_name or --package)")
	}
	if s.Scenario == ScenarioStartup && s.StartupURL == "" {
		return fmt.Errorf("startup_url is required (config profiling.startup_url or --url)")
	}
	if s.DurationSeconds <= 0 {
		return fmt.Errorf("duration must be a positive number of seconds, got %d", s.DurationSeconds)
	}
	if s.FrequencyHz <= 0 {
		return fmt.Errorf("frequency must be a positive number of Hz, got %d", s.FrequencyHz)
	}
	if s.SamplyBinary == "" {
		return fmt.Errorf("samply_binary is required (config profiling.samply_binary)")
	}
	if s.MergeScript == "" {
		return fmt.Errorf("merge_script is required (config profiling.merge_script)")
	}
	return nil
}

func expandPaths(paths []string, baseDir string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, expandPath(p, baseDir))
	}
	return out
}

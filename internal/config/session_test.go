package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func baseProfiling() Profiling {
	return Profiling{
		PackageName:  "org.mozilla.fenix",
		StartupURL:   "https://example.com",
		SamplyBinary: "samply",
		MergeScript:  "/opt/merge/dist/index.js",
	}
}

func TestResolve_Defaults(t *testing.T) {
	file := &File{Profiling: baseProfiling()}

	s, err := Resolve(file, "/base", Overrides{})
	require.NoError(t, err)

	assert.Equal(t, 6, s.DurationSeconds)
	assert.Equal(t, 1000, s.FrequencyHz)
	assert.Equal(t, UnwindFramePointer, s.Unwind)
	assert.Equal(t, MergeLenient, s.MergeMode)
	assert.Equal(t, ScenarioStartup, s.Scenario)
	assert.Equal(t, "org.mozilla.fenix.IntentReceiverActivity", s.ActivityName)
}

func TestResolve_WarmupDurationDefault(t *testing.T) {
	file := &File{Profiling: baseProfiling()}

	s, err := Resolve(file, "/base", Overrides{ProfileWarmup: true})
	require.NoError(t, err)

	assert.Equal(t, ScenarioWarmup, s.Scenario)
	assert.Equal(t, 26, s.DurationSeconds)
}

func TestResolve_OverridesWin(t *testing.T) {
	p := baseProfiling()
	p.Duration = 10
	p.Frequency = 500
	file := &File{Profiling: p}

	s, err := Resolve(file, "/base", Overrides{
		PackageName:     "com.android.chrome",
		StartupURL:      "https://override.example",
		DurationSeconds: 12,
		FrequencyHz:     2000,
		JavaStacks:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, "com.android.chrome", s.PackageName)
	assert.Equal(t, "https://override.example", s.StartupURL)
	assert.Equal(t, 12, s.DurationSeconds)
	assert.Equal(t, 2000, s.FrequencyHz)
	assert.Equal(t, UnwindJavaStacks, s.Unwind)
	assert.Equal(t, "com.google.android.apps.chrome.IntentDispatcher", s.ActivityName)
}

func TestResolve_LegacySymbolFields(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Profiling)
		check func(t *testing.T, s *Session)
	}{
		{
			name: "singular symbol_dir promotes to list",
			mut:  func(p *Profiling) { p.SymbolDir = StringList{"/syms"} },
			check: func(t *testing.T, s *Session) {
				assert.Equal(t, []string{"/syms"}, s.SymbolDirs)
			},
		},
		{
			name: "plural wins over singular",
			mut: func(p *Profiling) {
				p.SymbolDir = StringList{"/legacy"}
				p.SymbolDirs = StringList{"/a", "/b"}
			},
			check: func(t *testing.T, s *Session) {
				assert.Equal(t, []string{"/a", "/b"}, s.SymbolDirs)
			},
		},
		{
			name: "singular breakpad_symbol_dir promotes to list",
			mut:  func(p *Profiling) { p.BreakpadSymbolDir = StringList{"/bp"} },
			check: func(t *testing.T, s *Session) {
				assert.Equal(t, []string{"/bp"}, s.BreakpadSymbolDirs)
			},
		},
		{
			name: "singular breakpad_symbol_server promotes to list",
			mut:  func(p *Profiling) { p.BreakpadSymbolServer = StringList{"https://symbols.example"} },
			check: func(t *testing.T, s *Session) {
				assert.Equal(t, []string{"https://symbols.example"}, s.BreakpadSymbolServers)
			},
		},
		{
			name: "empty entries are dropped",
			mut:  func(p *Profiling) { p.SymbolDirs = StringList{"", "/keep", ""} },
			check: func(t *testing.T, s *Session) {
				assert.Equal(t, []string{"/keep"}, s.SymbolDirs)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseProfiling()
			tt.mut(&p)
			s, err := Resolve(&File{Profiling: p}, "/base", Overrides{})
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestResolve_PathsAnchoredAtConfigDir(t *testing.T) {
	p := baseProfiling()
	p.MergeScript = "tools/merge.js"
	p.SymbolDirs = StringList{"syms"}
	file := &File{Profiling: p}

	s, err := Resolve(file, "/cfgdir", Overrides{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/cfgdir", "tools/merge.js"), s.MergeScript)
	assert.Equal(t, []string{filepath.Join("/cfgdir", "syms")}, s.SymbolDirs)
	// Symbol servers are URLs, never path-resolved.
	assert.Empty(t, s.BreakpadSymbolServers)
}

func TestResolve_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mut     func(*Profiling)
		ov      Overrides
		wantErr string
	}{
		{
			name:    "missing package",
			mut:     func(p *Profiling) { p.PackageName = "" },
			wantErr: "package_name",
		},
		{
			name:    "missing startup url for startup scenario",
			mut:     func(p *Profiling) { p.StartupURL = "" },
			wantErr: "startup_url",
		},
		{
			name:    "negative duration",
			mut:     func(p *Profiling) { p.Duration = -1 },
			wantErr: "duration",
		},
		{
			name:    "negative frequency",
			mut:     func(p *Profiling) { p.Frequency = -5 },
			wantErr: "frequency",
		},
		{
			name:    "missing merge script",
			mut:     func(p *Profiling) { p.MergeScript = "" },
			wantErr: "merge_script",
		},
		{
			name:    "bad merge mode",
			mut:     func(p *Profiling) { p.MergeMode = "sometimes" },
			wantErr: "merge_mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseProfiling()
			tt.mut(&p)
			_, err := Resolve(&File{Profiling: p}, "/base", tt.ov)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolve_WarmupScenarioNeedsNoURL(t *testing.T) {
	p := baseProfiling()
	p.StartupURL = ""
	_, err := Resolve(&File{Profiling: p}, "/base", Overrides{ProfileWarmup: true})
	require.NoError(t, err)
}

func TestResolve_MergeMode(t *testing.T) {
	p := baseProfiling()
	p.MergeMode = "strict"
	s, err := Resolve(&File{Profiling: p}, "/base", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, MergeStrict, s.MergeMode)

	p = baseProfiling()
	s, err = Resolve(&File{Profiling: p}, "/base", Overrides{StrictMerge: true})
	require.NoError(t, err)
	assert.Equal(t, MergeStrict, s.MergeMode)
}

func TestStringList_ScalarOrSequence(t *testing.T) {
	var p Profiling
	doc := `
package_name: org.mozilla.fenix
symbol_dirs: /single
breakpad_symbol_dirs:
  - /one
  - /two
`
	require.NoError(t, yaml.Unmarshal([]byte(doc), &p))
	assert.Equal(t, StringList{"/single"}, p.SymbolDirs)
	assert.Equal(t, StringList{"/one", "/two"}, p.BreakpadSymbolDirs)
}

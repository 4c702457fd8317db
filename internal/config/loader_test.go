package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `profiling:
  package_name: org.mozilla.fenix
  startup_url: https://example.com
  duration: 8
  frequency: 2000
  samply_binary: samply
  merge_script: merge.js
  symbol_dir: /legacy-syms
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	file, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "org.mozilla.fenix", file.Profiling.PackageName)
	assert.Equal(t, 8, file.Profiling.Duration)
	assert.Equal(t, 2000, file.Profiling.Frequency)
	assert.Equal(t, StringList{"/legacy-syms"}, file.Profiling.SymbolDir)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiling: [not a mapping"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "/abs/path", expandPath("/abs/path", "/base"))
	assert.Equal(t, filepath.Join("/base", "rel"), expandPath("rel", "/base"))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "syms"), expandPath("~/syms", "/base"))
}

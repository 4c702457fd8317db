// Package config provides configuration loading for androprof.
//
// The on-disk file is YAML with a single `profiling` section. Symbol source
// fields accept either a scalar or a list, and the legacy singular keys
// (symbol_dir, breakpad_symbol_dir, breakpad_symbol_server) are still
// honored when the plural key is absent.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// File represents the androprof config file.
type File struct {
	Profiling Profiling `yaml:"profiling"`
}

// Profiling is the `profiling` section of the config file.
type Profiling struct {
	PackageName string `yaml:"package_name"`
	StartupURL  string `yaml:"startup_url"`

	// Duration is the capture window in seconds.
	Duration int `yaml:"duration"`
	// Frequency is the sampling frequency in Hz.
	Frequency int `yaml:"frequency"`

	SamplyBinary string `yaml:"samply_binary"`
	MergeScript  string `yaml:"merge_script"`

	SymbolDirs            StringList `yaml:"symbol_dirs"`
	BreakpadSymbolDirs    StringList `yaml:"breakpad_symbol_dirs"`
	BreakpadSymbolServers StringList `yaml:"breakpad_symbol_servers"`

	// Legacy singular forms, used only when the plural key is absent.
	SymbolDir            StringList `yaml:"symbol_dir"`
	BreakpadSymbolDir    StringList `yaml:"breakpad_symbol_dir"`
	BreakpadSymbolServer StringList `yaml:"breakpad_symbol_server"`

	// MergeMode decides whether a merge-tool failure fails the session
	// ("strict") or degrades to the unmerged profile ("lenient", default).
	MergeMode string `yaml:"merge_mode"`
}

// StringList is a []string that also accepts a single YAML scalar.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		*l = StringList(values)
		return nil
	default:
		return fmt.Errorf("expected string or list of strings, got %v node", node.Kind)
	}
}

// symbolSources resolves a plural/legacy-singular field pair: the plural key
// wins when present, otherwise the singular one is promoted to a list.
// Empty entries are dropped.
func symbolSources(plural, singular StringList) []string {
	src := plural
	if len(src) == 0 {
		src = singular
	}
	out := make([]string, 0, len(src))
	for _, v := range src {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

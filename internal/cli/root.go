// Package cli defines the androprof command surface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mozperf/androprof/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "androprof",
	Short: "Androprof - merged startup profiles from Android devices",
	Long: `Capture a merged startup profile from a physical Android device.

One session runs the on-device simpleperf sampler and the in-app Gecko
profiler concurrently, drives the app through a startup scenario, then
converts the sampler capture with samply and merges both captures into a
single combined profile.

Requirements:
- a rooted device with USB debugging enabled and simpleperf installed
- samply (with presymbolication support) and the merge script locally`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.String())
		},
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

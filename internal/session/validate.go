package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mozperf/androprof/internal/adb"
	"github.com/mozperf/androprof/internal/execx"
	"github.com/mozperf/androprof/internal/sampler"
)

// EnvironmentError reports a missing or unusable piece of the environment,
// detected before any device state was mutated.
type EnvironmentError struct {
	Reason      string
	Remediation string
}

func (e *EnvironmentError) Error() string {
	if e.Remediation == "" {
		return e.Reason
	}
	return e.Reason + ". " + e.Remediation
}

// Validator runs the read-only pre-flight checks and resolves the target
// device. It must succeed before the coordinator mutates anything.
type Validator struct {
	// Samply is the samply binary path or command name.
	Samply string
	// ADBPath is the adb binary path or command name.
	ADBPath string
	// Serial is the requested device; empty selects the sole attached one.
	Serial string

	Runner execx.Runner
	Logger zerolog.Logger
}

// Validate checks, in order and short-circuiting: samply supports
// presymbolication, adb works, exactly one target device is resolvable,
// the device grants root, and simpleperf is present on it. On success it
// returns a client bound to the resolved device.
func (v *Validator) Validate(ctx context.Context) (*adb.Client, error) {
	v.Logger.Info().Msg("Validating environment...")

	if err := v.checkSamply(ctx); err != nil {
		return nil, err
	}
	if err := v.checkADB(ctx); err != nil {
		return nil, err
	}

	serial, err := v.resolveDevice(ctx)
	if err != nil {
		return nil, err
	}
	client := adb.NewClient(v.ADBPath, serial, v.Logger, adb.WithRunner(v.Runner))

	if err := v.checkRoot(ctx, client); err != nil {
		return nil, err
	}
	if err := v.checkSampler(ctx, client); err != nil {
		return nil, err
	}

	v.Logger.Info().Str("device", serial).Msg("Environment validation completed")
	return client, nil
}

func (v *Validator) checkSamply(ctx context.Context) error {
	res, err := v.Runner.Run(ctx, v.Samply, "import", "--help")
	if err != nil || res.ExitCode != 0 {
		return &EnvironmentError{
			Reason:      fmt.Sprintf("failed to run samply (%q)", v.Samply),
			Remediation: "Check that samply is installed and in PATH",
		}
	}
	if !strings.Contains(res.Stdout, "--presymbolicate") {
		return &EnvironmentError{
			Reason:      "samply import does not support the --presymbolicate option",
			Remediation: "Please update samply",
		}
	}
	return nil
}

func (v *Validator) checkADB(ctx context.Context) error {
	res, err := v.Runner.Run(ctx, v.ADBPath, "version")
	if err != nil || res.ExitCode != 0 {
		return &EnvironmentError{
			Reason:      "adb command not found",
			Remediation: "Please install Android SDK Platform Tools",
		}
	}
	return nil
}

func (v *Validator) resolveDevice(ctx context.Context) (string, error) {
	serials, err := adb.Devices(ctx, v.Runner, v.ADBPath)
	if err != nil {
		return "", &EnvironmentError{Reason: fmt.Sprintf("failed to enumerate devices: %v", err)}
	}

	if len(serials) == 0 {
		return "", &EnvironmentError{
			Reason:      "no Android devices found",
			Remediation: "Please connect a device and enable USB debugging",
		}
	}

	if v.Serial == "" {
		if len(serials) > 1 {
			return "", &EnvironmentError{
				Reason:      fmt.Sprintf("multiple devices found:\n%s", deviceList(serials)),
				Remediation: "Please specify a device with --device",
			}
		}
		return serials[0], nil
	}

	for _, s := range serials {
		if s == v.Serial {
			return s, nil
		}
	}
	return "", &EnvironmentError{
		Reason: fmt.Sprintf("device %q not found. Available devices:\n%s", v.Serial, deviceList(serials)),
	}
}

func deviceList(serials []string) string {
	lines := make([]string, len(serials))
	for i, s := range serials {
		lines[i] = "  - " + s
	}
	return strings.Join(lines, "\n")
}

// checkRoot verifies elevated execution by checking the command's literal
// output: some su shells exit 0 without actually elevating.
func (v *Validator) checkRoot(ctx context.Context, client *adb.Client) error {
	res, err := client.Shell(ctx, "su", "-c", "echo test")
	if err != nil || !strings.Contains(res.Stdout, "test") {
		return &EnvironmentError{
			Reason:      "root access (su) not available on device",
			Remediation: "Please root the device or grant root access",
		}
	}
	return nil
}

func (v *Validator) checkSampler(ctx context.Context, client *adb.Client) error {
	if _, err := client.Shell(ctx, "ls", sampler.RemoteBinaryPath); err == nil {
		return nil
	}
	// Fall back to a PATH lookup on the device.
	if _, err := client.Shell(ctx, "which", "simpleperf"); err == nil {
		return nil
	}
	return &EnvironmentError{
		Reason:      "simpleperf not found on device",
		Remediation: fmt.Sprintf("Please install the simpleperf binary to %s", sampler.RemoteBinaryPath),
	}
}

package session

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozperf/androprof/internal/execx"
	"github.com/mozperf/androprof/internal/testutil"
)

// scriptedRunner responds per command line: the first matching override
// wins, then a working-environment default applies.
func scriptedRunner(overrides map[string]execx.Result) *testutil.FakeRunner {
	return &testutil.FakeRunner{
		Respond: func(name string, args []string) (execx.Result, error) {
			line := strings.Join(append([]string{name}, args...), " ")
			for substr, res := range overrides {
				if strings.Contains(line, substr) {
					return res, nil
				}
			}
			switch {
			case strings.Contains(line, "import --help"):
				return execx.Result{Stdout: "Usage: samply import\n  --presymbolicate\n"}, nil
			case strings.Contains(line, "devices"):
				return execx.Result{Stdout: "List of devices attached\nserial-a\tdevice\n"}, nil
			case strings.Contains(line, "su -c"):
				return execx.Result{Stdout: "test\n"}, nil
			}
			return execx.Result{}, nil
		},
	}
}

func newValidator(t *testing.T, runner *testutil.FakeRunner, serial string) *Validator {
	return &Validator{
		Samply:  "samply",
		ADBPath: "adb",
		Serial:  serial,
		Runner:  runner,
		Logger:  testutil.NewTestLogger(t),
	}
}

func TestValidate_SoleDevice(t *testing.T) {
	runner := scriptedRunner(nil)
	client, err := newValidator(t, runner, "").Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "serial-a", client.Serial())
}

func TestValidate_SamplyMissing(t *testing.T) {
	runner := scriptedRunner(map[string]execx.Result{
		"import --help": {ExitCode: 127, Stderr: "samply: not found"},
	})

	_, err := newValidator(t, runner, "").Validate(context.Background())
	require.Error(t, err)

	var envErr *EnvironmentError
	require.ErrorAs(t, err, &envErr)
	assert.Contains(t, envErr.Error(), "samply")
	assert.Contains(t, envErr.Error(), "PATH")
}

func TestValidate_SamplyWithoutPresymbolicate(t *testing.T) {
	runner := scriptedRunner(map[string]execx.Result{
		"import --help": {Stdout: "Usage: samply import\n"},
	})

	_, err := newValidator(t, runner, "").Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--presymbolicate")
}

func TestValidate_NoDevices(t *testing.T) {
	runner := scriptedRunner(map[string]execx.Result{
		"devices": {Stdout: "List of devices attached\n"},
	})

	_, err := newValidator(t, runner, "").Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Android devices")
}

func TestValidate_AmbiguousDevicesListsCandidates(t *testing.T) {
	runner := scriptedRunner(map[string]execx.Result{
		"devices": {Stdout: "List of devices attached\nserial-a\tdevice\nserial-b\tdevice\n"},
	})

	_, err := newValidator(t, runner, "").Validate(context.Background())
	require.Error(t, err)

	var envErr *EnvironmentError
	require.ErrorAs(t, err, &envErr)
	assert.Contains(t, envErr.Error(), "serial-a")
	assert.Contains(t, envErr.Error(), "serial-b")
	assert.Contains(t, envErr.Error(), "--device")
}

func TestValidate_ExplicitDevice(t *testing.T) {
	runner := scriptedRunner(map[string]execx.Result{
		"devices": {Stdout: "List of devices attached\nserial-a\tdevice\nserial-b\tdevice\n"},
	})

	client, err := newValidator(t, runner, "serial-b").Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "serial-b", client.Serial())
}

func TestValidate_ExplicitDeviceNotAttached(t *testing.T) {
	runner := scriptedRunner(nil)

	_, err := newValidator(t, runner, "serial-z").Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"serial-z" not found`)
	assert.Contains(t, err.Error(), "serial-a")
}

func TestValidate_RootCheckVerifiesOutput(t *testing.T) {
	// su exits 0 but does not echo: some shells report success without
	// actually elevating.
	runner := scriptedRunner(map[string]execx.Result{
		"su -c": {Stdout: ""},
	})

	_, err := newValidator(t, runner, "").Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root access")
}

func TestValidate_SamplerFallsBackToPathLookup(t *testing.T) {
	runner := scriptedRunner(map[string]execx.Result{
		"ls /data/local/tmp/simpleperf": {ExitCode: 1, Stderr: "No such file"},
	})

	_, err := newValidator(t, runner, "").Validate(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, runner.CallsMatching("which simpleperf"))
}

func TestValidate_SamplerMissing(t *testing.T) {
	runner := scriptedRunner(map[string]execx.Result{
		"ls /data/local/tmp/simpleperf": {ExitCode: 1},
		"which simpleperf":              {ExitCode: 1},
	})

	_, err := newValidator(t, runner, "").Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simpleperf not found")
	assert.Contains(t, err.Error(), "/data/local/tmp/simpleperf")
}

func TestValidate_ShortCircuitsBeforeDeviceChecks(t *testing.T) {
	runner := scriptedRunner(map[string]execx.Result{
		"import --help": {ExitCode: 1},
	})

	_, err := newValidator(t, runner, "").Validate(context.Background())
	require.Error(t, err)
	assert.Empty(t, runner.CallsMatching("devices"), "device checks must not run after a tool failure")
}

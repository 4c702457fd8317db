// Package sampler builds and launches the on-device simpleperf recording.
package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/mozperf/androprof/internal/adb"
	"github.com/mozperf/androprof/internal/execx"
)

// Well-known on-device paths for the sampler binary and its capture file.
const (
	RemoteBinaryPath  = "/data/local/tmp/simpleperf"
	RemoteCapturePath = "/data/local/tmp/su-perf.data"
)

// Options configures one simpleperf recording.
type Options struct {
	// DurationSeconds is the capture window; simpleperf exits on its own
	// once it elapses.
	DurationSeconds int
	// FrequencyHz is the sampling frequency.
	FrequencyHz int
	// JavaStacks switches from frame-pointer unwinding to DWARF unwinding,
	// which captures Java stacks at the cost of shallower native ones.
	JavaStacks bool
}

// recordCommand returns the full `su -c` shell invocation for the recording.
// The whole simpleperf command is one su argument so it runs elevated.
func (o Options) recordCommand() []string {
	callgraph := "--call-graph fp"
	if o.JavaStacks {
		callgraph = "-g"
	}

	record := fmt.Sprintf(
		"%s record %s --duration %d -f %d --trace-offcpu -e cpu-clock -a -o %s",
		RemoteBinaryPath, callgraph, o.DurationSeconds, o.FrequencyHz, RemoteCapturePath,
	)
	return []string{"su", "-c", record}
}

// GraceDelay is how long to wait after spawning before starting the
// workload, so simpleperf has attached by the time the app launches. DWARF
// unwinding takes longer to come up.
func (o Options) GraceDelay() time.Duration {
	if o.JavaStacks {
		return 4 * time.Second
	}
	return 2 * time.Second
}

// Start spawns the recording in the background and returns its join handle.
// It never blocks on the recording itself; observing the grace delay is the
// caller's responsibility.
func Start(ctx context.Context, client *adb.Client, opts Options) (execx.Handle, error) {
	handle, err := client.ShellStart(ctx, opts.recordCommand()...)
	if err != nil {
		return nil, fmt.Errorf("failed to start simpleperf recording: %w", err)
	}
	return handle, nil
}

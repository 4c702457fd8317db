package sampler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozperf/androprof/internal/adb"
	"github.com/mozperf/androprof/internal/testutil"
)

func TestRecordCommand_FramePointer(t *testing.T) {
	opts := Options{DurationSeconds: 6, FrequencyHz: 1000}

	args := opts.recordCommand()
	require.Len(t, args, 3)
	assert.Equal(t, "su", args[0])
	assert.Equal(t, "-c", args[1])
	assert.Equal(t,
		"/data/local/tmp/simpleperf record --call-graph fp --duration 6 -f 1000 --trace-offcpu -e cpu-clock -a -o /data/local/tmp/su-perf.data",
		args[2])
}

func TestRecordCommand_JavaStacks(t *testing.T) {
	opts := Options{DurationSeconds: 26, FrequencyHz: 500, JavaStacks: true}

	args := opts.recordCommand()
	assert.Equal(t,
		"/data/local/tmp/simpleperf record -g --duration 26 -f 500 --trace-offcpu -e cpu-clock -a -o /data/local/tmp/su-perf.data",
		args[2])
}

func TestGraceDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, Options{}.GraceDelay())
	assert.Equal(t, 4*time.Second, Options{JavaStacks: true}.GraceDelay())
}

func TestStart_SpawnsInBackground(t *testing.T) {
	runner := &testutil.FakeRunner{}
	client := adb.NewClient("adb", "dev1", testutil.NewTestLogger(t), adb.WithRunner(runner))

	handle, err := Start(context.Background(), client, Options{DurationSeconds: 6, FrequencyHz: 1000})
	require.NoError(t, err)
	require.NotNil(t, handle)

	require.Len(t, runner.Started, 1)
	assert.Contains(t, runner.Started[0], "adb -s dev1 shell su -c ")
	assert.Contains(t, runner.Started[0], "simpleperf record --call-graph fp")
	assert.Empty(t, runner.Calls, "sampler spawn must not block")
}

// Package session drives one profiling session end to end: environment
// validation, arming the in-app tracer, the background sampler, the measured
// startup scenario, artifact collection and processing, and the guaranteed
// reversal of every device mutation the session made.
package session

import (
	"github.com/google/uuid"
)

// State is a stage of the session state machine. Transitions are strictly
// linear; there is at most one background capture because the machine never
// re-enters Recording.
type State string

const (
	StateIdle      State = "idle"
	StateValidated State = "validated"
	StateArmed     State = "armed"
	StateRecording State = "recording"
	StateTriggered State = "triggered"
	StateStopping  State = "stopping"
	StateCollected State = "collected"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// SessionState tracks everything one session mutated or produced. It is
// created at session start, updated by each coordinator step as side effects
// occur, and consulted by Cleanup at teardown. Only the coordinator writes
// to it.
type SessionState struct {
	// ID identifies the session in logs.
	ID string
	// State is the machine's current stage.
	State State

	// ScratchDir is the local directory for intermediate files.
	ScratchDir string

	// DebugAppSet records that the device's persistent debug-app flag was
	// set, so cleanup knows to clear it.
	DebugAppSet bool
	// PushedConfigPath is the on-device path of the pushed tracer config,
	// empty when nothing was pushed.
	PushedConfigPath string

	// Local paths of produced artifacts, empty until the producing step ran.
	SamplerCapture string
	AppCapture     string
	Intermediate   string
	Output         string
}

// NewState creates the state for a fresh session.
func NewState(scratchDir string) *SessionState {
	return &SessionState{
		ID:         uuid.NewString(),
		State:      StateIdle,
		ScratchDir: scratchDir,
	}
}

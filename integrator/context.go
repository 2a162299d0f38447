package integrator

import (
	"math"
	"time"
)

// SimContext is the clock of one run and the next-due watermarks of its
// outputs. It is owned by the orchestrator of a rank and only changes
// between steps, so every rank holds the same values.
type SimContext struct {
	Time   float64
	Step   int
	Dt     float64 // nominal step, before clamping to the target time
	LastDt float64 // the step actually taken

	Start time.Time

	SnapshotIndex int
	NextSnapshot  float64
	NextHistory   float64
	NextLoads     float64
	// The step at which each output was last written, -1 if never.
	SnapshotStep, HistoryStep, LoadsStep, ReportStep int
}

func NewSimContext(dt float64) *SimContext {
	return &SimContext{
		Dt:           dt,
		Start:        time.Now(),
		SnapshotStep: -1,
		HistoryStep:  -1,
		LoadsStep:    -1,
		ReportStep:   -1,
	}
}

func (sc *SimContext) Elapsed() time.Duration {
	return time.Since(sc.Start)
}

// due reports whether an output with the given cadence is due, advancing the
// watermark past the current time when it is. A cadence of zero disables the
// output.
func (sc *SimContext) due(next *float64, every float64) bool {
	if !(every > 0) {
		return false
	}
	// slack so that a step landing on the watermark counts
	now := sc.Time + 1e-9*every
	if now < *next {
		return false
	}
	*next = (math.Floor(now/every) + 1) * every
	return true
}

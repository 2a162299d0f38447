package integrator

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCellOverflow = errors.New("invalid cell count exceeds threshold")
	ErrUnsupportedCoupling = errors.New("solid coupling is not supported across ranks")
)

type StepStatus uint8

const (
	StepOK StepStatus = iota
	StepInvalidCellOverflow
	StepAborted
)

func (ss StepStatus) String() string {
	return []string{"ok", "invalid-cell-overflow", "aborted"}[ss]
}

// StepResult is the globally agreed outcome of one step. Every rank returns
// the same Status, Count and BlockID; Err carries the local cause when this
// rank failed, or a summary when a peer did.
type StepResult struct {
	Status  StepStatus
	Count   int // invalid cells in the worst block
	BlockID int
	Stage   int
	Err     error
}

func (sr StepResult) OK() bool { return sr.Status == StepOK }

func (sr StepResult) Error() error {
	switch sr.Status {
	case StepOK:
		return nil
	case StepInvalidCellOverflow:
		return fmt.Errorf("%w: %d invalid cells in block %d at stage %d", ErrInvalidCellOverflow, sr.Count,
			sr.BlockID, sr.Stage)
	}
	if sr.Err == nil {
		return fmt.Errorf("step aborted at stage %d", sr.Stage)
	}
	return sr.Err
}

// Phase is the state of the orchestrator.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseStepping
	PhaseFinished
	PhaseTerminated
)

func (p Phase) String() string {
	return []string{"idle", "stepping", "finished", "terminated"}[p]
}

// Reason says why the step loop stopped.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonTargetTime
	ReasonMaxSteps
	ReasonHalt
	ReasonWallClock
	ReasonCancelled
	ReasonError
)

func (r Reason) String() string {
	return []string{"none", "target-time", "max-steps", "halt", "wall-clock", "cancelled", "error"}[r]
}

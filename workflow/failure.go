package workflow

import (
	"errors"
	"fmt"
)

// ErrNoSteps is returned when Execute is called with an empty step list.
var ErrNoSteps = errors.New("workflow: no steps to execute")

// CompensationStatus reports how far the engine got undoing completed steps
// after a fatal failure.
type CompensationStatus string

const (
	// CompensationNone: no completed step had registered a compensation.
	CompensationNone = CompensationStatus("none")
	// CompensationFull: every registered compensation ran and succeeded.
	CompensationFull = CompensationStatus("full")
	// CompensationPartial: at least one compensation failed; the external
	// state it covered is orphaned and needs manual reconciliation.
	CompensationPartial = CompensationStatus("partial")
)

// Failure describes a fatal step failure. It always carries the results of
// the steps that completed before the failure: some of them (a created
// custody account, a consumed payment claim) represent real, irreversible
// external state that must not be silently lost even though the operation
// as a whole failed.
type Failure struct {
	Operation string
	Step      string
	Cause     error

	// Compensation summarises the cleanup attempt; CompensationErrs holds
	// the individual compensation failures by step name when it is partial.
	Compensation     CompensationStatus
	CompensationErrs map[string]error

	// Produced maps every completed step to the result it produced.
	Produced Results
}

func (f *Failure) Error() string {
	return fmt.Sprintf("workflow: %s failed at step %s (compensation %s): %v",
		f.Operation, f.Step, f.Compensation, f.Cause)
}

func (f *Failure) Unwrap() error { return f.Cause }

// AsFailure unwraps err into a *Failure if one is in its chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

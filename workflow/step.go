// Package workflow executes the multi-step, side-effecting operations of the
// marketplace (agent registration, artwork submission, purchases) against
// collaborators that share no transaction boundary. It offers the only two
// guarantees such a setup can honestly provide: a completed step's result is
// always surfaced, and every completed step with a registered compensation is
// compensated, best-effort and in reverse order, when a later step fails.
package workflow

import "context"

// Step is one named unit of work inside an operation. Steps are defined
// statically by per-operation constructors, never discovered at runtime.
type Step struct {
	// Name identifies the step in logs, failures, and step results,
	// e.g. "create-custody-account".
	Name string

	// NonFatal marks a step whose failure is logged and counted but does
	// not abort the operation or trigger compensation. Used for side
	// effects that are desirable but not correctness-critical.
	NonFatal bool

	// Run performs the step's side effect. Results of earlier steps are
	// available through the Execution.
	Run func(ctx context.Context, ex *Execution) (any, error)

	// Compensate undoes the step's effect given the result Run returned.
	// Nil for steps that cannot be undone (on-chain effects); their
	// results are surfaced in the Failure instead so operators can
	// reconcile the orphaned state out-of-band.
	Compensate func(ctx context.Context, result any) error
}

// Execution is the runtime instance of one operation. It lives only for the
// duration of the inbound request and accumulates step results so later steps
// can consume earlier outputs.
type Execution struct {
	op      string
	results Results
}

// Operation returns the name of the operation being executed.
func (e *Execution) Operation() string { return e.op }

// Result returns the result recorded for a completed step, or nil if the
// step has not run or failed non-fatally.
func (e *Execution) Result(step string) any { return e.results[step] }

// Results maps step names to the values their Run functions returned.
type Results map[string]any

type completedStep struct {
	step   Step
	result any
}

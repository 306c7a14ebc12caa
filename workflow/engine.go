package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// compensationTimeout bounds the cleanup phase of an aborted workflow. It is
// deliberately generous: compensations are single writes against systems the
// steps themselves just reached.
const compensationTimeout = 30 * time.Second

// Engine runs step lists strictly in order, synchronously, within the
// lifetime of the inbound request. It never retries a step and never
// parallelizes steps: retry policy belongs to the caller or the step
// implementation, and later steps depend on earlier results.
type Engine struct {
	log *slog.Logger
}

// NewEngine builds an engine logging through log. A nil logger falls back to
// slog.Default.
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log}
}

// Execute runs the steps of one operation in order.
//
// On success it returns the results of every step. On a fatal step failure it
// compensates every previously completed step that registered a compensation,
// in reverse completion order, and returns a *Failure wrapping the cause. A
// failed compensation is logged and recorded on the Failure but never stops
// the remaining compensations. A non-fatal step failure is logged and the
// execution continues; the step simply has no result.
func (g *Engine) Execute(ctx context.Context, op string, steps []Step) (Results, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}

	ex := &Execution{op: op, results: make(Results, len(steps))}
	var completed []completedStep

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, g.abort(ctx, op, step.Name, fmt.Errorf("workflow: context done before step: %w", err), completed)
		}

		g.log.Debug("workflow step start", "operation", op, "step", step.Name)
		result, err := step.Run(ctx, ex)
		if err != nil {
			if step.NonFatal {
				g.log.Warn("workflow step failed (non-fatal, continuing)",
					"operation", op, "step", step.Name, "error", err)
				softFailuresTotal.WithLabelValues(op, step.Name).Inc()
				continue
			}
			g.log.Error("workflow step failed",
				"operation", op, "step", step.Name, "error", err)
			return nil, g.abort(ctx, op, step.Name, err, completed)
		}

		ex.results[step.Name] = result
		completed = append(completed, completedStep{step: step, result: result})
	}

	executionsTotal.WithLabelValues(op, "success").Inc()
	return ex.results, nil
}

// abort compensates completed steps in reverse order and builds the Failure.
func (g *Engine) abort(ctx context.Context, op, failedStep string, cause error, completed []completedStep) error {
	f := &Failure{
		Operation:    op,
		Step:         failedStep,
		Cause:        cause,
		Compensation: CompensationNone,
		Produced:     make(Results, len(completed)),
	}
	for _, c := range completed {
		f.Produced[c.step.Name] = c.result
	}

	// The abort often runs because the request context died. Compensations
	// must still reach the stores and the custody/content services, so they
	// run detached from the request's cancellation, under their own bound.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	registered := 0
	for i := len(completed) - 1; i >= 0; i-- {
		c := completed[i]
		if c.step.Compensate == nil {
			continue
		}
		registered++
		if err := c.step.Compensate(cctx, c.result); err != nil {
			g.log.Error("workflow compensation failed",
				"operation", op, "step", c.step.Name, "error", err)
			if f.CompensationErrs == nil {
				f.CompensationErrs = make(map[string]error)
			}
			f.CompensationErrs[c.step.Name] = err
			continue
		}
		g.log.Info("workflow step compensated", "operation", op, "step", c.step.Name)
	}

	switch {
	case registered == 0:
		f.Compensation = CompensationNone
	case len(f.CompensationErrs) == 0:
		f.Compensation = CompensationFull
	default:
		f.Compensation = CompensationPartial
	}

	executionsTotal.WithLabelValues(op, "failure").Inc()
	compensationsTotal.WithLabelValues(op, string(f.Compensation)).Inc()
	return f
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// step builders shared by the tests below.

func okStep(name string, result any, log *[]string) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context, ex *Execution) (any, error) {
			*log = append(*log, "run:"+name)
			return result, nil
		},
		Compensate: func(ctx context.Context, result any) error {
			*log = append(*log, "undo:"+name)
			return nil
		},
	}
}

func failStep(name string, err error, log *[]string) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context, ex *Execution) (any, error) {
			*log = append(*log, "run:"+name)
			return nil, err
		},
	}
}

func TestExecute_Success(t *testing.T) {
	var log []string
	engine := NewEngine(nil)

	results, err := engine.Execute(context.Background(), "test-op", []Step{
		okStep("first", "a", &log),
		okStep("second", "b", &log),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if results["first"] != "a" || results["second"] != "b" {
		t.Fatalf("unexpected results: %v", results)
	}
	for _, entry := range log {
		if entry == "undo:first" || entry == "undo:second" {
			t.Fatalf("compensation ran on success: %v", log)
		}
	}
}

func TestExecute_NoSteps(t *testing.T) {
	engine := NewEngine(nil)
	if _, err := engine.Execute(context.Background(), "empty", nil); !errors.Is(err, ErrNoSteps) {
		t.Fatalf("expected ErrNoSteps, got %v", err)
	}
}

// Compensations run for exactly the completed steps that registered one, in
// strictly decreasing completion order.
func TestExecute_CompensationOrder(t *testing.T) {
	for failAt := 1; failAt <= 4; failAt++ {
		t.Run(fmt.Sprintf("fail_at_%d", failAt), func(t *testing.T) {
			var log []string
			cause := errors.New("boom")
			var steps []Step
			for i := 1; i <= 4; i++ {
				name := fmt.Sprintf("step-%d", i)
				if i == failAt {
					steps = append(steps, failStep(name, cause, &log))
				} else {
					steps = append(steps, okStep(name, i, &log))
				}
			}

			engine := NewEngine(nil)
			_, err := engine.Execute(context.Background(), "ordered", steps)
			f, ok := AsFailure(err)
			if !ok {
				t.Fatalf("expected *Failure, got %v", err)
			}
			if f.Step != fmt.Sprintf("step-%d", failAt) {
				t.Fatalf("wrong failed step: %s", f.Step)
			}
			if !errors.Is(err, cause) {
				t.Fatalf("cause not wrapped: %v", err)
			}

			var want []string
			for i := 1; i <= failAt; i++ {
				want = append(want, fmt.Sprintf("run:step-%d", i))
			}
			for i := failAt - 1; i >= 1; i-- {
				want = append(want, fmt.Sprintf("undo:step-%d", i))
			}
			if len(log) != len(want) {
				t.Fatalf("log mismatch: got %v want %v", log, want)
			}
			for i := range want {
				if log[i] != want[i] {
					t.Fatalf("log[%d] = %s, want %s (full: %v)", i, log[i], want[i], log)
				}
			}

			wantStatus := CompensationFull
			if failAt == 1 {
				wantStatus = CompensationNone
			}
			if f.Compensation != wantStatus {
				t.Errorf("compensation status = %s, want %s", f.Compensation, wantStatus)
			}
		})
	}
}

// A non-fatal step's failure never triggers compensation and never changes
// the workflow outcome.
func TestExecute_NonFatalIsolation(t *testing.T) {
	var log []string
	engine := NewEngine(nil)

	steps := []Step{
		okStep("persist", "record-1", &log),
		{
			Name:     "update-counters",
			NonFatal: true,
			Run: func(ctx context.Context, ex *Execution) (any, error) {
				return nil, errors.New("counters unavailable")
			},
		},
		okStep("finalize", "done", &log),
	}

	results, err := engine.Execute(context.Background(), "soft", steps)
	if err != nil {
		t.Fatalf("non-fatal failure changed outcome: %v", err)
	}
	if _, ok := results["update-counters"]; ok {
		t.Errorf("failed non-fatal step should have no result")
	}
	if results["finalize"] != "done" {
		t.Errorf("later step did not run after non-fatal failure")
	}
	for _, entry := range log {
		if entry == "undo:persist" {
			t.Fatalf("non-fatal failure triggered compensation: %v", log)
		}
	}
}

// A failed compensation is recorded but never blocks the remaining ones.
func TestExecute_CompensationErrorDoesNotBlock(t *testing.T) {
	var log []string
	undoErr := errors.New("page delete refused")

	steps := []Step{
		okStep("first", 1, &log),
		{
			Name: "second",
			Run: func(ctx context.Context, ex *Execution) (any, error) {
				log = append(log, "run:second")
				return 2, nil
			},
			Compensate: func(ctx context.Context, result any) error {
				log = append(log, "undo:second")
				return undoErr
			},
		},
		failStep("third", errors.New("boom"), &log),
	}

	engine := NewEngine(nil)
	_, err := engine.Execute(context.Background(), "partial", steps)
	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if f.Compensation != CompensationPartial {
		t.Fatalf("expected partial compensation, got %s", f.Compensation)
	}
	if !errors.Is(f.CompensationErrs["second"], undoErr) {
		t.Errorf("compensation error not recorded: %v", f.CompensationErrs)
	}

	// first still compensated, after second.
	found := false
	for i, entry := range log {
		if entry == "undo:first" {
			found = true
			if i == 0 || log[i-1] != "undo:second" {
				t.Errorf("compensation order broken: %v", log)
			}
		}
	}
	if !found {
		t.Errorf("first step was not compensated: %v", log)
	}
}

// A request context that dies mid-workflow (client disconnect, server
// timeout) must not leak into the cleanup: ctx-respecting compensations
// still run, and run to completion.
func TestExecute_CompensationSurvivesCancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	compensated := false

	steps := []Step{
		{
			Name: "publish-page",
			Run: func(c context.Context, ex *Execution) (any, error) {
				return "art/genesis-001.html", nil
			},
			Compensate: func(c context.Context, result any) error {
				if err := c.Err(); err != nil {
					return err
				}
				compensated = true
				return nil
			},
		},
		{
			Name: "persist-record",
			Run: func(c context.Context, ex *Execution) (any, error) {
				cancel()
				return nil, errors.New("db down")
			},
		},
	}

	engine := NewEngine(nil)
	_, err := engine.Execute(ctx, "cancelled-mid-flight", steps)
	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if !compensated {
		t.Fatalf("compensation saw the dead request context: %v", f.CompensationErrs)
	}
	if f.Compensation != CompensationFull {
		t.Errorf("compensation status = %s, want %s", f.Compensation, CompensationFull)
	}
}

// Results of completed steps survive into the Failure, including for steps
// with no compensation (irreversible external state).
func TestExecute_ProducedIdentifiersSurfaced(t *testing.T) {
	engine := NewEngine(nil)

	steps := []Step{
		{
			Name: "create-custody-account",
			Run: func(ctx context.Context, ex *Execution) (any, error) {
				return "0xabc123", nil
			},
			// no compensation: on-chain accounts cannot be undone
		},
		failStep("persist-record", errors.New("db down"), new([]string)),
	}

	_, err := engine.Execute(context.Background(), "register", steps)
	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if f.Produced["create-custody-account"] != "0xabc123" {
		t.Fatalf("custody address lost from failure: %+v", f.Produced)
	}
	if f.Compensation != CompensationNone {
		t.Errorf("expected no compensation registered, got %s", f.Compensation)
	}
}

// Later steps can read earlier step results through the Execution.
func TestExecute_ResultsFlowBetweenSteps(t *testing.T) {
	engine := NewEngine(nil)

	steps := []Step{
		{
			Name: "create-account",
			Run: func(ctx context.Context, ex *Execution) (any, error) {
				return "0xfeed", nil
			},
		},
		{
			Name: "persist",
			Run: func(ctx context.Context, ex *Execution) (any, error) {
				addr, _ := ex.Result("create-account").(string)
				if addr == "" {
					return nil, errors.New("missing address")
				}
				return "saved:" + addr, nil
			},
		},
	}

	results, err := engine.Execute(context.Background(), "flow", steps)
	if err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	if results["persist"] != "saved:0xfeed" {
		t.Fatalf("unexpected result: %v", results["persist"])
	}
}

func TestExecute_ContextCancelledBeforeStep(t *testing.T) {
	var log []string
	engine := NewEngine(nil)

	ctx, cancel := context.WithCancel(context.Background())
	steps := []Step{
		{
			Name: "first",
			Run: func(c context.Context, ex *Execution) (any, error) {
				log = append(log, "run:first")
				cancel()
				return "r1", nil
			},
			Compensate: func(c context.Context, result any) error {
				log = append(log, "undo:first")
				return nil
			},
		},
		okStep("second", 2, &log),
	}

	_, err := engine.Execute(ctx, "cancelled", steps)
	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if f.Step != "second" {
		t.Fatalf("expected failure attributed to second step, got %s", f.Step)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	// first completed, so it must be compensated.
	if log[len(log)-1] != "undo:first" {
		t.Fatalf("expected compensation of first step, log: %v", log)
	}
}

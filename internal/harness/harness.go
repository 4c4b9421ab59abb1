package harness

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/ledger"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/notify"
	"github.com/roach88/offpos/internal/report"
	"github.com/roach88/offpos/internal/store"
	"github.com/roach88/offpos/internal/testutil"
)

// Epoch is the first instant of every scenario clock.
var Epoch = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// CaseOK is the case of a successful step.
const CaseOK = "ok"

// Harness is the scenario execution engine.
// It wires the real store, sync engine, ledger and report generator
// against in-memory collaborators.
type Harness struct {
	restaurant string

	store     *store.Store
	remote    *testutil.FakeRemote
	deliverer *testutil.RecordingDeliverer
	notify    *notify.Engine
	ledger    *ledger.Ledger
	reports   *report.Generator

	clock *testutil.Clock
	seq   int64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Build the core over an in-memory store
// 2. Execute setup steps (failures abort the run)
// 3. Execute flow steps, checking expect clauses
// 4. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(st, scenario, logger)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Setup {
		outcome, _, err := h.step(ctx, step.Action, step.Args, result)
		if err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %s: %w", i, step.Action, outcome, err)
		}
	}

	for i, step := range scenario.Flow {
		outcome, got, err := h.step(ctx, step.Invoke, step.Args, result)
		if step.Expect == nil {
			if err != nil {
				result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, step.Invoke, err))
			}
			continue
		}
		if outcome != step.Expect.Case {
			msg := fmt.Sprintf("flow[%d] %s: expected case %s, got %s", i, step.Invoke, step.Expect.Case, outcome)
			if err != nil {
				msg += fmt.Sprintf(" (%v)", err)
			}
			result.AddError(msg)
			continue
		}
		for _, mismatch := range matchResult(step.Expect.Result, got) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Invoke, mismatch))
		}
	}

	for _, msg := range h.evaluate(ctx, result.Trace, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(st *store.Store, scenario *Scenario, logger *zap.Logger) (*Harness, error) {
	readPolicy, err := notify.ParseReadPolicy(scenario.ReadPolicy)
	if err != nil {
		return nil, err
	}
	deletePolicy, err := ledger.ParseDeletePolicy(scenario.DeletePolicy)
	if err != nil {
		return nil, err
	}

	restaurant := scenario.Restaurant
	if restaurant == "" {
		restaurant = DefaultRestaurant
	}

	h := &Harness{
		restaurant: restaurant,
		store:      st,
		remote:     testutil.NewFakeRemote(),
		deliverer:  &testutil.RecordingDeliverer{},
		clock:      testutil.NewClock(Epoch, time.Second),
	}
	h.notify = notify.New(st, h.remote, h.deliverer, logger,
		notify.WithReadPolicy(readPolicy),
		notify.WithClock(h.clock.Now),
	)
	h.ledger = ledger.New(st, logger,
		ledger.WithDeletePolicy(deletePolicy),
		ledger.WithClock(h.clock.Now),
		ledger.WithIDGenerator(testutil.NewSequenceIDs("tx")),
	)
	h.reports = report.NewGenerator(st, time.UTC, report.GSTSettings{}, logger)
	return h, nil
}

// step runs one action and records it in the trace.
func (h *Harness) step(ctx context.Context, action string, args map[string]any, result *Result) (string, map[string]string, error) {
	h.seq++
	result.AddInvocationTrace(action, args, h.seq)

	fn, ok := actions[action]
	if !ok {
		return "UNKNOWN_ACTION", nil, fmt.Errorf("unknown action %q", action)
	}
	v, err := fn(ctx, h, argMap(args))

	outcome := CaseOK
	var flat map[string]string
	if err != nil {
		outcome = string(model.CodeOf(err))
		if outcome == "" {
			outcome = "ERROR"
		}
	} else if flat, err = flatten(v); err != nil {
		outcome = "ERROR"
	}

	h.seq++
	result.AddCompletionTrace(outcome, flat, h.seq)
	return outcome, flat, err
}

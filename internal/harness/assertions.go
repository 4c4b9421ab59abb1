package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// stateTables resolves final_state lookups by table name.
var stateTables = map[string]func(ctx context.Context, h *Harness, id string) (any, error){
	"notifications": func(ctx context.Context, h *Harness, id string) (any, error) {
		return h.store.GetNotification(ctx, h.restaurant, id)
	},
	"customers": func(ctx context.Context, h *Harness, id string) (any, error) {
		return h.store.GetCustomer(ctx, h.restaurant, id)
	},
	"orders": func(ctx context.Context, h *Harness, id string) (any, error) {
		return h.store.GetOrder(ctx, h.restaurant, id)
	},
	"expenses": func(ctx context.Context, h *Harness, id string) (any, error) {
		return h.store.GetExpense(ctx, h.restaurant, id)
	},
	"taxes": func(ctx context.Context, h *Harness, id string) (any, error) {
		return h.store.GetTax(ctx, h.restaurant, id)
	},
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == "invocation" {
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Action, event.Args)
			}
		}
	}
	return buf.String()
}

// evaluate checks every assertion against the trace and the final state.
// Returns one message per failed assertion.
func (h *Harness) evaluate(ctx context.Context, trace []TraceEvent, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(trace, a)
		case AssertTraceCount:
			err = assertTraceCount(trace, a)
		case AssertBalance:
			err = h.assertBalance(ctx, a)
		case AssertLedgerValid:
			err = h.assertLedgerValid(ctx, a)
		case AssertUnreadCount:
			_, unread, perr := h.notify.Preview(ctx, h.restaurant, 0)
			if perr != nil {
				err = perr
			} else {
				err = countError(a, unread)
			}
		case AssertDeliveryCount:
			err = countError(a, h.deliverer.Count())
		case AssertPushedCount:
			err = countError(a, len(h.remote.Pushed()))
		case AssertFinalState:
			err = h.assertFinalState(ctx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Type == "invocation" && event.Action == a.Action && matchArgs(event.Args, a.Args) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", a.Action, a.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != "invocation" {
			continue
		}
		if _, seen := positions[event.Action]; !seen {
			positions[event.Action] = i + 1
		}
	}

	for _, action := range a.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == "invocation" && event.Action == a.Action {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func (h *Harness) assertBalance(ctx context.Context, a Assertion) error {
	want, err := decimal.NewFromString(a.Equals)
	if err != nil {
		return fmt.Errorf("balance: bad expected value %q", a.Equals)
	}
	c, err := h.store.GetCustomer(ctx, h.restaurant, a.Customer)
	if err != nil {
		return err
	}
	if !c.CreditBalance.Equal(want) {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("customer %s balance %s", a.Customer, want),
			Actual:   c.CreditBalance.String(),
		}
	}
	return nil
}

func (h *Harness) assertLedgerValid(ctx context.Context, a Assertion) error {
	r, err := h.ledger.Verify(ctx, h.restaurant, a.Customer)
	if err != nil {
		return err
	}
	if !r.OK() {
		return &AssertionError{
			Type:     AssertLedgerValid,
			Expected: fmt.Sprintf("customer %s ledger consistent", a.Customer),
			Actual:   r.Violation.Error(),
		}
	}
	return nil
}

func (h *Harness) assertFinalState(ctx context.Context, a Assertion) error {
	lookup, ok := stateTables[a.Table]
	if !ok {
		return fmt.Errorf("unknown table %q", a.Table)
	}
	v, err := lookup(ctx, h, a.ID)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row %s in %s", a.ID, a.Table),
			Actual:   err.Error(),
		}
	}
	got, err := flatten(v)
	if err != nil {
		return err
	}
	if mismatches := matchResult(a.Expect, got); len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s %s matches %v", a.Table, a.ID, a.Expect),
			Actual:   strings.Join(mismatches, "; "),
		}
	}
	return nil
}

func countError(a Assertion, got int) error {
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d", a.Count),
		Actual:   fmt.Sprintf("%d", got),
	}
}

// matchArgs checks if actual args contain all expected args (subset match).
// Values compare by their flattened form.
func matchArgs(actual, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	flat, err := flatten(actual)
	if err != nil {
		return false
	}
	return len(matchResult(expected, flat)) == 0
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

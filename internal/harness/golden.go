package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"go.uber.org/zap/zaptest"
)

// TraceSnapshot captures the trace of a scenario execution for golden
// comparison. Completion results are not part of the snapshot; expect
// clauses and assertions cover them.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Restaurant   string       `json:"restaurant"`
	Trace        []TraceEvent `json:"trace"`
}

// NewSnapshot builds the snapshot of a finished run.
func NewSnapshot(scenario *Scenario, result *Result) TraceSnapshot {
	restaurant := scenario.Restaurant
	if restaurant == "" {
		restaurant = DefaultRestaurant
	}
	return TraceSnapshot{
		ScenarioName: scenario.Name,
		Restaurant:   restaurant,
		Trace:        result.Trace,
	}
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
// Map keys are sorted, so equal traces produce identical bytes.
func (s TraceSnapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, zaptest.NewLogger(t))
	if err != nil {
		return nil, err
	}
	return result, assertSnapshot(t, NewSnapshot(scenario, result))
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	return assertSnapshot(t, TraceSnapshot{
		ScenarioName: scenarioName,
		Restaurant:   DefaultRestaurant,
		Trace:        result.Trace,
	})
}

func assertSnapshot(t *testing.T, snap TraceSnapshot) error {
	t.Helper()
	data, err := snap.Marshal()
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, snap.ScenarioName, data)
	return nil
}

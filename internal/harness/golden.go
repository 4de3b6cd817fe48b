package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/splitcore/internal/canon"
)

// Snapshot serializes a run log as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	resolved := make([]any, len(result.Resolved))
	for i, res := range result.Resolved {
		resolved[i] = map[string]any{
			"label": res.Label,
			"value": res.Value,
		}
	}

	return canon.Marshal(map[string]any{
		"scenario": name,
		"executed": result.Executed,
		"notified": result.Notified,
		"resolved": resolved,
		"pending":  result.Pending,
		"calls":    result.Calls,
		"synced":   result.Synced,
		"live":     result.Live,
	})
}

// RunWithGolden runs a scenario and compares its snapshot with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestSnapshot_Canonical(t *testing.T) {
	r := NewResult()
	r.Executed = []string{"x"}
	r.Resolved = []Resolution{{Label: "r", Value: "v"}}

	data, err := Snapshot("s", r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"calls":[],"executed":["x"],"live":0,"notified":[],"pending":[],"resolved":[{"label":"r","value":"v"}],"scenario":"s","synced":0}`,
		string(data))
}

func TestSnapshot_RejectsFloats(t *testing.T) {
	r := NewResult()
	r.Resolved = []Resolution{{Label: "r", Value: 1.5}}

	_, err := Snapshot("s", r)
	assert.Error(t, err)
}

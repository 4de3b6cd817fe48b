package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestRun_FIFOAndNotify(t *testing.T) {
	s := &Scenario{
		Name:        "fifo",
		Description: "FIFO",
		Steps: []Step{
			{Queue: "first", Notify: 10},
			{Queue: "second"},
			{Queue: "third", Notify: 11},
			{Submit: &SubmitStep{Block: true}},
		},
		Expect: Expect{
			Executed: []string{"first", "second", "third"},
			Notified: []uint32{10, 11},
		},
	}

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)
}

func TestRun_UnsubmittedCommandsNeverRun(t *testing.T) {
	s := &Scenario{
		Name:        "unsubmitted",
		Description: "no submit",
		Steps: []Step{
			{Queue: "a"},
			{QueueReturn: "r"},
		},
	}

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.Empty(t, result.Executed)
	assert.Equal(t, []string{"r"}, result.Pending)
}

func TestRun_ExplicitAndAutoResolution(t *testing.T) {
	s := &Scenario{
		Name:        "resolve",
		Description: "resolution",
		Steps: []Step{
			{QueueReturn: "explicit", Value: "done"},
			{QueueReturn: "auto"},
			{Submit: &SubmitStep{Block: true}},
		},
	}

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	require.Len(t, result.Resolved, 2)
	assert.Equal(t, Resolution{Label: "explicit", Value: "done"}, result.Resolved[0])
	assert.Equal(t, Resolution{Label: "auto", Value: nil}, result.Resolved[1])
	assert.Empty(t, result.Pending)
}

func TestRun_CancelDropsOnlyUnsubmitted(t *testing.T) {
	s := &Scenario{
		Name:        "cancel",
		Description: "cancel",
		Policy:      "sync",
		Steps: []Step{
			{Queue: "kept"},
			{Submit: &SubmitStep{Block: false}},
			{Queue: "dropped"},
			{Cancel: true},
			{Wait: true},
		},
		Expect: Expect{Executed: []string{"kept"}},
	}

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_ReportsMismatch(t *testing.T) {
	s := &Scenario{
		Name:        "mismatch",
		Description: "wrong order",
		Steps: []Step{
			{Queue: "a"},
			{Queue: "b"},
			{Submit: &SubmitStep{Block: true}},
		},
		Expect: Expect{Executed: []string{"b", "a"}, Live: intPtr(1)},
	}

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "executed")
	assert.Contains(t, result.Errors[1], "live")
}

func TestRun_ResourceLifecycle(t *testing.T) {
	s := &Scenario{
		Name:        "resources",
		Description: "resources",
		Steps: []Step{
			{Create: &CreateStep{Name: "tex", Kind: KindTexture, Width: 8, Height: 8}},
			{Create: &CreateStep{Name: "mesh", Kind: KindMesh, Vertices: 3}},
			{Sync: true},
			{Render: "mesh"},
			{Submit: &SubmitStep{Block: true}},
			{MarkDirty: &DirtyStep{Object: "mesh"}},
			{Sync: true},
			{Submit: &SubmitStep{Block: true}},
			{Destroy: "mesh"},
		},
		Expect: Expect{
			Calls:  []string{"Draw"},
			Synced: intPtr(3),
			Live:   intPtr(1),
		},
	}

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_StepErrors(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		want  string
	}{
		{"unknown object", []Step{{Destroy: "ghost"}}, `unknown object "ghost"`},
		{"texture cannot render", []Step{
			{Create: &CreateStep{Name: "tex", Kind: KindTexture}},
			{Render: "tex"},
		}, "cannot render"},
		{"render destroyed mesh", []Step{
			{Create: &CreateStep{Name: "m", Kind: KindMesh}},
			{Destroy: "m"},
			{Render: "m"},
		}, "destroyed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(t.Context(), &Scenario{Name: "err", Description: "err", Steps: tt.steps})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

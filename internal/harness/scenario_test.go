package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splitcore/internal/cmdqueue"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/queue_basics.yaml")
	require.NoError(t, err)

	assert.Equal(t, "queue_basics", s.Name)
	assert.Equal(t, cmdqueue.NoSync, s.QueuePolicy())
	require.Len(t, s.Steps, 11)
	assert.Equal(t, "a", s.Steps[0].Queue)
	assert.Equal(t, uint32(2), s.Steps[1].Notify)
	assert.Equal(t, "r1", s.Steps[2].QueueReturn)
	assert.Equal(t, 42, s.Steps[2].Value)
	require.NotNil(t, s.Steps[4].Submit)
	assert.True(t, s.Steps[4].Submit.Block)
	assert.True(t, s.Steps[7].Cancel)
	assert.Equal(t, []string{"r3"}, s.Expect.Pending)
}

func TestLoadScenario_Resources(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/resource_sync.yaml")
	require.NoError(t, err)

	assert.Equal(t, cmdqueue.Sync, s.QueuePolicy())
	require.NotNil(t, s.Steps[2].Create)
	assert.Equal(t, CreateStep{Name: "cam", Kind: KindCamera, Target: "tex", Width: 64, Height: 32}, *s.Steps[2].Create)
	require.NotNil(t, s.Expect.Synced)
	assert.Equal(t, 4, *s.Expect.Synced)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps: [{queue: a}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nsteps: [{queue: a}]\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\n",
			want: "steps list is required",
		},
		{
			name: "bad policy",
			yaml: "name: n\ndescription: d\npolicy: spin\nsteps: [{queue: a}]\n",
			want: "unknown policy",
		},
		{
			name: "two actions",
			yaml: "name: n\ndescription: d\nsteps: [{queue: a, sync: true}]\n",
			want: "exactly one action",
		},
		{
			name: "no action",
			yaml: "name: n\ndescription: d\nsteps: [{notify: 1}]\n",
			want: "exactly one action",
		},
		{
			name: "value on plain queue",
			yaml: "name: n\ndescription: d\nsteps: [{queue: a, value: 1}]\n",
			want: "value only applies",
		},
		{
			name: "duplicate return label",
			yaml: "name: n\ndescription: d\nsteps: [{queue_return: r}, {queue_return: r}]\n",
			want: "duplicate return label",
		},
		{
			name: "unknown kind",
			yaml: "name: n\ndescription: d\nsteps: [{create: {name: x, kind: shader}}]\n",
			want: "unknown kind",
		},
		{
			name: "camera target not a texture",
			yaml: "name: n\ndescription: d\nsteps: [{create: {name: m, kind: mesh}}, {create: {name: c, kind: camera, target: m}}]\n",
			want: "is not a texture",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nsteps: [{queue: a}]\nassertions: []\n",
			want: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

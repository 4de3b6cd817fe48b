package cmdqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splitcore/internal/diag"
)

func TestBreakpoint_Registry(t *testing.T) {
	t.Cleanup(ClearBreakpoints)

	id := CommandID{Queue: 900, Index: 4}
	assert.False(t, HasBreakpoint(id))

	AddBreakpoint(900, 4)
	AddBreakpoint(900, 4)
	assert.True(t, HasBreakpoint(id))

	RemoveBreakpoint(900, 4)
	assert.False(t, HasBreakpoint(id))
}

func TestBreakpointObserver_HitsRegisteredCommand(t *testing.T) {
	if !diag.Checks {
		t.Skip("breakpoints compiled out")
	}
	t.Cleanup(ClearBreakpoints)

	q := New(NoSync)
	var log []string
	q.Queue(func() { log = append(log, "first") })
	q.Queue(func() { log = append(log, "second") }, Notify(77))
	q.Queue(func() { log = append(log, "third") })

	AddBreakpoint(q.Index(), 2)

	var hits []CommandInfo
	exec := NewExecutor(WithObserver(BreakpointObserver{
		OnHit: func(info CommandInfo) {
			hits = append(hits, info)
			log = append(log, "break")
		},
	}))
	exec.Playback(q.Flush())

	require.Len(t, hits, 1)
	assert.Equal(t, CommandID{Queue: q.Index(), Index: 2}, hits[0].ID)
	assert.Equal(t, uint32(77), hits[0].CallbackID)
	assert.Equal(t, []string{"first", "break", "second", "third"}, log)
}

func TestBreakpointObserver_FatalHitViaPanic(t *testing.T) {
	if !diag.Checks {
		t.Skip("breakpoints compiled out")
	}
	t.Cleanup(ClearBreakpoints)

	q := New(NoSync)
	ran := false
	q.Queue(func() { ran = true })
	AddBreakpoint(q.Index(), 1)

	exec := NewExecutor(WithObserver(BreakpointObserver{
		OnHit: func(info CommandInfo) {
			diag.Failf(diag.CodeBreakpoint, "breakpoint %s", info.ID)
		},
	}))

	var ue *diag.UsageError
	func() {
		defer func() { ue = diag.Recover(recover()) }()
		exec.Playback(q.Flush())
	}()

	require.NotNil(t, ue)
	assert.Equal(t, diag.CodeBreakpoint, ue.Code)
	assert.False(t, ran, "breakpoint must fire before the command runs")
}

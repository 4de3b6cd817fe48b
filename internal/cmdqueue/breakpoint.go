package cmdqueue

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/roach88/splitcore/internal/diag"
)

// Process-wide breakpoint registry.
var (
	breakpointsMu sync.Mutex
	breakpoints   = make(map[CommandID]struct{})
	breakCount    atomic.Int32 // fast path for the common empty registry
)

// AddBreakpoint registers a break on command index of queue.
// Has no effect on builds without diag.Checks since commands carry no ids.
func AddBreakpoint(queue, index uint32) {
	breakpointsMu.Lock()
	defer breakpointsMu.Unlock()
	id := CommandID{Queue: queue, Index: index}
	if _, ok := breakpoints[id]; !ok {
		breakpoints[id] = struct{}{}
		breakCount.Add(1)
	}
}

// RemoveBreakpoint unregisters a breakpoint.
func RemoveBreakpoint(queue, index uint32) {
	breakpointsMu.Lock()
	defer breakpointsMu.Unlock()
	id := CommandID{Queue: queue, Index: index}
	if _, ok := breakpoints[id]; ok {
		delete(breakpoints, id)
		breakCount.Add(-1)
	}
}

// ClearBreakpoints removes every registered breakpoint.
func ClearBreakpoints() {
	breakpointsMu.Lock()
	defer breakpointsMu.Unlock()
	clear(breakpoints)
	breakCount.Store(0)
}

// HasBreakpoint reports whether id is registered.
func HasBreakpoint(id CommandID) bool {
	if breakCount.Load() == 0 {
		return false
	}
	breakpointsMu.Lock()
	defer breakpointsMu.Unlock()
	_, ok := breakpoints[id]
	return ok
}

// BreakpointObserver stops execution at registered commands.
//
// OnHit is called with the matching command; when nil the observer logs the
// command and traps into an attached debugger via runtime.Breakpoint. Tests
// and harnesses install their own OnHit.
type BreakpointObserver struct {
	OnHit func(info CommandInfo)
}

// BeforeCommand implements Observer.
func (b BreakpointObserver) BeforeCommand(info CommandInfo) {
	if !diag.Checks || !HasBreakpoint(info.ID) {
		return
	}
	if b.OnHit != nil {
		b.OnHit(info)
		return
	}
	slog.Error("command breakpoint hit",
		"queue", info.ID.Queue,
		"index", info.ID.Index,
		"debug_id", info.DebugID,
		"callback_id", info.CallbackID,
	)
	runtime.Breakpoint()
}

package cmdqueue

import (
	"fmt"

	"github.com/roach88/splitcore/internal/async"
)

// CommandID addresses one command for breakpoints and traces: the queue
// instance index plus the command's sequence number within that queue.
type CommandID struct {
	Queue uint32
	Index uint32
}

// String renders the id as "queue:index".
func (id CommandID) String() string {
	return fmt.Sprintf("%d:%d", id.Queue, id.Index)
}

// Command is one unit of deferred work.
//
// Exactly one of fn or ret is set, selected by ReturnsValue.
type Command struct {
	fn  func()
	ret func(op *async.Op)

	// ReturnsValue discriminates between the two callback kinds.
	ReturnsValue bool

	// Op is the handle the ret callback resolves. Empty for plain commands.
	Op async.Op

	// NotifyWhenComplete requests a notify callback with CallbackID after
	// the command ran.
	NotifyWhenComplete bool
	CallbackID         uint32

	// ID and DebugID are only assigned when diag.Checks is on.
	ID      CommandID
	DebugID uint32
}

// CommandOption configures a queued command.
type CommandOption func(*Command)

// Notify asks the executor to report callbackID once the command completed.
func Notify(callbackID uint32) CommandOption {
	return func(c *Command) {
		c.NotifyWhenComplete = true
		c.CallbackID = callbackID
	}
}

// Info returns the observer view of the command.
func (c *Command) Info() CommandInfo {
	return CommandInfo{
		ID:           c.ID,
		DebugID:      c.DebugID,
		CallbackID:   c.CallbackID,
		Notify:       c.NotifyWhenComplete,
		ReturnsValue: c.ReturnsValue,
	}
}

// execute runs the callback. A return-value command left unresolved by its
// callback is resolved with nil so no holder of the op waits forever.
func (c *Command) execute() {
	if !c.ReturnsValue {
		if c.fn != nil {
			c.fn()
		}
		return
	}

	op := c.Op
	if c.ret != nil {
		c.ret(&op)
	}
	if !c.Op.IsResolved() {
		c.Op.MarkResolved(nil)
	}
}

// Buffer is an ordered batch of commands produced by one Flush.
type Buffer struct {
	commands []Command
	origin   *Queue
}

func newBuffer(origin *Queue) *Buffer {
	return &Buffer{
		commands: make([]Command, 0, 32),
		origin:   origin,
	}
}

// Len returns the number of commands in the buffer.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.commands)
}

// Commands returns the commands in execution order.
// The slice aliases the buffer; do not retain it past playback.
func (b *Buffer) Commands() []Command {
	if b == nil {
		return nil
	}
	return b.commands
}

// Release returns the buffer to its queue without executing it.
func (b *Buffer) Release() {
	if b == nil {
		return
	}
	if b.origin != nil {
		b.origin.recycle(b)
		return
	}
	b.reset()
}

// reset drops every command, clearing slots so captured closures can be
// collected while the backing array stays pooled.
func (b *Buffer) reset() {
	clear(b.commands)
	b.commands = b.commands[:0]
}

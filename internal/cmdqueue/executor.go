package cmdqueue

import (
	"time"

	"github.com/roach88/splitcore/internal/metrics"
)

// NotifyFunc receives the callback id of a completed command that asked
// for notification.
type NotifyFunc func(callbackID uint32)

// Executor plays back flushed buffers on the consuming goroutine.
type Executor struct {
	observer Observer
	metrics  *metrics.Metrics
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithObserver installs a hook called before every command executes.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		e.observer = o
	}
}

// WithExecutorMetrics records playback activity in m.
func WithExecutorMetrics(m *metrics.Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Playback executes every command in buf in insertion order and returns the
// emptied buffer to its queue.
func (e *Executor) Playback(buf *Buffer) {
	e.PlaybackWithNotify(buf, nil)
}

// PlaybackWithNotify is Playback plus a notify call after each command that
// was queued with Notify. Notifications arrive in execution order.
func (e *Executor) PlaybackWithNotify(buf *Buffer, notify NotifyFunc) {
	if buf == nil {
		return
	}

	start := time.Now()
	for i := range buf.commands {
		cmd := &buf.commands[i]
		if e.observer != nil {
			info := cmd.Info()
			info.Position = i
			e.observer.BeforeCommand(info)
		}

		cmd.execute()

		if cmd.NotifyWhenComplete && notify != nil {
			notify(cmd.CallbackID)
		}
	}
	e.metrics.Played(len(buf.commands), time.Since(start))

	buf.Release()
}

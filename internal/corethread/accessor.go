package corethread

import (
	"context"

	"github.com/roach88/splitcore/internal/async"
	"github.com/roach88/splitcore/internal/cmdqueue"
)

// Accessor is a producer's handle on the core thread. It records commands
// into a private queue until SubmitToCoreThread hands them over.
//
// An accessor created with cmdqueue.NoSync belongs to the goroutine that
// created it. One created with cmdqueue.Sync may be shared.
type Accessor struct {
	ct    *CoreThread
	queue *cmdqueue.Queue
}

// NewAccessor creates an accessor whose queue is owned by the calling
// goroutine.
func (ct *CoreThread) NewAccessor(policy cmdqueue.Policy, opts ...cmdqueue.QueueOption) *Accessor {
	opts = append([]cmdqueue.QueueOption{cmdqueue.WithMetrics(ct.metrics)}, opts...)
	return &Accessor{
		ct:    ct,
		queue: cmdqueue.New(policy, opts...),
	}
}

// CoreThread returns the core thread this accessor submits to.
func (a *Accessor) CoreThread() *CoreThread { return a.ct }

// IsCoreThread reports whether the caller is the core goroutine.
func (a *Accessor) IsCoreThread() bool { return a.ct.IsCoreThread() }

// Queue exposes the underlying queue.
func (a *Accessor) Queue() *cmdqueue.Queue { return a.queue }

// QueueCommand records fn for execution on the core goroutine.
func (a *Accessor) QueueCommand(fn func(), opts ...cmdqueue.CommandOption) {
	a.queue.Queue(fn, opts...)
}

// QueueReturnCommand records a return-value command and returns its
// unresolved op.
func (a *Accessor) QueueReturnCommand(fn func(op *async.Op), opts ...cmdqueue.CommandOption) async.Op {
	return a.queue.QueueReturn(fn, opts...)
}

// CancelAll drops every command recorded since the last submit.
func (a *Accessor) CancelAll() { a.queue.CancelAll() }

// IsEmpty reports whether nothing has been recorded since the last submit.
func (a *Accessor) IsEmpty() bool { return a.queue.IsEmpty() }

// SubmitToCoreThread flushes the recorded commands and queues them on the
// core as one command.
//
// With blockUntilComplete the call returns once the core has executed the
// whole buffer. If ctx ends first the buffer still runs later; the call
// just stops waiting. A blocking submit from the core goroutine panics with
// CORE_THREAD_REENTRY.
func (a *Accessor) SubmitToCoreThread(ctx context.Context, blockUntilComplete bool) error {
	if blockUntilComplete {
		a.ct.assertNotCore("submit")
	}

	buf := a.queue.Flush()
	n := buf.Len()
	if n == 0 && !blockUntilComplete {
		buf.Release()
		return nil
	}

	ct := a.ct
	var reached chan struct{}
	if blockUntilComplete {
		reached = make(chan struct{})
	}

	err := ct.QueueCommand(func() {
		ct.executor.PlaybackWithNotify(buf, ct.notify)
		if reached != nil {
			close(reached)
		}
	})
	if err != nil {
		buf.Release()
		return err
	}

	ct.metrics.Submitted(blockUntilComplete)
	ct.logger.Debug("buffer submitted",
		"queue", a.queue.Index(),
		"commands", n,
		"blocking", blockUntilComplete,
	)

	if !blockUntilComplete {
		return nil
	}
	return ct.await(ctx, reached)
}

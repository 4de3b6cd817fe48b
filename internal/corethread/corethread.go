package corethread

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/roach88/splitcore/internal/async"
	"github.com/roach88/splitcore/internal/cmdqueue"
	"github.com/roach88/splitcore/internal/diag"
	"github.com/roach88/splitcore/internal/metrics"
	"github.com/roach88/splitcore/internal/render"
)

var (
	// ErrStopped is returned when work is handed to a core thread whose Run
	// loop has finished.
	ErrStopped = errors.New("corethread: stopped")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("corethread: already running")
)

// CoreThread owns the render system and executes queued commands on one
// goroutine.
type CoreThread struct {
	api      render.API
	queue    *cmdqueue.Queue
	executor *cmdqueue.Executor
	notify   cmdqueue.NotifyFunc
	observer cmdqueue.Observer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	signal chan struct{} // buffered, size 1

	mu      sync.Mutex
	stopped bool
	runErr  error

	running  atomic.Bool
	gid      atomic.Uint64
	started  chan struct{}
	stopping chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a CoreThread.
type Option func(*CoreThread)

// WithNotify sets the callback invoked, on the core goroutine, for every
// command queued with cmdqueue.Notify.
func WithNotify(fn cmdqueue.NotifyFunc) Option {
	return func(ct *CoreThread) {
		ct.notify = fn
	}
}

// WithObserver installs an observer called before each executed command.
func WithObserver(o cmdqueue.Observer) Option {
	return func(ct *CoreThread) {
		ct.observer = o
	}
}

// WithMetrics records queue and playback activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ct *CoreThread) {
		ct.metrics = m
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ct *CoreThread) {
		if l != nil {
			ct.logger = l
		}
	}
}

// New creates a core thread driving api. Call Run or Start to begin
// executing commands; commands queued before that are kept.
func New(api render.API, opts ...Option) *CoreThread {
	ct := &CoreThread{
		api:      api,
		logger:   slog.Default(),
		signal:   make(chan struct{}, 1),
		started:  make(chan struct{}),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ct)
	}

	ct.queue = cmdqueue.New(cmdqueue.Sync, cmdqueue.WithMetrics(ct.metrics))
	ct.executor = cmdqueue.NewExecutor(
		cmdqueue.WithObserver(ct.observer),
		cmdqueue.WithExecutorMetrics(ct.metrics),
	)
	return ct
}

// API returns the render system. Only closures running on the core
// goroutine may call it.
func (ct *CoreThread) API() render.API { return ct.api }

// Executor returns the executor used for playback on the core goroutine.
func (ct *CoreThread) Executor() *cmdqueue.Executor { return ct.executor }

// QueueIndex returns the instance index of the core's own command queue.
func (ct *CoreThread) QueueIndex() uint32 { return ct.queue.Index() }

// Run executes queued commands until ctx is cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine. That goroutine
// becomes the core goroutine and is locked to its OS thread for the
// duration of the call.
//
// On the way out Run drains every command queued before it stopped
// accepting work. It returns ctx.Err() after cancellation and nil after
// Stop.
func (ct *CoreThread) Run(ctx context.Context) error {
	if !ct.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ct.gid.Store(diag.GoroutineID())
	defer close(ct.done)
	close(ct.started)

	ct.logger.Info("core thread starting", "goroutine", ct.gid.Load())

	for {
		ct.processPending()

		select {
		case <-ctx.Done():
			ct.logger.Info("core thread stopping: context cancelled")
			ct.shutdown()
			ct.setErr(ctx.Err())
			return ctx.Err()

		case <-ct.stopping:
			ct.logger.Info("core thread stopping: stop requested")
			ct.shutdown()
			return nil

		case <-ct.signal:
		}
	}
}

// Start runs Run on a new goroutine and returns once the loop is live.
// The result of Run is available from Err after Done is closed.
func (ct *CoreThread) Start(ctx context.Context) {
	go func() {
		_ = ct.Run(ctx)
	}()
	select {
	case <-ct.started:
	case <-ct.done:
	}
}

// Stop asks Run to drain and return. It does not wait; use Done.
func (ct *CoreThread) Stop() {
	ct.stopOnce.Do(func() {
		close(ct.stopping)
	})
}

// Done is closed when Run has returned.
func (ct *CoreThread) Done() <-chan struct{} { return ct.done }

// Err returns the error Run exited with, if any.
func (ct *CoreThread) Err() error {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.runErr
}

// IsCoreThread reports whether the caller is the core goroutine.
func (ct *CoreThread) IsCoreThread() bool {
	gid := ct.gid.Load()
	return gid != 0 && gid == diag.GoroutineID()
}

// QueueCommand appends fn to the core queue. Safe from any goroutine.
func (ct *CoreThread) QueueCommand(fn func(), opts ...cmdqueue.CommandOption) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if ct.stopped {
		return ErrStopped
	}
	ct.queue.Queue(fn, opts...)
	ct.wake()
	return nil
}

// QueueReturnCommand appends a return-value command to the core queue and
// returns its unresolved op.
func (ct *CoreThread) QueueReturnCommand(fn func(op *async.Op), opts ...cmdqueue.CommandOption) (async.Op, error) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if ct.stopped {
		return async.Op{}, ErrStopped
	}
	op := ct.queue.QueueReturn(fn, opts...)
	ct.wake()
	return op, nil
}

// QueueTyped runs fn on the core goroutine and completes the returned op
// with its result.
func QueueTyped[T any](ct *CoreThread, fn func(api render.API) T, opts ...cmdqueue.CommandOption) (async.Typed[T], error) {
	api := ct.api
	op, err := ct.QueueReturnCommand(func(op *async.Op) {
		op.MarkResolved(fn(api))
	}, opts...)
	if err != nil {
		return async.Typed[T]{}, err
	}
	return async.Wrap[T](op), nil
}

// Wait blocks until every command queued on the core before the call has
// executed.
//
// Panics with CORE_THREAD_REENTRY when called on the core goroutine.
func (ct *CoreThread) Wait(ctx context.Context) error {
	ct.assertNotCore("wait")

	reached := make(chan struct{})
	if err := ct.QueueCommand(func() { close(reached) }); err != nil {
		return err
	}
	return ct.await(ctx, reached)
}

func (ct *CoreThread) await(ctx context.Context, reached <-chan struct{}) error {
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-ct.done:
		// Run drains before closing done, so the marker usually ran.
		select {
		case <-reached:
			return nil
		default:
			return ErrStopped
		}
	}
}

func (ct *CoreThread) assertNotCore(op string) {
	if ct.IsCoreThread() {
		diag.Fail(diag.CodeCoreThreadReentry, "blocking "+op+" called on the core goroutine", nil)
	}
}

// wake signals the Run loop. Non-blocking; signals coalesce.
func (ct *CoreThread) wake() {
	select {
	case ct.signal <- struct{}{}:
	default:
	}
}

func (ct *CoreThread) processPending() {
	if ct.queue.IsEmpty() {
		return
	}
	ct.executor.PlaybackWithNotify(ct.queue.Flush(), ct.notify)
}

// shutdown drains pending work, stops accepting more and drains once more
// to pick up anything queued while the flag was being set.
func (ct *CoreThread) shutdown() {
	for !ct.queue.IsEmpty() {
		ct.processPending()
	}

	ct.mu.Lock()
	ct.stopped = true
	ct.mu.Unlock()

	ct.processPending()
	ct.logger.Info("core thread stopped")
}

func (ct *CoreThread) setErr(err error) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.runErr = err
}

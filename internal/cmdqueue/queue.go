package cmdqueue

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/roach88/splitcore/internal/async"
	"github.com/roach88/splitcore/internal/diag"
	"github.com/roach88/splitcore/internal/metrics"
)

// Policy selects how a Queue synchronizes its producers.
type Policy int

const (
	// NoSync is a single-producer queue without any locking.
	NoSync Policy = iota + 1
	// Sync guards every operation with a mutex.
	Sync
)

// String returns the policy label used in logs and metrics.
func (p Policy) String() string {
	switch p {
	case NoSync:
		return "nosync"
	case Sync:
		return "sync"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// DefaultMaxPooledBuffers bounds the free list of recycled buffers.
const DefaultMaxPooledBuffers = 4

var (
	nextQueueIndex atomic.Uint32
	nextDebugID    atomic.Uint32
)

// Queue is an ordered, appendable list of commands with swap-and-return
// flush semantics.
//
// Thread-safety model:
//   - NoSync: every method except Playback-side recycling must be called by
//     the creator goroutine (asserted when diag.Checks is on)
//   - Sync: every method is safe from any goroutine
type Queue struct {
	policy Policy
	owner  uint64
	index  uint32

	mu        sync.Mutex // Sync policy only
	active    *Buffer
	nextIndex uint32

	// The free list is touched by the executor on the consumer goroutine,
	// so it has its own lock regardless of policy.
	poolMu    sync.Mutex
	pool      []*Buffer
	maxPooled int

	metrics *metrics.Metrics
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithMetrics records queue activity in m.
func WithMetrics(m *metrics.Metrics) QueueOption {
	return func(q *Queue) {
		q.metrics = m
	}
}

// WithMaxPooledBuffers bounds how many recycled buffers are kept.
// Zero disables reuse.
func WithMaxPooledBuffers(n int) QueueOption {
	return func(q *Queue) {
		if n >= 0 {
			q.maxPooled = n
		}
	}
}

// New creates a queue owned by the calling goroutine.
func New(policy Policy, opts ...QueueOption) *Queue {
	if policy != NoSync && policy != Sync {
		policy = Sync
	}
	q := &Queue{
		policy:    policy,
		owner:     diag.GoroutineID(),
		index:     nextQueueIndex.Add(1),
		maxPooled: DefaultMaxPooledBuffers,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.active = newBuffer(q)
	return q
}

// Policy returns the queue's synchronization policy.
func (q *Queue) Policy() Policy { return q.policy }

// Index returns the process-unique queue instance index used in CommandIDs.
func (q *Queue) Index() uint32 { return q.index }

// Owner returns the goroutine id of the creator.
func (q *Queue) Owner() uint64 { return q.owner }

// Queue appends a command without a return value.
// A nil fn is allowed and queues a marker that only triggers notification.
func (q *Queue) Queue(fn func(), opts ...CommandOption) {
	cmd := Command{fn: fn, Op: async.Empty()}
	q.append(cmd, opts)
}

// QueueReturn appends a command whose callback resolves the returned op.
// The op is returned unresolved; it resolves when the command executes.
func (q *Queue) QueueReturn(fn func(op *async.Op), opts ...CommandOption) async.Op {
	op := async.New()
	cmd := Command{ret: fn, ReturnsValue: true, Op: op}
	q.append(cmd, opts)
	return op
}

func (q *Queue) append(cmd Command, opts []CommandOption) {
	for _, opt := range opts {
		opt(&cmd)
	}

	q.checkThread("queue")
	q.lock()
	if diag.Checks {
		q.nextIndex++
		cmd.ID = CommandID{Queue: q.index, Index: q.nextIndex}
		cmd.DebugID = nextDebugID.Add(1)
	}
	q.active.commands = append(q.active.commands, cmd)
	q.unlock()

	q.metrics.Queued(q.policy.String())
}

// Flush takes ownership of the active buffer and installs a replacement
// drawn from the free list when one is available.
func (q *Queue) Flush() *Buffer {
	q.checkThread("flush")

	next, reused := q.takeBuffer()

	q.lock()
	buf := q.active
	q.active = next
	q.unlock()

	q.metrics.Flushed(q.policy.String(), reused)
	return buf
}

// CancelAll discards every command in the active buffer without running it.
// Ops returned for canceled commands are never resolved.
// Buffers already flushed are not affected.
func (q *Queue) CancelAll() {
	q.checkThread("cancel")

	q.lock()
	n := len(q.active.commands)
	q.active.reset()
	q.unlock()

	q.metrics.Canceled(n)
}

// IsEmpty reports whether the active buffer holds no commands.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of commands in the active buffer.
func (q *Queue) Len() int {
	q.checkThread("len")
	q.lock()
	defer q.unlock()
	return len(q.active.commands)
}

// PooledBuffers returns the size of the free list. Used for testing.
func (q *Queue) PooledBuffers() int {
	q.poolMu.Lock()
	defer q.poolMu.Unlock()
	return len(q.pool)
}

func (q *Queue) takeBuffer() (*Buffer, bool) {
	q.poolMu.Lock()
	defer q.poolMu.Unlock()

	if n := len(q.pool); n > 0 {
		buf := q.pool[n-1]
		q.pool[n-1] = nil
		q.pool = q.pool[:n-1]
		return buf, true
	}
	return newBuffer(q), false
}

// recycle empties buf and keeps it for a later Flush.
// Safe from any goroutine.
func (q *Queue) recycle(buf *Buffer) {
	buf.reset()

	q.poolMu.Lock()
	defer q.poolMu.Unlock()
	if len(q.pool) < q.maxPooled {
		q.pool = append(q.pool, buf)
	}
}

func (q *Queue) lock() {
	if q.policy == Sync {
		q.mu.Lock()
	}
}

func (q *Queue) unlock() {
	if q.policy == Sync {
		q.mu.Unlock()
	}
}

// checkThread enforces single-producer discipline for NoSync queues.
func (q *Queue) checkThread(op string) {
	if !diag.Checks || q.policy != NoSync {
		return
	}
	if gid := diag.GoroutineID(); gid != q.owner {
		diag.Fail(diag.CodeWrongThread, "nosync queue "+op+" from non-owner goroutine", map[string]string{
			"queue":     strconv.FormatUint(uint64(q.index), 10),
			"owner":     strconv.FormatUint(q.owner, 10),
			"goroutine": strconv.FormatUint(gid, 10),
		})
	}
}

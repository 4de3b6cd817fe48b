package cmdqueue

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splitcore/internal/async"
	"github.com/roach88/splitcore/internal/diag"
	"github.com/roach88/splitcore/internal/metrics"
)

var policies = []Policy{NoSync, Sync}

func TestQueue_FIFO(t *testing.T) {
	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			q := New(policy)

			const n = 50
			var log []int
			for i := 0; i < n; i++ {
				q.Queue(func() { log = append(log, i) })
			}

			NewExecutor().Playback(q.Flush())

			want := make([]int, n)
			for i := range want {
				want[i] = i
			}
			assert.Equal(t, want, log)
		})
	}
}

func TestQueue_QueueReturn_ResolvesOnPlayback(t *testing.T) {
	q := New(NoSync)

	op := q.QueueReturn(func(op *async.Op) { op.MarkResolved("texture-bytes") })
	assert.False(t, op.IsResolved(), "op must be unresolved until playback")

	NewExecutor().Playback(q.Flush())

	v, err := async.Get[string](op)
	require.NoError(t, err)
	assert.Equal(t, "texture-bytes", v)
}

func TestQueue_QueueReturn_AtMostOnce(t *testing.T) {
	q := New(NoSync)

	var second bool
	op := q.QueueReturn(func(op *async.Op) {
		op.MarkResolved(1)
		second = op.MarkResolved(2)
	})

	NewExecutor().Playback(q.Flush())

	assert.False(t, second)
	assert.True(t, op.IsResolved())
	v, err := async.Get[int](op)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestQueue_QueueReturn_AutoResolves(t *testing.T) {
	q := New(Sync)

	ran := false
	op := q.QueueReturn(func(op *async.Op) { ran = true })

	NewExecutor().Playback(q.Flush())

	assert.True(t, ran)
	assert.True(t, op.IsResolved(), "executor must resolve ops the callback left open")
	assert.True(t, op.IsEmpty())
}

func TestQueue_QueueReturn_NilCallbackAutoResolves(t *testing.T) {
	q := New(NoSync)
	op := q.QueueReturn(nil)

	NewExecutor().Playback(q.Flush())

	assert.True(t, op.IsResolved())
}

func TestQueue_CancelAll(t *testing.T) {
	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			q := New(policy)

			counter := 0
			for i := 0; i < 5; i++ {
				q.Queue(func() { counter++ })
			}
			op := q.QueueReturn(func(op *async.Op) { op.MarkResolved(true) })

			q.CancelAll()
			assert.True(t, q.IsEmpty())

			buf := q.Flush()
			assert.Equal(t, 0, buf.Len())
			NewExecutor().Playback(buf)

			assert.Equal(t, 0, counter)
			assert.False(t, op.IsResolved(), "canceled commands never resolve their op")
		})
	}
}

func TestQueue_CancelAll_DoesNotAffectFlushed(t *testing.T) {
	q := New(NoSync)

	ran := false
	q.Queue(func() { ran = true })
	buf := q.Flush()

	q.Queue(func() { t.Error("canceled command executed") })
	q.CancelAll()

	NewExecutor().Playback(buf)
	NewExecutor().Playback(q.Flush())
	assert.True(t, ran)
}

func TestQueue_FlushIsolation(t *testing.T) {
	q := New(NoSync)

	var log []string
	q.Queue(func() { log = append(log, "A") })
	bufA := q.Flush()

	q.Queue(func() { log = append(log, "B") })

	require.Equal(t, 1, bufA.Len())
	NewExecutor().Playback(bufA)
	assert.Equal(t, []string{"A"}, log)

	assert.Equal(t, 1, q.Len())
	NewExecutor().Playback(q.Flush())
	assert.Equal(t, []string{"A", "B"}, log)
}

func TestQueue_IsEmpty(t *testing.T) {
	q := New(Sync)
	assert.True(t, q.IsEmpty())

	q.Queue(func() {})
	assert.False(t, q.IsEmpty())

	q.Flush()
	assert.True(t, q.IsEmpty())
}

func TestQueue_NotifyOrder(t *testing.T) {
	q := New(NoSync)

	q.Queue(func() {}, Notify(10))
	q.Queue(func() {})
	q.QueueReturn(func(op *async.Op) {}, Notify(11))
	q.Queue(nil, Notify(12))

	var notified []uint32
	NewExecutor().PlaybackWithNotify(q.Flush(), func(id uint32) {
		notified = append(notified, id)
	})

	assert.Equal(t, []uint32{10, 11, 12}, notified)
}

func TestQueue_NotifyAfterCommandRuns(t *testing.T) {
	q := New(NoSync)

	var events []string
	q.Queue(func() { events = append(events, "run") }, Notify(1))

	NewExecutor().PlaybackWithNotify(q.Flush(), func(uint32) {
		events = append(events, "notify")
	})

	assert.Equal(t, []string{"run", "notify"}, events)
}

func TestQueue_SyncConcurrentProducers(t *testing.T) {
	q := New(Sync)

	const producers = 8
	const perProducer = 500

	var counter atomic.Int64
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Queue(func() { counter.Add(1) })
			}
		}()
	}
	wg.Wait()

	buf := q.Flush()
	assert.Equal(t, producers*perProducer, buf.Len())

	NewExecutor().Playback(buf)
	assert.Equal(t, int64(producers*perProducer), counter.Load())
}

func TestQueue_SyncFlushFromOtherGoroutine(t *testing.T) {
	q := New(Sync)
	q.Queue(func() {})

	got := make(chan int, 1)
	go func() { got <- q.Flush().Len() }()

	assert.Equal(t, 1, <-got)
}

func TestQueue_NoSyncWrongThreadPanics(t *testing.T) {
	if !diag.Checks {
		t.Skip("thread checks compiled out")
	}
	q := New(NoSync)

	ops := map[string]func(){
		"queue":  func() { q.Queue(func() {}) },
		"return": func() { q.QueueReturn(nil) },
		"flush":  func() { q.Flush() },
		"cancel": func() { q.CancelAll() },
		"empty":  func() { q.IsEmpty() },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			result := make(chan *diag.UsageError, 1)
			go func() {
				defer func() { result <- diag.Recover(recover()) }()
				op()
			}()

			ue := <-result
			require.NotNil(t, ue, "expected WRONG_THREAD panic")
			assert.Equal(t, diag.CodeWrongThread, ue.Code)
		})
	}
	assert.True(t, q.IsEmpty(), "rejected calls must not modify the queue")
}

func TestQueue_CommandIDs(t *testing.T) {
	if !diag.Checks {
		t.Skip("command ids compiled out")
	}
	q := New(NoSync)
	q.Queue(func() {})
	q.Queue(func() {})
	q.Flush()
	q.Queue(func() {})

	buf := q.Flush()
	require.Equal(t, 1, buf.Len())
	cmd := buf.Commands()[0]
	assert.Equal(t, CommandID{Queue: q.Index(), Index: 3}, cmd.ID, "index keeps counting across flushes")
	assert.NotZero(t, cmd.DebugID)
}

func TestQueue_DistinctIndices(t *testing.T) {
	a := New(NoSync)
	b := New(NoSync)
	assert.NotEqual(t, a.Index(), b.Index())
}

func TestQueue_BufferReuse(t *testing.T) {
	q := New(NoSync)
	exec := NewExecutor()

	q.Queue(func() {})
	first := q.Flush()
	exec.Playback(first)
	assert.Equal(t, 1, q.PooledBuffers())

	q.Queue(func() {})
	q.Flush()
	assert.Equal(t, 0, q.PooledBuffers(), "flush should draw from the free list")
}

func TestQueue_MaxPooledBuffers(t *testing.T) {
	q := New(NoSync, WithMaxPooledBuffers(1))
	exec := NewExecutor()

	a := q.Flush()
	b := q.Flush()
	exec.Playback(a)
	exec.Playback(b)

	assert.Equal(t, 1, q.PooledBuffers())
}

func TestQueue_Metrics(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	q := New(Sync, WithMetrics(m))
	q.Queue(func() {})
	q.Queue(func() {})
	q.CancelAll()
	q.Queue(func() {})
	NewExecutor(WithExecutorMetrics(m)).Playback(q.Flush())

	assert.Equal(t, 3.0, testutil.ToFloat64(m.CommandsQueued.WithLabelValues("sync")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandsCanceled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsExecuted))
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "nosync", NoSync.String())
	assert.Equal(t, "sync", Sync.String())
	assert.Equal(t, "policy(9)", Policy(9).String())
}

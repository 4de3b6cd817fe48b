package trace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/splitcore/internal/cmdqueue"
)

// Sequencer hands out strictly increasing sequence numbers.
type Sequencer interface {
	Next() int64
}

// Clock is the default Sequencer: a monotonic counter starting at 0, so
// the first Next returns 1.
type Clock struct {
	seq atomic.Int64
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 { return c.seq.Add(1) }

// Current returns the last number handed out.
func (c *Clock) Current() int64 { return c.seq.Load() }

// Recorder is a cmdqueue.Observer that buffers one Record per executed
// command and writes them to a Store on Flush.
//
// BeforeCommand runs on the core goroutine; Flush may run anywhere.
type Recorder struct {
	store     *Store
	sessionID string
	clock     Sequencer

	mu      sync.Mutex
	pending []Record
	written int
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSequencer overrides seq numbering. Used for testing.
func WithSequencer(s Sequencer) RecorderOption {
	return func(r *Recorder) {
		r.clock = s
	}
}

// NewRecorder records into sessionID of store. store may be nil to keep
// records in memory only.
func NewRecorder(store *Store, sessionID string, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, sessionID: sessionID, clock: &Clock{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SessionID returns the session being recorded.
func (r *Recorder) SessionID() string { return r.sessionID }

// BeforeCommand implements cmdqueue.Observer.
func (r *Recorder) BeforeCommand(info cmdqueue.CommandInfo) {
	rec := Record{
		Seq:          r.clock.Next(),
		Queue:        info.ID.Queue,
		Index:        info.ID.Index,
		DebugID:      info.DebugID,
		CallbackID:   info.CallbackID,
		Notify:       info.Notify,
		ReturnsValue: info.ReturnsValue,
		Position:     info.Position,
	}
	r.mu.Lock()
	r.pending = append(r.pending, rec)
	r.mu.Unlock()
}

// Pending returns a copy of the records not yet flushed.
func (r *Recorder) Pending() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.pending...)
}

// Written returns how many records Flush has stored.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Flush writes pending records to the store. On error the records stay
// pending so a later Flush can retry. Without a store Flush is a no-op.
func (r *Recorder) Flush(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := r.store.WriteRecords(ctx, r.sessionID, batch); err != nil {
		r.mu.Lock()
		r.pending = append(batch, r.pending...)
		r.mu.Unlock()
		return fmt.Errorf("flush trace: %w", err)
	}

	r.mu.Lock()
	r.written += len(batch)
	r.mu.Unlock()

	slog.Debug("trace flushed", "session", r.sessionID, "records", len(batch))
	return nil
}

var _ cmdqueue.Observer = (*Recorder)(nil)

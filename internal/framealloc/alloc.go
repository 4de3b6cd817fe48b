// Package framealloc provides a frame-scoped bump allocator for the payloads
// objects hand from the sim side to the core side during a sync pass.
//
// Memory handed out by Alloc stays valid until the next Clear. The frame
// driver calls Clear once the core thread has consumed the frame's syncs.
package framealloc

import "sync"

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize = 64 << 10

// Allocator hands out byte slices carved from large chunks.
type Allocator struct {
	mu        sync.Mutex
	chunkSize int
	chunks    [][]byte
	current   int // index into chunks
	offset    int // used bytes in chunks[current]
	large     [][]byte
	used      int
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithChunkSize sets the chunk size. Non-positive values are ignored.
func WithChunkSize(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.chunkSize = n
		}
	}
}

// New creates an allocator with one chunk ready.
func New(opts ...Option) *Allocator {
	a := &Allocator{chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(a)
	}
	a.chunks = [][]byte{make([]byte, a.chunkSize)}
	return a
}

// Alloc returns a zeroed slice of length n.
//
// Requests larger than the chunk size get a dedicated chunk.
func (a *Allocator) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.used += n

	if n > a.chunkSize {
		big := make([]byte, n)
		a.large = append(a.large, big)
		return big
	}

	if a.offset+n > a.chunkSize {
		a.advance()
	}

	chunk := a.chunks[a.current]
	out := chunk[a.offset : a.offset+n : a.offset+n]
	a.offset += n
	return out
}

// advance starts a fresh chunk.
func (a *Allocator) advance() {
	a.chunks = append(a.chunks, make([]byte, a.chunkSize))
	a.current = len(a.chunks) - 1
	a.offset = 0
}

// Clear frees every allocation. It keeps the first chunk, zeroed, and drops
// the rest.
func (a *Allocator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	first := a.chunks[0]
	clear(first)
	clear(a.chunks)
	a.chunks = a.chunks[:1]
	a.chunks[0] = first
	clear(a.large)
	a.large = a.large[:0]
	a.current = 0
	a.offset = 0
	a.used = 0
}

// Used returns the number of bytes handed out since the last Clear.
func (a *Allocator) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// Chunks returns how many chunks are currently held, oversized ones
// included.
func (a *Allocator) Chunks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.chunks) + len(a.large)
}

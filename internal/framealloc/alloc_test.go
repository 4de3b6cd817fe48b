package framealloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_Alloc(t *testing.T) {
	a := New(WithChunkSize(16))

	b1 := a.Alloc(8)
	b2 := a.Alloc(8)
	require.Len(t, b1, 8)
	require.Len(t, b2, 8)
	assert.Equal(t, 1, a.Chunks())
	assert.Equal(t, 16, a.Used())

	// Writes through one slice must not leak into the next.
	for i := range b1 {
		b1[i] = 0xff
	}
	assert.Equal(t, make([]byte, 8), b2)

	// Capacity is clipped so append cannot overwrite a neighbour.
	assert.Equal(t, 8, cap(b1))
}

func TestAllocator_GrowsChunks(t *testing.T) {
	a := New(WithChunkSize(16))
	a.Alloc(10)
	a.Alloc(10)
	assert.Equal(t, 2, a.Chunks())
}

func TestAllocator_Oversized(t *testing.T) {
	a := New(WithChunkSize(16))
	small := a.Alloc(4)
	big := a.Alloc(100)
	more := a.Alloc(4)

	assert.Len(t, big, 100)
	assert.Len(t, small, 4)
	assert.Len(t, more, 4)
	assert.Equal(t, 2, a.Chunks(), "oversized allocation gets its own chunk")
	assert.Equal(t, 108, a.Used())
}

func TestAllocator_ZeroAndNegative(t *testing.T) {
	a := New()
	assert.Nil(t, a.Alloc(0))
	assert.Nil(t, a.Alloc(-1))
	assert.Equal(t, 0, a.Used())
}

func TestAllocator_Clear(t *testing.T) {
	a := New(WithChunkSize(16))
	b := a.Alloc(16)
	b[0] = 1
	a.Alloc(16)
	a.Alloc(64)
	require.Equal(t, 3, a.Chunks())

	a.Clear()
	assert.Equal(t, 0, a.Used())
	assert.Equal(t, 1, a.Chunks())

	fresh := a.Alloc(16)
	assert.Equal(t, make([]byte, 16), fresh, "cleared memory comes back zeroed")
}

func TestAllocator_Concurrent(t *testing.T) {
	a := New(WithChunkSize(64))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				a.Alloc(3)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8*100*3, a.Used())
}

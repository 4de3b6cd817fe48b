package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepSequencer_Stride(t *testing.T) {
	seq := NewStepSequencer(100, 10)
	assert.Equal(t, int64(100), seq.Next())
	assert.Equal(t, int64(110), seq.Next())
	assert.Equal(t, int64(120), seq.Next())
	assert.Equal(t, []int64{100, 110, 120}, seq.Issued())
}

func TestStepSequencer_MinimumStep(t *testing.T) {
	seq := NewStepSequencer(1, 0)
	assert.Equal(t, int64(1), seq.Next())
	assert.Equal(t, int64(2), seq.Next())
}

func TestStepSequencer_Concurrent(t *testing.T) {
	seq := NewStepSequencer(1, 2)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				seq.Next()
			}
		}()
	}
	wg.Wait()

	issued := seq.Issued()
	assert.Len(t, issued, 400)
	for i, v := range issued {
		assert.Equal(t, int64(1+2*i), v, "issued in order without gaps")
	}
}

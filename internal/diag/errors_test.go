package diag

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageError_Error(t *testing.T) {
	err := &UsageError{Code: CodeWrongThread, Message: "queue used from goroutine 7"}
	assert.Equal(t, "WRONG_THREAD: queue used from goroutine 7", err.Error())
}

func TestIsCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", &UsageError{Code: CodeNotDestroyed, Message: "x"})

	assert.True(t, IsUsageError(err))
	assert.True(t, IsCode(err, CodeNotDestroyed))
	assert.False(t, IsCode(err, CodeWrongThread))
	assert.False(t, IsUsageError(errors.New("plain")))
}

func TestFail_PanicsWithUsageError(t *testing.T) {
	var got *UsageError
	func() {
		defer func() { got = Recover(recover()) }()
		Fail(CodeCoreThreadReentry, "wait from core", map[string]string{"goroutine": "1"})
	}()

	require.NotNil(t, got)
	assert.Equal(t, CodeCoreThreadReentry, got.Code)
	assert.Equal(t, "1", got.Details["goroutine"])
}

func TestRecover_NonUsagePanic(t *testing.T) {
	assert.Nil(t, Recover(nil))
	assert.Nil(t, Recover("boom"))
	assert.Nil(t, Recover(errors.New("boom")))
}

func TestGoroutineID_DistinctPerGoroutine(t *testing.T) {
	main := GoroutineID()
	require.NotZero(t, main)
	assert.Equal(t, main, GoroutineID(), "id must be stable within a goroutine")

	var other uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = GoroutineID()
	}()
	wg.Wait()

	assert.NotZero(t, other)
	assert.NotEqual(t, main, other)
}

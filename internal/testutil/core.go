package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/roach88/splitcore/internal/corethread"
	"github.com/roach88/splitcore/internal/render"
)

// StartCore starts a core thread over a recording backend and stops it
// when the test ends.
func StartCore(t testing.TB, opts ...corethread.Option) (*corethread.CoreThread, *render.Recorder) {
	t.Helper()
	rec := render.NewRecorder()
	ct := corethread.New(rec, opts...)
	ct.Start(context.Background())
	t.Cleanup(func() {
		ct.Stop()
		select {
		case <-ct.Done():
		case <-time.After(5 * time.Second):
			t.Error("core thread did not stop")
		}
	})
	return ct, rec
}

// Context returns a context that times out after d and is cancelled when
// the test ends.
func Context(t testing.TB, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

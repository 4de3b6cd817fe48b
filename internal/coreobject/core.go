package coreobject

import (
	"sync"
	"sync/atomic"
)

// DirtyFlags is a bitmask of sim-side state that changed since the last
// sync. The meaning of each bit is up to the object kind.
type DirtyFlags uint32

// AllDirty is the state of a freshly created object.
const AllDirty = ^DirtyFlags(0)

// SyncData is the payload handed to the core counterpart. Bytes lives in
// frame-allocated memory and is only valid during the frame it was made in.
type SyncData struct {
	Dirty DirtyFlags
	Bytes []byte
}

// Core is the core-side counterpart of an Object. Every method except
// IsInitialized and InitDone runs on the core goroutine, or inline on the
// creating goroutine for objects that do not require core-thread init.
type Core interface {
	Initialize()
	SyncToCore(data SyncData)
	Destroy()

	IsInitialized() bool
	// InitDone is closed once Initialize completed.
	InitDone() <-chan struct{}
}

// CoreBase provides the initialization bookkeeping of Core. Embed it and
// call CoreBase.Initialize at the end of an overriding Initialize.
type CoreBase struct {
	initialized atomic.Bool
	doneOnce    sync.Once
	done        chan struct{}
	closeOnce   sync.Once
}

func (b *CoreBase) doneCh() chan struct{} {
	b.doneOnce.Do(func() {
		b.done = make(chan struct{})
	})
	return b.done
}

// Initialize marks the core initialized and wakes waiters.
func (b *CoreBase) Initialize() {
	b.initialized.Store(true)
	ch := b.doneCh()
	b.closeOnce.Do(func() {
		close(ch)
	})
}

// SyncToCore ignores the payload.
func (b *CoreBase) SyncToCore(SyncData) {}

// Destroy does nothing.
func (b *CoreBase) Destroy() {}

// IsInitialized reports whether Initialize has run.
func (b *CoreBase) IsInitialized() bool { return b.initialized.Load() }

// InitDone is closed once Initialize has run.
func (b *CoreBase) InitDone() <-chan struct{} { return b.doneCh() }

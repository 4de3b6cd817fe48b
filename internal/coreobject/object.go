package coreobject

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/roach88/splitcore/internal/cmdqueue"
	"github.com/roach88/splitcore/internal/diag"
	"github.com/roach88/splitcore/internal/framealloc"
)

var (
	// ErrNotInitialized is returned when waiting on an object whose
	// Initialize was never called.
	ErrNotInitialized = errors.New("coreobject: not initialized")

	// ErrNoQueue is returned when core-thread init is required but no
	// queue was given.
	ErrNoQueue = errors.New("coreobject: core queue required")

	// ErrDestroyed is returned when initializing a destroyed object.
	ErrDestroyed = errors.New("coreobject: destroyed")
)

// Flags configure an object at construction.
type Flags uint32

const (
	// RequiresInitOnCoreThread defers Core.Initialize to the core goroutine
	// and routes Core.Destroy through the core queue.
	RequiresInitOnCoreThread Flags = 1 << iota
)

// Impl is the object-kind specific half of an Object.
type Impl interface {
	// CreateCore builds the core counterpart. Returning nil means the
	// object has no core side.
	CreateCore() Core
	// SyncToCore serializes the state named by dirty into memory from
	// alloc.
	SyncToCore(alloc *framealloc.Allocator, dirty DirtyFlags) []byte
}

// Dependent is implemented by kinds whose core side reads other objects'
// core state. Dependencies are synced first.
type Dependent interface {
	CoreDependencies() []*Object
}

// CoreQueue is where core init and teardown are queued. Pass the accessor
// that also carries the object's sync and draw commands: teardown then runs
// after every one of them. *corethread.Accessor implements it.
type CoreQueue interface {
	QueueCommand(fn func(), opts ...cmdqueue.CommandOption)
	IsCoreThread() bool
}

// Registry tracks live objects and their dirty state. *Manager implements
// it.
type Registry interface {
	Register(o *Object)
	Unregister(o *Object)
	NotifyDirty(o *Object)
	NotifyDependenciesDirty(o *Object)
}

var nextObjectID atomic.Uint64

type coreRef struct {
	core  Core
	queue CoreQueue
}

// Object is the sim-side half of a CoreObject pair.
type Object struct {
	id    uint64
	impl  Impl
	reg   Registry
	flags Flags

	core        atomic.Pointer[coreRef]
	initialized atomic.Bool
	destroyed   atomic.Bool

	mu    sync.Mutex
	dirty DirtyFlags
}

// New creates an object and registers it with reg. reg may be nil for
// objects that are never synced.
func New(reg Registry, impl Impl, flags Flags) *Object {
	o := &Object{
		id:    nextObjectID.Add(1),
		impl:  impl,
		reg:   reg,
		flags: flags,
		dirty: AllDirty,
	}
	if reg != nil {
		reg.Register(o)
	}
	return o
}

// ID returns the process-unique object id.
func (o *Object) ID() uint64 { return o.id }

// Impl returns the kind-specific half.
func (o *Object) Impl() Impl { return o.impl }

// Flags returns the construction flags.
func (o *Object) Flags() Flags { return o.flags }

// RequiresInitOnCoreThread reports whether core init runs on the core
// goroutine.
func (o *Object) RequiresInitOnCoreThread() bool {
	return o.flags&RequiresInitOnCoreThread != 0
}

// Core returns the core counterpart, or nil before Initialize and after
// Destroy. Only the core goroutine may call its methods.
func (o *Object) Core() Core {
	if ref := o.core.Load(); ref != nil {
		return ref.core
	}
	return nil
}

// IsInitialized reports whether Initialize has been called. The core side
// may still be initializing; see BlockUntilCoreInitialized.
func (o *Object) IsInitialized() bool { return o.initialized.Load() }

// IsDestroyed reports whether Destroy has been called.
func (o *Object) IsDestroyed() bool { return o.destroyed.Load() }

// Initialize creates the core counterpart and initializes it, inline or on
// the core goroutine depending on RequiresInitOnCoreThread. Core-thread init
// runs once q is submitted.
//
// Panics with ALREADY_INITIALIZED on a second call, and with
// CORE_INIT_FROM_CORE when core-thread init is requested from the core
// goroutine itself.
func (o *Object) Initialize(q CoreQueue) error {
	if o.destroyed.Load() {
		return ErrDestroyed
	}
	if !o.initialized.CompareAndSwap(false, true) {
		diag.Fail(diag.CodeAlreadyInitialized, "object "+o.idString()+" initialized twice", nil)
	}
	core := o.impl.CreateCore()
	if core == nil {
		return nil
	}

	if !o.RequiresInitOnCoreThread() {
		core.Initialize()
		o.core.Store(&coreRef{core: core, queue: q})
		return nil
	}

	if q == nil {
		o.initialized.Store(false)
		return ErrNoQueue
	}
	if diag.Checks && q.IsCoreThread() {
		diag.Fail(diag.CodeCoreInitFromCore, "object "+o.idString()+" requires core init but was initialized on the core goroutine", nil)
	}

	o.core.Store(&coreRef{core: core, queue: q})
	q.QueueCommand(core.Initialize)
	return nil
}

// BlockUntilCoreInitialized waits until the core counterpart finished
// Initialize. The queue given to Initialize must have been submitted.
//
// Panics with CORE_THREAD_REENTRY when the core is still pending and the
// caller is the core goroutine, since that wait could never finish.
func (o *Object) BlockUntilCoreInitialized(ctx context.Context) error {
	if !o.initialized.Load() {
		return ErrNotInitialized
	}
	ref := o.core.Load()
	if ref == nil || ref.core.IsInitialized() {
		return nil
	}
	core := ref.core
	if ref.queue != nil && ref.queue.IsCoreThread() {
		diag.Fail(diag.CodeCoreThreadReentry, "waiting for core init of object "+o.idString()+" on the core goroutine", nil)
	}

	select {
	case <-core.InitDone():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Destroy unregisters the object and tears down its core counterpart.
// Objects with core-thread init queue the teardown on the queue given to
// Initialize, behind every command already recorded there. Calling Destroy
// twice is a no-op.
//
// Panics with CORE_INIT_FROM_CORE when such an object is destroyed from the
// core goroutine.
func (o *Object) Destroy() {
	if diag.Checks && o.RequiresInitOnCoreThread() && !o.destroyed.Load() {
		if ref := o.core.Load(); ref != nil && ref.queue != nil && ref.queue.IsCoreThread() {
			diag.Fail(diag.CodeCoreInitFromCore, "object "+o.idString()+" requires core teardown but was destroyed on the core goroutine", nil)
		}
	}
	if !o.destroyed.CompareAndSwap(false, true) {
		return
	}
	if o.reg != nil {
		o.reg.Unregister(o)
	}

	ref := o.core.Swap(nil)
	if ref == nil {
		return
	}
	if o.RequiresInitOnCoreThread() && ref.queue != nil {
		ref.queue.QueueCommand(ref.core.Destroy)
		return
	}
	ref.core.Destroy()
}

// Release ends the caller's use of the object. It panics with
// NOT_DESTROYED if Destroy was never called.
func (o *Object) Release() {
	if !o.destroyed.Load() {
		diag.Fail(diag.CodeNotDestroyed, "object "+o.idString()+" released before Destroy", map[string]string{
			"object": o.idString(),
		})
	}
}

// MarkCoreDirty ORs flags into the dirty mask. The registry hears about it
// only on the clean to dirty transition.
func (o *Object) MarkCoreDirty(flags DirtyFlags) {
	if flags == 0 {
		return
	}
	o.mu.Lock()
	wasClean := o.dirty == 0
	o.dirty |= flags
	o.mu.Unlock()

	if wasClean && o.reg != nil {
		o.reg.NotifyDirty(o)
	}
}

// MarkDependenciesDirty tells the registry to re-read CoreDependencies.
func (o *Object) MarkDependenciesDirty() {
	if o.reg != nil {
		o.reg.NotifyDependenciesDirty(o)
	}
}

// CoreDirtyFlags returns the current dirty mask.
func (o *Object) CoreDirtyFlags() DirtyFlags {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dirty
}

// IsCoreDirty reports whether any dirty bit is set.
func (o *Object) IsCoreDirty() bool {
	return o.CoreDirtyFlags() != 0
}

// takeDirty returns and clears the dirty mask.
func (o *Object) takeDirty() DirtyFlags {
	o.mu.Lock()
	defer o.mu.Unlock()
	flags := o.dirty
	o.dirty = 0
	return flags
}

func (o *Object) dependencies() []*Object {
	dep, ok := o.impl.(Dependent)
	if !ok {
		return nil
	}
	return dep.CoreDependencies()
}

func (o *Object) idString() string {
	return strconv.FormatUint(o.id, 10)
}

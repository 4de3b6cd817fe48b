package coreobject

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/splitcore/internal/cmdqueue"
	"github.com/roach88/splitcore/internal/framealloc"
	"github.com/roach88/splitcore/internal/metrics"
)

// ErrLeaked is wrapped by Shutdown when objects were never destroyed.
var ErrLeaked = errors.New("coreobject: objects not destroyed")

// SyncQueue receives the per-object sync commands.
// *corethread.Accessor implements it.
type SyncQueue interface {
	QueueCommand(fn func(), opts ...cmdqueue.CommandOption)
}

// Manager is the registry of live objects and drives the per-frame sync.
//
// Thread-safety: all methods are safe for concurrent use. Object kinds must
// not call back into the Manager from CoreDependencies.
type Manager struct {
	mu      sync.Mutex
	objects map[uint64]*Object
	dirty   map[uint64]struct{}
	deps    map[uint64][]*Object // cached CoreDependencies

	metrics *metrics.Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMetrics records sync activity and object counts.
func WithMetrics(m *metrics.Metrics) ManagerOption {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// NewManager creates an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		objects: make(map[uint64]*Object),
		dirty:   make(map[uint64]struct{}),
		deps:    make(map[uint64][]*Object),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register implements Registry. New objects start fully dirty, so they go
// straight into the dirty set.
func (m *Manager) Register(o *Object) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[o.id] = o
	if o.IsCoreDirty() {
		m.dirty[o.id] = struct{}{}
	}
	m.updateGauges()
}

// Unregister implements Registry.
func (m *Manager) Unregister(o *Object) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, o.id)
	delete(m.dirty, o.id)
	delete(m.deps, o.id)
	m.updateGauges()
}

// NotifyDirty implements Registry. Adding an object that is already in the
// dirty set changes nothing.
func (m *Manager) NotifyDirty(o *Object) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[o.id]; !ok {
		return
	}
	m.dirty[o.id] = struct{}{}
	m.updateGauges()
}

// NotifyDependenciesDirty implements Registry. The cached dependency list
// is dropped and re-read on the next sync.
func (m *Manager) NotifyDependenciesDirty(o *Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deps, o.id)
}

// SyncToCore serializes every dirty, initialized object into alloc and
// queues the matching core-side sync on q. Dependencies sync before the
// objects that depend on them; cycles are broken at the first revisit.
// Objects that are not initialized yet stay dirty.
//
// Returns the number of objects synced.
func (m *Manager) SyncToCore(alloc *framealloc.Allocator, q SyncQueue) int {
	m.mu.Lock()
	roots := make([]*Object, 0, len(m.dirty))
	for id := range m.dirty {
		roots = append(roots, m.objects[id])
	}
	m.mu.Unlock()

	slices.SortFunc(roots, byID)

	visited := make(map[uint64]bool)
	var order []*Object
	var visit func(o *Object)
	visit = func(o *Object) {
		if visited[o.id] {
			return
		}
		visited[o.id] = true
		for _, dep := range m.dependencies(o) {
			if dep != nil {
				visit(dep)
			}
		}
		order = append(order, o)
	}
	for _, o := range roots {
		visit(o)
	}

	synced := 0
	for _, o := range order {
		if m.syncObject(alloc, q, o) {
			synced++
		}
	}

	m.metrics.Synced(synced)
	m.mu.Lock()
	m.updateGauges()
	m.mu.Unlock()

	slog.Debug("core sync pass",
		"dirty", len(roots),
		"visited", len(order),
		"synced", synced,
	)
	return synced
}

func (m *Manager) syncObject(alloc *framealloc.Allocator, q SyncQueue, o *Object) bool {
	if !o.IsInitialized() {
		return false
	}

	// Leave the dirty set before taking the flags: a concurrent mark after
	// this point sees a clean object and re-registers it.
	m.mu.Lock()
	_, registered := m.objects[o.id]
	delete(m.dirty, o.id)
	m.mu.Unlock()
	if !registered {
		return false
	}

	flags := o.takeDirty()
	ref := o.core.Load()
	if flags == 0 || ref == nil {
		return false
	}

	data := SyncData{
		Dirty: flags,
		Bytes: o.impl.SyncToCore(alloc, flags),
	}
	core := ref.core
	q.QueueCommand(func() {
		core.SyncToCore(data)
	})
	return true
}

func (m *Manager) dependencies(o *Object) []*Object {
	m.mu.Lock()
	deps, ok := m.deps[o.id]
	m.mu.Unlock()
	if ok {
		return deps
	}

	deps = o.dependencies()

	m.mu.Lock()
	if _, live := m.objects[o.id]; live {
		m.deps[o.id] = deps
	}
	m.mu.Unlock()
	return deps
}

// Objects returns the live objects ordered by id.
func (m *Manager) Objects() []*Object {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Object, 0, len(m.objects))
	for _, o := range m.objects {
		out = append(out, o)
	}
	slices.SortFunc(out, byID)
	return out
}

// Len returns the number of live objects.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// DirtyCount returns the size of the dirty set.
func (m *Manager) DirtyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dirty)
}

// IsDirty reports whether o is in the dirty set.
func (m *Manager) IsDirty(o *Object) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.dirty[o.id]
	return ok
}

// Shutdown reports objects that were never destroyed.
func (m *Manager) Shutdown() error {
	leaked := m.Objects()
	if len(leaked) == 0 {
		return nil
	}

	ids := make([]uint64, len(leaked))
	for i, o := range leaked {
		ids[i] = o.id
	}
	slog.Warn("core objects leaked at shutdown", "count", len(ids), "ids", ids)
	return fmt.Errorf("%w: %d live (ids %v)", ErrLeaked, len(ids), ids)
}

func byID(a, b *Object) int { return cmp.Compare(a.id, b.id) }

// updateGauges must be called with m.mu held.
func (m *Manager) updateGauges() {
	m.metrics.SetObjects(len(m.objects), len(m.dirty))
}

var _ Registry = (*Manager)(nil)

package resource

import (
	"sync"

	"github.com/roach88/splitcore/internal/coreobject"
	"github.com/roach88/splitcore/internal/corethread"
	"github.com/roach88/splitcore/internal/framealloc"
)

// MeshDirtyCounts marks a change of vertex or index count.
const MeshDirtyCounts coreobject.DirtyFlags = 1

// Mesh is the sim-side mesh. Only element counts are modelled.
type Mesh struct {
	obj *coreobject.Object

	mu       sync.Mutex
	vertices int
	indices  int
}

// NewMesh creates a mesh whose core side is created on the core goroutine
// when acc is next submitted.
func NewMesh(mgr coreobject.Registry, acc *corethread.Accessor, vertices, indices int) (*Mesh, error) {
	m := &Mesh{vertices: vertices, indices: indices}
	m.obj = coreobject.New(mgr, (*meshImpl)(m), coreobject.RequiresInitOnCoreThread)
	if err := m.obj.Initialize(acc); err != nil {
		m.obj.Destroy()
		return nil, err
	}
	created.Add(1)
	return m, nil
}

// Object returns the underlying CoreObject.
func (m *Mesh) Object() *coreobject.Object { return m.obj }

// SetCounts updates the element counts.
func (m *Mesh) SetCounts(vertices, indices int) {
	m.mu.Lock()
	m.vertices, m.indices = vertices, indices
	m.mu.Unlock()
	m.obj.MarkCoreDirty(MeshDirtyCounts)
}

// Core returns the core-side mesh, or nil once destroyed.
func (m *Mesh) Core() *MeshCore {
	c, _ := m.obj.Core().(*MeshCore)
	return c
}

// Draw records a draw of the mesh using the counts the core side holds
// when the command runs.
func (m *Mesh) Draw(acc *corethread.Accessor) error {
	core := m.Core()
	if core == nil {
		return ErrDestroyed
	}
	api := acc.CoreThread().API()
	acc.QueueCommand(func() {
		if core.indices > 0 {
			api.DrawIndexed(0, core.indices, 0)
			return
		}
		api.Draw(0, core.vertices)
	})
	return nil
}

// Destroy tears down the mesh.
func (m *Mesh) Destroy() { m.obj.Destroy() }

// Release panics if Destroy was not called first.
func (m *Mesh) Release() { m.obj.Release() }

type meshImpl Mesh

func (mi *meshImpl) CreateCore() coreobject.Core {
	return &MeshCore{}
}

func (mi *meshImpl) SyncToCore(alloc *framealloc.Allocator, dirty coreobject.DirtyFlags) []byte {
	m := (*Mesh)(mi)
	m.mu.Lock()
	vertices, indices := m.vertices, m.indices
	m.mu.Unlock()

	w := writer{buf: alloc.Alloc(12)}
	w.u32(uint32(dirty))
	w.i32(vertices)
	w.i32(indices)
	return w.buf
}

// MeshCore is the core-side mesh. Its counts arrive through sync, so a
// mesh drawn before its first sync draws nothing.
type MeshCore struct {
	coreobject.CoreBase

	vertices int
	indices  int
}

// SyncToCore applies the element counts.
func (c *MeshCore) SyncToCore(data coreobject.SyncData) {
	r := reader{buf: data.Bytes}
	r.u32()
	c.vertices = r.i32()
	c.indices = r.i32()
}

// Counts returns the core-side counts. Core goroutine only.
func (c *MeshCore) Counts() (vertices, indices int) { return c.vertices, c.indices }

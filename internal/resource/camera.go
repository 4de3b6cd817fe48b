package resource

import (
	"sync"

	"github.com/roach88/splitcore/internal/coreobject"
	"github.com/roach88/splitcore/internal/corethread"
	"github.com/roach88/splitcore/internal/framealloc"
	"github.com/roach88/splitcore/internal/render"
)

// Camera dirty bits.
const (
	CameraTransform coreobject.DirtyFlags = 1 << iota
	CameraViewport
	// CameraRedraw requests a redraw without any state change.
	CameraRedraw
)

// Camera renders into a target texture. Its core side is initialized inline
// and syncs after the target it depends on.
type Camera struct {
	obj *coreobject.Object

	mu       sync.Mutex
	target   *Texture
	position [3]float32
	viewport render.Rect
	clear    render.Color
}

// NewCamera creates a camera rendering into target.
func NewCamera(mgr coreobject.Registry, target *Texture, viewport render.Rect) (*Camera, error) {
	c := &Camera{target: target, viewport: viewport, clear: render.Color{A: 1}}
	c.obj = coreobject.New(mgr, (*cameraImpl)(c), 0)
	if err := c.obj.Initialize(nil); err != nil {
		c.obj.Destroy()
		return nil, err
	}
	created.Add(1)
	return c, nil
}

// Object returns the underlying CoreObject.
func (c *Camera) Object() *coreobject.Object { return c.obj }

// SetPosition moves the camera.
func (c *Camera) SetPosition(x, y, z float32) {
	c.mu.Lock()
	c.position = [3]float32{x, y, z}
	c.mu.Unlock()
	c.obj.MarkCoreDirty(CameraTransform)
}

// SetViewport changes the viewport rectangle.
func (c *Camera) SetViewport(r render.Rect) {
	c.mu.Lock()
	c.viewport = r
	c.mu.Unlock()
	c.obj.MarkCoreDirty(CameraViewport)
}

// SetTarget switches the target texture. The dependency list changes with
// it.
func (c *Camera) SetTarget(t *Texture) {
	c.mu.Lock()
	c.target = t
	c.mu.Unlock()
	c.obj.MarkDependenciesDirty()
	c.obj.MarkCoreDirty(CameraRedraw)
}

// Redraw requests a redraw on the core side.
func (c *Camera) Redraw() { c.obj.MarkCoreDirty(CameraRedraw) }

// Core returns the core-side camera, or nil once destroyed.
func (c *Camera) Core() *CameraCore {
	cc, _ := c.obj.Core().(*CameraCore)
	return cc
}

// Render records a clear of the camera's target with its core-side
// viewport. The target is read on the core goroutine.
func (c *Camera) Render(acc *corethread.Accessor) error {
	core := c.Core()
	if core == nil {
		return ErrDestroyed
	}
	c.mu.Lock()
	target := c.target
	color := c.clear
	c.mu.Unlock()

	api := acc.CoreThread().API()
	acc.QueueCommand(func() {
		if target != nil {
			if tc := target.Core(); tc != nil {
				api.SetRenderTarget(tc)
			}
		}
		api.SetViewport(core.viewport)
		api.Clear(render.ClearColor|render.ClearDepth, color, 1)
	})
	return nil
}

// Destroy tears down the camera.
func (c *Camera) Destroy() { c.obj.Destroy() }

// Release panics if Destroy was not called first.
func (c *Camera) Release() { c.obj.Release() }

type cameraImpl Camera

func (ci *cameraImpl) CreateCore() coreobject.Core {
	return &CameraCore{}
}

func (ci *cameraImpl) SyncToCore(alloc *framealloc.Allocator, dirty coreobject.DirtyFlags) []byte {
	c := (*Camera)(ci)
	c.mu.Lock()
	pos, vp := c.position, c.viewport
	c.mu.Unlock()

	size := 4
	if dirty&^CameraRedraw != 0 {
		size += 12
		if dirty != CameraTransform {
			size += 16
		}
	}

	w := writer{buf: alloc.Alloc(size)}
	w.u32(uint32(dirty))
	if dirty&^CameraRedraw != 0 {
		for _, v := range pos {
			w.f32(v)
		}
		if dirty != CameraTransform {
			w.i32(vp.X)
			w.i32(vp.Y)
			w.i32(vp.Width)
			w.i32(vp.Height)
		}
	}
	return w.buf
}

func (ci *cameraImpl) CoreDependencies() []*coreobject.Object {
	c := (*Camera)(ci)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return nil
	}
	return []*coreobject.Object{c.target.obj}
}

// CameraCore is the core-side camera.
type CameraCore struct {
	coreobject.CoreBase

	position [3]float32
	viewport render.Rect
	redraws  int
	updates  int
}

// SyncToCore applies the payload written by the sim side.
func (c *CameraCore) SyncToCore(data coreobject.SyncData) {
	r := reader{buf: data.Bytes}
	dirty := coreobject.DirtyFlags(r.u32())
	if dirty&^CameraRedraw != 0 {
		for i := range c.position {
			c.position[i] = r.f32()
		}
		if dirty != CameraTransform {
			c.viewport = render.Rect{X: r.i32(), Y: r.i32(), Width: r.i32(), Height: r.i32()}
		}
		c.updates++
	}
	if dirty&CameraRedraw != 0 {
		c.redraws++
	}
}

// Position returns the core-side position. Core goroutine only.
func (c *CameraCore) Position() [3]float32 { return c.position }

// Viewport returns the core-side viewport. Core goroutine only.
func (c *CameraCore) Viewport() render.Rect { return c.viewport }

// Updates returns how many state syncs were applied. Core goroutine only.
func (c *CameraCore) Updates() int { return c.updates }

// Redraws returns how many redraw requests arrived. Core goroutine only.
func (c *CameraCore) Redraws() int { return c.redraws }

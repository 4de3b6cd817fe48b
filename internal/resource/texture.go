package resource

import (
	"sync"

	"github.com/roach88/splitcore/internal/async"
	"github.com/roach88/splitcore/internal/coreobject"
	"github.com/roach88/splitcore/internal/corethread"
	"github.com/roach88/splitcore/internal/framealloc"
	"github.com/roach88/splitcore/internal/render"
)

// TextureDirtySize marks a change of dimensions or mip count.
const TextureDirtySize coreobject.DirtyFlags = 1

// TextureDesc describes a texture.
type TextureDesc struct {
	Name      string
	Width     int
	Height    int
	MipLevels int
}

// Texture is the sim-side texture.
type Texture struct {
	obj *coreobject.Object
	acc *corethread.Accessor

	mu       sync.Mutex
	desc     TextureDesc
	initData []byte
}

// NewTexture creates a texture and records its core-side creation on acc.
// initData, when set, is uploaded to subresource 0 during core init. Sync,
// data transfers and teardown must go through the same accessor.
func NewTexture(mgr coreobject.Registry, acc *corethread.Accessor, desc TextureDesc, initData []byte) (*Texture, error) {
	if desc.MipLevels < 1 {
		desc.MipLevels = 1
	}
	t := &Texture{acc: acc, desc: desc, initData: initData}
	t.obj = coreobject.New(mgr, (*textureImpl)(t), coreobject.RequiresInitOnCoreThread)
	if err := t.obj.Initialize(acc); err != nil {
		t.obj.Destroy()
		return nil, err
	}
	created.Add(1)
	return t, nil
}

// Object returns the underlying CoreObject.
func (t *Texture) Object() *coreobject.Object { return t.obj }

// Desc returns the sim-side description.
func (t *Texture) Desc() TextureDesc {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.desc
}

// Resize changes the dimensions; the core side follows on the next sync.
func (t *Texture) Resize(width, height int) {
	t.mu.Lock()
	t.desc.Width, t.desc.Height = width, height
	t.mu.Unlock()
	t.obj.MarkCoreDirty(TextureDirtySize)
}

// Core returns the core-side texture, or nil once destroyed. Use it only
// inside commands running on the core goroutine.
func (t *Texture) Core() *TextureCore {
	c, _ := t.obj.Core().(*TextureCore)
	return c
}

// WriteData records an upload of data into subresource. The op resolves
// with the upload error, nil on success, once the accessor is submitted.
func (t *Texture) WriteData(subresource int, data []byte) (async.Typed[error], error) {
	core := t.Core()
	if core == nil {
		return async.Typed[error]{}, ErrDestroyed
	}
	api := t.acc.CoreThread().API()
	op := t.acc.QueueReturnCommand(func(op *async.Op) {
		op.MarkResolved(api.WriteSubresource(core, subresource, data))
	})
	return async.Wrap[error](op), nil
}

// ReadData records a download of subresource.
func (t *Texture) ReadData(subresource int) (async.Typed[corethread.ReadResult], error) {
	core := t.Core()
	if core == nil {
		return async.Typed[corethread.ReadResult]{}, ErrDestroyed
	}
	api := t.acc.CoreThread().API()
	op := t.acc.QueueReturnCommand(func(op *async.Op) {
		data, err := api.ReadSubresource(core, subresource)
		op.MarkResolved(corethread.ReadResult{Data: data, Err: err})
	})
	return async.Wrap[corethread.ReadResult](op), nil
}

// Destroy tears down the texture. The core side goes away after every
// command already recorded on the texture's accessor.
func (t *Texture) Destroy() { t.obj.Destroy() }

// Release panics if Destroy was not called first.
func (t *Texture) Release() { t.obj.Release() }

// textureImpl is the coreobject.Impl view of a Texture.
type textureImpl Texture

func (ti *textureImpl) CreateCore() coreobject.Core {
	t := (*Texture)(ti)
	t.mu.Lock()
	defer t.mu.Unlock()

	c := &TextureCore{
		id:   t.obj.ID(),
		api:  t.acc.CoreThread().API(),
		desc: t.desc,
		init: t.initData,
	}
	t.initData = nil
	return c
}

func (ti *textureImpl) SyncToCore(alloc *framealloc.Allocator, dirty coreobject.DirtyFlags) []byte {
	t := (*Texture)(ti)
	t.mu.Lock()
	desc := t.desc
	t.mu.Unlock()

	w := writer{buf: alloc.Alloc(16)}
	w.u32(uint32(dirty))
	w.i32(desc.Width)
	w.i32(desc.Height)
	w.i32(desc.MipLevels)
	return w.buf
}

// TextureCore is the core-side texture. It is a render.Texture.
type TextureCore struct {
	coreobject.CoreBase

	id   uint64
	api  render.API
	desc TextureDesc
	init []byte

	syncs int
}

// ResourceID implements render.Resource.
func (c *TextureCore) ResourceID() uint64 { return c.id }

// Initialize uploads the initial data, if any.
func (c *TextureCore) Initialize() {
	if len(c.init) > 0 {
		// Upload errors leave the texture empty.
		_ = c.api.WriteSubresource(c, 0, c.init)
		c.init = nil
	}
	c.CoreBase.Initialize()
}

// SyncToCore applies the sim-side description.
func (c *TextureCore) SyncToCore(data coreobject.SyncData) {
	r := reader{buf: data.Bytes}
	r.u32()
	c.desc.Width = r.i32()
	c.desc.Height = r.i32()
	c.desc.MipLevels = r.i32()
	c.syncs++
}

// Desc returns the core-side description. Core goroutine only.
func (c *TextureCore) Desc() TextureDesc { return c.desc }

// Syncs returns how many sync payloads were applied. Core goroutine only.
func (c *TextureCore) Syncs() int { return c.syncs }

var _ render.Texture = (*TextureCore)(nil)

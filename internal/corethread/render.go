package corethread

import (
	"github.com/roach88/splitcore/internal/async"
	"github.com/roach88/splitcore/internal/render"
)

// The wrappers below record one render call each. Resource handles are
// captured by reference and dereferenced only when the command runs.

// SetRenderTarget binds rt for subsequent draws.
func (a *Accessor) SetRenderTarget(rt render.RenderTarget) {
	api := a.ct.api
	a.queue.Queue(func() { api.SetRenderTarget(rt) })
}

// SetViewport sets the active viewport.
func (a *Accessor) SetViewport(area render.Rect) {
	api := a.ct.api
	a.queue.Queue(func() { api.SetViewport(area) })
}

// SetPipelineState binds ps.
func (a *Accessor) SetPipelineState(ps render.PipelineState) {
	api := a.ct.api
	a.queue.Queue(func() { api.SetPipelineState(ps) })
}

// BindTexture binds tex to slot.
func (a *Accessor) BindTexture(slot int, tex render.Texture) {
	api := a.ct.api
	a.queue.Queue(func() { api.BindTexture(slot, tex) })
}

// Clear clears the bound render target.
func (a *Accessor) Clear(flags render.ClearFlags, color render.Color, depth float32) {
	api := a.ct.api
	a.queue.Queue(func() { api.Clear(flags, color, depth) })
}

// Draw issues a non-indexed draw.
func (a *Accessor) Draw(vertexOffset, vertexCount int) {
	api := a.ct.api
	a.queue.Queue(func() { api.Draw(vertexOffset, vertexCount) })
}

// DrawIndexed issues an indexed draw.
func (a *Accessor) DrawIndexed(indexOffset, indexCount, vertexOffset int) {
	api := a.ct.api
	a.queue.Queue(func() { api.DrawIndexed(indexOffset, indexCount, vertexOffset) })
}

// SwapBuffers presents rt.
func (a *Accessor) SwapBuffers(rt render.RenderTarget) {
	api := a.ct.api
	a.queue.Queue(func() { api.SwapBuffers(rt) })
}

// ResizeWindow resizes w.
func (a *Accessor) ResizeWindow(w render.Window, width, height int) {
	api := a.ct.api
	a.queue.Queue(func() { api.ResizeWindow(w, width, height) })
}

// MoveWindow moves w.
func (a *Accessor) MoveWindow(w render.Window, x, y int) {
	api := a.ct.api
	a.queue.Queue(func() { api.MoveWindow(w, x, y) })
}

// ShowWindow shows w.
func (a *Accessor) ShowWindow(w render.Window) {
	api := a.ct.api
	a.queue.Queue(func() { api.ShowWindow(w) })
}

// HideWindow hides w.
func (a *Accessor) HideWindow(w render.Window) {
	api := a.ct.api
	a.queue.Queue(func() { api.HideWindow(w) })
}

// WriteSubresource uploads data. The op resolves with the upload error, or
// nil on success. data must not be modified until the op resolves.
func (a *Accessor) WriteSubresource(res render.Resource, subresource int, data []byte) async.Typed[error] {
	api := a.ct.api
	op := a.queue.QueueReturn(func(op *async.Op) {
		if err := api.WriteSubresource(res, subresource, data); err != nil {
			op.MarkResolved(err)
		}
		// Left unresolved on success; playback resolves it with nil.
	})
	return async.Wrap[error](op)
}

// ReadResult carries the outcome of ReadSubresource.
type ReadResult struct {
	Data []byte
	Err  error
}

// ReadSubresource downloads one subresource. The op resolves with a
// ReadResult.
func (a *Accessor) ReadSubresource(res render.Resource, subresource int) async.Typed[ReadResult] {
	api := a.ct.api
	op := a.queue.QueueReturn(func(op *async.Op) {
		data, err := api.ReadSubresource(res, subresource)
		op.MarkResolved(ReadResult{Data: data, Err: err})
	})
	return async.Wrap[ReadResult](op)
}

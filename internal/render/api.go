// Package render defines the boundary to the render system the core thread
// drives.
//
// Every method of API is stateful and may only be called on the core
// goroutine. Producer code never calls it directly; it goes through the
// typed wrappers on corethread.Accessor, which queue the call.
package render

// Resource is any GPU-backed object a command can reference.
type Resource interface {
	ResourceID() uint64
}

// Texture is the core-side handle of a texture.
type Texture interface {
	Resource
}

// RenderTarget is a surface draw calls render into.
type RenderTarget interface {
	Resource
}

// PipelineState bundles shaders and fixed-function state.
type PipelineState interface {
	Resource
}

// Window is an OS window owned by the render system.
type Window interface {
	Resource
}

// Rect is a pixel area.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// ClearFlags selects which buffers Clear touches.
type ClearFlags uint32

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil
)

// API is the render system driven by the core thread.
type API interface {
	SetRenderTarget(rt RenderTarget)
	SetViewport(area Rect)
	SetPipelineState(ps PipelineState)
	BindTexture(slot int, tex Texture)
	Clear(flags ClearFlags, color Color, depth float32)
	Draw(vertexOffset, vertexCount int)
	DrawIndexed(indexOffset, indexCount, vertexOffset int)
	SwapBuffers(rt RenderTarget)

	ResizeWindow(w Window, width, height int)
	MoveWindow(w Window, x, y int)
	ShowWindow(w Window)
	HideWindow(w Window)

	// WriteSubresource uploads data into one subresource (mip/face) of res.
	WriteSubresource(res Resource, subresource int, data []byte) error
	// ReadSubresource downloads one subresource of res.
	ReadSubresource(res Resource, subresource int) ([]byte, error)
}

package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/splitcore/internal/diag"
)

// ErrNoData is returned when reading a subresource that was never written.
var ErrNoData = errors.New("render: subresource has no data")

// Call is one recorded API invocation.
type Call struct {
	Method    string
	Args      []any
	Goroutine uint64
}

// Recorder is a null render backend that records every call.
//
// It keeps written subresources in memory so reads observe earlier writes,
// which makes it usable as a stand-in for a GPU in tests and demos.
//
// Thread-safety: all methods are safe for concurrent use, but callers are
// still expected to use it from the core goroutine only; Goroutine on each
// Call lets tests verify that.
type Recorder struct {
	mu           sync.Mutex
	calls        []Call
	subresources map[subresourceKey][]byte
}

type subresourceKey struct {
	resource    uint64
	subresource int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{subresources: make(map[subresourceKey][]byte)}
}

func (r *Recorder) record(method string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Method: method, Args: args, Goroutine: diag.GoroutineID()})
}

// Calls returns a copy of the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Methods returns the recorded method names in order.
func (r *Recorder) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Method
	}
	return out
}

// Reset forgets recorded calls. Stored subresources are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func resourceID(res Resource) uint64 {
	if res == nil {
		return 0
	}
	return res.ResourceID()
}

func (r *Recorder) SetRenderTarget(rt RenderTarget) { r.record("SetRenderTarget", resourceID(rt)) }
func (r *Recorder) SetViewport(area Rect)           { r.record("SetViewport", area) }
func (r *Recorder) SetPipelineState(ps PipelineState) {
	r.record("SetPipelineState", resourceID(ps))
}
func (r *Recorder) BindTexture(slot int, tex Texture) { r.record("BindTexture", slot, resourceID(tex)) }
func (r *Recorder) Clear(flags ClearFlags, color Color, depth float32) {
	r.record("Clear", flags, color, depth)
}
func (r *Recorder) Draw(vertexOffset, vertexCount int) { r.record("Draw", vertexOffset, vertexCount) }
func (r *Recorder) DrawIndexed(indexOffset, indexCount, vertexOffset int) {
	r.record("DrawIndexed", indexOffset, indexCount, vertexOffset)
}
func (r *Recorder) SwapBuffers(rt RenderTarget) { r.record("SwapBuffers", resourceID(rt)) }

func (r *Recorder) ResizeWindow(w Window, width, height int) {
	r.record("ResizeWindow", resourceID(w), width, height)
}
func (r *Recorder) MoveWindow(w Window, x, y int) { r.record("MoveWindow", resourceID(w), x, y) }
func (r *Recorder) ShowWindow(w Window)           { r.record("ShowWindow", resourceID(w)) }
func (r *Recorder) HideWindow(w Window)           { r.record("HideWindow", resourceID(w)) }

// WriteSubresource stores a copy of data.
func (r *Recorder) WriteSubresource(res Resource, subresource int, data []byte) error {
	if res == nil {
		return fmt.Errorf("write subresource %d: nil resource", subresource)
	}
	r.record("WriteSubresource", res.ResourceID(), subresource, len(data))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.subresources[subresourceKey{res.ResourceID(), subresource}] = append([]byte(nil), data...)
	return nil
}

// ReadSubresource returns a copy of previously written data.
func (r *Recorder) ReadSubresource(res Resource, subresource int) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("read subresource %d: nil resource", subresource)
	}
	r.record("ReadSubresource", res.ResourceID(), subresource)

	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.subresources[subresourceKey{res.ResourceID(), subresource}]
	if !ok {
		return nil, fmt.Errorf("read subresource %d of %d: %w", subresource, res.ResourceID(), ErrNoData)
	}
	return append([]byte(nil), data...), nil
}

var _ API = (*Recorder)(nil)

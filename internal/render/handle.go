package render

import "sync/atomic"

var nextHandleID atomic.Uint64

// Handle is a plain resource handle for render targets, pipeline states and
// windows that have no sim-side CoreObject.
type Handle struct {
	id   uint64
	Name string
}

// NewHandle allocates a handle with a process-unique id.
func NewHandle(name string) *Handle {
	return &Handle{id: nextHandleID.Add(1), Name: name}
}

// ResourceID implements Resource.
func (h *Handle) ResourceID() uint64 { return h.id }

// Package resource provides concrete CoreObject kinds: textures and meshes,
// whose core side is created on the core goroutine, and cameras, which are
// initialized inline and depend on the texture they render into.
//
// Sync payloads are little-endian and start with the dirty mask:
//
//	Texture: u32 dirty | i32 width | i32 height | i32 mips
//	Mesh:    u32 dirty | i32 vertices | i32 indices
//	Camera:  u32 dirty | [3]f32 position (unless only Redraw) | i32 x,y,w,h (unless only Transform)
package resource

import (
	"errors"
	"sync/atomic"
)

// ErrDestroyed is returned by operations on a destroyed resource.
var ErrDestroyed = errors.New("resource: destroyed")

// Kind names a resource type in logs and traces.
type Kind string

const (
	KindTexture Kind = "texture"
	KindMesh    Kind = "mesh"
	KindCamera  Kind = "camera"
)

var created atomic.Uint64

// Created returns how many resources were constructed in this process.
func Created() uint64 { return created.Load() }

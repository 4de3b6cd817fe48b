package resource

import (
	"encoding/binary"
	"math"
)

// writer appends little-endian values into a fixed frame allocation.
type writer struct {
	buf []byte
	off int
}

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *writer) i32(v int) { w.u32(uint32(int32(v))) }

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

// reader is the matching decoder. Reads past the end yield zero.
type reader struct {
	buf []byte
	off int
}

func (r *reader) u32() uint32 {
	if r.off+4 > len(r.buf) {
		r.off = len(r.buf)
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) i32() int { return int(int32(r.u32())) }

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

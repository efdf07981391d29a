// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

// DataChunk is a contiguous byte buffer with owned/borrowed semantics. It
// is the cheapest and most numerous object in the system: one is created
// and discarded per KLV value read or written. A borrowed ("external")
// chunk never frees its backing array and must outlive every view taken of
// it (spec.md §5).
type DataChunk struct {
	buf         []byte // buf[:length] is the valid region
	granularity int    // growth granularity for Resize/Append
	external    bool   // true if buf is a caller-owned view, not ours to grow freely
}

// defaultGranularity is used when a DataChunk is constructed without an
// explicit granularity via NewDataChunk.
const defaultGranularity = 256

// NewDataChunk returns an empty, owned DataChunk.
func NewDataChunk() *DataChunk {
	return &DataChunk{granularity: defaultGranularity}
}

// NewDataChunkSize returns an owned DataChunk pre-sized to size bytes of
// valid (zeroed) content.
func NewDataChunkSize(size int) *DataChunk {
	dc := NewDataChunk()
	dc.Resize(size, false)
	return dc
}

// NewDataChunkFromBytes copies b into a new owned DataChunk.
func NewDataChunkFromBytes(b []byte) *DataChunk {
	dc := NewDataChunk()
	dc.buf = append([]byte(nil), b...)
	return dc
}

// SetGranularity overrides the growth granularity used by Resize/Append.
func (dc *DataChunk) SetGranularity(g int) {
	if g > 0 {
		dc.granularity = g
	}
}

// Len returns the number of valid bytes.
func (dc *DataChunk) Len() int { return len(dc.buf) }

// Cap returns the capacity of the backing array (for an external/borrowed
// chunk, the capacity of the caller's slice, which Resize never grows
// into past the borrowed length).
func (dc *DataChunk) Cap() int { return cap(dc.buf) }

// IsExternal reports whether the chunk is a borrowed view.
func (dc *DataChunk) IsExternal() bool { return dc.external }

// Bytes returns the valid region. For an owned chunk the caller must not
// retain the slice across a subsequent Resize/Append/SetExternal, since
// those may reallocate.
func (dc *DataChunk) Bytes() []byte { return dc.buf }

// roundUpGranularity rounds n up to the next multiple of the granularity
// (or returns n unchanged if granularity is 0, i.e. unset/grow-exact).
func roundUpGranularity(n, granularity int) int {
	if granularity <= 0 {
		return n
	}
	rem := n % granularity
	if rem == 0 {
		return n
	}
	return n + (granularity - rem)
}

// Resize sets the valid length to newSize, preserving existing contents
// when preserve is true (growth beyond the old length zero-fills). When
// preserve is false the whole resulting valid region is zeroed, on shrink
// as well as on growth. An external chunk cannot be resized past its
// borrowed extent, and its contents are never zeroed.
func (dc *DataChunk) Resize(newSize int, preserve bool) {
	if dc.external {
		if newSize > len(dc.buf) {
			panic("mxf: cannot grow an externally-owned DataChunk")
		}
		dc.buf = dc.buf[:newSize]
		return
	}

	if newSize <= cap(dc.buf) {
		old := dc.buf
		dc.buf = dc.buf[:newSize]
		if !preserve {
			for i := range dc.buf {
				dc.buf[i] = 0
			}
		} else if newSize > len(old) {
			for i := len(old); i < newSize; i++ {
				dc.buf[i] = 0
			}
		}
		return
	}

	allocSize := roundUpGranularity(newSize, dc.granularity)
	newBuf := make([]byte, newSize, allocSize)
	if preserve {
		copy(newBuf, dc.buf)
	}
	dc.buf = newBuf
}

// Append adds b to the end of the chunk, growing as needed. Appending to
// an external chunk is an error because the caller does not own the tail
// memory; it panics, mirroring the source's assumption that external
// buffers are fixed views.
func (dc *DataChunk) Append(b []byte) {
	if dc.external {
		panic("mxf: cannot append to an externally-owned DataChunk")
	}
	oldLen := len(dc.buf)
	dc.Resize(oldLen+len(b), true)
	copy(dc.buf[oldLen:], b)
}

// Set replaces the valid region with a copy of b, starting at byte offset
// start (expanding the chunk if required, per the source's Set()).
func (dc *DataChunk) Set(b []byte, start int) {
	need := start + len(b)
	if need > len(dc.buf) {
		dc.Resize(need, true)
	}
	copy(dc.buf[start:need], b)
}

// TakeBuffer hands the valid region's backing array to the caller. When
// empty is true this DataChunk is emptied; when it is false the chunk
// retains its contents and the returned slice shares the same backing
// array (matching the "StealBuffer(MakeEmpty)" option in the source).
// TakeBuffer on an external chunk returns a copy, since the caller never
// owned the external memory and must not be handed it.
func (dc *DataChunk) TakeBuffer(empty bool) []byte {
	if dc.external {
		return append([]byte(nil), dc.buf...)
	}
	out := dc.buf
	if empty {
		dc.buf = nil
	}
	return out
}

// SetExternal makes the chunk a borrowed view over b: no copy is taken, no
// free will ever occur, and the chunk cannot grow past len(b). The caller
// must keep b alive for as long as the DataChunk (or any slice obtained
// from it) is in use.
func (dc *DataChunk) SetExternal(b []byte) {
	dc.buf = b
	dc.external = true
}

// Clone returns a deep, owned copy independent of this chunk's
// owned/external status.
func (dc *DataChunk) Clone() *DataChunk {
	return NewDataChunkFromBytes(dc.buf)
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"github.com/saferwall/mxf/log"
)

// ReadHandler streams a large KLV value instead of buffering it into a
// DataChunk (spec.md §4.4 "delegates to an optional ReadHandler").
type ReadHandler interface {
	ReadData(file *MXFFile, offset int64, size int64) ([]byte, error)
}

// valueState tracks whether a KLVObject's value has been materialised.
type valueState int

const (
	valueUnread valueState = iota
	valuePresent
	valueTransformed
)

// KLVObject is a streaming KLV with deferred value reads and lazy writes
// (spec.md §3/§4.4). It is the base type for transforming wrappers such as
// the encrypted KLVE subclass in klve.go.
type KLVObject struct {
	Key    UL
	Length uint64 // value byte length, as declared on the wire

	// Source location, once read.
	SourceFile   *MXFFile
	SourceOffset int64
	KLSize       int // bytes consumed by key+length

	// Destination location, once a write has started.
	DestOffset int64
	destSet    bool

	state   valueState
	value   *DataChunk
	handler ReadHandler

	logger *log.Helper
}

// NewKLVObject returns a KLVObject for key with a not-yet-materialised
// value of the given length.
func NewKLVObject(key UL, length uint64) *KLVObject {
	return &KLVObject{Key: key, Length: length, state: valueUnread}
}

// ReadKL seeks to offset in file, reads the 16-byte key, decodes a BER
// length, records the KL size, and returns without reading the value
// (spec.md §4.4).
func (k *KLVObject) ReadKL(file *MXFFile, offset int64) error {
	hdr := make([]byte, 16+9)
	n, err := file.ReadAt(hdr, offset)
	if err != nil && n < 16 {
		return err
	}
	if n < 16 {
		return ErrInvalidKey
	}

	var key UL
	copy(key[:], hdr[:16])

	length, lsize, err := DecodeBERLength(hdr[16:n])
	if err != nil {
		return err
	}

	k.Key = key
	k.Length = length
	k.KLSize = 16 + lsize
	k.SourceFile = file
	k.SourceOffset = offset
	k.state = valueUnread
	return nil
}

// ReadDataFrom reads size bytes starting offset bytes into the value
// (relative to the end of the KL), into the embedded DataChunk, or
// delegates to a ReadHandler if one is set.
func (k *KLVObject) ReadDataFrom(offset, size int64) ([]byte, error) {
	if k.handler != nil {
		return k.handler.ReadData(k.SourceFile, k.SourceOffset+int64(k.KLSize)+offset, size)
	}

	if k.state == valueUnread {
		if k.SourceFile == nil {
			return nil, ErrShortRead
		}
		buf := make([]byte, k.Length)
		if _, err := k.SourceFile.ReadAt(buf, k.SourceOffset+int64(k.KLSize)); err != nil {
			return nil, err
		}
		k.value = NewDataChunkFromBytes(buf)
		k.state = valuePresent
	}

	if offset+size > int64(k.value.Len()) {
		return nil, ErrShortRead
	}
	return k.value.Bytes()[offset : offset+size], nil
}

// ReadValue reads the entire value into the embedded DataChunk and returns
// it.
func (k *KLVObject) ReadValue() (*DataChunk, error) {
	if k.state == valuePresent || k.state == valueTransformed {
		return k.value, nil
	}
	if _, err := k.ReadDataFrom(0, int64(k.Length)); err != nil {
		return nil, err
	}
	return k.value, nil
}

// SetValue attaches an in-memory value directly (used by writers that
// construct a KLV from scratch rather than reading one).
func (k *KLVObject) SetValue(dc *DataChunk) {
	k.value = dc
	k.Length = uint64(dc.Len())
	k.state = valuePresent
}

// SetReadHandler installs a streaming handler, used for large essence
// payloads that should never be buffered whole.
func (k *KLVObject) SetReadHandler(h ReadHandler) { k.handler = h }

// WriteKL encodes the key and a BER length for Length (or newLength, if
// forceLength is true) using lenSize bytes of long-form encoding (0 =
// auto), returning the bytes to write. Does not touch the value.
func (k *KLVObject) WriteKL(lenSize int, newLength uint64, forceLength bool, sink *log.Helper) []byte {
	length := k.Length
	if forceLength {
		length = newLength
		k.Length = newLength
	}
	out := make([]byte, 0, 16+9)
	out = append(out, k.Key[:]...)
	out = append(out, EncodeBERLength(length, lenSize, sink)...)
	k.KLSize = len(out)
	return out
}

// WriteDataTo returns the value bytes to write at a destination offset
// (spec.md §4.4 "write_data_to"). destOffset is recorded for bookkeeping
// only; the actual seek/write is the caller's (KLVFile's) responsibility.
func (k *KLVObject) WriteDataTo(destOffset int64) ([]byte, error) {
	if !k.destSet && k.state == valueUnread {
		return nil, ErrWriteDataBeforeWriteKL
	}
	k.DestOffset = destOffset
	k.destSet = true
	if k.value == nil {
		return nil, nil
	}
	return k.value.Bytes(), nil
}

// MarkKLWritten records that WriteKL has completed, satisfying the
// precondition WriteDataTo checks (used when the value is streamed rather
// than passed through SetValue before the WriteKL/WriteDataTo pair).
func (k *KLVObject) MarkKLWritten() { k.destSet = true }

// TotalSize reports KLSize + Length, the total bytes this KLV occupies.
func (k *KLVObject) TotalSize() int64 {
	return int64(k.KLSize) + int64(k.Length)
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "encoding/binary"

// putU8 writes a single byte; present for symmetry with the wider helpers.
func putU8(b []byte, v uint8) { b[0] = v }

// getU8 reads a single byte.
func getU8(b []byte) uint8 { return b[0] }

// Big-endian primitives. MXF is a big-endian format throughout; these are
// the default read/write helpers used by every fixed-layout structure.
func putU16BE(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
func getU16BE(b []byte) uint16    { return binary.BigEndian.Uint16(b) }

func putU32BE(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
func getU32BE(b []byte) uint32    { return binary.BigEndian.Uint32(b) }

func putU64BE(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }
func getU64BE(b []byte) uint64    { return binary.BigEndian.Uint64(b) }

// Little-endian variants exist for wave, AVI, and some header preambles
// that are carried verbatim inside an MXF essence container (e.g. a RIFF
// WAVE chunk wrapped as PCM essence).
func putU16LE(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func getU16LE(b []byte) uint16    { return binary.LittleEndian.Uint16(b) }

func putU32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func getU32LE(b []byte) uint32    { return binary.LittleEndian.Uint32(b) }

func putU64LE(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func getU64LE(b []byte) uint64    { return binary.LittleEndian.Uint64(b) }

func putI8(b []byte, v int8)   { b[0] = byte(v) }
func getI8(b []byte) int8      { return int8(b[0]) }
func putI16BE(b []byte, v int16) { putU16BE(b, uint16(v)) }
func getI16BE(b []byte) int16    { return int16(getU16BE(b)) }
func putI32BE(b []byte, v int32) { putU32BE(b, uint32(v)) }
func getI32BE(b []byte) int32    { return int32(getU32BE(b)) }
func putI64BE(b []byte, v int64) { putU64BE(b, uint64(v)) }
func getI64BE(b []byte) int64    { return int64(getU64BE(b)) }

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "github.com/saferwall/mxf/log"

// MaxBERLength is the largest value representable in the 9-byte long form
// BER length mxf will ever emit or accept (8 bytes of big-endian magnitude).
const MaxBERLength = ^uint64(0)

// DecodeBERLength decodes a BER length field starting at b[0]. It returns
// the decoded length and the number of bytes the length field itself
// occupied (1 to 9). 0x80 alone ("indefinite length") is rejected, as is
// any long-form count greater than 8.
func DecodeBERLength(b []byte) (length uint64, size int, err error) {
	if len(b) < 1 {
		return 0, 0, ErrBEROutsideBoundary
	}

	first := b[0]
	if first&0x80 == 0 {
		// Short form: bit 7 clear, value is the byte itself.
		return uint64(first), 1, nil
	}

	n := int(first &^ 0x80)
	if n == 0 {
		return 0, 0, ErrBERIndefiniteLength
	}
	if n > 8 {
		return 0, 0, ErrBERTooLong
	}
	if len(b) < 1+n {
		return 0, 0, ErrBEROutsideBoundary
	}

	var v uint64
	for i := 0; i < n; i++ {
		v = (v << 8) | uint64(b[1+i])
	}
	return v, 1 + n, nil
}

// berSizeFor returns the number of long-form magnitude bytes auto-selected
// for length: 4 for lengths < 2^32, otherwise 8 (a 9-byte field, the
// largest this package emits or accepts).
func berSizeFor(length uint64) int {
	if length < (uint64(1) << 32) {
		return 4
	}
	return 8
}

// EncodeBERLength encodes length as a BER length field. If forceSize is 0
// the size is chosen automatically (1 byte short form when length < 128,
// else 4 or 8 magnitude bytes as berSizeFor picks). If forceSize is
// nonzero the caller is requesting a specific number of long-form
// magnitude bytes (1 to 8; any other value falls back to the automatic
// choice); if length does not fit in forceSize bytes the encoder widens to
// a size that does fit and reports the conflict through sink (sink may be
// nil, in which case the widening happens silently).
func EncodeBERLength(length uint64, forceSize int, sink *log.Helper) []byte {
	if forceSize == 0 {
		if length < 128 {
			return []byte{byte(length)}
		}
		forceSize = berSizeFor(length)
	}

	if forceSize < 0 || forceSize > 8 {
		forceSize = berSizeFor(length)
	} else {
		// Does the forced size actually hold the value? 1 byte of header
		// plus forceSize bytes of magnitude.
		maxForSize := uint64(0)
		if forceSize >= 8 {
			maxForSize = MaxBERLength
		} else {
			maxForSize = (uint64(1) << uint(forceSize*8)) - 1
		}
		if length > maxForSize {
			widened := berSizeFor(length)
			if sink != nil {
				sink.Warnf("BER length %d does not fit forced %d-byte encoding, widened to %d bytes",
					length, forceSize, widened)
			}
			forceSize = widened
		}
	}

	out := make([]byte, 1+forceSize)
	out[0] = 0x80 | byte(forceSize)
	for i := 0; i < forceSize; i++ {
		shift := uint((forceSize - 1 - i) * 8)
		out[1+i] = byte(length >> shift)
	}
	return out
}

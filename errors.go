// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "errors"

// Format errors: malformed BER, undecodable keys, partition pack fields
// outside declared ranges, index segments whose entry count disagrees with
// the batch header.
var (
	// ErrBERIndefiniteLength is returned when a length byte of 0x80 alone
	// ("indefinite length") is seen; the BER subset used by MXF forbids it.
	ErrBERIndefiniteLength = errors.New("mxf: indefinite-length BER is not permitted")

	// ErrBERTooLong is returned when a long-form BER length claims more
	// than 8 following bytes (9 bytes total is the explicit maximum).
	ErrBERTooLong = errors.New("mxf: BER length encoding exceeds 9 bytes")

	// ErrBEROutsideBoundary is returned when decoding a BER length would
	// read past the end of the supplied buffer.
	ErrBEROutsideBoundary = errors.New("mxf: BER length read outside boundary")

	// ErrInvalidKey is returned when a 16-byte key cannot be read in full.
	ErrInvalidKey = errors.New("mxf: could not read a full 16-byte key")

	// ErrNotAPartitionPack is returned when a key does not versionless-match
	// any known partition pack key.
	ErrNotAPartitionPack = errors.New("mxf: key is not a partition pack")

	// ErrIndexCountMismatch is returned when an index entry array or delta
	// entry array batch header disagrees with the number of elements
	// actually present in the value.
	ErrIndexCountMismatch = errors.New("mxf: index batch count disagrees with available bytes")

	// ErrHeaderByteCountMismatch is returned when read_metadata does not
	// consume exactly HeaderByteCount bytes.
	ErrHeaderByteCountMismatch = errors.New("mxf: metadata block did not consume HeaderByteCount bytes")
)

// Resolution errors: unmatched strong references, malformed reference UUIDs.
var (
	// ErrUnresolvedStrongRef is returned at end-of-partition when a strong
	// reference was never matched to a target object.
	ErrUnresolvedStrongRef = errors.New("mxf: unresolved strong reference at end of partition")

	// ErrBadReferenceSize is returned when a reference property's value is
	// not exactly 16 bytes (a UUID).
	ErrBadReferenceSize = errors.New("mxf: reference property is not 16 bytes")
)

// I/O errors: short reads, failure to open, seeks past end of file.
var (
	ErrShortRead     = errors.New("mxf: short read")
	ErrSeekOutOfFile = errors.New("mxf: seek past end of file")
)

// Semantic errors.
var (
	// ErrPartitionTooLarge is returned when a partition write would exceed
	// a declared maximum size.
	ErrPartitionTooLarge = errors.New("mxf: partition exceeds declared size")

	// ErrKAGFillImpossible is returned when the requested KAG alignment
	// cannot be achieved because the padding needed is non-integral.
	ErrKAGFillImpossible = errors.New("mxf: KAG alignment impossible, filler would not fit")

	// ErrIndexTypeMismatch is returned when add_segment is given a segment
	// whose delta-entry array is incompatible with the table's existing one.
	ErrIndexTypeMismatch = errors.New("mxf: incompatible delta-entry array for this index table")

	// ErrNoDeltaEntries is returned when an IndexTable lookup is attempted
	// before any delta entries have been configured.
	ErrNoDeltaEntries = errors.New("mxf: index table has no configured delta entries")

	// ErrHeaderPaddingReserve is returned by BodyWriter.WriteBody when the
	// first body partition would start inside the header partition's
	// reserved padding area (spec.md §4.9 "header-padding-reserve check").
	ErrHeaderPaddingReserve = errors.New("mxf: body partition starts inside header padding reserve")
)

// Precondition errors.
var (
	ErrWriteDataBeforeWriteKL = errors.New("mxf: write_data called before write_kl")
	ErrEditRateBeforeUse      = errors.New("mxf: set_edit_rate called before use")
	ErrUnconfiguredIndex      = errors.New("mxf: index table requested with unconfigured deltas")
)

// Not-found / lookup misses used internally; these are not reported through
// the error sink, they are ordinary control flow.
var (
	ErrNotFound   = errors.New("mxf: not found")
	ErrOutOfRange = errors.New("mxf: position out of range")
)

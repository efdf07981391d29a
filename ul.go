// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// ULLength is the fixed byte length of both UL and UUID values.
const ULLength = 16

// UL is a 16-byte SMPTE universal label. ULs are the stable type identity
// across the whole system: type records, static primer tags, essence
// wrapping keys, and data-definitions are all named by UL.
type UL [ULLength]byte

// UUID is 16 bytes used for instance identification. It is only
// distinguishable from a UL by context (the field that holds it), so it is
// declared as a distinct Go type purely for documentation and type safety.
type UUID [ULLength]byte

// String renders a UL as 32 lowercase hex digits with no separators.
func (u UL) String() string {
	return hex.EncodeToString(u[:])
}

// String renders a UUID as a canonical dashed hex string.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}

// Equal reports byte-exact equality between two ULs.
func (u UL) Equal(other UL) bool {
	return u == other
}

// VersionlessEqual reports equality ignoring byte 7, the SMPTE UL version
// octet. This is the comparison used to recognise partition-pack keys,
// essence-container labels, and other ULs that may legitimately carry
// different version numbers while naming the same thing.
//
// VersionlessEqual is reflexive, symmetric, and transitive over any set of
// UL literals that differ only in byte 7, because masking byte 7 before
// comparing reduces the comparison to ordinary array equality on the
// masked values.
func (u UL) VersionlessEqual(other UL) bool {
	var a, b UL
	a, b = u, other
	a[7] = 0
	b[7] = 0
	return a == b
}

// IsZero reports whether the UL is all-zero (the "unset" sentinel used
// throughout the metadata graph for an unlinked reference).
func (u UL) IsZero() bool {
	return u == UL{}
}

// UUIDFromUL reinterprets a UL's bytes as a UUID and vice versa; the two
// types share a representation and differ only by the field that holds
// them (spec.md: "distinguishable from a UL only by context").
func UUIDFromUL(u UL) UUID { return UUID(u) }

// ULFromUUID reinterprets a UUID's bytes as a UL.
func ULFromUUID(u UUID) UL { return UL(u) }

// NewUUID generates a fresh random (version 4) UUID, used for instance IDs
// and for bumping a metadata object's GenerationUID on modification
// (spec.md §5).
func NewUUID() UUID {
	return UUID(uuid.New())
}

// UUIDFromString parses a canonical dashed-hex UUID string.
func UUIDFromString(s string) (UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, err
	}
	return UUID(parsed), nil
}

// ULFromBytes copies exactly ULLength bytes into a new UL, returning an
// error if b is the wrong size — the shape of error spec.md §7 calls a
// "reference whose UUID value has the wrong byte-size".
func ULFromBytes(b []byte) (UL, error) {
	var u UL
	if len(b) != ULLength {
		return u, fmt.Errorf("%w: got %d bytes, want %d", ErrBadReferenceSize, len(b), ULLength)
	}
	copy(u[:], b)
	return u, nil
}

// UUIDFromBytes copies exactly ULLength bytes into a new UUID.
func UUIDFromBytes(b []byte) (UUID, error) {
	u, err := ULFromBytes(b)
	if err != nil {
		return UUID{}, err
	}
	return UUID(u), nil
}

// ULFromHex parses a hex string (no separators) into a UL, primarily for
// use by the dictionary seam and tests.
func ULFromHex(s string) UL {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != ULLength {
		panic(fmt.Sprintf("mxf: invalid UL literal %q", s))
	}
	var u UL
	copy(u[:], b)
	return u
}

// Rational is a numerator/denominator pair, used for edit rates and
// PosTable entries.
type Rational struct {
	Numerator   int32
	Denominator int32
}

// Float64 returns the rational as a float64; Denominator == 0 returns 0.
func (r Rational) Float64() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

// String renders "N/D".
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}

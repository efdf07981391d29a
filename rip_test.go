// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/saferwall/mxf/log"
)

func TestRIPEncodeDecodeRoundTrip(t *testing.T) {
	r := NewRIP()
	r.AddPartition(&PartitionInfo{BodySID: 1, ByteOffset: 0})
	r.AddPartition(&PartitionInfo{BodySID: 1, ByteOffset: 4096})
	r.AddPartition(&PartitionInfo{BodySID: 0, ByteOffset: 8192})

	sink := log.NewHelper(log.Discard)
	klv := r.EncodeRIP(sink)

	// Trailing 4 bytes must equal the KLV's own total size.
	total := int(getU32BE(klv[len(klv)-4:]))
	if total != len(klv) {
		t.Fatalf("trailer = %d, want %d", total, len(klv))
	}

	var key UL
	copy(key[:], klv[:16])
	if !key.VersionlessEqual(ripUL) {
		t.Fatalf("decoded key is not the RIP UL: %x", key)
	}

	length, lsize, err := DecodeBERLength(klv[16:])
	if err != nil {
		t.Fatalf("DecodeBERLength: %v", err)
	}
	value := klv[16+lsize : 16+lsize+int(length)]

	got, err := DecodeRIP(value)
	if err != nil {
		t.Fatalf("DecodeRIP: %v", err)
	}

	want := r.Entries()
	gotEntries := got.Entries()
	if diff := cmp.Diff(want, gotEntries, cmpopts.IgnoreFields(PartitionInfo{}, "Pack")); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRIPFindPartition(t *testing.T) {
	r := NewRIP()
	r.AddPartition(&PartitionInfo{BodySID: 1, ByteOffset: 0})
	r.AddPartition(&PartitionInfo{BodySID: 1, ByteOffset: 1000})
	r.AddPartition(&PartitionInfo{BodySID: 1, ByteOffset: 2000})

	if _, ok := r.FindPartition(1000); !ok {
		t.Fatal("expected exact match at 1000")
	}
	prev, ok := r.FindPreviousPartition(1500)
	if !ok || prev.ByteOffset != 1000 {
		t.Fatalf("FindPreviousPartition(1500) = %+v, %v", prev, ok)
	}
	next, ok := r.FindNextPartition(1500)
	if !ok || next.ByteOffset != 2000 {
		t.Fatalf("FindNextPartition(1500) = %+v, %v", next, ok)
	}
}

func TestRIPFindPartitionForStreamOffset(t *testing.T) {
	r := NewRIP()
	r.AddPartition(&PartitionInfo{BodySID: 1, ByteOffset: 0, StreamOffset: 0, StreamOffsetKnown: true, EssenceStart: 100})
	r.AddPartition(&PartitionInfo{BodySID: 1, ByteOffset: 5100, StreamOffset: 5000, StreamOffsetKnown: true, EssenceStart: 5200})
	r.AddPartition(&PartitionInfo{BodySID: 1, ByteOffset: 10200})

	info, ok := r.FindPartitionForStreamOffset(1, 7000, 1)
	if !ok {
		t.Fatal("expected a candidate partition")
	}
	if info.ByteOffset != 5100 {
		t.Fatalf("ByteOffset = %d, want 5100", info.ByteOffset)
	}
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "testing"

func TestUTF16TraitsRoundTrip(t *testing.T) {
	tr := utf16Traits{}
	dc := NewDataChunk()
	tr.SetString(dc, "Saferwall MXF")

	if dc.Len()%2 != 0 {
		t.Fatalf("UTF-16BE encoding should be an even byte count, got %d", dc.Len())
	}

	got := tr.GetString(dc)
	if got != "Saferwall MXF" {
		t.Fatalf("GetString() = %q, want %q", got, "Saferwall MXF")
	}
}

func TestIntTraitsRoundTrip(t *testing.T) {
	tr := intTraits{signed: false}
	dc := NewDataChunk()
	tr.SetUint(dc, 4, 0xDEADBEEF)

	if got := tr.GetUint(dc, 4); got != 0xDEADBEEF {
		t.Fatalf("GetUint() = %x, want %x", got, 0xDEADBEEF)
	}
	if got := dc.Bytes(); got[0] != 0xDE || got[3] != 0xEF {
		t.Fatalf("bytes not big-endian: % x", got)
	}
}

func TestISOTimestampTraits(t *testing.T) {
	tr := isoTimestampTraits{}
	dc := NewDataChunkFromBytes([]byte{0x07, 0xE6, 1, 15, 12, 30, 45, 0x01, 0xF4})
	got := tr.GetString(dc)
	want := "2022-01-15T12:30:45.500Z"
	if got != want {
		t.Fatalf("GetString() = %q, want %q", got, want)
	}
}

func TestRationalTraits(t *testing.T) {
	tr := rationalTraits{}
	var b [8]byte
	putI32BE(b[0:4], 30000)
	putI32BE(b[4:8], 1001)
	dc := NewDataChunkFromBytes(b[:])

	got := tr.GetString(dc)
	if got != "30000/1001" {
		t.Fatalf("GetString() = %q, want %q", got, "30000/1001")
	}
}

func TestDefaultRegistryLooksUpBuiltinTraits(t *testing.T) {
	r := DefaultRegistry()
	tr := r.LookupTraitsMapping("UInt32")
	if tr == nil {
		t.Fatal("expected UInt32 traits to be registered by default")
	}
}

func TestRegistryResolvesUUIDAndRationalTraitsByTypeName(t *testing.T) {
	r := NewTypeRegistry()

	uuidTr := r.LookupTraitsMapping("UUID")
	dc := NewDataChunk()
	want := NewUUID()
	uuidTr.SetString(dc, want.String())
	if got := uuidTr.GetString(dc); got != want.String() {
		t.Fatalf("UUID traits round trip = %q, want %q", got, want.String())
	}

	ratTr := r.LookupTraitsMapping("Rational")
	dc2 := NewDataChunk()
	ratTr.SetString(dc2, "30000/1001")
	if got := ratTr.GetString(dc2); got != "30000/1001" {
		t.Fatalf("Rational traits round trip = %q, want %q", got, "30000/1001")
	}
}

func TestMDObjectSetStringUUIDAndRational(t *testing.T) {
	r := NewTypeRegistry()
	obj := NewMDObjectByName("UUID", r)
	id := NewUUID()
	obj.SetString(id.String())
	if got := obj.GetString(); got != id.String() {
		t.Fatalf("MDObject UUID SetString/GetString round trip = %q, want %q", got, id.String())
	}

	rat := NewMDObjectByName("Rational", r)
	rat.SetString("25/1")
	if got := rat.GetString(); got != "25/1" {
		t.Fatalf("MDObject Rational SetString/GetString round trip = %q, want %q", got, "25/1")
	}
}

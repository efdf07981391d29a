// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "testing"

func TestULVersionlessEqual(t *testing.T) {
	a := ULFromHex("060e2b34020501010d01020101020100")
	b := ULFromHex("060e2b34020501020d01020101020100") // differs only in version octet
	if a.Equal(b) {
		t.Fatal("a and b differ in byte 7, Equal should be false")
	}
	if !a.VersionlessEqual(b) {
		t.Fatal("a and b should match when the version octet is masked")
	}
}

func TestULFromBytesValidatesLength(t *testing.T) {
	if _, err := ULFromBytes(make([]byte, 15)); err == nil {
		t.Fatal("expected an error for a 15-byte slice")
	}
	ul, err := ULFromBytes(make([]byte, 16))
	if err != nil {
		t.Fatalf("ULFromBytes: %v", err)
	}
	if !ul.IsZero() {
		t.Fatal("all-zero bytes should produce a zero UL")
	}
}

func TestUUIDFromULRoundTrip(t *testing.T) {
	ul := ULFromHex("060e2b34020501010d01020101020100")
	u := UUIDFromUL(ul)
	back := ULFromUUID(u)
	if back != ul {
		t.Fatalf("round trip = %x, want %x", back, ul)
	}
}

func TestNewUUIDIsUnique(t *testing.T) {
	a := NewUUID()
	b := NewUUID()
	if a == b {
		t.Fatal("two freshly generated UUIDs collided")
	}
}

func TestRationalString(t *testing.T) {
	r := Rational{Numerator: 30000, Denominator: 1001}
	if got := r.String(); got != "30000/1001" {
		t.Fatalf("String() = %q, want %q", got, "30000/1001")
	}
}

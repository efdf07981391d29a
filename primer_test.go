// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "testing"

func TestPrimerLookupPrefersExistingTryTag(t *testing.T) {
	p := NewPrimer()
	ul := ULFromHex("060e2b34010101010101151000000000")
	p.Insert(0x1234, ul)

	got := p.Lookup(ul, 0x1234, true, nil)
	if got != 0x1234 {
		t.Fatalf("Lookup() = %#x, want %#x", got, 0x1234)
	}
}

func TestPrimerLookupUsesStaticTag(t *testing.T) {
	p := NewPrimer()
	r := NewTypeRegistry()
	ul := ULFromHex("060e2b34010101010101151000000000")
	r.RegisterStaticTag(ul, 0x3c0a)

	got := p.Lookup(ul, 0, false, r)
	if got != 0x3c0a {
		t.Fatalf("Lookup() = %#x, want %#x", got, 0x3c0a)
	}
	if tag, ok := p.TagForUL(ul); !ok || tag != 0x3c0a {
		t.Fatalf("static tag not recorded in primer: %#x, %v", tag, ok)
	}
}

func TestPrimerLookupAllocatesDynamicTagDescending(t *testing.T) {
	p := NewPrimer()
	ul1 := ULFromHex("060e2b34010101010101151000000001")
	ul2 := ULFromHex("060e2b34010101010101151000000002")

	tag1 := p.Lookup(ul1, 0, false, nil)
	tag2 := p.Lookup(ul2, 0, false, nil)

	if tag1 != 0xFFFF {
		t.Fatalf("first dynamic tag = %#x, want %#x", tag1, 0xFFFF)
	}
	if tag2 != 0xFFFE {
		t.Fatalf("second dynamic tag = %#x, want %#x", tag2, 0xFFFE)
	}
}

func TestPrimerLookupReturnsExistingTagForSameUL(t *testing.T) {
	p := NewPrimer()
	ul := ULFromHex("060e2b34010101010101151000000003")

	first := p.Lookup(ul, 0, false, nil)
	second := p.Lookup(ul, 0, false, nil)
	if first != second {
		t.Fatalf("Lookup() not stable across calls: %#x then %#x", first, second)
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
}

func TestPrimerULForTagAndTagForUL(t *testing.T) {
	p := NewPrimer()
	ul := ULFromHex("060e2b34010101010101151000000004")
	p.Insert(0x0102, ul)

	got, ok := p.ULForTag(0x0102)
	if !ok || got != ul {
		t.Fatalf("ULForTag() = %x, %v, want %x, true", got, ok, ul)
	}
	tag, ok := p.TagForUL(ul)
	if !ok || tag != 0x0102 {
		t.Fatalf("TagForUL() = %#x, %v, want %#x, true", tag, ok, 0x0102)
	}
}

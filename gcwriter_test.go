// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"bytes"
	"testing"
)

// fakeGCSource is a minimal EssenceSource yielding a single fixed unit of
// payload, enough to drive GCWriter.WriteEditUnit in tests.
type fakeGCSource struct {
	desc EssenceDescriptor
	unit []byte
	done bool
}

func (f *fakeGCSource) Descriptor() EssenceDescriptor { return f.desc }
func (f *fakeGCSource) NextUnit() ([]byte, error) {
	if f.done {
		return nil, ErrNotFound
	}
	f.done = true
	return f.unit, nil
}
func (f *fakeGCSource) SamplesPerEditUnit() int         { return 0 }
func (f *fakeGCSource) EssenceDataSize() int64          { return int64(len(f.unit)) }
func (f *fakeGCSource) EssenceData(size, maxSize int64) ([]byte, error) {
	if f.done {
		return nil, nil
	}
	f.done = true
	return f.unit, nil
}
func (f *fakeGCSource) EndOfItem() bool                  { return true }
func (f *fakeGCSource) EndOfData() bool                  { return f.done }
func (f *fakeGCSource) EditRate() Rational                { return f.desc.EditRate }
func (f *fakeGCSource) CurrentPosition() int64            { return 0 }
func (f *fakeGCSource) BytesPerEditUnit(kag uint32) uint32 { return uint32(len(f.unit)) }
func (f *fakeGCSource) RelativeWriteOrder() int32          { return 0 }
func (f *fakeGCSource) RelativeWriteOrderType() byte       { return 0 }

// TestGCWriterWriteOrderPicksLowerKeyFirst is spec.md §8's explicit
// testable property: "for keys k1<k2, e1 appears earlier".
func TestGCWriterWriteOrderPicksLowerKeyFirst(t *testing.T) {
	rate := Rational{25, 1}
	g := NewGCWriter(1, 0, nil)

	srcA := &fakeGCSource{desc: EssenceDescriptor{EditRate: rate}, unit: bytes.Repeat([]byte{0xAA}, 4)}
	srcB := &fakeGCSource{desc: EssenceDescriptor{EditRate: rate}, unit: bytes.Repeat([]byte{0xBB}, 4)}

	g.AddEssenceElement(1, 0x06, 1, srcA)
	g.AddEssenceElement(2, 0x06, 1, srcB)

	// Force explicit, unambiguous write-order keys: k1 < k2.
	g.SetWriteOrder(1, 20, -1)
	g.SetWriteOrder(2, 10, -1)

	out, err := g.WriteEditUnit(0, 0, 0, false, nil)
	if err != nil {
		t.Fatalf("WriteEditUnit: %v", err)
	}

	posA := bytes.Index(out, srcA.unit)
	posB := bytes.Index(out, srcB.unit)
	if posA < 0 || posB < 0 {
		t.Fatalf("both units should appear in output: posA=%d posB=%d", posA, posB)
	}
	// track 2 was assigned the lower key (10 < 20) so its unit (e1) must
	// appear earlier in the written bytes than track 1's (e2).
	if posB >= posA {
		t.Fatalf("lower write-order key (track 2) should write before higher (track 1): posB=%d posA=%d", posB, posA)
	}
}

func TestGCWriterAddSystemElementDefaultWriteOrder(t *testing.T) {
	rate := Rational{25, 1}
	g := NewGCWriter(1, 0, nil)
	src := &fakeGCSource{desc: EssenceDescriptor{EditRate: rate}, unit: []byte{0x01}}

	g.AddSystemElement(1, true, 0x01, 0x02, 0x03, 0x04, src)
	s := g.streams[1]
	if !s.isSystem {
		t.Fatal("expected isSystem")
	}
	if top := byte(s.writeOrder >> 24); top != 0x08 {
		t.Fatalf("default CP-compatible system write-order top byte = 0x%02x, want 0x08", top)
	}
}

func TestGCWriterKAGFillerBetweenTypeGroups(t *testing.T) {
	rate := Rational{25, 1}
	g := NewGCWriter(1, 512, nil)

	srcA := &fakeGCSource{desc: EssenceDescriptor{EditRate: rate}, unit: []byte{0x01, 0x02}}
	srcB := &fakeGCSource{desc: EssenceDescriptor{EditRate: rate}, unit: []byte{0x03, 0x04}}

	g.AddSystemElement(1, true, 0x01, 0x02, 0x03, 0x04, srcA) // top byte 0x08
	g.AddEssenceElement(2, 0x06, 1, srcB)                     // top byte 0x0c

	out, err := g.WriteEditUnit(0, 0, 0, false, nil)
	if err != nil {
		t.Fatalf("WriteEditUnit: %v", err)
	}
	// With KAGSize=512 and two differing item-type groups, a filler
	// should separate them, making the output longer than the bare
	// key+length+value total for both items.
	bareTotal := (ULLength + 1 + len(srcA.unit)) + (ULLength + 1 + len(srcB.unit))
	if len(out) <= bareTotal {
		t.Fatalf("expected KAG filler between type groups, got len=%d, bare=%d", len(out), bareTotal)
	}
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "testing"

func TestIndexTableCBRLookup(t *testing.T) {
	deltas := []DeltaEntry{{PosTableIndex: -1, Slice: 0, ElementDelta: 0}}
	table := NewCBRIndexTable(Rational{25, 1}, deltas, 1920, 1000)

	pos, err := table.Lookup(3, 0, false)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	want := int64(1000 + 3*1920)
	if pos.Location != want {
		t.Fatalf("Location = %d, want %d", pos.Location, want)
	}
	if !pos.Exact {
		t.Fatal("CBR lookup should always be exact")
	}
}

func TestIndexTableVBRLookupAndReorder(t *testing.T) {
	deltas := []DeltaEntry{{PosTableIndex: -1, Slice: 0, ElementDelta: 0}}
	table := NewIndexTable(Rational{25, 1}, deltas)

	// Entry 0 is a key frame (anchor offset 0); entries 1 and 2 are
	// B-frames stored out of display order with TemporalOffset pointing
	// forward/back to their display position.
	table.AddIndexEntry(0, 0, 0, 0x40, 100, nil, nil)
	table.AddIndexEntry(1, 1, -1, 0x00, 300, nil, nil) // stream position 1 displays at 2
	table.AddIndexEntry(2, -1, -2, 0x00, 200, nil, nil) // stream position 2 displays at 1

	pos, err := table.Lookup(0, 0, true)
	if err != nil {
		t.Fatalf("Lookup(0): %v", err)
	}
	if pos.Location != 100 || !pos.Exact {
		t.Fatalf("Lookup(0) = %+v", pos)
	}

	pos, err = table.Lookup(1, 0, true)
	if err != nil {
		t.Fatalf("Lookup(1): %v", err)
	}
	if pos.Location != 200 {
		t.Fatalf("reordered Lookup(1) Location = %d, want 200 (%+v)", pos.Location, pos)
	}
	if !pos.OtherPos {
		t.Fatalf("expected OtherPos after reorder, got %+v", pos)
	}
	// spec.md §8 scenario 4: this_pos stays the requested edit unit even
	// though the entry resolved to is physically stored elsewhere.
	if pos.ThisPos != 1 {
		t.Fatalf("ThisPos = %d, want 1 (the requested edit unit)", pos.ThisPos)
	}
	if pos.KeyLocation != 100 {
		t.Fatalf("KeyLocation = %d, want 100 (entry 0's stream offset)", pos.KeyLocation)
	}
}

func TestIndexTableVBRLookupDeeperReorder(t *testing.T) {
	// Coded order I P B B B B; coded entries 2 and 3 display two positions
	// later and entries 4 and 5 two positions earlier, so display positions
	// 2..5 hold coded entries 4, 5, 2, 3. temporal_offset expresses
	// coded->display distance; a single fixed hop (idx + offset) only
	// happens to work for adjacent swaps, so this exercises a reorder
	// distance of 2.
	deltas := []DeltaEntry{{PosTableIndex: -1, Slice: 0, ElementDelta: 0}}
	table := NewIndexTable(Rational{25, 1}, deltas)

	// Coded order: 0=I, 1=P, 2=B(displays at 4), 3=B(displays at 5),
	// 4=B(displays at 2), 5=B(displays at 3).
	table.AddIndexEntry(0, 0, 0, 0x40, 1000, nil, nil)
	table.AddIndexEntry(1, 0, 0, 0x00, 1100, nil, nil)
	table.AddIndexEntry(2, 2, -2, 0x00, 1200, nil, nil)
	table.AddIndexEntry(3, 2, -3, 0x00, 1300, nil, nil)
	table.AddIndexEntry(4, -2, -4, 0x00, 1400, nil, nil)
	table.AddIndexEntry(5, -2, -5, 0x00, 1500, nil, nil)

	pos, err := table.Lookup(2, 0, true)
	if err != nil {
		t.Fatalf("Lookup(2): %v", err)
	}
	if pos.Location != 1400 {
		t.Fatalf("reordered Lookup(2) Location = %d, want 1400 (coded entry 4) (%+v)", pos.Location, pos)
	}
	if pos.ThisPos != 2 {
		t.Fatalf("ThisPos = %d, want 2", pos.ThisPos)
	}
	if !pos.OtherPos {
		t.Fatalf("expected OtherPos, got %+v", pos)
	}
}

func TestIndexTableOutOfRange(t *testing.T) {
	table := NewIndexTable(Rational{25, 1}, []DeltaEntry{{PosTableIndex: -1}})
	if _, err := table.Lookup(5, 0, false); err != ErrOutOfRange {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
}

func TestIndexEntrySize(t *testing.T) {
	deltas := []DeltaEntry{
		{PosTableIndex: -1, Slice: 0},
		{PosTableIndex: 0, Slice: 1},
	}
	got := IndexEntrySize(deltas)
	// NSL = 1 (max slice), NPE = 1 (one non-negative PosTableIndex).
	want := 11 + 4*1 + 8*1
	if got != want {
		t.Fatalf("IndexEntrySize = %d, want %d", got, want)
	}
}

func TestEncodeDecodeIndexEntryRoundTrip(t *testing.T) {
	e := IndexEntry{
		StreamOffset:   12345,
		TemporalOffset: -2,
		AnchorOffset:   1,
		Flags:          0x80,
		SliceOffsets:   []uint32{10, 20},
		PosTable:       []Rational{{1, 2}},
	}
	enc := encodeIndexEntry(e, 2, 1)
	got, err := decodeIndexEntry(enc, 2, 1)
	if err != nil {
		t.Fatalf("decodeIndexEntry: %v", err)
	}
	if got.StreamOffset != e.StreamOffset || got.TemporalOffset != e.TemporalOffset ||
		got.AnchorOffset != e.AnchorOffset || got.Flags != e.Flags {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

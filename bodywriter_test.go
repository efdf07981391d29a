// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "testing"

func newTestBodyFile() *MXFFile {
	return NewMemoryFile(nil)
}

func TestBodyWriterWriteBodyDurationPolicy(t *testing.T) {
	f := newTestBodyFile()
	bw := NewBodyWriter(f, 0, nil)
	bw.Policy = BodyDuration
	bw.PartitionDuration = 2

	rate := Rational{25, 1}
	src := &fakeGCSource{desc: EssenceDescriptor{EditRate: rate}, unit: []byte{0x01, 0x02}}
	g := NewGCWriter(1, 0, nil)
	g.AddEssenceElement(1, 0x06, 1, src)
	bw.AddStream(1, g)

	pack := &PartitionPack{BodySID: 1}
	if _, err := bw.WriteHeader(pack, nil); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	partitions := 0
	off, err := bw.WriteBody(bw.headerEnd, 6, func() *PartitionPack {
		partitions++
		src.done = false // fakeGCSource only yields once; reset at the start of each partition
		return &PartitionPack{BodySID: 1}
	})
	if err != nil {
		t.Fatalf("WriteBody: %v", err)
	}
	if off <= bw.headerEnd {
		t.Fatalf("WriteBody should have advanced the offset, got %d (header ends at %d)", off, bw.headerEnd)
	}
	// 6 edit units with a 2-unit duration break should need at least 3
	// partitions.
	if partitions < 3 {
		t.Fatalf("expected at least 3 partitions for 6 edit units at duration=2, got %d", partitions)
	}
}

func TestBodyWriterWriteBodySizePolicy(t *testing.T) {
	f := newTestBodyFile()
	bw := NewBodyWriter(f, 0, nil)
	bw.Policy = BodySize
	bw.PartitionSize = 1 // smallest possible threshold: break after every unit

	rate := Rational{25, 1}
	src := &fakeGCSource{desc: EssenceDescriptor{EditRate: rate}, unit: []byte{0xAA, 0xBB, 0xCC}}
	g := NewGCWriter(2, 0, nil)
	g.AddEssenceElement(1, 0x06, 1, src)
	bw.AddStream(2, g)

	pack := &PartitionPack{BodySID: 2}
	if _, err := bw.WriteHeader(pack, nil); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	partitions := 0
	_, err := bw.WriteBody(bw.headerEnd, 3, func() *PartitionPack {
		partitions++
		src.done = false
		return &PartitionPack{BodySID: 2}
	})
	if err != nil {
		t.Fatalf("WriteBody: %v", err)
	}
	if partitions < 3 {
		t.Fatalf("expected a new partition per edit unit at size threshold 1, got %d partitions for 3 edit units", partitions)
	}
}

func TestBodyWriterHeaderPaddingReserve(t *testing.T) {
	f := newTestBodyFile()
	bw := NewBodyWriter(f, 0, nil)
	bw.HeaderPadding = 4096

	pack := &PartitionPack{BodySID: 1}
	if _, err := bw.WriteHeader(pack, nil); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	_, err := bw.WriteBody(bw.headerEnd, 1, func() *PartitionPack { return &PartitionPack{BodySID: 1} })
	if err != ErrHeaderPaddingReserve {
		t.Fatalf("expected ErrHeaderPaddingReserve when starting inside the padding reserve, got %v", err)
	}

	// Starting past the reserve succeeds.
	_, err = bw.WriteBody(bw.headerEnd+bw.HeaderPadding, 0, func() *PartitionPack { return &PartitionPack{BodySID: 1} })
	if err != nil {
		t.Fatalf("WriteBody past the reserve: %v", err)
	}
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"testing"

	"github.com/saferwall/mxf/log"
)

func TestKLVObjectReadKLFromMemoryFile(t *testing.T) {
	key := ULFromHex("060e2b34020501010d01020101020100")
	value := []byte("hello, mxf")

	sink := log.NewHelper(log.Discard)
	var buf []byte
	buf = append(buf, key[:]...)
	buf = append(buf, EncodeBERLength(uint64(len(value)), 0, sink)...)
	buf = append(buf, value...)

	f := OpenMemory(buf, nil)

	k := &KLVObject{}
	if err := k.ReadKL(f, 0); err != nil {
		t.Fatalf("ReadKL: %v", err)
	}
	if k.Key != key {
		t.Fatalf("Key = %x, want %x", k.Key, key)
	}
	if k.Length != uint64(len(value)) {
		t.Fatalf("Length = %d, want %d", k.Length, len(value))
	}

	got, err := k.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if string(got.Bytes()) != string(value) {
		t.Fatalf("value = %q, want %q", got.Bytes(), value)
	}
}

func TestMXFFileScanRIPRoundTrip(t *testing.T) {
	r := NewRIP()
	r.AddPartition(&PartitionInfo{BodySID: 1, ByteOffset: 0})
	r.AddPartition(&PartitionInfo{BodySID: 1, ByteOffset: 512})

	sink := log.NewHelper(log.Discard)
	klv := r.EncodeRIP(sink)

	// Prepend some arbitrary bytes to stand in for the rest of the file.
	buf := append(make([]byte, 512), klv...)
	f := OpenMemory(buf, nil)

	got, err := f.ScanRIP()
	if err != nil {
		t.Fatalf("ScanRIP: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("RIP.Len() = %d, want 2", got.Len())
	}
	entries := got.Entries()
	if entries[0].ByteOffset != 0 || entries[1].ByteOffset != 512 {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestMXFFileReadAtRunIn(t *testing.T) {
	data := append(make([]byte, 8), []byte("payload!")...)
	f := OpenMemory(data, nil)
	f.SetRunIn(8)

	buf := make([]byte, 8)
	n, err := f.ReadAt(buf, f.RunIn)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 8 || string(buf) != "payload!" {
		t.Fatalf("ReadAt got %q, want %q", buf, "payload!")
	}
}

func TestPartitionPackBodyRoundTrip(t *testing.T) {
	pack := &PartitionPack{
		Kind:              PartitionHeader,
		Status:            StatusClosedComplete,
		MajorVersion:      1,
		MinorVersion:      2,
		KAGSize:           512,
		ThisPartition:     0,
		HeaderByteCount:   1024,
		IndexByteCount:    256,
		IndexSID:          1,
		BodySID:           2,
		EssenceContainers: []UL{ULFromHex("060e2b34040101010d01030102100000")},
	}

	sink := log.NewHelper(log.Discard)
	body := encodePartitionPackBody(pack, sink)

	got, err := decodePartitionPackBody(body, PartitionHeader, StatusClosedComplete)
	if err != nil {
		t.Fatalf("decodePartitionPackBody: %v", err)
	}
	if got.MajorVersion != pack.MajorVersion || got.KAGSize != pack.KAGSize ||
		got.HeaderByteCount != pack.HeaderByteCount || got.IndexByteCount != pack.IndexByteCount ||
		got.BodySID != pack.BodySID || len(got.EssenceContainers) != 1 {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, pack)
	}
	if got.EssenceContainers[0] != pack.EssenceContainers[0] {
		t.Fatalf("essence container mismatch: got %x, want %x", got.EssenceContainers[0], pack.EssenceContainers[0])
	}
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"sort"

	"github.com/saferwall/mxf/log"
)

// ripUL is the well-known Random Index Pack key.
var ripUL = ULFromHex("060e2b34020501010d01020101110100")

// RIP maps partition byte offset to PartitionInfo (spec.md §3 "RIP"). The
// map is filled either by parsing a terminating RIP KLV (MXFFile.ScanRIP)
// or as partitions are written (BodyWriter); no forward-scan builder is
// provided.
type RIP struct {
	entries map[int64]*PartitionInfo
}

// NewRIP returns an empty RIP.
func NewRIP() *RIP {
	return &RIP{entries: make(map[int64]*PartitionInfo)}
}

// AddPartition replaces any existing entry at the same offset.
func (r *RIP) AddPartition(info *PartitionInfo) {
	r.entries[info.ByteOffset] = info
}

// Len reports the number of entries.
func (r *RIP) Len() int { return len(r.entries) }

// sortedOffsets returns every recorded offset in ascending order.
func (r *RIP) sortedOffsets() []int64 {
	out := make([]int64, 0, len(r.entries))
	for off := range r.entries {
		out = append(out, off)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Entries returns every PartitionInfo ordered by ascending byte offset.
func (r *RIP) Entries() []*PartitionInfo {
	offs := r.sortedOffsets()
	out := make([]*PartitionInfo, 0, len(offs))
	for _, off := range offs {
		out = append(out, r.entries[off])
	}
	return out
}

// FindPartition returns the entry at exactly offset, if any.
func (r *RIP) FindPartition(offset int64) (*PartitionInfo, bool) {
	info, ok := r.entries[offset]
	return info, ok
}

// FindPreviousPartition returns the entry nearest to, but strictly less
// than, pos.
func (r *RIP) FindPreviousPartition(pos int64) (*PartitionInfo, bool) {
	var best *PartitionInfo
	var bestOff int64 = -1
	for off, info := range r.entries {
		if off < pos && off > bestOff {
			bestOff = off
			best = info
		}
	}
	return best, best != nil
}

// FindNextPartition returns the entry nearest to, but strictly greater
// than, pos.
func (r *RIP) FindNextPartition(pos int64) (*PartitionInfo, bool) {
	var best *PartitionInfo
	var bestOff int64 = -1
	found := false
	for off, info := range r.entries {
		if off > pos && (!found || off < bestOff) {
			bestOff = off
			best = info
			found = true
		}
	}
	return best, found
}

// FindPartitionForStreamOffset implements the best-effort search described
// in spec.md §4.6: iterate partitions in file order tracking estimated
// body-offset growth for sid, using recorded BodyOffset values when
// available and otherwise extrapolating from the previous partition's
// essence size minus its metadata/index/pack overhead and KAG-rounded
// start. The result is advisory; callers confirm by reading.
func (r *RIP) FindPartitionForStreamOffset(sid uint32, streamOffset int64, kag uint32) (*PartitionInfo, bool) {
	entries := r.Entries()

	var candidate *PartitionInfo
	var estimate int64
	haveEstimate := false

	for i, info := range entries {
		if info.BodySID != sid {
			continue
		}

		var thisStart int64
		if info.StreamOffsetKnown {
			thisStart = info.StreamOffset
			estimate = thisStart
			haveEstimate = true
		} else if haveEstimate {
			thisStart = estimate
		} else {
			thisStart = 0
		}

		if thisStart <= streamOffset {
			candidate = info
		}

		// Extrapolate growth to the next same-SID partition using this
		// partition's essence span: its known total size minus header/
		// index/pack overhead, rounded to the KAG grid at its start.
		if i+1 < len(entries) {
			next := entries[i+1]
			essenceSpan := next.ByteOffset - info.EssenceStart
			if essenceSpan < 0 {
				essenceSpan = 0
			}
			if kag > 1 {
				essenceSpan = int64(roundUpGranularity(int(essenceSpan), int(kag)))
			}
			estimate = thisStart + essenceSpan
			haveEstimate = true
		}
	}

	return candidate, candidate != nil
}

// EncodeRIP serializes the RIP as its on-disk KLV: a local-set-like body
// of (BodySID uint32, ByteOffset uint64) pairs per partition, sorted by
// offset, followed by a trailing 4-byte big-endian length of the whole RIP
// KLV (spec.md §6 "ends with a 4-byte big-endian length of the RIP KLV
// itself, for backwards scan").
func (r *RIP) EncodeRIP(sink *log.Helper) []byte {
	entries := r.Entries()
	body := make([]byte, 0, len(entries)*12)
	for _, info := range entries {
		var pair [12]byte
		putU32BE(pair[0:4], info.BodySID)
		putU64BE(pair[4:12], uint64(info.ByteOffset))
		body = append(body, pair[:]...)
	}

	ber := EncodeBERLength(uint64(len(body)), 0, sink)
	klv := append(append([]byte(nil), ripUL[:]...), ber...)
	klv = append(klv, body...)

	total := len(klv) + 4
	var trailer [4]byte
	putU32BE(trailer[:], uint32(total))
	return append(klv, trailer[:]...)
}

// DecodeRIP parses a RIP KLV value (everything after the key+length, not
// including the 4-byte trailer) into a RIP.
func DecodeRIP(value []byte) (*RIP, error) {
	if len(value)%12 != 0 {
		return nil, ErrIndexCountMismatch
	}
	r := NewRIP()
	for i := 0; i+12 <= len(value); i += 12 {
		sid := getU32BE(value[i : i+4])
		offset := int64(getU64BE(value[i+4 : i+12]))
		r.AddPartition(&PartitionInfo{BodySID: sid, ByteOffset: offset, KnownSIDs: true})
	}
	return r, nil
}

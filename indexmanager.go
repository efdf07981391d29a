// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "sort"

// ReorderIndex pairs a display-order edit unit with its entry's temporal
// offset (spec.md §4.7 "Index Manager" / "offer_temporal_offset").
// IndexManager.OfferTemporalOffset does not use this type; it stores
// temporal offsets directly on its pending entries.
type ReorderIndex struct {
	EditUnit       int64
	TemporalOffset int8
}

// pendingEditUnit accumulates the partial information offered for one
// edit unit before MakeIndex folds it into an IndexSegment.
type pendingEditUnit struct {
	streamOffset   int64
	haveOffset     bool
	temporalOffset int8
	anchorOffset   int8
	keyFrameOffset int8
	flags          byte
	sliceOffsets   map[int]uint32
}

// IndexManager accumulates index information offered incrementally, in
// whatever order the essence writer produces it, and folds it into an
// IndexTable on demand (spec.md §4.7 "Index Manager accepts out-of-order
// offers: offer_edit_unit, offer_offset, offer_temporal_offset,
// offer_key_offset").
//
// This mirrors how a GOP-based essence encoder works: pictures are often
// encoded (and so their byte offsets known) in an order that differs from
// their display order, and B-frame temporal offsets are only known once
// the whole GOP has been seen.
type IndexManager struct {
	EditRate  Rational
	BaseDelta []DeltaEntry

	BodySID  uint32
	IndexSID uint32

	pending map[int64]*pendingEditUnit
	order   []int64 // edit units in the order first offered, for stable iteration
}

// NewIndexManager returns an IndexManager for the given edit rate and
// sub-stream delta array.
func NewIndexManager(editRate Rational, baseDelta []DeltaEntry) *IndexManager {
	return &IndexManager{
		EditRate:  editRate,
		BaseDelta: baseDelta,
		pending:   make(map[int64]*pendingEditUnit),
	}
}

func (m *IndexManager) entry(editUnit int64) *pendingEditUnit {
	e, ok := m.pending[editUnit]
	if !ok {
		e = &pendingEditUnit{sliceOffsets: make(map[int]uint32)}
		m.pending[editUnit] = e
		m.order = append(m.order, editUnit)
	}
	return e
}

// OfferEditUnit records that editUnit exists (e.g. has been encoded),
// without yet knowing its byte offset.
func (m *IndexManager) OfferEditUnit(editUnit int64) {
	m.entry(editUnit)
}

// OfferOffset records the stream byte offset of an edit unit's first
// (slice 0) sub-item.
func (m *IndexManager) OfferOffset(editUnit, streamOffset int64) {
	e := m.entry(editUnit)
	e.streamOffset = streamOffset
	e.haveOffset = true
}

// OfferKeyOffset records slice sub-item's byte offset within editUnit,
// relative to the edit unit's start (spec.md §4.7 "offer_key_offset").
func (m *IndexManager) OfferKeyOffset(editUnit int64, slice int, offset uint32) {
	e := m.entry(editUnit)
	e.sliceOffsets[slice] = offset
}

// OfferTemporalOffset records the temporal offset (display order minus
// encode/stream order, in edit units) discovered once a GOP has been
// fully processed.
func (m *IndexManager) OfferTemporalOffset(editUnit int64, temporalOffset int8) {
	e := m.entry(editUnit)
	e.temporalOffset = temporalOffset
}

// OfferAnchorOffset records the offset (in edit units) back to the
// nearest anchor (key) frame.
func (m *IndexManager) OfferAnchorOffset(editUnit int64, anchorOffset int8) {
	e := m.entry(editUnit)
	e.anchorOffset = anchorOffset
}

// OfferFlags records the random-access/key-frame flag byte for an edit
// unit.
func (m *IndexManager) OfferFlags(editUnit int64, flags byte) {
	e := m.entry(editUnit)
	e.flags = flags
}

// AddEntriesToIndex folds every complete (offset-known) pending edit unit
// into table as new index entries, in ascending edit-unit order, and
// removes them from the pending set. Edit units still missing a byte
// offset are left pending for a later call (spec.md §4.7
// "add_entries_to_index" folds only what is ready, leaving gaps for
// later").
func (m *IndexManager) AddEntriesToIndex(table *IndexTable) int {
	units := append([]int64(nil), m.order...)
	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })

	added := 0
	remaining := m.order[:0]
	for _, eu := range units {
		e := m.pending[eu]
		if e == nil || !e.haveOffset {
			remaining = append(remaining, eu)
			continue
		}

		nsl := nsl(m.BaseDelta)
		slices := make([]uint32, nsl)
		for i := range slices {
			if v, ok := e.sliceOffsets[i+1]; ok {
				slices[i] = v
			}
		}

		table.AddIndexEntry(eu, e.temporalOffset, e.anchorOffset, e.flags, e.streamOffset, slices, nil)
		delete(m.pending, eu)
		added++
	}
	m.order = remaining
	return added
}

// MakeIndex builds a fresh IndexTable from every offer made so far,
// folding in whatever is complete and leaving incomplete edit units
// pending (spec.md §4.7 "make_index").
func (m *IndexManager) MakeIndex() *IndexTable {
	table := NewIndexTable(m.EditRate, m.BaseDelta)
	m.AddEntriesToIndex(table)
	return table
}

// PendingCount reports how many offered edit units have not yet been
// folded into an index; after AddEntriesToIndex these are the ones still
// waiting on a byte offset.
func (m *IndexManager) PendingCount() int { return len(m.pending) }

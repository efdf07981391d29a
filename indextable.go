// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"sort"

	"github.com/saferwall/mxf/log"
)

// indexSegmentUL is the IndexTableSegment key (SMPTE 377M), encoded as a
// flat fixed-field body here rather than a tagged local set, matching this
// package's treatment of the partition pack (encodePartitionPackBody in
// bodywriter.go, decodePartitionPackBody in mxffile.go).
var indexSegmentUL = ULFromHex("060e2b34025301010d01020101100100")

// DeltaEntry describes one sub-stream's per-edit-unit sub-structure
// (spec.md §3 "Index entry"): which PosTable (if any), which slice, and
// the byte offset of that sub-item within the edit unit.
type DeltaEntry struct {
	PosTableIndex int8
	Slice         uint8
	ElementDelta  uint32
}

// IndexEntry is one edit unit's index record (spec.md §3).
type IndexEntry struct {
	StreamOffset   int64
	TemporalOffset int8
	AnchorOffset   int8
	Flags          byte
	SliceOffsets   []uint32
	PosTable       []Rational
}

// IndexSegment is a contiguous run of index entries sharing a BodySID,
// IndexSID, edit rate, and delta-entry array (spec.md §3 "Index
// segment"). A CBR segment has zero Duration and a nonzero
// EditUnitByteCount; a VBR segment carries an explicit Entries slice.
type IndexSegment struct {
	BodySID  uint32
	IndexSID uint32
	EditRate Rational

	StartPosition int64
	Duration      int64 // 0 for CBR

	EditUnitByteCount uint32 // CBR only; 0 means VBR

	DeltaEntries []DeltaEntry
	Entries      []IndexEntry // VBR only
}

// IsCBR reports whether this segment uses the constant-bit-rate fast path.
func (s *IndexSegment) IsCBR() bool { return s.EditUnitByteCount != 0 }

// nsl returns "slice count - 1" derived from the delta entry array, the
// NSL quantity of spec.md §4.7.
func nsl(deltas []DeltaEntry) int {
	maxSlice := -1
	for _, d := range deltas {
		if int(d.Slice) > maxSlice {
			maxSlice = int(d.Slice)
		}
	}
	if maxSlice < 0 {
		return 0
	}
	return maxSlice
}

// npe returns the number of PosTable entries (delta entries whose
// PosTableIndex is non-negative), the NPE quantity of spec.md §4.7.
func npe(deltas []DeltaEntry) int {
	n := 0
	for _, d := range deltas {
		if d.PosTableIndex >= 0 {
			n++
		}
	}
	return n
}

// IndexEntrySize returns 11 + 4*NSL + 8*NPE, the wire size of one
// IndexEntry for a segment with the given delta array (spec.md §4.7).
func IndexEntrySize(deltas []DeltaEntry) int {
	return 11 + 4*nsl(deltas) + 8*npe(deltas)
}

// IndexPos is the result of an IndexTable lookup (spec.md §4.7).
type IndexPos struct {
	ThisPos        int64 // always the requested edit unit
	Location       int64 // file/stream byte offset
	Exact          bool  // false when reordering resolved to a different stored entry; sub_item availability is not checked
	OtherPos       bool  // true if reordering produced a different ThisPos
	KeyFrameOffset int8
	KeyLocation    int64
	Flags          byte
}

// IndexTable holds one essence stream's index: an edit rate, a base
// delta-entry array, and either a CBR fast path or a VBR segment map
// (spec.md §4.7).
type IndexTable struct {
	EditRate Rational

	// BaseDelta defines every stream's per-edit-unit sub-structure; it is
	// shared by every segment added to this table (spec.md §4.7).
	BaseDelta []DeltaEntry

	ContainerStart int64 // byte offset of the essence container's first edit unit

	// CBR path.
	CBR               bool
	EditUnitByteCount uint32

	// VBR path: segments indexed by start position, kept sorted for
	// binary search.
	segments []*IndexSegment
}

// NewIndexTable returns an empty IndexTable with deltas configured.
func NewIndexTable(editRate Rational, baseDelta []DeltaEntry) *IndexTable {
	return &IndexTable{EditRate: editRate, BaseDelta: baseDelta}
}

// NewCBRIndexTable returns a CBR IndexTable.
func NewCBRIndexTable(editRate Rational, baseDelta []DeltaEntry, editUnitByteCount uint32, containerStart int64) *IndexTable {
	t := NewIndexTable(editRate, baseDelta)
	t.CBR = true
	t.EditUnitByteCount = editUnitByteCount
	t.ContainerStart = containerStart
	return t
}

// NSL and NPE report the derived quantities for this table's base delta
// array (spec.md §4.7).
func (t *IndexTable) NSL() int { return nsl(t.BaseDelta) }
func (t *IndexTable) NPE() int { return npe(t.BaseDelta) }

// AddSegment inserts seg into the table's VBR segment list, keeping it
// sorted by StartPosition. It returns ErrIndexTypeMismatch if seg's delta
// array is incompatible with a previously added segment's (different
// NSL/NPE shape), per spec.md §4.7 "index type mismatch when adding
// segments with incompatible delta arrays".
func (t *IndexTable) AddSegment(seg *IndexSegment) error {
	if len(t.segments) > 0 {
		if nsl(seg.DeltaEntries) != t.NSL() || npe(seg.DeltaEntries) != t.NPE() {
			return ErrIndexTypeMismatch
		}
	} else if len(t.BaseDelta) == 0 {
		t.BaseDelta = seg.DeltaEntries
	}

	t.segments = append(t.segments, seg)
	sort.Slice(t.segments, func(i, j int) bool {
		return t.segments[i].StartPosition < t.segments[j].StartPosition
	})
	return nil
}

// segmentFor binary-searches the VBR segment list for the segment whose
// range contains editUnit.
func (t *IndexTable) segmentFor(editUnit int64) (*IndexSegment, bool) {
	segs := t.segments
	i := sort.Search(len(segs), func(i int) bool {
		return segs[i].StartPosition > editUnit
	})
	if i == 0 {
		return nil, false
	}
	seg := segs[i-1]
	if editUnit < seg.StartPosition {
		return nil, false
	}
	if seg.Duration > 0 && editUnit >= seg.StartPosition+seg.Duration {
		return nil, false
	}
	if seg.Duration == 0 && int64(len(seg.Entries)) > 0 && editUnit >= seg.StartPosition+int64(len(seg.Entries)) {
		return nil, false
	}
	return seg, true
}

// AddIndexEntry appends one entry to the covering VBR segment, creating a
// new segment if necessary (spec.md §4.7).
func (t *IndexTable) AddIndexEntry(editUnit int64, temporalOffset, anchorOffset int8, flags byte, streamOffset int64, slices []uint32, posTable []Rational) {
	seg, ok := t.segmentFor(editUnit)
	if !ok {
		// Extend the segment that ends immediately before editUnit, if any.
		for _, s := range t.segments {
			if !s.IsCBR() && s.StartPosition+int64(len(s.Entries)) == editUnit {
				seg, ok = s, true
				break
			}
		}
	}
	if !ok {
		seg = &IndexSegment{
			BodySID:       0,
			DeltaEntries:  t.BaseDelta,
			StartPosition: editUnit,
			EditRate:      t.EditRate,
		}
		t.segments = append(t.segments, seg)
		sort.Slice(t.segments, func(i, j int) bool {
			return t.segments[i].StartPosition < t.segments[j].StartPosition
		})
	}

	idx := int(editUnit - seg.StartPosition)
	entry := IndexEntry{
		StreamOffset:   streamOffset,
		TemporalOffset: temporalOffset,
		AnchorOffset:   anchorOffset,
		Flags:          flags,
		SliceOffsets:   slices,
		PosTable:       posTable,
	}
	for len(seg.Entries) <= idx {
		seg.Entries = append(seg.Entries, IndexEntry{})
	}
	seg.Entries[idx] = entry
	if int64(len(seg.Entries)) > seg.Duration {
		seg.Duration = int64(len(seg.Entries))
	}
}

// Lookup resolves the location of (editUnit, subItem), per spec.md §4.7.
//
// CBR path: offset = ContainerStart + editUnit*EditUnitByteCount +
// BaseDelta[subItem].ElementDelta.
//
// VBR path: binary search for the covering segment; index by
// editUnit-segment.Start. When reorder is true, the entry's
// TemporalOffset is applied to find the presentation-order entry first
// (IndexPos.OtherPos reflects this; ThisPos stays the requested edit
// unit), then the delta for subItem
// locates the sub-item, and the anchor entry's location becomes
// KeyLocation.
func (t *IndexTable) Lookup(editUnit int64, subItem int, reorder bool) (IndexPos, error) {
	if len(t.BaseDelta) == 0 && !t.CBR {
		return IndexPos{}, ErrNoDeltaEntries
	}

	if t.CBR {
		delta := uint32(0)
		if subItem >= 0 && subItem < len(t.BaseDelta) {
			delta = t.BaseDelta[subItem].ElementDelta
		}
		loc := t.ContainerStart + editUnit*int64(t.EditUnitByteCount) + int64(delta)
		return IndexPos{ThisPos: editUnit, Location: loc, Exact: true}, nil
	}

	seg, ok := t.segmentFor(editUnit)
	if !ok {
		return IndexPos{}, ErrOutOfRange
	}
	idx := int(editUnit - seg.StartPosition)
	if idx < 0 || idx >= len(seg.Entries) {
		return IndexPos{}, ErrOutOfRange
	}
	entry := seg.Entries[idx]

	resultEntry := entry
	resultIdx := idx
	otherPos := false

	if reorder && entry.TemporalOffset != 0 {
		// idx is the presentation position within the segment; find the
		// coded entry C such that C + TemporalOffset[C] == idx (the
		// inverse of the display-order shift), per the reorder semantics
		// documented for IndexPos in mxflib's index.h: ThisPos stays the
		// requested edit unit, OtherPos/Location report that the entry
		// physically stored elsewhere was used. Bounded by the segment
		// itself rather than a single fixed hop, so multi-frame reorder
		// distances (e.g. a 2-B-frame-delay GOP) resolve correctly.
		for c := 0; c < len(seg.Entries); c++ {
			if c+int(seg.Entries[c].TemporalOffset) == idx {
				resultIdx = c
				resultEntry = seg.Entries[c]
				otherPos = c != idx
				break
			}
		}
	}

	delta := uint32(0)
	deltas := seg.DeltaEntries
	if deltas == nil {
		deltas = t.BaseDelta
	}
	if subItem >= 0 && subItem < len(deltas) {
		delta = deltas[subItem].ElementDelta
	}
	location := resultEntry.StreamOffset + int64(delta)

	keyIdx := resultIdx + int(resultEntry.AnchorOffset)
	var keyLocation int64
	if keyIdx >= 0 && keyIdx < len(seg.Entries) {
		keyLocation = seg.Entries[keyIdx].StreamOffset
	}

	return IndexPos{
		ThisPos:        editUnit,
		Location:       location,
		Exact:          !otherPos,
		OtherPos:       otherPos,
		KeyFrameOffset: resultEntry.AnchorOffset,
		KeyLocation:    keyLocation,
		Flags:          resultEntry.Flags,
	}, nil
}

// encodeIndexEntry renders one entry in its wire layout (spec.md §6):
// TemporalOffset, AnchorOffset, Flags, 8-byte StreamOffset, NSL*4-byte
// slice offsets, NPE*8-byte PosTable rationals.
func encodeIndexEntry(e IndexEntry, nsl, npe int) []byte {
	out := make([]byte, 11+4*nsl+8*npe)
	out[0] = byte(e.TemporalOffset)
	out[1] = byte(e.AnchorOffset)
	out[2] = e.Flags
	putU64BE(out[3:11], uint64(e.StreamOffset))
	off := 11
	for i := 0; i < nsl; i++ {
		v := uint32(0)
		if i < len(e.SliceOffsets) {
			v = e.SliceOffsets[i]
		}
		putU32BE(out[off:off+4], v)
		off += 4
	}
	for i := 0; i < npe; i++ {
		var r Rational
		if i < len(e.PosTable) {
			r = e.PosTable[i]
		}
		putU32BE(out[off:off+4], uint32(r.Numerator))
		putU32BE(out[off+4:off+8], uint32(r.Denominator))
		off += 8
	}
	return out
}

// decodeIndexEntry parses one entry from its wire layout.
func decodeIndexEntry(b []byte, nsl, npe int) (IndexEntry, error) {
	want := 11 + 4*nsl + 8*npe
	if len(b) < want {
		return IndexEntry{}, ErrIndexCountMismatch
	}
	e := IndexEntry{
		TemporalOffset: int8(b[0]),
		AnchorOffset:   int8(b[1]),
		Flags:          b[2],
		StreamOffset:   int64(getU64BE(b[3:11])),
	}
	off := 11
	for i := 0; i < nsl; i++ {
		e.SliceOffsets = append(e.SliceOffsets, getU32BE(b[off:off+4]))
		off += 4
	}
	for i := 0; i < npe; i++ {
		r := Rational{
			Numerator:   int32(getU32BE(b[off : off+4])),
			Denominator: int32(getU32BE(b[off+4 : off+8])),
		}
		e.PosTable = append(e.PosTable, r)
		off += 8
	}
	return e, nil
}

// encodeIndexSegmentBody renders seg's fixed fields and batch arrays in
// the order spec.md §3 "Index table wire format" gives: IndexEditRate,
// IndexStartPosition, IndexDuration, EditUnitByteCount, IndexSID, BodySID,
// then the length-prefixed DeltaEntryArray and IndexEntryArray batches.
func encodeIndexSegmentBody(seg *IndexSegment, nslN, npeN int) []byte {
	var tmp [8]byte
	out := make([]byte, 0, 64+len(seg.Entries)*(11+4*nslN+8*npeN))

	putU32BE(tmp[:4], uint32(seg.EditRate.Numerator))
	out = append(out, tmp[:4]...)
	putU32BE(tmp[:4], uint32(seg.EditRate.Denominator))
	out = append(out, tmp[:4]...)
	putU64BE(tmp[:8], uint64(seg.StartPosition))
	out = append(out, tmp[:8]...)
	putU64BE(tmp[:8], uint64(seg.Duration))
	out = append(out, tmp[:8]...)
	putU32BE(tmp[:4], seg.EditUnitByteCount)
	out = append(out, tmp[:4]...)
	putU32BE(tmp[:4], seg.IndexSID)
	out = append(out, tmp[:4]...)
	putU32BE(tmp[:4], seg.BodySID)
	out = append(out, tmp[:4]...)

	putU32BE(tmp[:4], uint32(len(seg.DeltaEntries)))
	out = append(out, tmp[:4]...)
	putU32BE(tmp[:4], 6) // PosTableIndex(1) + Slice(1) + ElementDelta(4)
	out = append(out, tmp[:4]...)
	for _, d := range seg.DeltaEntries {
		out = append(out, byte(d.PosTableIndex), d.Slice)
		putU32BE(tmp[:4], d.ElementDelta)
		out = append(out, tmp[:4]...)
	}

	entrySize := 11 + 4*nslN + 8*npeN
	putU32BE(tmp[:4], uint32(len(seg.Entries)))
	out = append(out, tmp[:4]...)
	putU32BE(tmp[:4], uint32(entrySize))
	out = append(out, tmp[:4]...)
	for _, e := range seg.Entries {
		out = append(out, encodeIndexEntry(e, nslN, npeN)...)
	}

	return out
}

// EncodeIndexSegmentKLV renders seg as a complete IndexTableSegment KLV,
// then appends filler so the following byte lands on a blockSize-byte
// boundary shifted by indexOffset from blockStart — spec.md §4.5 "Block
// alignment", applied to index KLVs independently of essence KLVs
// (Options.IndexOffset). blockSize <= 1 disables alignment.
func EncodeIndexSegmentKLV(seg *IndexSegment, blockStart, blockSize, indexOffset int64, forceBER4 bool, sink *log.Helper) []byte {
	nslN := nsl(seg.DeltaEntries)
	npeN := npe(seg.DeltaEntries)
	body := encodeIndexSegmentBody(seg, nslN, npeN)

	lenSize := 0
	if forceBER4 {
		lenSize = 4
	}
	k := NewKLVObject(indexSegmentUL, uint64(len(body)))
	k.SetValue(NewDataChunkFromBytes(body))
	kl := k.WriteKL(lenSize, uint64(len(body)), false, sink)

	out := append(append([]byte(nil), kl...), body...)

	if gap := blockFillerSize(blockStart, blockStart+int64(len(out)), blockSize, indexOffset); gap > 0 {
		out = append(out, fillerBytes(gap, forceBER4, sink)...)
	}
	return out
}

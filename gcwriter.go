// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"sort"

	"github.com/saferwall/mxf/log"
)

// gcElementUL is the fixed 12-byte Generic Container element key prefix;
// the remaining 4 bytes encode item type, element count, element type and
// element number, per SMPTE 379M (spec.md §4.9 "write-order keys").
var gcElementUL = ULFromHex("060e2b34010102010d01030100000000")

// mapEssenceType maps a raw SMPTE 379M item type byte (CP or GC,
// system/picture/sound/data/compound) onto its CP-numbered type and
// reports whether the raw type was already CP-compatible, grounded on
// essence.cpp's AddEssenceElement/SetWriteOrder switch.
func mapEssenceType(t byte) (mapped byte, cpCompatible bool) {
	switch t {
	case 0x04, 0x05, 0x06, 0x07:
		return t, true
	case 0x14:
		return 0x04, false
	case 0x15:
		return 0x05, false
	case 0x16:
		return 0x06, false
	case 0x17:
		return 0x07, false
	case 0x18:
		return 0x08, false
	default:
		return t, false
	}
}

// gcStream is one essence or system stream registered with a GCWriter:
// its source, its key fields, and the write-order key that decides when
// it is written relative to every other registered stream (spec.md §4.9
// "GCWriter owns a table of streams").
type gcStream struct {
	source EssenceSource

	trackNo   uint32
	itemType  byte // raw SMPTE 379M item type (e.g. 0x16 = GC sound)
	element   byte
	subNumber byte

	isSystem bool
	regDes   byte
	scheme   byte

	writeOrder uint32 // sort/grouping key; top byte selects the KAG-filler group

	index  *IndexManager
	table  *IndexTable
	offset int64 // next stream-relative byte offset to assign
}

// GCWriter assembles one or more essence streams into a single Generic
// Container body, interleaving edit units across streams in ascending
// write-order key order and feeding each stream's IndexManager as bytes
// are committed (spec.md §4.9 "Generic Container writer").
type GCWriter struct {
	BodySID uint32
	KAGSize uint32

	// BlockSize and EssenceOffset implement spec.md §4.5 "Block
	// alignment" for essence KLVs: every KLV written by WriteEditUnit
	// additionally lands on a BlockSize-byte boundary shifted by
	// EssenceOffset. BlockSize <= 1 disables this independently of
	// KAGSize.
	BlockSize     int64
	EssenceOffset int64

	streams map[uint32]*gcStream
	order   []uint32 // track numbers, kept sorted by write-order key

	nextWriteOrder uint32 // auto-increment cursor for SetWriteOrder(-1, ...)

	logger *log.Helper
}

// NewGCWriter returns an empty GCWriter for the given BodySID.
func NewGCWriter(bodySID uint32, kag uint32, logger *log.Helper) *GCWriter {
	if logger == nil {
		logger = log.NewHelper(log.Discard)
	}
	return &GCWriter{BodySID: bodySID, KAGSize: kag, streams: make(map[uint32]*gcStream), logger: logger}
}

// reorder re-sorts g.order by ascending write-order key, the order in
// which Flush/WriteEditUnit visits streams.
func (g *GCWriter) reorder() {
	sort.Slice(g.order, func(i, j int) bool {
		return g.streams[g.order[i]].writeOrder < g.streams[g.order[j]].writeOrder
	})
}

// essenceTypeCount returns one more than the number of essence streams
// already registered with the same raw itemType as t (so the first such
// stream gets 1), mirroring essence.cpp's AddEssenceElement Count loop
// used to assign each same-typed stream a distinct element number.
func (g *GCWriter) essenceTypeCount(t byte) int {
	n := 1
	for _, trackNo := range g.order {
		if g.streams[trackNo].itemType == t && !g.streams[trackNo].isSystem {
			n++
		}
	}
	return n
}

// AddEssenceElement registers an essence stream under trackNo, computing
// its default write-order key from essenceType and elementType exactly as
// essence.cpp's GCWriter::AddEssenceElement does: count the streams
// already registered with the same essenceType to assign the element
// count/number, then pack "default essence item write order"
// TTTTTTTs 10eeeeee e0000000 0nnnnnnn (spec.md §4.9).
func (g *GCWriter) AddEssenceElement(trackNo uint32, essenceType, elementType byte, source EssenceSource) {
	count := byte(g.essenceTypeCount(essenceType))
	s := &gcStream{
		source:    source,
		trackNo:   trackNo,
		itemType:  essenceType,
		element:   elementType,
		subNumber: count,
		scheme:    count,
		index:     NewIndexManager(source.Descriptor().EditRate, nil),
	}

	mapped, cpCompatible := mapEssenceType(essenceType)
	var wo uint32
	if cpCompatible {
		wo = 0x00800000
	} else {
		wo = 0x01800000
	}
	wo |= uint32(mapped)<<25 | uint32(elementType&0x7f)<<15 | uint32(count&0x7f)
	s.writeOrder = wo

	g.streams[trackNo] = s
	g.order = append(g.order, trackNo)
	g.reorder()
}

// AddSystemElement registers a non-essence system stream (e.g. timecode),
// computing its default write-order key as essence.cpp's
// GCWriter::AddSystemElement does: "default" system item write order
// 0000100s 10SSSSSS Seeeeeee 0nnnnnnn (spec.md §4.9).
func (g *GCWriter) AddSystemElement(trackNo uint32, cpCompatible bool, regDes, schemeID, elementID, subID byte, source EssenceSource) {
	itemType := byte(0x04)
	if !cpCompatible {
		itemType = 0x14
	}
	s := &gcStream{
		source:    source,
		trackNo:   trackNo,
		itemType:  itemType,
		element:   elementID,
		subNumber: subID,
		isSystem:  true,
		regDes:    regDes,
		scheme:    schemeID,
		index:     NewIndexManager(source.Descriptor().EditRate, nil),
	}

	var wo uint32
	if cpCompatible {
		wo = 0x08800000
	} else {
		wo = 0x09800000
	}
	wo |= uint32(schemeID)<<15 | uint32(elementID)<<8 | uint32(subID)
	s.writeOrder = wo

	g.streams[trackNo] = s
	g.order = append(g.order, trackNo)
	g.reorder()
}

// AddStream is a convenience wrapper over AddEssenceElement for callers
// that don't need fine-grained element/sub-ID control; itemType is the
// raw SMPTE 379M essence type byte (e.g. 0x16 for GC sound).
func (g *GCWriter) AddStream(trackNo uint32, itemType byte, source EssenceSource) {
	g.AddEssenceElement(trackNo, itemType, 1, source)
}

// SetWriteOrder overrides the write-order key assigned to trackNo,
// grounded on essence.cpp's GCWriter::SetWriteOrder: writeOrder == -1
// auto-increments an internal cursor (capped at 0xffff); typ == -1 keeps
// the stream's existing item type. The packed key is
// TTTTTTTs XXWWWWWW WWWWWWWW WW000000, with bit 0x01000000 set for
// non-CP-compatible types and 0x00c00000 set to push the stream after
// every stream using the default write order (writeOrder >= 0x8000).
func (g *GCWriter) SetWriteOrder(trackNo uint32, writeOrder int32, typ int32) {
	s, ok := g.streams[trackNo]
	if !ok {
		return
	}

	if writeOrder == -1 {
		if g.nextWriteOrder < 0xffff {
			writeOrder = int32(g.nextWriteOrder)
			g.nextWriteOrder++
		} else {
			writeOrder = 0xffff
		}
	}

	if typ == -1 {
		typ = int32(s.itemType)
	}
	mapped, cpCompatible := mapEssenceType(byte(typ))

	wo := uint32(mapped)<<25 | (uint32(writeOrder)&0x0000ffff)<<6
	if !cpCompatible {
		wo |= 0x01000000
	}
	if writeOrder&0x8000 != 0 {
		wo |= 0x00c00000
	}
	s.writeOrder = wo
	g.reorder()
}

// gcElementKey builds the 16-byte Generic Container element key for one
// item: item type in byte 12, scheme/count in byte 13, element in byte
// 14, sub/number in byte 15, matching AddEssenceData/AddSystemData's key
// layout in essence.cpp.
func gcElementKey(itemType, scheme, element, subNumber byte) UL {
	ul := gcElementUL
	ul[12] = itemType
	ul[13] = scheme
	ul[14] = element
	ul[15] = subNumber
	return ul
}

// WriteEditUnit pulls the next edit unit from every registered stream, in
// ascending write-order key order, inserting a KAG-aligned filler
// whenever the top byte of the write-order key changes (the item-type
// grouping boundary GCWriter::Flush enforces — spec.md §4.9, §8 "for
// keys k1<k2, e1 appears earlier"). streamBase is the essence-relative
// byte offset this edit unit starts at, used for index bookkeeping;
// partitionOffset is the byte offset since the start of the current
// partition's essence data, used purely for KAG-boundary math (its
// origin is independent of streamBase, which runs across partitions).
// It returns the concatenated bytes to append to the essence container.
func (g *GCWriter) WriteEditUnit(editUnit int64, streamBase, partitionOffset int64, forceBER4 bool, sink *log.Helper) ([]byte, error) {
	var out []byte
	pos := streamBase
	rel := partitionOffset
	lastType := byte(0xff)

	for _, trackNo := range g.order {
		s := g.streams[trackNo]
		unit, err := s.source.NextUnit()
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}

		thisType := byte(s.writeOrder >> 24)
		if thisType != lastType && g.KAGSize > 1 {
			if gap := kagFillerSize(0, rel, g.KAGSize); gap > 0 {
				filler := fillerBytes(gap, forceBER4, sink)
				out = append(out, filler...)
				pos += int64(gap)
				rel += int64(gap)
			}
		}
		lastType = thisType

		if gap := blockFillerSize(0, pos, g.BlockSize, g.EssenceOffset); gap > 0 {
			filler := fillerBytes(gap, forceBER4, sink)
			out = append(out, filler...)
			pos += int64(gap)
			rel += int64(gap)
		}

		s.index.OfferEditUnit(editUnit)
		s.index.OfferOffset(editUnit, pos)
		s.index.OfferKeyOffset(editUnit, 0, 0)

		key := gcElementKey(s.itemType, s.scheme, s.element, s.subNumber)
		k := NewKLVObject(key, uint64(len(unit)))
		k.SetValue(NewDataChunkFromBytes(unit))
		kl := k.WriteKL(0, uint64(len(unit)), false, sink)

		out = append(out, kl...)
		out = append(out, unit...)
		n := int64(len(kl) + len(unit))
		pos += n
		rel += n
	}

	return out, nil
}

// FlushIndex folds every registered stream's accumulated offers into a
// fresh IndexTable and returns them keyed by track number.
func (g *GCWriter) FlushIndex() map[uint32]*IndexTable {
	out := make(map[uint32]*IndexTable, len(g.streams))
	for trackNo, s := range g.streams {
		if s.table == nil {
			s.table = NewIndexTable(s.source.Descriptor().EditRate, nil)
		}
		s.index.AddEntriesToIndex(s.table)
		out[trackNo] = s.table
	}
	return out
}

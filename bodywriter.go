// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"github.com/saferwall/mxf/log"
)

// BodyStream is one Generic Container body stream owned by a BodyWriter:
// its BodySID, its GCWriter, and the running byte position within the
// essence container (spec.md §4.9 "Body writer composes GCWriter with
// partition/KAG bookkeeping"). IsEditPoint, if set, reports whether
// editUnit can start a new partition when the BodyWriter's EditAlign
// policy is in effect; nil means every edit unit is an edit point.
type BodyStream struct {
	BodySID     uint32
	Writer      *GCWriter
	IsEditPoint func(editUnit int64) bool
	pos         int64
}

// BodyPartitionPolicy selects how WriteBody decides to close the current
// body partition and start a new one, per spec.md §4.9 "write_body
// decides per edit unit whether to start a new partition".
type BodyPartitionPolicy int

const (
	// BodyNone never breaks automatically; WriteBody writes every
	// remaining edit unit into a single partition.
	BodyNone BodyPartitionPolicy = iota
	// BodyDuration closes a partition once PartitionDuration edit units
	// have been written to it.
	BodyDuration
	// BodySize closes a partition once PartitionSize bytes of essence
	// have been written to it.
	BodySize
)

// BodyWriter drives the three-phase structure of an MXF file — header
// partition, one or more body partitions, footer partition — composing a
// GCWriter per essence stream with KAG-aligned partition boundaries
// (spec.md §4.9, §6).
type BodyWriter struct {
	File      *MXFFile
	KAGSize   uint32
	ForceBER4 bool

	// BlockSize and EssenceOffset are copied onto every GCWriter
	// registered via AddStream, implementing spec.md §4.5 "Block
	// alignment" for essence KLVs independently of KAG alignment.
	BlockSize     int64
	EssenceOffset int64

	// Policy, PartitionDuration and PartitionSize configure WriteBody's
	// automatic partition-break decision (spec.md §4.9).
	Policy            BodyPartitionPolicy
	PartitionDuration int64 // edit units; used by BodyDuration
	PartitionSize     int64 // bytes; used by BodySize

	// EditAlign, when set, defers a partition break decided by Policy
	// until the next edit unit is an edit point (spec.md §4.9
	// "edit_align").
	EditAlign bool

	// HeaderPadding is the minimum byte gap WriteBody enforces between
	// the end of the header partition and the start of the first body
	// partition, reserved so a later header rewrite (new durations, the
	// footer partition pointer) cannot spill into body data (spec.md
	// §4.9 "header-padding-reserve check").
	HeaderPadding int64

	streams map[uint32]*BodyStream
	order   []uint32

	headerEnd int64

	rip    *RIP
	logger *log.Helper
}

// NewBodyWriter returns a BodyWriter over file.
func NewBodyWriter(file *MXFFile, kag uint32, logger *log.Helper) *BodyWriter {
	if logger == nil {
		logger = log.NewHelper(log.Discard)
	}
	return &BodyWriter{File: file, KAGSize: kag, streams: make(map[uint32]*BodyStream), rip: NewRIP(), logger: logger}
}

// AddStream registers a GCWriter for bodySID, propagating the
// BodyWriter's block-alignment configuration onto it.
func (b *BodyWriter) AddStream(bodySID uint32, w *GCWriter) {
	w.BlockSize = b.BlockSize
	w.EssenceOffset = b.EssenceOffset
	b.streams[bodySID] = &BodyStream{BodySID: bodySID, Writer: w}
	b.order = append(b.order, bodySID)
}

// WriteHeader writes the header partition pack (open, incomplete by
// default) at offset 0 followed directly by metadata, with no KAG filler,
// registering the partition with the RIP, then returns the number of
// bytes written, which is also the offset at which the header partition
// ends.
func (b *BodyWriter) WriteHeader(pack *PartitionPack, metadata []byte) (int64, error) {
	pack.Kind = PartitionHeader
	if pack.Status == 0 {
		pack.Status = StatusOpenIncomplete
	}
	pack.ThisPartition = 0
	pack.PreviousPartition = 0

	offset := int64(0)
	packBytes := encodePartitionPackBody(pack, b.logger)
	key := partitionPackKeyFor(pack.Kind, pack.Status)
	k := NewKLVObject(key, uint64(len(packBytes)))
	k.SetValue(NewDataChunkFromBytes(packBytes))
	kl := k.WriteKL(4, uint64(len(packBytes)), true, b.logger)

	out := append(append([]byte(nil), kl...), packBytes...)
	out = append(out, metadata...)

	b.rip.AddPartition(&PartitionInfo{
		Pack:       pack,
		ByteOffset: offset,
		BodySID:    pack.BodySID,
		IndexSID:   pack.IndexSID,
		KnownSIDs:  true,
	})

	b.headerEnd = offset + int64(len(out))
	return int64(len(out)), b.writeAt(offset, out)
}

// writeAt appends bytes to the backing memory file at the given offset,
// growing it if necessary (disk-backed files are written by callers that
// manage their own os.File; BodyWriter targets the memory-file path used
// while assembling a clip, per spec.md §4.10 "memory-file mode").
func (b *BodyWriter) writeAt(offset int64, data []byte) error {
	if b.File.mem == nil {
		return ErrSeekOutOfFile
	}
	need := offset + int64(len(data))
	if need > int64(b.File.mem.Len()) {
		b.File.mem.Resize(int(need), true)
	}
	b.File.mem.Set(data, int(offset))
	return nil
}

// WriteBodyPartition writes one body partition pack followed by KAG
// filler and then count edit units of essence from every registered
// stream, starting at global edit unit startEditUnit, returning the
// number of bytes written. Callers that want spec.md §4.9's automatic
// partition-break policy instead of a fixed count should use WriteBody.
func (b *BodyWriter) WriteBodyPartition(offset int64, pack *PartitionPack, startEditUnit int64, count int) (int64, error) {
	n, _, err := b.writePartition(offset, pack, startEditUnit, startEditUnit+int64(count), nil)
	return n, err
}

// WriteBody writes every edit unit in [0, total) across every registered
// stream, deciding per edit unit whether to close the current partition
// and start a new one, per spec.md §4.9 "write_body": a BodyDuration or
// BodySize threshold triggers the break, but when EditAlign is set the
// break is deferred until the next edit unit is an edit point (so a
// partition boundary never falls mid-GOP for a reordered stream). The
// first partition may not start inside the header's reserved padding
// area. nextPack supplies a fresh *PartitionPack for each partition
// written (IndexSID/BodySID/etc. are the caller's responsibility).
func (b *BodyWriter) WriteBody(offset, total int64, nextPack func() *PartitionPack) (int64, error) {
	if offset < b.headerEnd+b.HeaderPadding {
		return 0, ErrHeaderPaddingReserve
	}

	pos := offset
	unit := int64(0)
	for unit < total {
		pack := nextPack()
		n, wrote, err := b.writePartition(pos, pack, unit, total, b.breakAfter)
		if err != nil {
			return 0, err
		}
		if wrote == 0 {
			wrote = total - unit // no registered stream for this BodySID: consume the remainder in one go
		}
		pos += n
		unit += wrote
	}
	return pos, nil
}

// breakAfter reports whether WriteBody should close the current
// partition after writing editUnitsWritten edit units totalling
// bytesWritten bytes, per b.Policy. The caller (writePartition) consults
// this first; when EditAlign is set it then defers a break until the next
// edit unit is an edit point.
func (b *BodyWriter) breakAfter(editUnitsWritten, bytesWritten int64) bool {
	switch b.Policy {
	case BodyDuration:
		return b.PartitionDuration > 0 && editUnitsWritten >= b.PartitionDuration
	case BodySize:
		return b.PartitionSize > 0 && bytesWritten >= b.PartitionSize
	default:
		return false
	}
}

// writePartition writes one body partition pack, its KAG filler, and
// edit units starting at startEditUnit until either total is reached or
// shouldBreak (if non-nil) says to stop, per spec.md §4.9. It returns the
// bytes written and the number of edit units consumed.
func (b *BodyWriter) writePartition(offset int64, pack *PartitionPack, startEditUnit, total int64, shouldBreak func(editUnitsWritten, bytesWritten int64) bool) (int64, int64, error) {
	pack.Kind = PartitionBody
	if pack.Status == 0 {
		pack.Status = StatusOpenIncomplete
	}
	pack.ThisPartition = uint64(offset)

	packBytes := encodePartitionPackBody(pack, b.logger)
	key := partitionPackKeyFor(pack.Kind, pack.Status)
	k := NewKLVObject(key, uint64(len(packBytes)))
	k.SetValue(NewDataChunkFromBytes(packBytes))
	kl := k.WriteKL(4, uint64(len(packBytes)), true, b.logger)

	out := append(append([]byte(nil), kl...), packBytes...)

	b.rip.AddPartition(&PartitionInfo{
		Pack:              pack,
		ByteOffset:        offset,
		BodySID:           pack.BodySID,
		IndexSID:          pack.IndexSID,
		KnownSIDs:         true,
		StreamOffset:      0,
		StreamOffsetKnown: true,
		EssenceStart:      offset + int64(len(out)),
	})

	if gap := kagFillerSize(offset, offset+int64(len(out)), b.KAGSize); gap > 0 {
		out = append(out, fillerBytes(gap, b.ForceBER4, b.logger)...)
	}

	s, ok := b.streams[pack.BodySID]
	if !ok {
		if err := b.writeAt(offset, out); err != nil {
			return 0, 0, err
		}
		return int64(len(out)), 0, nil
	}

	var partitionRel, partitionBytes, wrote int64
	for startEditUnit+wrote < total {
		unit := startEditUnit + wrote
		unitBytes, err := s.Writer.WriteEditUnit(unit, s.pos, partitionRel, b.ForceBER4, b.logger)
		if err != nil {
			return 0, 0, err
		}
		out = append(out, unitBytes...)
		partitionRel += int64(len(unitBytes))
		partitionBytes += int64(len(unitBytes))
		s.pos += int64(len(unitBytes))
		wrote++

		next := startEditUnit + wrote
		if shouldBreak != nil && next < total && shouldBreak(wrote, partitionBytes) {
			atEditPoint := s.IsEditPoint == nil || s.IsEditPoint(next)
			if !b.EditAlign || atEditPoint {
				break
			}
		}
	}

	if err := b.writeAt(offset, out); err != nil {
		return 0, 0, err
	}
	return int64(len(out)), wrote, nil
}

// WriteFooter writes the closed, complete footer partition pack, the
// trailing RIP, and returns the finished file's total size. This is the
// last step of a write, mirroring re_write_partition's role of fixing up
// header/footer linkage once every body partition's final size is known
// (spec.md §4.9 "re_write_partition").
func (b *BodyWriter) WriteFooter(offset int64, pack *PartitionPack) (int64, error) {
	pack.Kind = PartitionFooter
	pack.Status = StatusClosedComplete
	pack.ThisPartition = uint64(offset)
	pack.FooterPartition = uint64(offset)

	packBytes := encodePartitionPackBody(pack, b.logger)
	key := partitionPackKeyFor(pack.Kind, pack.Status)
	k := NewKLVObject(key, uint64(len(packBytes)))
	k.SetValue(NewDataChunkFromBytes(packBytes))
	kl := k.WriteKL(4, uint64(len(packBytes)), true, b.logger)

	out := append(append([]byte(nil), kl...), packBytes...)

	b.rip.AddPartition(&PartitionInfo{Pack: pack, ByteOffset: offset, BodySID: 0, IndexSID: 0, KnownSIDs: true})

	ripBytes := b.rip.EncodeRIP(b.logger)
	out = append(out, ripBytes...)

	if err := b.writeAt(offset, out); err != nil {
		return 0, err
	}
	b.File.SetRIP(b.rip)
	return offset + int64(len(out)), nil
}

// RewritePartition overwrites the already-written partition pack at
// offset with pack's current field values (fixing up e.g.
// PreviousPartition/FooterPartition/HeaderByteCount once later partitions
// are known), without moving any following bytes. The new pack body must
// be the same size as the old one.
func (b *BodyWriter) RewritePartition(offset int64, pack *PartitionPack) error {
	packBytes := encodePartitionPackBody(pack, b.logger)
	key := partitionPackKeyFor(pack.Kind, pack.Status)
	k := NewKLVObject(key, uint64(len(packBytes)))
	k.SetValue(NewDataChunkFromBytes(packBytes))
	kl := k.WriteKL(4, uint64(len(packBytes)), true, b.logger)
	return b.writeAt(offset, append(kl, packBytes...))
}

// encodePartitionPackBody renders a PartitionPack's fixed local-set body,
// the inverse of decodePartitionPackBody in mxffile.go.
func encodePartitionPackBody(p *PartitionPack, sink *log.Helper) []byte {
	out := make([]byte, 0, 96)
	var tmp [8]byte

	putU16BE(tmp[:2], p.MajorVersion)
	out = append(out, tmp[:2]...)
	putU16BE(tmp[:2], p.MinorVersion)
	out = append(out, tmp[:2]...)
	putU32BE(tmp[:4], p.KAGSize)
	out = append(out, tmp[:4]...)
	putU64BE(tmp[:8], p.ThisPartition)
	out = append(out, tmp[:8]...)
	putU64BE(tmp[:8], p.PreviousPartition)
	out = append(out, tmp[:8]...)
	putU64BE(tmp[:8], p.FooterPartition)
	out = append(out, tmp[:8]...)
	putU64BE(tmp[:8], p.HeaderByteCount)
	out = append(out, tmp[:8]...)
	putU64BE(tmp[:8], p.IndexByteCount)
	out = append(out, tmp[:8]...)
	putU32BE(tmp[:4], p.IndexSID)
	out = append(out, tmp[:4]...)
	putU64BE(tmp[:8], p.BodyOffset)
	out = append(out, tmp[:8]...)
	putU32BE(tmp[:4], p.BodySID)
	out = append(out, tmp[:4]...)
	out = append(out, p.OperationalPattern[:]...)

	putU32BE(tmp[:4], uint32(len(p.EssenceContainers)))
	out = append(out, tmp[:4]...)
	putU32BE(tmp[:4], uint32(ULLength))
	out = append(out, tmp[:4]...)
	for _, ul := range p.EssenceContainers {
		out = append(out, ul[:]...)
	}

	return out
}

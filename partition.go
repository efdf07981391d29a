// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"fmt"

	"github.com/saferwall/mxf/log"
)

// PartitionKind is which of Header/Body/Footer a partition pack opens.
type PartitionKind int

// Partition kinds (spec.md §6 "byte 13 distinguishes open/closed ×
// header/body/footer").
const (
	PartitionHeader PartitionKind = iota
	PartitionBody
	PartitionFooter
)

// PartitionStatus is the open/closed × complete/incomplete classification
// carried in a partition pack key.
type PartitionStatus int

const (
	StatusClosedIncomplete PartitionStatus = iota
	StatusClosedComplete
	StatusOpenIncomplete
	StatusOpenComplete
)

// klvFillerUL is the well-known KLVFill key.
var klvFillerUL = ULFromHex("060e2b34010101010303010200000000")

// partitionPackBaseUL is the fixed prefix shared by every partition pack
// key; byte 13 (0-indexed) carries PartitionKind and byte 14 carries
// PartitionStatus (spec.md §6).
var partitionPackBaseUL = ULFromHex("060e2b34020501010d01020101020000")

func partitionPackKeyFor(kind PartitionKind, status PartitionStatus) UL {
	ul := partitionPackBaseUL
	switch kind {
	case PartitionHeader:
		ul[13] = 0x02
	case PartitionBody:
		ul[13] = 0x03
	case PartitionFooter:
		ul[13] = 0x04
	}
	switch status {
	case StatusClosedIncomplete:
		ul[14] = 0x01
	case StatusClosedComplete:
		ul[14] = 0x02
	case StatusOpenIncomplete:
		ul[14] = 0x03
	case StatusOpenComplete:
		ul[14] = 0x04
	}
	return ul
}

// classifyPartitionKey returns the kind/status for key if key
// versionless-matches a known partition pack key.
func classifyPartitionKey(key UL) (PartitionKind, PartitionStatus, bool) {
	kinds := []PartitionKind{PartitionHeader, PartitionBody, PartitionFooter}
	statuses := []PartitionStatus{StatusClosedIncomplete, StatusClosedComplete, StatusOpenIncomplete, StatusOpenComplete}
	for _, k := range kinds {
		for _, s := range statuses {
			if key.VersionlessEqual(partitionPackKeyFor(k, s)) {
				return k, s, true
			}
		}
	}
	return 0, 0, false
}

// IsPartitionPackKey reports whether key is (versionlessly) a known
// partition pack key.
func IsPartitionPackKey(key UL) bool {
	_, _, ok := classifyPartitionKey(key)
	return ok
}

// PartitionPack is the local-set KLV that opens every partition (spec.md
// §3 "Partition").
type PartitionPack struct {
	Kind   PartitionKind
	Status PartitionStatus

	MajorVersion uint16
	MinorVersion uint16
	KAGSize      uint32

	ThisPartition     uint64
	PreviousPartition uint64
	FooterPartition   uint64

	HeaderByteCount uint64
	IndexByteCount  uint64
	IndexSID        uint32

	BodyOffset uint64
	BodySID    uint32

	OperationalPattern UL
	EssenceContainers  []UL
}

// PartitionInfo is the RIP's per-entry record (spec.md §3 "RIP"); declared
// here since Partition and PartitionInfo share the BodySID/IndexSID/offset
// fields that partition reading fills in.
type PartitionInfo struct {
	Pack            *PartitionPack
	ByteOffset      int64
	BodySID         uint32
	IndexSID        uint32
	KnownSIDs       bool
	StreamOffset    int64
	StreamOffsetKnown bool
	EssenceStart    int64
}

// Partition owns a parsed partition pack, its primer, reference-resolution
// bookkeeping, and the metadata objects it has read or will write (spec.md
// §3 "Partition").
type Partition struct {
	Pack   *PartitionPack
	Primer *Primer

	refTargets    map[UUID]*MDObject
	unmatchedRefs map[UUID][]*MDObject // UUID -> holders still waiting to resolve

	AllMetadata      []*MDObject
	TopLevelMetadata []*MDObject

	Anomalies []string

	Registry *TypeRegistry
	logger   *log.Helper
}

// NewPartition returns an empty Partition ready for reading or building.
func NewPartition(pack *PartitionPack, registry *TypeRegistry) *Partition {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Partition{
		Pack:          pack,
		Primer:        NewPrimer(),
		refTargets:    make(map[UUID]*MDObject),
		unmatchedRefs: make(map[UUID][]*MDObject),
		Registry:      registry,
	}
}

// AddMetadata registers obj (and, transitively, every strong-reffed
// descendant) as a first-class partition object and performs reference
// resolution, per spec.md §4.3:
//
//   - every RefTarget child's UUID is entered into ref_targets; any
//     pending unmatched_refs for that UUID are resolved by setting the
//     holder's Link, and if the holder is a strong ref the newly added
//     object is removed from TopLevelMetadata.
//   - every Strong/Weak/Global child is looked up in ref_targets; on hit
//     the link is set (strong hits remove the target from
//     TopLevelMetadata); on miss the holder is recorded in
//     unmatched_refs.
//   - strong-reffed children encountered while walking are recursively
//     added via AddMetadata, becoming first-class partition objects too.
func (p *Partition) AddMetadata(obj *MDObject) {
	p.AllMetadata = append(p.AllMetadata, obj)
	p.TopLevelMetadata = append(p.TopLevelMetadata, obj)
	p.walkAndResolve(obj)
}

// registerIfTarget enters obj's UUID into ref_targets when it is a RefTarget
// property, resolving any holders already waiting on that UUID in
// unmatched_refs.
func (p *Partition) registerIfTarget(obj *MDObject) {
	if obj.RefType != RefTarget || !obj.hasLink {
		return
	}
	id := obj.LinkUUID
	p.refTargets[id] = obj
	if holders, ok := p.unmatchedRefs[id]; ok {
		for _, holder := range holders {
			holder.Link = obj
			if holder.RefType == RefStrong {
				p.removeTopLevel(obj)
			}
		}
		delete(p.unmatchedRefs, id)
	}
}

// walkAndResolve recursively visits obj, registering RefTarget properties
// and resolving/recording Strong/Weak/Global references. Strong-reffed
// children become first-class partition objects in their own right,
// recursed into the same way.
func (p *Partition) walkAndResolve(obj *MDObject) {
	p.registerIfTarget(obj)

	for _, child := range obj.Children() {
		switch child.RefType {
		case RefStrong, RefWeak, RefGlobal:
			if child.hasLink {
				if target, ok := p.refTargets[child.LinkUUID]; ok {
					child.Link = target
					if child.RefType == RefStrong {
						p.removeTopLevel(target)
					}
				} else {
					p.unmatchedRefs[child.LinkUUID] = append(p.unmatchedRefs[child.LinkUUID], child)
				}
			}
			if child.RefType == RefStrong {
				p.AllMetadata = append(p.AllMetadata, child)
				p.TopLevelMetadata = append(p.TopLevelMetadata, child)
			}
		}
		p.walkAndResolve(child)
	}
}

func (p *Partition) removeTopLevel(obj *MDObject) {
	for i, o := range p.TopLevelMetadata {
		if o == obj {
			p.TopLevelMetadata = append(p.TopLevelMetadata[:i], p.TopLevelMetadata[i+1:]...)
			return
		}
	}
}

// CheckResolved reports ErrUnresolvedStrongRef if any unmatched strong
// reference remains at end-of-partition (spec.md §8 testable property).
func (p *Partition) CheckResolved() error {
	for id, holders := range p.unmatchedRefs {
		for _, h := range holders {
			if h.RefType == RefStrong {
				return fmt.Errorf("%w: %s", ErrUnresolvedStrongRef, id)
			}
		}
	}
	return nil
}

// minFillerSize is the smallest KLVFill KLV possible: a 16-byte key plus a
// 1-byte short-form BER length of zero (spec.md §6 "minimum filler size is
// 17 bytes").
const minFillerSize = 17

// fillerBytes returns a KLVFill KLV whose total size is exactly size
// bytes (size must be >= minFillerSize). forceBER4 prefers a 4-byte
// long-form BER length for the filler (spec.md §4.1 "a 4-byte BER is
// preferred when a forced 4-byte flag is set").
func fillerBytes(size int, forceBER4 bool, sink *log.Helper) []byte {
	if size < minFillerSize {
		panic("mxf: filler size below minimum")
	}
	// A 4-byte long-form length is used when forced or when the value
	// does not fit the 1-byte short form; a filler too small to hold a
	// 5-byte length field always uses the short form.
	lenSize := 0
	if forceBER4 || size-ULLength-1 >= 128 {
		lenSize = 4
	}
	berLen := 1
	if lenSize == 4 && size >= ULLength+5 {
		berLen = 5
	} else {
		lenSize = 0
	}
	valueLen := uint64(size - ULLength - berLen)
	ber := EncodeBERLength(valueLen, lenSize, sink)
	out := make([]byte, 0, size)
	out = append(out, klvFillerUL[:]...)
	out = append(out, ber...)
	out = append(out, make([]byte, valueLen)...)
	return out
}

// kagFillerSize computes the length of the filler KLV needed so that the
// byte following it lands on a KAG-size boundary relative to
// partitionPackStart, given the current absolute offset currentOffset
// (spec.md §6 "KAG alignment"). It returns 0 if no filler is needed. If
// the natural gap is smaller than minFillerSize (but nonzero), a whole KAG
// is added (spec.md §6 "when the required gap is less than 17 bytes, add
// an additional whole KAG to the gap").
func kagFillerSize(partitionPackStart, currentOffset int64, kag uint32) int {
	if kag <= 1 {
		return 0
	}
	rel := currentOffset - partitionPackStart
	gap := int64(kag) - (rel % int64(kag))
	if gap == int64(kag) {
		return 0
	}
	if gap < minFillerSize {
		gap += int64(kag)
	}
	return int(gap)
}

// blockFillerSize generalizes kagFillerSize to block alignment with an
// independent +/- offset, per spec.md §4.5 "Block alignment": "both
// essence KLVs and index KLVs are rounded up to block boundaries with
// filler, with independent +/- offsets for essence and index (e.g. to
// interleave two streams on different sector alignments)". blockSize <= 1
// disables alignment. offset shifts the boundary grid itself, not the
// current position, so a negative offset moves the next boundary earlier.
func blockFillerSize(blockStart, currentOffset, blockSize, offset int64) int {
	if blockSize <= 1 {
		return 0
	}
	rel := currentOffset - blockStart - offset
	gap := blockSize - (rel % blockSize + blockSize)%blockSize
	if gap == blockSize {
		return 0
	}
	if gap < minFillerSize {
		gap += blockSize
	}
	return int(gap)
}

// CheckKAGAlignment reports whether essenceStart already lands on a
// kag-byte boundary relative to partitionStart, and the filler gap a
// writer would need to insert if not (spec.md §6 "KAG alignment").
// Exposed for read-side diagnostics such as mxfdump's KAG-hint flag.
func CheckKAGAlignment(partitionStart, essenceStart int64, kag uint32) (gap int, aligned bool) {
	gap = kagFillerSize(partitionStart, essenceStart, kag)
	return gap, gap == 0
}

// ReadPartitionPackKey classifies a partition pack key, returning its kind
// and status, or ErrNotAPartitionPack if key is not a partition pack key.
// The pack body itself is parsed by decodePartitionPackBody.
func ReadPartitionPackKey(key UL) (PartitionKind, PartitionStatus, error) {
	kind, status, ok := classifyPartitionKey(key)
	if !ok {
		return 0, 0, ErrNotAPartitionPack
	}
	return kind, status, nil
}

// seekEssenceOffset computes the first essence byte of a partition, per
// spec.md §4.5 "Seek-essence": end-of-pack + HeaderByteCount +
// IndexByteCount.
func seekEssenceOffset(packEnd int64, pack *PartitionPack) int64 {
	return packEnd + int64(pack.HeaderByteCount) + int64(pack.IndexByteCount)
}

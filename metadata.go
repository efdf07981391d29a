// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

// Metadata facade builders construct the common Preface/Package/Track/
// SourceClip/Timecode object graph using MDObject directly, the way a
// caller assembling a minimal MXF clip would, without requiring them to
// know every dictionary UL by heart (spec.md §4.2 "metadata object
// graph", supplementing the distilled spec's KLV-only scope with the
// higher-level object construction every MXF writer needs).

// prefaceUL identifies the root Preface set.
var prefaceUL = ULFromHex("060e2b34025301010d01010101012f00")

// materialPackageUL and sourcePackageUL distinguish the two Package
// subclasses used by the minimal single-essence-track clip shape.
var materialPackageUL = ULFromHex("060e2b34025301010d01010101013600")
var sourcePackageUL = ULFromHex("060e2b34025301010d01010101013700")

var trackUL = ULFromHex("060e2b34025301010d01010101013b00")
var sequenceUL = ULFromHex("060e2b34025301010d01010101010f00")
var sourceClipUL = ULFromHex("060e2b34025301010d01010101011100")
var timecodeComponentUL = ULFromHex("060e2b34025301010d01010101011400")

// NewPreface returns a bare Preface object with a fresh InstanceUID,
// ready to have packages added as strong-referenced children.
func NewPreface(registry *TypeRegistry) *MDObject {
	obj := NewMDObjectByUL(prefaceUL, "Preface", registry)
	obj.SetReference(RefTarget, NewUUID())
	return obj
}

// NewPackage returns a Material or Source Package object, with a fresh
// package UID and an empty Tracks slot ready for children.
func NewPackage(source bool, registry *TypeRegistry) *MDObject {
	ul := materialPackageUL
	name := "MaterialPackage"
	if source {
		ul = sourcePackageUL
		name = "SourcePackage"
	}
	obj := NewMDObjectByUL(ul, name, registry)
	obj.SetReference(RefTarget, NewUUID())
	obj.AddChildByName("PackageUID", "UUID").SetString(NewUUID().String())
	obj.AddChildByName("Tracks", "")
	return obj
}

// NewTrack returns a Track object wrapping a Sequence built from clips,
// with the given track ID/number and edit rate.
func NewTrack(trackID, trackNumber uint32, editRate Rational, clips []*MDObject, registry *TypeRegistry) *MDObject {
	track := NewMDObjectByUL(trackUL, "Track", registry)
	track.SetReference(RefTarget, NewUUID())
	track.AddChildByName("TrackID", "UInt32").SetUint64(uint64(trackID))
	track.AddChildByName("TrackNumber", "UInt32").SetUint64(uint64(trackNumber))
	track.AddChildByName("EditRate", "Rational").SetString(editRate.String())

	seq := NewMDObjectByUL(sequenceUL, "Sequence", registry)
	seq.SetReference(RefTarget, NewUUID())
	for _, clip := range clips {
		structural := seq.AddChildByName("StructuralComponents", "")
		structural.SetReference(RefStrong, UUID{})
		structural.Link = clip
	}

	seqSlot := track.AddChildByName("Sequence", "")
	seqSlot.SetReference(RefStrong, UUID{})
	seqSlot.Link = seq

	return track
}

// NewSourceClip returns a SourceClip component referencing sourcePackage
// at the given start position and duration.
func NewSourceClip(sourcePackageUID UUID, sourceTrackID uint32, startPosition, duration int64, registry *TypeRegistry) *MDObject {
	clip := NewMDObjectByUL(sourceClipUL, "SourceClip", registry)
	clip.SetReference(RefTarget, NewUUID())
	clip.AddChildByName("StartPosition", "UInt64").SetUint64(uint64(startPosition))
	clip.AddChildByName("Duration", "UInt64").SetUint64(uint64(duration))
	clip.AddChildByName("SourcePackageID", "UUID").SetString(sourcePackageUID.String())
	clip.AddChildByName("SourceTrackID", "UInt32").SetUint64(uint64(sourceTrackID))
	return clip
}

// NewTimecodeComponent returns a TimecodeComponent with the given start
// timecode and rounded edit rate (as frames/sec).
func NewTimecodeComponent(startTimecode uint32, roundedEditRate uint32, dropFrame bool, registry *TypeRegistry) *MDObject {
	tc := NewMDObjectByUL(timecodeComponentUL, "TimecodeComponent", registry)
	tc.SetReference(RefTarget, NewUUID())
	tc.AddChildByName("StartTimecode", "UInt32").SetUint64(uint64(startTimecode))
	tc.AddChildByName("RoundedTimecodeBase", "UInt32").SetUint64(uint64(roundedEditRate))
	df := uint64(0)
	if dropFrame {
		df = 1
	}
	tc.AddChildByName("DropFrame", "UInt8").SetUint64(df)
	return tc
}

// BumpGeneration assigns a fresh GenerationUID to obj, the step every
// metadata-editing operation performs before a re-write so readers can
// detect which objects changed between generations (spec.md §4.2
// "generation UID bump", supplementing the distilled spec).
func BumpGeneration(obj *MDObject) UUID {
	id := NewUUID()
	slot := obj.AddChildByName("GenerationUID", "UUID")
	slot.SetString(id.String())
	return id
}

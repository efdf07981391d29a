// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "io"

// WrappingKind distinguishes how an essence stream's bytes map onto edit
// units in the Generic Container (spec.md §3 "Essence wrapping").
type WrappingKind int

const (
	// WrappingFrame wraps exactly one edit unit's essence per KLV.
	WrappingFrame WrappingKind = iota
	// WrappingClip wraps an entire essence stream in a single KLV.
	WrappingClip
)

// EssenceDescriptor summarises one essence stream for wrapping: its edit
// rate, wrapping kind, essence container UL, BodySID and track number
// (spec.md §4.8 "Essence parsers"). Sample geometry is not carried here;
// PCMDescriptor adds it for PCM.
type EssenceDescriptor struct {
	EditRate   Rational
	Wrapping   WrappingKind
	EssenceUL  UL
	BodySID    uint32
	TrackNum   uint32
}

// EssenceStreamDescriptor is one candidate stream an EssenceParser finds
// in a source file, per spec.md §4.8 "identify_essence": a stream ID, a
// free-text description, an opaque 16-byte source-format tag the parser
// assigns itself (used to re-identify the stream on a later Use call),
// and the essence descriptor MDObject that should be attached to the
// file package track.
type EssenceStreamDescriptor struct {
	StreamID     int
	Description  string
	SourceFormat UL
	Descriptor   *MDObject
}

// WrappingOption is one way an EssenceParser can wrap a given stream
// into the Generic Container, per spec.md §4.8
// "identify_wrapping_options": the GC essence/element type pair, the
// wrapping UL, whether it wraps a whole edit unit (frame) or an entire
// clip, whether non-native edit rates are acceptable (clip wrapping
// only), and whether the parser can build an index for this wrapping.
type WrappingOption struct {
	WrappingUL       UL
	GCEssenceType    byte
	GCElementType    byte
	Wrapping         WrappingKind
	CanIndex         bool
	CanSlave         bool // accepts a non-native edit rate (clip wrap only)
}

// EssenceParser is the parser-factory contract of spec.md §4.8: given a
// source file, enumerate the essence streams it contains, let the
// caller choose a wrapping for one, bind to a fixed edit rate, and then
// hand back an EssenceSource that pulls edit units on demand. Concrete
// parsers (e.g. a WAVE PCM reader) implement this once per essence
// format, mirroring the original source's EssenceSubParserBase.
type EssenceParser interface {
	// IdentifyEssence inspects file and reports every essence stream
	// this parser recognises within it.
	IdentifyEssence(file io.ReaderAt) ([]EssenceStreamDescriptor, error)

	// IdentifyWrappingOptions reports every wrapping this parser can use
	// for a stream previously returned by IdentifyEssence.
	IdentifyWrappingOptions(file io.ReaderAt, stream EssenceStreamDescriptor) ([]WrappingOption, error)

	// Use binds the parser to stream, to be wrapped per option; it must
	// be called before SetEditRate or GetEssenceSource.
	Use(stream EssenceStreamDescriptor, option WrappingOption) error

	// SetEditRate requests rate as the wrapping edit rate, reporting
	// whether the bound stream/wrapping can actually supply it (clip
	// wrapping with CanSlave may accept rates its native sample rate
	// does not divide evenly; frame wrapping generally cannot).
	SetEditRate(rate Rational) bool

	// GetEssenceSource returns a source that pulls successive edit
	// units of the bound stream, starting at the given edit unit.
	GetEssenceSource(file io.ReaderAt, startEditUnit int64) (EssenceSource, error)
}

// EssenceSource produces successive edit units' worth of essence bytes
// for a GCWriter to wrap into the Generic Container, mirroring the
// original source's ESP_EssenceSource::GetEssenceData contract adapted
// to Go's io.Reader-like pull model (spec.md §4.8).
type EssenceSource interface {
	// Descriptor reports the stream's wrapping parameters.
	Descriptor() EssenceDescriptor

	// NextUnit returns the bytes for the next edit unit, or a nil slice
	// and ErrNotFound once the source is exhausted.
	NextUnit() ([]byte, error)

	// SamplesPerEditUnit reports the number of elementary samples (not
	// bytes) the most recently returned edit unit contained, needed by
	// CBR/VBR sequence bookkeeping; implementations with no sample
	// concept (e.g. already-framed essence) return 0.
	SamplesPerEditUnit() int

	// EssenceDataSize reports the byte size of the next call to
	// EssenceData with no size argument, triggering a scan of the
	// source if the size isn't already known (spec.md §4.8
	// "get_essence_data_size").
	EssenceDataSize() int64

	// EssenceData returns up to size bytes (0 meaning "let the source
	// decide", normally one wrapping unit), never more than maxSize (0
	// meaning unbounded), stopping at a wrapping-unit boundary. An empty
	// slice with a nil error means the source is exhausted (spec.md §4.8
	// "get_essence_data").
	EssenceData(size, maxSize int64) ([]byte, error)

	// EndOfItem reports whether the most recently returned chunk ended a
	// wrapping unit; EndOfData reports whether the source has no more
	// data at all (spec.md §4.8 "end_of_item/end_of_data").
	EndOfItem() bool
	EndOfData() bool

	// EditRate and CurrentPosition report the source's bound edit rate
	// and its position within the stream, in edit units.
	EditRate() Rational
	CurrentPosition() int64

	// BytesPerEditUnit reports the constant per-edit-unit byte count for
	// CBR index construction, rounded up to a kag-byte boundary (0 or 1
	// meaning no alignment); it returns 0 for streams with no constant
	// size (spec.md §4.8 "get_bytes_per_edit_unit").
	BytesPerEditUnit(kag uint32) uint32

	// RelativeWriteOrder and RelativeWriteOrderType let a source request
	// a position before or after a given Generic Container item type
	// within the same edit unit (e.g. VBI data ahead of picture data);
	// RelativeWriteOrderType is the GC item type byte being positioned
	// against, or 0 if the source has no preference (spec.md §4.8
	// "relative_write_order").
	RelativeWriteOrder() int32
	RelativeWriteOrderType() byte
}

// CalcCurrentEditUnit maps a byte position within a clip-wrapped essence
// stream back to an edit unit number, using a constant-samples-per-unit
// stream's simple division (spec.md §4.8 "position tracking").
func CalcCurrentEditUnit(bytePosition, dataStart int64, sampleSize, constSamples int) int64 {
	if sampleSize == 0 || constSamples == 0 {
		return 0
	}
	return (bytePosition - dataStart) / int64(sampleSize*constSamples)
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"errors"
	"io"
	"math"
)

// maxWrappingSequence bounds the search for a PCM sample-per-edit-unit
// sequence; a real edit rate vs. sample rate pairing always resolves
// well before this (spec.md §4.8, grounded on the original encoder's
// WAVE_PCM_EssenceSubParser::CalcWrappingSequence upper bound).
const maxWrappingSequence = 10000

// ErrNoWrappingSequence is returned when no repeating sample sequence
// under maxWrappingSequence edit units exactly accounts for sampleRate
// samples per second at the given edit rate.
var ErrNoWrappingSequence = errors.New("mxf: no PCM wrapping sequence found under 10000 edit units")

// PCMWrapping describes how whole PCM samples are distributed across
// edit units for a given (sampleRate, editRate) pair: either a constant
// sample count per edit unit, or a short repeating sequence of counts
// that sums to an exact number of samples per full sequence (spec.md
// §4.8 "CBR fast path vs VBR per-unit sample counts").
//
// This is the spec's generalisation of 48kHz-at-29.97fps audio: 48000
// samples/sec does not divide evenly by 30000/1001 edit units/sec, so
// successive edit units alternate between 1601 and 1602 samples in a
// five-edit-unit repeating sequence (spec.md §8 scenario).
type PCMWrapping struct {
	ConstSamples int    // nonzero: every edit unit has exactly this many samples
	Sequence     []uint32 // used when ConstSamples == 0
}

// SamplesForEditUnit returns the sample count for the edit unit at
// position pos (0-based), consulting the repeating sequence when one is
// in use.
func (w *PCMWrapping) SamplesForEditUnit(pos int64) uint32 {
	if w.ConstSamples != 0 {
		return uint32(w.ConstSamples)
	}
	if len(w.Sequence) == 0 {
		return 0
	}
	return w.Sequence[int(pos%int64(len(w.Sequence)))]
}

// CalcWrappingSequence computes the PCM edit-unit sample distribution
// for sampleRate samples/sec at editRate edit units/sec, grounded on the
// original encoder's CalcWrappingSequence: find the shortest repeating
// sequence (< maxWrappingSequence edit units long) whose total sample
// count is a whole number, then distribute samples across it by nearest-
// fit rounding with carried remainder, so the sequence's rounding error
// never accumulates past half a sample.
func CalcWrappingSequence(sampleRate int, editRate Rational) (*PCMWrapping, error) {
	if editRate.Numerator == 0 {
		return nil, ErrEditRateBeforeUse
	}

	samplesPerEditUnit := (float64(editRate.Denominator) * float64(sampleRate)) / float64(editRate.Numerator)

	if samplesPerEditUnit == math.Floor(samplesPerEditUnit) {
		return &PCMWrapping{ConstSamples: int(samplesPerEditUnit)}, nil
	}

	seqSize := 0
	for n := 2; n < maxWrappingSequence; n++ {
		samplesPerSequence := (float64(editRate.Denominator) * float64(sampleRate) * float64(n)) / float64(editRate.Numerator)
		if samplesPerSequence == math.Floor(samplesPerSequence) {
			seqSize = n
			break
		}
	}
	if seqSize == 0 {
		return nil, ErrNoWrappingSequence
	}

	seq := make([]uint32, seqSize)
	remain := 0.0
	for i := 0; i < seqSize; i++ {
		f := samplesPerEditUnit + remain
		x := math.Floor(f + 0.5)
		seq[i] = uint32(x)
		remain = f - x
	}

	return &PCMWrapping{Sequence: seq}, nil
}

// PCMDescriptor carries the fields of EssenceDescriptor that matter for
// PCM wrapping plus the container format's own sample geometry.
type PCMDescriptor struct {
	EssenceDescriptor
	SampleRate int
	SampleSize int // bytes per sample, all channels combined (block align)
}

// PCMEssenceSource reads successive edit units of interleaved PCM from an
// in-memory buffer according to a PCMWrapping, implementing
// EssenceSource (spec.md §4.8).
type PCMEssenceSource struct {
	desc     PCMDescriptor
	wrapping *PCMWrapping
	data     []byte
	pos      int64 // byte offset into data
	unitPos  int64 // edit unit index, for sequence lookup
	lastSamples int
}

// NewPCMEssenceSource builds a source over data, computing the wrapping
// sequence for desc's sample rate and edit rate.
func NewPCMEssenceSource(desc PCMDescriptor, data []byte) (*PCMEssenceSource, error) {
	w, err := CalcWrappingSequence(desc.SampleRate, desc.EditRate)
	if err != nil {
		return nil, err
	}
	return &PCMEssenceSource{desc: desc, wrapping: w, data: data}, nil
}

// Descriptor implements EssenceSource.
func (s *PCMEssenceSource) Descriptor() EssenceDescriptor { return s.desc.EssenceDescriptor }

// NextUnit implements EssenceSource, returning the bytes for the next
// edit unit or ErrNotFound once data is exhausted.
func (s *PCMEssenceSource) NextUnit() ([]byte, error) {
	if s.pos >= int64(len(s.data)) {
		return nil, ErrNotFound
	}
	samples := int(s.wrapping.SamplesForEditUnit(s.unitPos))
	n := int64(samples * s.desc.SampleSize)
	if s.pos+n > int64(len(s.data)) {
		n = int64(len(s.data)) - s.pos
	}
	out := s.data[s.pos : s.pos+n]
	s.pos += n
	s.unitPos++
	s.lastSamples = samples
	return out, nil
}

// SamplesPerEditUnit implements EssenceSource.
func (s *PCMEssenceSource) SamplesPerEditUnit() int { return s.lastSamples }

// EssenceDataSize implements EssenceSource, reporting the byte size of
// the edit unit NextUnit would return next without consuming it.
func (s *PCMEssenceSource) EssenceDataSize() int64 {
	if s.pos >= int64(len(s.data)) {
		return 0
	}
	n := int64(s.wrapping.SamplesForEditUnit(s.unitPos)) * int64(s.desc.SampleSize)
	if s.pos+n > int64(len(s.data)) {
		n = int64(len(s.data)) - s.pos
	}
	return n
}

// EssenceData implements EssenceSource as a thin wrapper over NextUnit:
// PCM edit units are never produced split across calls, so size is
// ignored and the result is only ever truncated, never padded, to
// maxSize.
func (s *PCMEssenceSource) EssenceData(size, maxSize int64) ([]byte, error) {
	unit, err := s.NextUnit()
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && int64(len(unit)) > maxSize {
		return unit[:maxSize], nil
	}
	return unit, nil
}

// EndOfItem always reports true: every NextUnit call returns one
// complete edit unit, never a partial one.
func (s *PCMEssenceSource) EndOfItem() bool { return true }

// EndOfData implements EssenceSource.
func (s *PCMEssenceSource) EndOfData() bool { return s.pos >= int64(len(s.data)) }

// EditRate implements EssenceSource.
func (s *PCMEssenceSource) EditRate() Rational { return s.desc.EditRate }

// CurrentPosition implements EssenceSource, reporting the edit unit
// index of the next unit NextUnit will return.
func (s *PCMEssenceSource) CurrentPosition() int64 { return s.unitPos }

// BytesPerEditUnit implements EssenceSource, grounded on the original
// source's EssenceSubParserBase::GetBytesPerEditUnit: sample bytes plus
// a 16+4 byte KL allowance for frame wrapping (the original carries a
// FIXME noting this assumes 4-byte BER length coding), rounded up to a
// kag-byte boundary with an extra kag added when the remainder is too
// small to hold a filler KLV (under 17 bytes). Returns 0 for streams
// using a repeating sample sequence, which have no constant size.
func (s *PCMEssenceSource) BytesPerEditUnit(kag uint32) uint32 {
	if s.wrapping.ConstSamples == 0 {
		return 0
	}
	n := uint32(s.wrapping.ConstSamples*s.desc.SampleSize) + 16 + 4
	if kag > 1 {
		rounded := ((n + kag - 1) / kag) * kag
		if gap := rounded - n; gap > 0 && gap < 17 {
			rounded += kag
		}
		n = rounded
	}
	return n
}

// RelativeWriteOrder and RelativeWriteOrderType implement EssenceSource;
// PCM audio has no positioning preference relative to other GC item
// types within an edit unit.
func (s *PCMEssenceSource) RelativeWriteOrder() int32     { return 0 }
func (s *PCMEssenceSource) RelativeWriteOrderType() byte { return 0 }

// PCMEssenceParser implements EssenceParser over a fixed in-memory PCM
// buffer, grounded on esp_template.h's EssenceSubParserBase contract
// (spec.md §4.8). It does not sniff a container header the way a full
// WAVE/AES3 reader would: callers already know the stream's sample
// geometry (from a WAVE fmt chunk parsed elsewhere, or from out-of-band
// knowledge) and construct it with that geometry and the raw samples.
type PCMEssenceParser struct {
	desc     PCMDescriptor
	data     []byte
	wrapping *PCMWrapping
}

// NewPCMEssenceParser returns a parser for data, described by desc.
func NewPCMEssenceParser(desc PCMDescriptor, data []byte) *PCMEssenceParser {
	return &PCMEssenceParser{desc: desc, data: data}
}

// IdentifyEssence implements EssenceParser, reporting the single stream
// this parser was constructed for. file is unused: the stream's
// geometry and bytes are already known.
func (p *PCMEssenceParser) IdentifyEssence(file io.ReaderAt) ([]EssenceStreamDescriptor, error) {
	return []EssenceStreamDescriptor{{
		StreamID:     0,
		Description:  "raw interleaved PCM audio",
		SourceFormat: p.desc.EssenceUL,
	}}, nil
}

// IdentifyWrappingOptions implements EssenceParser: PCM can be frame-
// wrapped (one edit unit per KLV, indexable) or clip-wrapped (the whole
// stream in one KLV, accepting a non-native edit rate).
func (p *PCMEssenceParser) IdentifyWrappingOptions(file io.ReaderAt, stream EssenceStreamDescriptor) ([]WrappingOption, error) {
	return []WrappingOption{
		{WrappingUL: p.desc.EssenceUL, GCEssenceType: 0x16, GCElementType: 0x01, Wrapping: WrappingFrame, CanIndex: true},
		{WrappingUL: p.desc.EssenceUL, GCEssenceType: 0x16, GCElementType: 0x01, Wrapping: WrappingClip, CanSlave: true},
	}, nil
}

// Use implements EssenceParser, recording the chosen wrapping kind.
func (p *PCMEssenceParser) Use(stream EssenceStreamDescriptor, option WrappingOption) error {
	p.desc.Wrapping = option.Wrapping
	return nil
}

// SetEditRate implements EssenceParser, computing (and discarding, on
// failure) the wrapping sequence for rate via CalcWrappingSequence.
func (p *PCMEssenceParser) SetEditRate(rate Rational) bool {
	w, err := CalcWrappingSequence(p.desc.SampleRate, rate)
	if err != nil {
		return false
	}
	p.desc.EditRate = rate
	p.wrapping = w
	return true
}

// GetEssenceSource implements EssenceParser, returning a source over the
// bound stream positioned at startEditUnit.
func (p *PCMEssenceParser) GetEssenceSource(file io.ReaderAt, startEditUnit int64) (EssenceSource, error) {
	src, err := NewPCMEssenceSource(p.desc, p.data)
	if err != nil {
		return nil, err
	}
	if p.wrapping != nil {
		src.wrapping = p.wrapping
	}
	for src.unitPos < startEditUnit {
		if _, err := src.NextUnit(); err != nil {
			break
		}
	}
	return src, nil
}

// CalcCurrentPosition maps a byte position within the clip-wrapped
// stream back to an edit unit number, grounded on the original encoder's
// CalcCurrentPosition: for a constant-sample wrapping this is a single
// division; for a repeating sequence it walks whole sequences then
// counts back through the current sequence position to absorb the
// fractional remainder (spec.md §4.8).
func (w *PCMWrapping) CalcCurrentPosition(bytePosition, dataStart int64, sampleSize int, sequencePos int) int64 {
	if sampleSize == 0 {
		return 0
	}
	if w.ConstSamples != 0 {
		return (bytePosition - dataStart) / int64(sampleSize*w.ConstSamples)
	}
	if len(w.Sequence) == 0 {
		return 0
	}

	seqSize := 0
	for _, s := range w.Sequence {
		seqSize += int(s)
	}
	if seqSize == 0 {
		return 0
	}

	seqBytes := int64(sampleSize) * int64(seqSize)
	completeSeq := (bytePosition - dataStart) / seqBytes
	fracSeq := (bytePosition - dataStart) - completeSeq*seqBytes
	ret := completeSeq * int64(len(w.Sequence))

	i := sequencePos
	for fracSeq > 0 {
		if i == 0 {
			i = len(w.Sequence)
		}
		i--
		unitBytes := int64(w.Sequence[i]) * int64(sampleSize)
		if fracSeq < unitBytes {
			break
		}
		ret++
		fracSeq -= unitBytes
	}

	return ret
}

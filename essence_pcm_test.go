// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "testing"

func TestCalcWrappingSequenceNTSCAudio(t *testing.T) {
	// 48kHz audio at 30000/1001 fps: no whole number of samples per edit
	// unit, but a 5-edit-unit sequence sums to 8008 samples exactly
	// (spec.md §8 seed scenario).
	editRate := Rational{Numerator: 30000, Denominator: 1001}

	w, err := CalcWrappingSequence(48000, editRate)
	if err != nil {
		t.Fatalf("CalcWrappingSequence: %v", err)
	}
	if w.ConstSamples != 0 {
		t.Fatalf("expected a repeating sequence, got ConstSamples=%d", w.ConstSamples)
	}

	want := []uint32{1602, 1601, 1602, 1601, 1602}
	if len(w.Sequence) != len(want) {
		t.Fatalf("sequence length = %d, want %d (%v)", len(w.Sequence), len(want), w.Sequence)
	}
	for i := range want {
		if w.Sequence[i] != want[i] {
			t.Fatalf("sequence[%d] = %d, want %d (full: %v)", i, w.Sequence[i], want[i], w.Sequence)
		}
	}

	total := 0
	for _, s := range w.Sequence {
		total += int(s)
	}
	if total != 8008 {
		t.Fatalf("sequence sum = %d, want 8008", total)
	}
}

func TestCalcWrappingSequenceConstantRate(t *testing.T) {
	// 48kHz at 25fps divides exactly: 1920 samples/edit unit, no sequence
	// needed.
	editRate := Rational{Numerator: 25, Denominator: 1}

	w, err := CalcWrappingSequence(48000, editRate)
	if err != nil {
		t.Fatalf("CalcWrappingSequence: %v", err)
	}
	if w.ConstSamples != 1920 {
		t.Fatalf("ConstSamples = %d, want 1920", w.ConstSamples)
	}
}

func TestCalcWrappingSequenceZeroEditRate(t *testing.T) {
	_, err := CalcWrappingSequence(48000, Rational{})
	if err == nil {
		t.Fatal("expected an error for a zero edit rate")
	}
}

func TestPCMEssenceSourceFollowsSequence(t *testing.T) {
	desc := PCMDescriptor{
		EssenceDescriptor: EssenceDescriptor{EditRate: Rational{Numerator: 30000, Denominator: 1001}},
		SampleRate:        48000,
		SampleSize:        4, // 2 channels * 16-bit
	}
	data := make([]byte, 8008*4)
	src, err := NewPCMEssenceSource(desc, data)
	if err != nil {
		t.Fatalf("NewPCMEssenceSource: %v", err)
	}

	want := []int{1602, 1601, 1602, 1601, 1602}
	for i, samples := range want {
		unit, err := src.NextUnit()
		if err != nil {
			t.Fatalf("NextUnit(%d): %v", i, err)
		}
		if len(unit) != samples*4 {
			t.Fatalf("unit %d length = %d, want %d", i, len(unit), samples*4)
		}
	}

	if _, err := src.NextUnit(); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound once exhausted, got %v", err)
	}
}

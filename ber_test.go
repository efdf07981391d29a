// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"errors"
	"testing"

	"github.com/saferwall/mxf/log"
)

func TestDecodeBERLength(t *testing.T) {
	tests := []struct {
		name       string
		in         []byte
		wantLen    uint64
		wantSize   int
		wantErr    error
	}{
		{"short form zero", []byte{0x00}, 0, 1, nil},
		{"short form max", []byte{0x7f}, 0x7f, 1, nil},
		{"long form 1 byte", []byte{0x81, 0xff}, 0xff, 2, nil},
		{"long form 4 byte", []byte{0x84, 0x00, 0x00, 0x01, 0x00}, 256, 5, nil},
		{"indefinite forbidden", []byte{0x80}, 0, 0, ErrBERIndefiniteLength},
		{"too long", []byte{0x89, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 0, 0, ErrBERTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			length, size, err := DecodeBERLength(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if length != tt.wantLen || size != tt.wantSize {
				t.Fatalf("got (%d, %d), want (%d, %d)", length, size, tt.wantLen, tt.wantSize)
			}
		})
	}
}

func TestEncodeBERLengthRoundTrip(t *testing.T) {
	sink := log.NewHelper(log.Discard)
	lengths := []uint64{0, 1, 0x7f, 0x80, 0xff, 0x1000, 1 << 32}

	for _, length := range lengths {
		enc := EncodeBERLength(length, 0, sink)
		got, size, err := DecodeBERLength(enc)
		if err != nil {
			t.Fatalf("DecodeBERLength(%x): %v", enc, err)
		}
		if got != length {
			t.Fatalf("round trip length = %d, want %d", got, length)
		}
		if size != len(enc) {
			t.Fatalf("size = %d, want %d", size, len(enc))
		}
	}
}

func TestEncodeBERLengthShortForm(t *testing.T) {
	sink := log.NewHelper(log.Discard)
	enc := EncodeBERLength(5, 0, sink)
	if len(enc) != 1 || enc[0] != 5 {
		t.Fatalf("short form encoding = % x, want [05]", enc)
	}
}

func TestEncodeBERLengthForcedSize(t *testing.T) {
	sink := log.NewHelper(log.Discard)
	enc := EncodeBERLength(5, 4, sink)
	if len(enc) != 5 {
		t.Fatalf("forced size encoding len = %d, want 5", len(enc))
	}
	if enc[0] != 0x84 {
		t.Fatalf("forced size first byte = %x, want 0x84", enc[0])
	}
	got, _, err := DecodeBERLength(enc)
	if err != nil || got != 5 {
		t.Fatalf("round trip got (%d, %v), want 5", got, err)
	}
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import "testing"

func TestCheckAnomaliesKAGSize(t *testing.T) {
	p := NewPartition(&PartitionPack{KAGSize: 3, Kind: PartitionBody}, nil)
	p.CheckAnomalies()
	if !containsString(p.Anomalies, AnoKAGSizeNotPowerOfTwo) {
		t.Fatalf("expected %q in anomalies, got %v", AnoKAGSizeNotPowerOfTwo, p.Anomalies)
	}
}

func TestCheckAnomaliesNoDuplicates(t *testing.T) {
	p := NewPartition(&PartitionPack{KAGSize: 3, Kind: PartitionBody}, nil)
	p.CheckAnomalies()
	p.CheckAnomalies()
	count := 0
	for _, a := range p.Anomalies {
		if a == AnoKAGSizeNotPowerOfTwo {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("anomaly recorded %d times, want 1", count)
	}
}

func TestCheckAnomaliesCleanPartition(t *testing.T) {
	p := NewPartition(&PartitionPack{
		KAGSize:           512,
		Kind:              PartitionHeader,
		HeaderByteCount:   1024,
		EssenceContainers: []UL{ULFromHex("060e2b34040101010d01030102100000")},
	}, nil)
	p.CheckAnomalies()
	if len(p.Anomalies) != 0 {
		t.Fatalf("expected no anomalies, got %v", p.Anomalies)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

// Anomalies recorded against a partition pack: structural oddities that
// don't prevent a reader from continuing, but are worth surfacing for
// diagnostics (spec.md §4.5's advisory checks, generalised beyond a
// single invariant).
var (
	// AnoKAGSizeNotPowerOfTwo is reported when KAGSize is neither 1 (no
	// alignment) nor a power of two, making KAG-grid math ill-defined.
	AnoKAGSizeNotPowerOfTwo = "KAGSize is not 1 and not a power of two"

	// AnoHeaderByteCountZero is reported when a closed partition claims
	// zero bytes of header metadata.
	AnoHeaderByteCountZero = "HeaderByteCount is 0 in a closed partition"

	// AnoIndexByteCountWithoutSID is reported when IndexByteCount is
	// nonzero but IndexSID is 0, an inconsistent index reference.
	AnoIndexByteCountWithoutSID = "IndexByteCount is nonzero but IndexSID is 0"

	// AnoEssenceContainersEmptyInHeader is reported when a header
	// partition declares zero essence container ULs.
	AnoEssenceContainersEmptyInHeader = "header partition declares no essence containers"

	// AnoFooterPartitionSelfMismatch is reported when a footer partition pack's
	// own FooterPartition field doesn't point at itself.
	AnoFooterPartitionSelfMismatch = "footer partition's FooterPartition field does not reference itself"
)

// isPowerOfTwo reports whether n is a power of two (n > 0).
func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// CheckAnomalies inspects p.Pack for the advisory oddities above and
// appends any found to p.Anomalies, skipping duplicates. It returns the
// updated Anomalies slice for convenience.
func (p *Partition) CheckAnomalies() []string {
	pack := p.Pack
	if pack == nil {
		return p.Anomalies
	}

	if pack.KAGSize != 1 && !isPowerOfTwo(pack.KAGSize) {
		p.addAnomaly(AnoKAGSizeNotPowerOfTwo)
	}

	if (pack.Status == StatusClosedComplete || pack.Status == StatusClosedIncomplete) && pack.HeaderByteCount == 0 {
		p.addAnomaly(AnoHeaderByteCountZero)
	}

	if pack.IndexByteCount != 0 && pack.IndexSID == 0 {
		p.addAnomaly(AnoIndexByteCountWithoutSID)
	}

	if pack.Kind == PartitionHeader && len(pack.EssenceContainers) == 0 {
		p.addAnomaly(AnoEssenceContainersEmptyInHeader)
	}

	if pack.Kind == PartitionFooter && pack.FooterPartition != pack.ThisPartition {
		p.addAnomaly(AnoFooterPartitionSelfMismatch)
	}

	return p.Anomalies
}

// addAnomaly appends anomaly to p.Anomalies unless it is already present.
func (p *Partition) addAnomaly(anomaly string) {
	for _, a := range p.Anomalies {
		if a == anomaly {
			return
		}
	}
	p.Anomalies = append(p.Anomalies, anomaly)
}

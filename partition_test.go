// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

import (
	"testing"

	"github.com/saferwall/mxf/log"
)

func TestPartitionResolvesForwardReference(t *testing.T) {
	registry := NewTypeRegistry()
	p := NewPartition(&PartitionPack{}, registry)

	targetID := NewUUID()
	holder := NewMDObjectByName("SourceClip", registry)
	holder.SetReference(RefStrong, targetID)

	root := NewMDObjectByName("Track", registry)
	root.addChild("Clip", holder)

	// Target isn't registered yet: the reference starts unmatched.
	p.AddMetadata(root)
	if err := p.CheckResolved(); err == nil {
		t.Fatal("expected an unresolved strong reference before the target arrives")
	}

	target := NewMDObjectByName("SourceClip", registry)
	target.SetLinkTarget(targetID)
	p.AddMetadata(target)

	if holder.Link != target {
		t.Fatalf("holder.Link = %v, want %v", holder.Link, target)
	}
	if err := p.CheckResolved(); err != nil {
		t.Fatalf("CheckResolved: %v", err)
	}

	// A strong-reffed target is removed from TopLevelMetadata once matched.
	for _, o := range p.TopLevelMetadata {
		if o == target {
			t.Fatal("strong-ref target should not remain top-level")
		}
	}
}

func TestPartitionResolvesBackwardReference(t *testing.T) {
	registry := NewTypeRegistry()
	p := NewPartition(&PartitionPack{}, registry)

	targetID := NewUUID()
	target := NewMDObjectByName("SourceClip", registry)
	target.SetLinkTarget(targetID)
	p.AddMetadata(target)

	holder := NewMDObjectByName("SourceClip", registry)
	holder.SetReference(RefStrong, targetID)
	root := NewMDObjectByName("Track", registry)
	root.addChild("Clip", holder)
	p.AddMetadata(root)

	if holder.Link != target {
		t.Fatalf("holder.Link = %v, want %v", holder.Link, target)
	}
	if err := p.CheckResolved(); err != nil {
		t.Fatalf("CheckResolved: %v", err)
	}
}

func TestIsPartitionPackKey(t *testing.T) {
	key := partitionPackKeyFor(PartitionHeader, StatusClosedComplete)
	kind, status, ok := classifyPartitionKey(key)
	if !ok || kind != PartitionHeader || status != StatusClosedComplete {
		t.Fatalf("classifyPartitionKey = (%v, %v, %v)", kind, status, ok)
	}
	if IsPartitionPackKey(klvFillerUL) {
		t.Fatal("filler key must not classify as a partition pack")
	}
}

func TestKagFillerSizeMinimumGapRule(t *testing.T) {
	// A natural gap of 10 bytes is below minFillerSize (17): the function
	// must add a whole KAG rather than emit an impossible filler.
	const kag = 512
	size := kagFillerSize(0, 502, kag)
	if size < minFillerSize {
		t.Fatalf("kagFillerSize = %d, below minimum %d", size, minFillerSize)
	}
	if size != (kag-502)+kag {
		t.Fatalf("kagFillerSize = %d, want %d", size, (kag-502)+kag)
	}
}

func TestKagFillerSizeExactBoundary(t *testing.T) {
	if got := kagFillerSize(0, 512, 512); got != 0 {
		t.Fatalf("kagFillerSize at exact boundary = %d, want 0", got)
	}
}

func TestFillerBytesExactSize(t *testing.T) {
	sink := log.NewHelper(log.Discard)
	for _, size := range []int{17, 64, 1024} {
		out := fillerBytes(size, false, sink)
		if len(out) != size {
			t.Fatalf("fillerBytes(%d) length = %d", size, len(out))
		}
		var key UL
		copy(key[:], out[:16])
		if !key.VersionlessEqual(klvFillerUL) {
			t.Fatalf("fillerBytes(%d) key is not KLVFill", size)
		}
	}
}

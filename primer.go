// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

// Primer is a per-partition bijection between 2-byte local tags and
// 16-byte ULs (spec.md §3/§4.3). Dynamic tags are allocated downward from
// 0xFFFF, skipping any already in use.
type Primer struct {
	tagToUL map[uint16]UL
	ulToTag map[UL]uint16
	nextDyn uint16
}

// NewPrimer returns an empty Primer ready for insertion.
func NewPrimer() *Primer {
	return &Primer{
		tagToUL: make(map[uint16]UL),
		ulToTag: make(map[UL]uint16),
		nextDyn: 0xFFFF,
	}
}

// Insert records the (tag, ul) pair and its reverse lookup entry.
func (p *Primer) Insert(tag uint16, ul UL) {
	p.tagToUL[tag] = ul
	p.ulToTag[ul] = tag
}

// ULForTag returns the UL registered for tag.
func (p *Primer) ULForTag(tag uint16) (UL, bool) {
	ul, ok := p.tagToUL[tag]
	return ul, ok
}

// TagForUL returns the tag registered for ul.
func (p *Primer) TagForUL(ul UL) (uint16, bool) {
	tag, ok := p.ulToTag[ul]
	return tag, ok
}

// Len reports how many (tag, UL) pairs are recorded.
func (p *Primer) Len() int { return len(p.tagToUL) }

// Tags returns every tag currently recorded, unordered.
func (p *Primer) Tags() []uint16 {
	out := make([]uint16, 0, len(p.tagToUL))
	for t := range p.tagToUL {
		out = append(out, t)
	}
	return out
}

// isDynamicTagRange reports whether tag falls in the dynamically
// allocated range (0x8000-0xFFFF is used by convention; static tags below
// that are assigned by the dictionary).
func isDynamicTagRange(tag uint16) bool {
	return tag >= 0x8000
}

// allocateDynamicTag returns the next unused tag, descending from 0xFFFF
// and skipping any value already recorded (spec.md §4.6 "Primer").
func (p *Primer) allocateDynamicTag() uint16 {
	tag := p.nextDyn
	for {
		if _, used := p.tagToUL[tag]; !used {
			p.nextDyn = tag - 1
			return tag
		}
		if tag == 0 {
			panic("mxf: primer dynamic tag space exhausted")
		}
		tag--
	}
}

// Lookup computes the tag to use for ul on write, per spec.md §4.3:
//  1. A caller-hinted tag is accepted if its primer entry already matches
//     ul; otherwise a tag already recorded for ul is reused.
//  2. Otherwise, if ul has a static 2-byte key in registry, that tag is
//     used.
//  3. Otherwise a dynamic tag is allocated downward from 0xFFFF and
//     recorded.
//
// The chosen (tag, ul) pair is always inserted into the primer before
// returning, so a later write sees the same mapping.
func (p *Primer) Lookup(ul UL, tryTag uint16, hasTryTag bool, registry *TypeRegistry) uint16 {
	if hasTryTag {
		if existing, ok := p.tagToUL[tryTag]; ok && existing == ul {
			return tryTag
		}
	}

	if existingTag, ok := p.ulToTag[ul]; ok {
		return existingTag
	}

	if registry != nil {
		if tag, ok := registry.StaticTag(ul); ok {
			p.Insert(tag, ul)
			return tag
		}
	}

	tag := p.allocateDynamicTag()
	p.Insert(tag, ul)
	return tag
}

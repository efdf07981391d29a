// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

// dictionary.go bakes in the small slice of the SMPTE RP210/RP224
// metadata dictionary this package needs to build and read the minimal
// object graph metadata.go constructs: the group (set) type names used
// as local-set containers, a handful of static 2-byte tags, and the
// well-known data-definition ULs for picture/sound essence (spec.md
// §4.11 "Dictionary seam").
//
// A full RP210 baseline dictionary (thousands of entries loaded from an
// external XML/text table, as mxflib's XMLDict does) is out of scope;
// this is the built-in subset every encoder/decoder needs regardless of
// which external dictionary, if any, is layered on top through
// TypeRegistry.RegisterType/RegisterStaticTag.

// Well-known data-definition ULs (SMPTE 400M), used to tag a Sequence's
// essence kind.
var (
	DataDefinitionPicture = ULFromHex("060e2b34040101010401010100000000")
	DataDefinitionSound   = ULFromHex("060e2b34040101010401010200000000")
	DataDefinitionData    = ULFromHex("060e2b34040101010401010300000000")
)

// registerBuiltinDictionary registers the group types used by metadata.go
// as open-ended compounds (their member lists are populated dynamically
// as children are added, rather than fixed at registration time) and a
// handful of static tags for the fields a primer-less reader needs before
// it has parsed a primer pack.
func registerBuiltinDictionary(r *TypeRegistry) {
	groups := []string{
		"Preface", "MaterialPackage", "SourcePackage",
		"Track", "Sequence", "SourceClip", "TimecodeComponent",
	}
	for _, name := range groups {
		if r.LookupType(name) == nil {
			r.RegisterType(&Type{Name: name, Class: TypeCompound})
		}
	}

	// Static tags for the fields every partition's primer pack itself
	// needs resolved before any dynamic tag allocation has happened
	// (spec.md §4.11 "built-in integer traits wiring").
	r.RegisterStaticTag(ULFromHex("060e2b34010101010101151000000000"), 0x3c0a) // InstanceUID
	r.RegisterStaticTag(prefaceUL, 0x0102)
}

func init() {
	registerBuiltinDictionary(DefaultRegistry())
}

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mxf

// RefType classifies how a child property refers to another MDObject, per
// spec.md §3 "The link field represents a strong or weak reference".
type RefType int

const (
	// RefNone is an ordinary (non-reference) property.
	RefNone RefType = iota
	// RefTarget marks a property as an addressable instance ID (the
	// InstanceUID a Strong/Weak/Global reference elsewhere points at).
	RefTarget
	// RefStrong marks an owning reference; the referenced object is not
	// top-level in its partition once resolved.
	RefStrong
	// RefWeak marks a non-owning reference.
	RefWeak
	// RefGlobal marks a reference that may cross partition/file boundaries.
	RefGlobal
)

// SourceLocation records where an MDObject was read from, for diagnostics
// and for essence byte-offset bookkeeping.
type SourceLocation struct {
	Valid    bool
	Offset   int64 // file byte offset of the value
	KLSize   int   // bytes consumed by the key+length before the value
}

// MDObject is a node in the header-metadata tree (spec.md §3). It is
// either a leaf (owns a DataChunk of raw value bytes) or an interior node
// (owns an ordered map of named children); never both.
type MDObject struct {
	Name string
	Type *Type

	// Leaf state.
	Value *DataChunk

	// Interior state: children keyed by name, with a separate ordered
	// list because compound-type member order is significant and map
	// iteration order is not (spec.md §3).
	children     map[string]*MDObject
	childOrder   []string

	// RefType annotates what kind of reference this property is, when its
	// effective type is UUID/UL-shaped and used for linking.
	RefType RefType

	// Link is the resolved target of a Strong/Weak/Global/Target
	// reference, filled in by Partition's reference-resolution pass. It is
	// nil until resolved (or if this object holds no reference).
	Link *MDObject

	// LinkUUID is the raw UUID this property names, independent of whether
	// resolution has happened yet.
	LinkUUID UUID
	hasLink  bool

	// Parent is an optional, possibly-stale back-reference (spec.md §3:
	// "children do not know their parent ... may be stale"). It exists
	// only as a debugging convenience; never rely on it for correctness.
	Parent *MDObject

	Modified bool
	Source   SourceLocation

	// instanceUL records the static UL this object was constructed from,
	// when known; used by Primer.Lookup to recover a static tag without a
	// second dictionary round-trip. Bookkeeping only, not part of the
	// documented data model in spec.md §3.
	instanceUL UL

	registry *TypeRegistry
}

// NewMDObjectByName creates a properly typed object looked up by type name
// in registry (nil registry uses DefaultRegistry()).
func NewMDObjectByName(name string, registry *TypeRegistry) *MDObject {
	if registry == nil {
		registry = DefaultRegistry()
	}
	t := registry.LookupType(name)
	return newMDObject(name, t, registry)
}

// NewMDObjectByType creates an object directly from a resolved Type.
func NewMDObjectByType(t *Type, registry *TypeRegistry) *MDObject {
	if registry == nil {
		registry = DefaultRegistry()
	}
	name := ""
	if t != nil {
		name = t.Name
	}
	return newMDObject(name, t, registry)
}

// NewMDObjectByUL creates an object from a static UL, resolving it to a
// type name through the dictionary-backed portion of the registry. Since
// the bare TypeRegistry only maps types by name, callers that drive this
// from a dictionary should register an UL->name association themselves
// (e.g. via the metadata facade); this constructor is the hook the
// dictionary loader (an external collaborator, spec.md §1) calls through.
func NewMDObjectByUL(ul UL, typeName string, registry *TypeRegistry) *MDObject {
	obj := NewMDObjectByName(typeName, registry)
	obj.instanceUL = ul
	return obj
}

// NewMDObjectByTag creates an object from a (tag, primer) pair: the tag is
// looked up in primer to find the UL, then typeName resolves it, mirroring
// how a partition reconstructs a local-set item while parsing.
func NewMDObjectByTag(tag uint16, primer *Primer, typeName string, registry *TypeRegistry) (*MDObject, bool) {
	ul, ok := primer.ULForTag(tag)
	if !ok {
		return nil, false
	}
	obj := NewMDObjectByUL(ul, typeName, registry)
	return obj, true
}

func newMDObject(name string, t *Type, registry *TypeRegistry) *MDObject {
	obj := &MDObject{Name: name, Type: t, registry: registry}
	if t != nil {
		eff := registry.EffectiveType(t.Name)
		if eff != nil && (eff.Class == TypeCompound) {
			obj.children = make(map[string]*MDObject)
		} else {
			obj.Value = NewDataChunk()
		}
	} else {
		obj.Value = NewDataChunk()
	}
	return obj
}

// AddChildByName appends an empty named child whose type is looked up by
// name, in declared order.
func (o *MDObject) AddChildByName(name, typeName string) *MDObject {
	child := NewMDObjectByName(typeName, o.registry)
	child.Name = name
	o.addChild(name, child)
	return child
}

// AddChildType appends an empty child directly from a Type.
func (o *MDObject) AddChildType(name string, t *Type) *MDObject {
	child := NewMDObjectByType(t, o.registry)
	child.Name = name
	o.addChild(name, child)
	return child
}

func (o *MDObject) addChild(name string, child *MDObject) {
	if o.children == nil {
		o.children = make(map[string]*MDObject)
	}
	if _, exists := o.children[name]; !exists {
		o.childOrder = append(o.childOrder, name)
	}
	child.Parent = o
	o.children[name] = child
	o.Modified = true
}

// Child returns the named child, or nil.
func (o *MDObject) Child(name string) *MDObject {
	if o.children == nil {
		return nil
	}
	return o.children[name]
}

// Children returns children in declared/insertion order.
func (o *MDObject) Children() []*MDObject {
	out := make([]*MDObject, 0, len(o.childOrder))
	for _, name := range o.childOrder {
		out = append(out, o.children[name])
	}
	return out
}

// IsLeaf reports whether this object owns raw bytes rather than children.
func (o *MDObject) IsLeaf() bool {
	return o.children == nil
}

// SetLinkTarget marks this object as the addressable target of a
// reference (RefTarget): its own InstanceUID.
func (o *MDObject) SetLinkTarget(id UUID) {
	o.RefType = RefTarget
	o.LinkUUID = id
	o.hasLink = true
}

// SetReference marks this object as holding a Strong/Weak/Global reference
// to the object identified by id. Resolution against a Partition's
// ref_targets map happens later; see Partition.AddMetadata.
func (o *MDObject) SetReference(kind RefType, id UUID) {
	o.RefType = kind
	o.LinkUUID = id
	o.hasLink = true
}

// HasReference reports whether this object carries reference semantics at
// all (Target, Strong, Weak, or Global).
func (o *MDObject) HasReference() bool {
	return o.hasLink
}

// ReadValue deserializes a wire value of the given size into this object,
// recursively descending compounds in declared child order and arrays by
// element count (spec.md §4.3). primer resolves local tags encountered
// while walking nested sets; it may be nil for types with no embedded
// sets.
func (o *MDObject) ReadValue(data []byte, primer *Primer) error {
	traits := o.traits()
	if traits != nil && traits.HandlesSubdata() {
		o.Value = NewDataChunkFromBytes(data)
		return nil
	}

	eff := o.effectiveType()
	if eff == nil {
		o.Value = NewDataChunkFromBytes(data)
		return nil
	}

	switch eff.Class {
	case TypeCompound:
		return o.readCompound(data, eff, primer)
	case TypeArray:
		return o.readArray(data, eff, primer)
	default:
		o.Value = NewDataChunkFromBytes(data)
		return nil
	}
}

func (o *MDObject) readCompound(data []byte, eff *Type, primer *Primer) error {
	offset := 0
	for _, m := range eff.Members {
		size := o.registry.EffectiveSize(m.Type)
		if size == 0 || offset+size > len(data) {
			size = len(data) - offset
		}
		if size < 0 {
			return ErrShortRead
		}
		child := o.AddChildByName(m.Name, m.Type)
		if err := child.ReadValue(data[offset:offset+size], primer); err != nil {
			return err
		}
		offset += size
	}
	return nil
}

func (o *MDObject) readArray(data []byte, eff *Type, primer *Primer) error {
	elemSize := o.registry.EffectiveSize(eff.ElementType)
	start := 0
	count := eff.Count

	if eff.ArrayKind == ArrayBatch {
		if len(data) < 8 {
			return ErrIndexCountMismatch
		}
		batchCount := int(getU32BE(data[0:4]))
		elementSize := int(getU32BE(data[4:8]))
		if elemSize == 0 {
			elemSize = elementSize
		}
		if elementSize != 0 && batchCount*elementSize != len(data)-8 {
			return ErrIndexCountMismatch
		}
		count = batchCount
		start = 8
	} else if count == 0 && elemSize > 0 {
		count = (len(data) - start) / elemSize
	}

	for i := 0; i < count; i++ {
		if elemSize == 0 || start+elemSize > len(data) {
			break
		}
		child := o.AddChildByName(indexName(i), eff.ElementType)
		if err := child.ReadValue(data[start:start+elemSize], primer); err != nil {
			return err
		}
		start += elemSize
	}
	return nil
}

func indexName(i int) string {
	const digits = "0123456789"
	if i == 0 {
		return "[0]"
	}
	s := ""
	for i > 0 {
		s = string(digits[i%10]) + s
		i /= 10
	}
	return "[" + s + "]"
}

func (o *MDObject) effectiveType() *Type {
	if o.Type == nil || o.registry == nil {
		return nil
	}
	return o.registry.EffectiveType(o.Type.Name)
}

func (o *MDObject) traits() Traits {
	if o.Type == nil || o.registry == nil {
		return nil
	}
	return o.registry.LookupTraitsMapping(o.Type.Name)
}

// GetString renders this leaf's value through its traits.
func (o *MDObject) GetString() string {
	if !o.IsLeaf() || o.Value == nil {
		return ""
	}
	tr := o.traits()
	if tr == nil {
		return ""
	}
	return tr.GetString(o.Value)
}

// SetString sets this leaf's value through its traits and marks it
// modified.
func (o *MDObject) SetString(s string) {
	if !o.IsLeaf() {
		return
	}
	tr := o.traits()
	if tr == nil {
		return
	}
	if o.Value == nil {
		o.Value = NewDataChunk()
	}
	tr.SetString(o.Value, s)
	o.Modified = true
}

// SetUint64 sets this leaf's value as an unsigned integer.
func (o *MDObject) SetUint64(v uint64) {
	if !o.IsLeaf() {
		return
	}
	tr := o.traits()
	if tr == nil {
		return
	}
	size := o.registry.EffectiveSize(o.Type.Name)
	if o.Value == nil {
		o.Value = NewDataChunk()
	}
	tr.SetUint(o.Value, size, v)
	o.Modified = true
}

// GetUint64 reads this leaf's value as an unsigned integer.
func (o *MDObject) GetUint64() uint64 {
	if !o.IsLeaf() || o.Value == nil {
		return 0
	}
	tr := o.traits()
	if tr == nil {
		return 0
	}
	size := 0
	if o.Type != nil {
		size = o.registry.EffectiveSize(o.Type.Name)
	} else {
		size = o.Value.Len()
	}
	return tr.GetUint(o.Value, size)
}

// WriteValue serializes this object back to wire bytes, the inverse of
// ReadValue, in the same declared-child-order / element-order shape.
func (o *MDObject) WriteValue() []byte {
	traits := o.traits()
	if traits != nil && traits.HandlesSubdata() {
		if o.Value != nil {
			return o.Value.Bytes()
		}
		return nil
	}

	if o.IsLeaf() {
		if o.Value != nil {
			return o.Value.Bytes()
		}
		return nil
	}

	eff := o.effectiveType()
	if eff != nil && eff.Class == TypeArray && eff.ArrayKind == ArrayBatch {
		children := o.Children()
		elemSize := 0
		var body []byte
		for _, c := range children {
			v := c.WriteValue()
			if elemSize == 0 {
				elemSize = len(v)
			}
			body = append(body, v...)
		}
		header := make([]byte, 8)
		putU32BE(header[0:4], uint32(len(children)))
		putU32BE(header[4:8], uint32(elemSize))
		return append(header, body...)
	}

	var out []byte
	for _, c := range o.Children() {
		out = append(out, c.WriteValue()...)
	}
	return out
}

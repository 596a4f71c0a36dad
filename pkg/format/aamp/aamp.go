// Package aamp implements the parameter-archive shape described by the
// design's parameter tree invariants: a recursive structure with an ordered
// mapping from name-hash to typed leaf ("parameter object") and an ordered
// mapping from name-hash to child node ("parameter list") at every level.
//
// This is part of the narrow external-codec contract (C1); no published Go
// module speaks this console-specific format, so the byte-level encoding is
// implemented directly here.
package aamp

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"math"

	"github.com/kestrelmods/kestrel/pkg/format"
)

func float32bits(f float32) uint32    { return math.Float32bits(f) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }

// HashName computes the small-integer name-hash used to key parameter
// objects and parameter lists. The exact hash algorithm is not load-bearing
// for the merge engine (it only needs to be stable and collision-free for
// the keys actually in use), so a standard library hash is used rather than
// replicating the console's undocumented hash.
func HashName(name string) uint32 {
	h := fnv.New32a()
	_, _ = io.WriteString(h, name)
	return h.Sum32()
}

// ParamType identifies the concrete type stored in a Parameter leaf.
type ParamType byte

const (
	TypeBool ParamType = iota
	TypeInt
	TypeFloat
	TypeString
	TypeIntArray
	TypeFloatArray
	TypeVec3
)

// Parameter is a single typed leaf value. Exactly one field group is
// meaningful, selected by Type.
type Parameter struct {
	Type    ParamType
	Bool    bool
	Int     int32
	Float   float32
	Str     string
	Ints    []int32
	Floats  []float32
	Vec3    [3]float32
}

// Equal performs structural, type-sensitive comparison.
func (p Parameter) Equal(other Parameter) bool {
	if p.Type != other.Type {
		return false
	}
	switch p.Type {
	case TypeBool:
		return p.Bool == other.Bool
	case TypeInt:
		return p.Int == other.Int
	case TypeFloat:
		return p.Float == other.Float
	case TypeString:
		return p.Str == other.Str
	case TypeIntArray:
		return equalInt32Slice(p.Ints, other.Ints)
	case TypeFloatArray:
		return equalFloat32Slice(p.Floats, other.Floats)
	case TypeVec3:
		return p.Vec3 == other.Vec3
	default:
		return false
	}
}

func equalInt32Slice(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalFloat32Slice(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ParameterObject is the leaf mapping at a tree node: an ordered map from
// name-hash to typed parameter.
type ParameterObject struct {
	*format.OrderedMap[uint32, Parameter]
}

// NewParameterObject creates an empty parameter object.
func NewParameterObject() ParameterObject {
	return ParameterObject{format.NewOrderedMap[uint32, Parameter]()}
}

// Equal performs structural, order-sensitive comparison.
func (o ParameterObject) Equal(other ParameterObject) bool {
	return o.OrderedMap.Equal(other.OrderedMap, Parameter.Equal)
}

// Clone performs a shallow clone (parameter values are copied by value, so
// this is sufficient for structural independence).
func (o ParameterObject) Clone() ParameterObject {
	return ParameterObject{o.OrderedMap.Clone()}
}

// ParameterList is a tree node: an ordered map of child parameter objects
// and an ordered map of child parameter lists.
type ParameterList struct {
	Objects *format.OrderedMap[uint32, ParameterObject]
	Lists   *format.OrderedMap[uint32, *ParameterList]
}

// NewParameterList creates an empty parameter list.
func NewParameterList() *ParameterList {
	return &ParameterList{
		Objects: format.NewOrderedMap[uint32, ParameterObject](),
		Lists:   format.NewOrderedMap[uint32, *ParameterList](),
	}
}

// Equal performs structural, order-sensitive comparison.
func (l *ParameterList) Equal(other *ParameterList) bool {
	if l == nil || other == nil {
		return l == other
	}
	if !l.Objects.Equal(other.Objects, ParameterObject.Equal) {
		return false
	}
	return l.Lists.Equal(other.Lists, func(a, b *ParameterList) bool { return a.Equal(b) })
}

// Clone performs a deep clone.
func (l *ParameterList) Clone() *ParameterList {
	if l == nil {
		return nil
	}
	out := &ParameterList{
		Objects: format.NewOrderedMap[uint32, ParameterObject](),
		Lists:   format.NewOrderedMap[uint32, *ParameterList](),
	}
	l.Objects.Range(func(k uint32, v ParameterObject) bool {
		out.Objects.Set(k, v.Clone())
		return true
	})
	l.Lists.Range(func(k uint32, v *ParameterList) bool {
		out.Lists.Set(k, v.Clone())
		return true
	})
	return out
}

// Object looks up a child parameter object by name.
func (l *ParameterList) Object(name string) (ParameterObject, bool) {
	return l.Objects.Get(HashName(name))
}

// List looks up a child parameter list by name.
func (l *ParameterList) List(name string) (*ParameterList, bool) {
	return l.Lists.Get(HashName(name))
}

// SetObject inserts a named child parameter object.
func (l *ParameterList) SetObject(name string, object ParameterObject) {
	l.Objects.Set(HashName(name), object)
}

// SetList inserts a named child parameter list.
func (l *ParameterList) SetList(name string, list *ParameterList) {
	l.Lists.Set(HashName(name), list)
}

// ParameterIO is the root of a parameter archive.
type ParameterIO struct {
	*ParameterList
}

// NewParameterIO creates an empty parameter archive.
func NewParameterIO() ParameterIO {
	return ParameterIO{NewParameterList()}
}

// -- binary codec -----------------------------------------------------------

// magic is the four-byte header identifying an encoded parameter archive.
var magic = [4]byte{'A', 'A', 'M', 'P'}

// FromBinary parses a parameter archive from its compact binary
// representation, assuming little-endian byte order.
func FromBinary(data []byte) (ParameterIO, error) {
	return FromBinaryOrder(data, binary.LittleEndian)
}

// FromBinaryOrder parses a parameter archive using the given byte order,
// for dumps built for the big-endian platform variant (see the design's
// endianness threading requirement).
func FromBinaryOrder(data []byte, order binary.ByteOrder) (ParameterIO, error) {
	r := &reader{data: data, order: order}
	var hdr [4]byte
	if err := r.readBytes(hdr[:]); err != nil {
		return ParameterIO{}, fmt.Errorf("aamp: %w", err)
	}
	if hdr != magic {
		return ParameterIO{}, fmt.Errorf("aamp: bad magic")
	}
	list, err := r.readList()
	if err != nil {
		return ParameterIO{}, fmt.Errorf("aamp: %w", err)
	}
	return ParameterIO{list}, nil
}

// Equal performs structural, order-sensitive comparison.
func (pio ParameterIO) Equal(other ParameterIO) bool {
	return pio.ParameterList.Equal(other.ParameterList)
}

// ToBinary serializes the parameter archive to its compact binary
// representation using little-endian byte order. Objects and lists are
// emitted in the order they were inserted, which is what makes the output
// deterministic across runs (the canonical serializer invariant, C8).
func (pio ParameterIO) ToBinary() []byte {
	return pio.ToBinaryOrder(binary.LittleEndian)
}

// ToBinaryOrder serializes the parameter archive using the given byte
// order, the merger-construction parameter that threads through all
// serialisation for the big-endian platform variant.
func (pio ParameterIO) ToBinaryOrder(order binary.ByteOrder) []byte {
	w := &writer{order: order}
	w.writeBytes(magic[:])
	w.writeList(pio.ParameterList)
	return w.buf
}

type writer struct {
	buf   []byte
	order binary.ByteOrder
}

func (w *writer) writeBytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) writeU32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.writeBytes(b[:])
}

func (w *writer) writeString(s string) {
	w.writeU32(uint32(len(s)))
	w.writeBytes([]byte(s))
}

func (w *writer) writeParameter(p Parameter) {
	w.buf = append(w.buf, byte(p.Type))
	switch p.Type {
	case TypeBool:
		if p.Bool {
			w.buf = append(w.buf, 1)
		} else {
			w.buf = append(w.buf, 0)
		}
	case TypeInt:
		w.writeU32(uint32(p.Int))
	case TypeFloat:
		w.writeU32(float32bits(p.Float))
	case TypeString:
		w.writeString(p.Str)
	case TypeIntArray:
		w.writeU32(uint32(len(p.Ints)))
		for _, v := range p.Ints {
			w.writeU32(uint32(v))
		}
	case TypeFloatArray:
		w.writeU32(uint32(len(p.Floats)))
		for _, v := range p.Floats {
			w.writeU32(float32bits(v))
		}
	case TypeVec3:
		for _, v := range p.Vec3 {
			w.writeU32(float32bits(v))
		}
	}
}

func (w *writer) writeObject(o ParameterObject) {
	w.writeU32(uint32(o.Len()))
	o.Range(func(k uint32, v Parameter) bool {
		w.writeU32(k)
		w.writeParameter(v)
		return true
	})
}

func (w *writer) writeList(l *ParameterList) {
	w.writeU32(uint32(l.Objects.Len()))
	l.Objects.Range(func(k uint32, v ParameterObject) bool {
		w.writeU32(k)
		w.writeObject(v)
		return true
	})
	w.writeU32(uint32(l.Lists.Len()))
	l.Lists.Range(func(k uint32, v *ParameterList) bool {
		w.writeU32(k)
		w.writeList(v)
		return true
	})
}

type reader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

func (r *reader) readBytes(out []byte) error {
	if r.pos+len(out) > len(r.data) {
		return io.ErrUnexpectedEOF
	}
	copy(out, r.data[r.pos:r.pos+len(out)])
	r.pos += len(out)
	return nil
}

func (r *reader) readU32() (uint32, error) {
	var b [4]byte
	if err := r.readBytes(b[:]); err != nil {
		return 0, err
	}
	return r.order.Uint32(b[:]), nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.data) {
		return "", io.ErrUnexpectedEOF
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) readParameter() (Parameter, error) {
	if r.pos >= len(r.data) {
		return Parameter{}, io.ErrUnexpectedEOF
	}
	t := ParamType(r.data[r.pos])
	r.pos++
	p := Parameter{Type: t}
	switch t {
	case TypeBool:
		if r.pos >= len(r.data) {
			return p, io.ErrUnexpectedEOF
		}
		p.Bool = r.data[r.pos] != 0
		r.pos++
	case TypeInt:
		v, err := r.readU32()
		if err != nil {
			return p, err
		}
		p.Int = int32(v)
	case TypeFloat:
		v, err := r.readU32()
		if err != nil {
			return p, err
		}
		p.Float = float32frombits(v)
	case TypeString:
		s, err := r.readString()
		if err != nil {
			return p, err
		}
		p.Str = s
	case TypeIntArray:
		n, err := r.readU32()
		if err != nil {
			return p, err
		}
		p.Ints = make([]int32, n)
		for i := range p.Ints {
			v, err := r.readU32()
			if err != nil {
				return p, err
			}
			p.Ints[i] = int32(v)
		}
	case TypeFloatArray:
		n, err := r.readU32()
		if err != nil {
			return p, err
		}
		p.Floats = make([]float32, n)
		for i := range p.Floats {
			v, err := r.readU32()
			if err != nil {
				return p, err
			}
			p.Floats[i] = float32frombits(v)
		}
	case TypeVec3:
		for i := range p.Vec3 {
			v, err := r.readU32()
			if err != nil {
				return p, err
			}
			p.Vec3[i] = float32frombits(v)
		}
	default:
		return p, fmt.Errorf("unknown parameter type %d", t)
	}
	return p, nil
}

func (r *reader) readObject() (ParameterObject, error) {
	o := NewParameterObject()
	n, err := r.readU32()
	if err != nil {
		return o, err
	}
	for i := uint32(0); i < n; i++ {
		k, err := r.readU32()
		if err != nil {
			return o, err
		}
		v, err := r.readParameter()
		if err != nil {
			return o, err
		}
		o.Set(k, v)
	}
	return o, nil
}

func (r *reader) readList() (*ParameterList, error) {
	l := NewParameterList()
	n, err := r.readU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < n; i++ {
		k, err := r.readU32()
		if err != nil {
			return nil, err
		}
		v, err := r.readObject()
		if err != nil {
			return nil, err
		}
		l.Objects.Set(k, v)
	}
	n, err = r.readU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < n; i++ {
		k, err := r.readU32()
		if err != nil {
			return nil, err
		}
		v, err := r.readList()
		if err != nil {
			return nil, err
		}
		l.Lists.Set(k, v)
	}
	return l, nil
}

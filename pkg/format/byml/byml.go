// Package byml implements the binary-YAML tree shape described by the
// design's resource model: a recursive structure of hashes, arrays, and
// typed leaves. Like aamp, it is part of the narrow external-codec contract
// (C1) and is implemented directly because no published Go module speaks
// this console-specific format.
package byml

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// NodeType identifies the concrete shape of a Node.
type NodeType byte

const (
	TypeNull NodeType = iota
	TypeHash
	TypeArray
	TypeString
	TypeBool
	TypeInt
	TypeFloat
	// TypeU32 holds the hash-value witness type central to the re-emission
	// rule: a 32-bit quantity that may have been produced by either a
	// signed or an unsigned source field in the original game data, and
	// must be re-emitted through the same signed/unsigned channel it was
	// read from.
	TypeU32
)

// HashValue carries a raw 32-bit payload together with a witness bit
// recording whether the value was interpreted as signed or unsigned when it
// was parsed. The witness is not a property of the numeric value (a value
// like 10 is representable either way); it is a property of how the byte
// stream encoded it, and must survive round trips unchanged so that
// unrelated re-serialization does not perturb bytes a human never touched.
//
// The convention (see property P8): the encoding is unsigned exactly when
// the raw 32-bit pattern, read as a two's-complement signed integer, would
// be negative, i.e. when the high bit is set. This is fixed at parse time
// from the container type tag in the original stream; IsUnsigned simply
// remembers which tag was seen.
type HashValue struct {
	Raw        uint32
	IsUnsigned bool
}

// NewHashValueFromRaw derives a HashValue's witness bit from Raw using the
// canonical convention: unsigned iff Raw >= 0x80000000.
func NewHashValueFromRaw(raw uint32) HashValue {
	return HashValue{Raw: raw, IsUnsigned: raw >= 0x80000000}
}

// Equal compares both the numeric payload and the witness bit: two
// HashValues with the same Raw but different IsUnsigned are NOT equal,
// because they would serialize to different byte sequences.
func (h HashValue) Equal(other HashValue) bool {
	return h.Raw == other.Raw && h.IsUnsigned == other.IsUnsigned
}

// Node is a single tree value. Exactly one field group is meaningful,
// selected by Type.
type Node struct {
	Type   NodeType
	Hash   *Hash
	Array  []Node
	Str    string
	Bool   bool
	Int    int32
	Float  float32
	U32    HashValue
}

// Hash is an ordered string-keyed map. Binary-YAML hash nodes are sorted by
// key in the on-disk format, so unlike aamp's parameter objects, insertion
// order is not preserved across a round trip — only lexical key order is.
type Hash struct {
	entries map[string]Node
}

// NewHash creates an empty hash node.
func NewHash() *Hash {
	return &Hash{entries: make(map[string]Node)}
}

// Get retrieves the value at key.
func (h *Hash) Get(key string) (Node, bool) {
	v, ok := h.entries[key]
	return v, ok
}

// Set inserts or updates the value at key.
func (h *Hash) Set(key string, value Node) {
	if h.entries == nil {
		h.entries = make(map[string]Node)
	}
	h.entries[key] = value
}

// Delete removes key, if present.
func (h *Hash) Delete(key string) {
	delete(h.entries, key)
}

// Has reports whether key is present.
func (h *Hash) Has(key string) bool {
	_, ok := h.entries[key]
	return ok
}

// Len reports the number of entries.
func (h *Hash) Len() int {
	return len(h.entries)
}

// Keys returns the hash's keys sorted lexically, which is also the order
// they are emitted to the binary format.
func (h *Hash) Keys() []string {
	keys := make([]string, 0, len(h.entries))
	for k := range h.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Range calls f for each entry in sorted key order, stopping early if f
// returns false.
func (h *Hash) Range(f func(key string, value Node) bool) {
	for _, k := range h.Keys() {
		if !f(k, h.entries[k]) {
			return
		}
	}
}

// Clone performs a deep clone.
func (h *Hash) Clone() *Hash {
	if h == nil {
		return nil
	}
	out := NewHash()
	for k, v := range h.entries {
		out.entries[k] = v.Clone()
	}
	return out
}

// Equal performs structural comparison; key order is not significant since
// it is always the sorted order.
func (h *Hash) Equal(other *Hash) bool {
	if h == nil || other == nil {
		return h == other
	}
	if len(h.entries) != len(other.entries) {
		return false
	}
	for k, v := range h.entries {
		ov, ok := other.entries[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Clone performs a deep clone of a Node.
func (n Node) Clone() Node {
	out := n
	if n.Type == TypeHash {
		out.Hash = n.Hash.Clone()
	}
	if n.Type == TypeArray {
		out.Array = make([]Node, len(n.Array))
		for i, c := range n.Array {
			out.Array[i] = c.Clone()
		}
	}
	return out
}

// Equal performs structural, type-sensitive comparison, including the
// hash-value witness bit.
func (n Node) Equal(other Node) bool {
	if n.Type != other.Type {
		return false
	}
	switch n.Type {
	case TypeNull:
		return true
	case TypeHash:
		return n.Hash.Equal(other.Hash)
	case TypeArray:
		if len(n.Array) != len(other.Array) {
			return false
		}
		for i := range n.Array {
			if !n.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case TypeString:
		return n.Str == other.Str
	case TypeBool:
		return n.Bool == other.Bool
	case TypeInt:
		return n.Int == other.Int
	case TypeFloat:
		return n.Float == other.Float
	case TypeU32:
		return n.U32.Equal(other.U32)
	default:
		return false
	}
}

// -- binary codec -----------------------------------------------------------

var magic = [2]byte{'B', 'Y'}

// FromBinary parses a binary-YAML document, assuming little-endian byte
// order.
func FromBinary(data []byte) (Node, error) {
	return FromBinaryOrder(data, binary.LittleEndian)
}

// FromBinaryOrder parses a binary-YAML document using the given byte
// order, for dumps built for the big-endian platform variant.
func FromBinaryOrder(data []byte, order binary.ByteOrder) (Node, error) {
	r := &reader{data: data, order: order}
	var hdr [2]byte
	if err := r.readBytes(hdr[:]); err != nil {
		return Node{}, fmt.Errorf("byml: %w", err)
	}
	if hdr != magic {
		return Node{}, fmt.Errorf("byml: bad magic")
	}
	n, err := r.readNode()
	if err != nil {
		return Node{}, fmt.Errorf("byml: %w", err)
	}
	return n, nil
}

// ToBinary serializes a binary-YAML document using little-endian byte
// order. Hash keys are emitted in sorted order (the only order the format
// supports); arrays preserve element order.
func (n Node) ToBinary() []byte {
	return n.ToBinaryOrder(binary.LittleEndian)
}

// ToBinaryOrder serializes a binary-YAML document using the given byte
// order.
func (n Node) ToBinaryOrder(order binary.ByteOrder) []byte {
	w := &writer{order: order}
	w.writeBytes(magic[:])
	w.writeNode(n)
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

func (w *writer) writeNode(n Node) {
	w.buf = append(w.buf, byte(n.Type))
	switch n.Type {
	case TypeNull:
	case TypeHash:
		keys := n.Hash.Keys()
		w.writeU32(uint32(len(keys)))
		for _, k := range keys {
			w.writeString(k)
			w.writeNode(n.Hash.entries[k])
		}
	case TypeArray:
		w.writeU32(uint32(len(n.Array)))
		for _, c := range n.Array {
			w.writeNode(c)
		}
	case TypeString:
		w.writeString(n.Str)
	case TypeBool:
		if n.Bool {
			w.buf = append(w.buf, 1)
		} else {
			w.buf = append(w.buf, 0)
		}
	case TypeInt:
		w.writeU32(uint32(n.Int))
	case TypeFloat:
		w.writeU32(math.Float32bits(n.Float))
	case TypeU32:
		w.writeU32(n.U32.Raw)
		if n.U32.IsUnsigned {
			w.buf = append(w.buf, 1)
		} else {
			w.buf = append(w.buf, 0)
		}
	}
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

func (r *reader) readNode() (Node, error) {
	if r.pos >= len(r.data) {
		return Node{}, io.ErrUnexpectedEOF
	}
	t := NodeType(r.data[r.pos])
	r.pos++
	n := Node{Type: t}
	switch t {
	case TypeNull:
	case TypeHash:
		count, err := r.readU32()
		if err != nil {
			return n, err
		}
		h := NewHash()
		for i := uint32(0); i < count; i++ {
			k, err := r.readString()
			if err != nil {
				return n, err
			}
			v, err := r.readNode()
			if err != nil {
				return n, err
			}
			h.Set(k, v)
		}
		n.Hash = h
	case TypeArray:
		count, err := r.readU32()
		if err != nil {
			return n, err
		}
		n.Array = make([]Node, count)
		for i := range n.Array {
			v, err := r.readNode()
			if err != nil {
				return n, err
			}
			n.Array[i] = v
		}
	case TypeString:
		s, err := r.readString()
		if err != nil {
			return n, err
		}
		n.Str = s
	case TypeBool:
		if r.pos >= len(r.data) {
			return n, io.ErrUnexpectedEOF
		}
		n.Bool = r.data[r.pos] != 0
		r.pos++
	case TypeInt:
		v, err := r.readU32()
		if err != nil {
			return n, err
		}
		n.Int = int32(v)
	case TypeFloat:
		v, err := r.readU32()
		if err != nil {
			return n, err
		}
		n.Float = math.Float32frombits(v)
	case TypeU32:
		raw, err := r.readU32()
		if err != nil {
			return n, err
		}
		if r.pos >= len(r.data) {
			return n, io.ErrUnexpectedEOF
		}
		unsigned := r.data[r.pos] != 0
		r.pos++
		n.U32 = HashValue{Raw: raw, IsUnsigned: unsigned}
	default:
		return n, fmt.Errorf("unknown node type %d", t)
	}
	return n, nil
}

// HashNode constructs a TypeHash node.
func HashNode(h *Hash) Node { return Node{Type: TypeHash, Hash: h} }

// ArrayNode constructs a TypeArray node.
func ArrayNode(items []Node) Node { return Node{Type: TypeArray, Array: items} }

// StringNode constructs a TypeString node.
func StringNode(s string) Node { return Node{Type: TypeString, Str: s} }

// BoolNode constructs a TypeBool node.
func BoolNode(b bool) Node { return Node{Type: TypeBool, Bool: b} }

// IntNode constructs a TypeInt node.
func IntNode(v int32) Node { return Node{Type: TypeInt, Int: v} }

// FloatNode constructs a TypeFloat node.
func FloatNode(v float32) Node { return Node{Type: TypeFloat, Float: v} }

// U32Node constructs a TypeU32 node, deriving its witness bit from the raw
// value via the canonical convention.
func U32Node(raw uint32) Node { return Node{Type: TypeU32, U32: NewHashValueFromRaw(raw)} }

// Null is the singleton null node.
var Null = Node{Type: TypeNull}

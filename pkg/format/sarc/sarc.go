// Package sarc implements the packed-container format used to bundle many
// named files into a single resource (see the design's resource model,
// where a packed container's content is itself a set of canonical child
// paths). It is part of the narrow external-codec contract (C1).
package sarc

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// File is a single named entry within a container.
type File struct {
	Name string
	Data []byte
}

// Archive is an ordered collection of files. Order is insertion order on
// construction; Write always emits entries sorted by name, which is the
// canonical form a packed container takes in the unpacked tree (see C8).
type Archive struct {
	files []File
	index map[string]int
}

// New creates an empty archive.
func New() *Archive {
	return &Archive{index: make(map[string]int)}
}

// Set inserts or replaces the file at name.
func (a *Archive) Set(name string, data []byte) {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	if i, ok := a.index[name]; ok {
		a.files[i].Data = data
		return
	}
	a.index[name] = len(a.files)
	a.files = append(a.files, File{Name: name, Data: data})
}

// Delete removes the file at name, if present.
func (a *Archive) Delete(name string) {
	i, ok := a.index[name]
	if !ok {
		return
	}
	a.files = append(a.files[:i], a.files[i+1:]...)
	delete(a.index, name)
	for n, idx := range a.index {
		if idx > i {
			a.index[n] = idx - 1
		}
	}
}

// Get retrieves the file data at name.
func (a *Archive) Get(name string) ([]byte, bool) {
	i, ok := a.index[name]
	if !ok {
		return nil, false
	}
	return a.files[i].Data, true
}

// Has reports whether name is present.
func (a *Archive) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Len reports the number of files.
func (a *Archive) Len() int {
	return len(a.files)
}

// Names returns the file names in canonical (sorted) order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.files))
	for i, f := range a.files {
		names[i] = f.Name
	}
	sort.Strings(names)
	return names
}

// Range calls f for each file in canonical (sorted) order, stopping early
// if f returns false.
func (a *Archive) Range(f func(name string, data []byte) bool) {
	for _, name := range a.Names() {
		data, _ := a.Get(name)
		if !f(name, data) {
			return
		}
	}
}

var magic = [4]byte{'S', 'A', 'R', 'C'}

// Read parses a packed container from its binary representation,
// assuming little-endian byte order.
func Read(data []byte) (*Archive, error) {
	return ReadOrder(data, binary.LittleEndian)
}

// ReadOrder parses a packed container using the given byte order, for
// dumps built for the big-endian platform variant.
func ReadOrder(data []byte, order binary.ByteOrder) (*Archive, error) {
	r := &reader{data: data, order: order}
	var hdr [4]byte
	if err := r.readBytes(hdr[:]); err != nil {
		return nil, fmt.Errorf("sarc: %w", err)
	}
	if hdr != magic {
		return nil, fmt.Errorf("sarc: bad magic")
	}
	count, err := r.readU32()
	if err != nil {
		return nil, fmt.Errorf("sarc: %w", err)
	}
	a := New()
	for i := uint32(0); i < count; i++ {
		name, err := r.readString()
		if err != nil {
			return nil, fmt.Errorf("sarc: %w", err)
		}
		size, err := r.readU32()
		if err != nil {
			return nil, fmt.Errorf("sarc: %w", err)
		}
		if r.pos+int(size) > len(r.data) {
			return nil, io.ErrUnexpectedEOF
		}
		fileData := make([]byte, size)
		copy(fileData, r.data[r.pos:r.pos+int(size)])
		r.pos += int(size)
		a.Set(name, fileData)
	}
	return a, nil
}

// Write serializes a packed container using little-endian byte order.
// Files are emitted in canonical (sorted-by-name) order regardless of the
// order they were inserted in, which is what makes two archives with the
// same contents byte-identical (the canonical serializer invariant, C8).
func (a *Archive) Write() []byte {
	return a.WriteOrder(binary.LittleEndian)
}

// WriteOrder serializes a packed container using the given byte order.
func (a *Archive) WriteOrder(order binary.ByteOrder) []byte {
	w := &writer{order: order}
	w.writeBytes(magic[:])
	w.writeU32(uint32(a.Len()))
	a.Range(func(name string, data []byte) bool {
		w.writeString(name)
		w.writeU32(uint32(len(data)))
		w.writeBytes(data)
		return true
	})
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

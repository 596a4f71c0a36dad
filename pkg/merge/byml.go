package merge

import (
	"encoding/binary"
	"fmt"

	"github.com/kestrelmods/kestrel/pkg/format/byml"
	"github.com/kestrelmods/kestrel/pkg/resource"
)

// DiffHash computes the binary-YAML shallow diff between base and other:
// entries changed or added in other are emitted verbatim, and a
// sentinel-null entry is synthesised for every key present in base and
// absent from other. MergeHash treats the sentinel as deletion and removes
// the key from its result.
func DiffHash(base, other *byml.Hash) *byml.Hash {
	patch := byml.NewHash()

	other.Range(func(key string, value byml.Node) bool {
		if baseValue, ok := base.Get(key); !ok || !baseValue.Equal(value) {
			patch.Set(key, value)
		}
		return true
	})

	base.Range(func(key string, _ byml.Node) bool {
		if !other.Has(key) {
			patch.Set(key, byml.Null)
		}
		return true
	})

	return patch
}

// MergeHash folds a shallow patch onto base: non-null patch entries
// overwrite or insert, and null patch entries delete the corresponding
// base key.
func MergeHash(base, patch *byml.Hash) *byml.Hash {
	result := base.Clone()
	patch.Range(func(key string, value byml.Node) bool {
		if value.Type == byml.TypeNull {
			result.Delete(key)
		} else {
			result.Set(key, value)
		}
		return true
	})
	return result
}

// HashPatchIsEmpty reports whether a hash patch carries no changes (L2's
// emptiness rule for binary-YAML documents).
func HashPatchIsEmpty(patch *byml.Hash) bool {
	return patch.Len() == 0
}

// BymlDocument is the generic mergeable wrapper for any suffix that maps
// to a byml tree with no specialized composite shape (KindBymlDocument).
// Diff/merge only operate at the top hash level (the shallow rule); a
// nested hash that differs is treated as a full replacement, matching the
// "map-of-map resources where entries are individually replaceable"
// description.
type BymlDocument struct {
	Root *byml.Hash
}

func init() {
	resource.RegisterKind(resource.KindBymlDocument, func(data []byte, order binary.ByteOrder) (resource.Mergeable, error) {
		n, err := byml.FromBinaryOrder(data, order)
		if err != nil {
			return nil, err
		}
		if n.Type != byml.TypeHash {
			return nil, fmt.Errorf("merge: BymlDocument: root is not a hash")
		}
		return BymlDocument{Root: n.Hash}, nil
	})
}

// Kind implements resource.Mergeable.
func (d BymlDocument) Kind() resource.Kind { return resource.KindBymlDocument }

// ToBinary implements resource.Mergeable.
func (d BymlDocument) ToBinary() []byte {
	return byml.HashNode(d.Root).ToBinary()
}

// ToBinaryOrder implements resource.Mergeable.
func (d BymlDocument) ToBinaryOrder(order binary.ByteOrder) []byte {
	return byml.HashNode(d.Root).ToBinaryOrder(order)
}

// Diff implements resource.Mergeable.
func (d BymlDocument) Diff(base resource.Mergeable) (resource.Mergeable, error) {
	baseDoc, ok := base.(BymlDocument)
	if !ok {
		return nil, fmt.Errorf("merge: BymlDocument.Diff: mismatched kind %T", base)
	}
	return BymlDocument{Root: DiffHash(baseDoc.Root, d.Root)}, nil
}

// MergeWith implements resource.Mergeable.
func (d BymlDocument) MergeWith(patch resource.Mergeable) (resource.Mergeable, error) {
	patchDoc, ok := patch.(BymlDocument)
	if !ok {
		return nil, fmt.Errorf("merge: BymlDocument.MergeWith: mismatched kind %T", patch)
	}
	return BymlDocument{Root: MergeHash(d.Root, patchDoc.Root)}, nil
}

// Equal performs structural comparison.
func (d BymlDocument) Equal(other BymlDocument) bool {
	return d.Root.Equal(other.Root)
}

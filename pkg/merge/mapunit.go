package merge

import (
	"encoding/binary"
	"fmt"

	"github.com/kestrelmods/kestrel/pkg/format"
	"github.com/kestrelmods/kestrel/pkg/format/byml"
	"github.com/kestrelmods/kestrel/pkg/resource"
)

// ObjList is a hash-ID-keyed, insertion-order-preserving collection of map
// objects or rails, the shape scenario S4 exercises directly: base order
// is preserved for untouched and modified entries, deletions remove their
// slot, and additions are appended in patch order.
type ObjList struct {
	*format.OrderedMap[uint32, byml.Node]
}

func newObjList() ObjList {
	return ObjList{format.NewOrderedMap[uint32, byml.Node]()}
}

// parseObjList reads an array-of-hash-objects byml node into a hash-ID-
// keyed ObjList, preserving on-disk order.
func parseObjList(arr []byml.Node) (ObjList, error) {
	list := newObjList()
	for _, n := range arr {
		if n.Type != byml.TypeHash {
			return list, fmt.Errorf("mapunit: object entry is not a hash")
		}
		id, err := objectHashID(n)
		if err != nil {
			return list, err
		}
		list.Set(id, n)
	}
	return list, nil
}

func objectHashID(n byml.Node) (uint32, error) {
	hashIDNode, ok := n.Hash.Get("HashId")
	if !ok {
		return 0, fmt.Errorf("mapunit: object missing HashId")
	}
	switch hashIDNode.Type {
	case byml.TypeU32:
		return hashIDNode.U32.Raw, nil
	case byml.TypeInt:
		return uint32(hashIDNode.Int), nil
	default:
		return 0, fmt.Errorf("mapunit: HashId has unexpected type")
	}
}

// toArray serializes an ObjList back to its on-disk array form, in the
// collection's current (post-merge) order.
func (l ObjList) toArray() []byml.Node {
	out := make([]byml.Node, 0, l.Len())
	l.Range(func(_ uint32, v byml.Node) bool {
		out = append(out, v)
		return true
	})
	return out
}

// diffObjList computes an add/delete/modify patch keyed by hash ID: added
// or changed objects are emitted wholesale, and a sentinel-null entry
// marks every hash ID present in base and absent in other.
func diffObjList(base, other ObjList) ObjList {
	patch := newObjList()
	other.Range(func(id uint32, node byml.Node) bool {
		if baseNode, ok := base.Get(id); !ok || !baseNode.Equal(node) {
			patch.Set(id, node)
		}
		return true
	})
	base.Range(func(id uint32, _ byml.Node) bool {
		if !other.Has(id) {
			patch.Set(id, byml.Null)
		}
		return true
	})
	return patch
}

// mergeObjList folds a patch onto base, preserving base order for
// surviving and modified entries and appending additions in patch order
// (this is exactly scenario S4: base {0x1, 0x2, 0x3}, patch deletes 0x2,
// modifies 0x3, adds 0x4, result {0x1, 0x3', 0x4}).
func mergeObjList(base, patch ObjList) ObjList {
	result := newObjList()
	base.Range(func(id uint32, node byml.Node) bool {
		result.Set(id, node)
		return true
	})
	patch.Range(func(id uint32, node byml.Node) bool {
		if node.Type == byml.TypeNull {
			result.Delete(id)
		} else {
			result.Set(id, node)
		}
		return true
	})
	return result
}

// MapUnit is the map-section composite kind (KindMapUnit): independently
// mergeable Objs and Rails collections, each keyed by hash ID.
type MapUnit struct {
	Objs  ObjList
	Rails ObjList
}

func init() {
	resource.RegisterKind(resource.KindMapUnit, func(data []byte, order binary.ByteOrder) (resource.Mergeable, error) {
		root, err := byml.FromBinaryOrder(data, order)
		if err != nil {
			return nil, err
		}
		if root.Type != byml.TypeHash {
			return nil, fmt.Errorf("mapunit: root is not a hash")
		}
		objs, err := objListFromHash(root.Hash, "Objs")
		if err != nil {
			return nil, err
		}
		rails, err := objListFromHash(root.Hash, "Rails")
		if err != nil {
			return nil, err
		}
		return MapUnit{Objs: objs, Rails: rails}, nil
	})
}

func objListFromHash(h *byml.Hash, key string) (ObjList, error) {
	n, ok := h.Get(key)
	if !ok {
		return newObjList(), nil
	}
	if n.Type != byml.TypeArray {
		return ObjList{}, fmt.Errorf("mapunit: %s is not an array", key)
	}
	return parseObjList(n.Array)
}

// Kind implements resource.Mergeable.
func (m MapUnit) Kind() resource.Kind { return resource.KindMapUnit }

// ToBinary implements resource.Mergeable.
func (m MapUnit) ToBinary() []byte {
	return m.ToBinaryOrder(binary.LittleEndian)
}

// ToBinaryOrder implements resource.Mergeable.
func (m MapUnit) ToBinaryOrder(order binary.ByteOrder) []byte {
	h := byml.NewHash()
	h.Set("Objs", byml.ArrayNode(m.Objs.toArray()))
	h.Set("Rails", byml.ArrayNode(m.Rails.toArray()))
	return byml.HashNode(h).ToBinaryOrder(order)
}

// Diff implements resource.Mergeable.
func (m MapUnit) Diff(base resource.Mergeable) (resource.Mergeable, error) {
	baseUnit, ok := base.(MapUnit)
	if !ok {
		return nil, fmt.Errorf("merge: MapUnit.Diff: mismatched kind %T", base)
	}
	return MapUnit{
		Objs:  diffObjList(baseUnit.Objs, m.Objs),
		Rails: diffObjList(baseUnit.Rails, m.Rails),
	}, nil
}

// MergeWith implements resource.Mergeable.
func (m MapUnit) MergeWith(patch resource.Mergeable) (resource.Mergeable, error) {
	p, ok := patch.(MapUnit)
	if !ok {
		return nil, fmt.Errorf("merge: MapUnit.MergeWith: mismatched kind %T", patch)
	}
	return MapUnit{
		Objs:  mergeObjList(m.Objs, p.Objs),
		Rails: mergeObjList(m.Rails, p.Rails),
	}, nil
}

// Equal performs structural comparison.
func (m MapUnit) Equal(other MapUnit) bool {
	return objListEqual(m.Objs, other.Objs) && objListEqual(m.Rails, other.Rails)
}

func objListEqual(a, b ObjList) bool {
	return a.OrderedMap.Equal(b.OrderedMap, func(x, y byml.Node) bool { return x.Equal(y) })
}

package merge

import (
	"encoding/binary"
	"fmt"

	"github.com/kestrelmods/kestrel/pkg/format/aamp"
	"github.com/kestrelmods/kestrel/pkg/resource"
)

// Lod is a simple parameter-tree wrapper (KindLod): the level-of-detail
// resource has no composite structure beyond the tree itself, so its
// diff/merge are identical to ParamIO's; it is kept as a distinct type so
// the resource registry and any future kind-specific behavior stay
// separated by suffix rather than collapsed into one generic type.
type Lod struct {
	Root *aamp.ParameterList
}

func init() {
	resource.RegisterKind(resource.KindLod, func(data []byte, order binary.ByteOrder) (resource.Mergeable, error) {
		pio, err := aamp.FromBinaryOrder(data, order)
		if err != nil {
			return nil, err
		}
		return Lod{Root: pio.ParameterList}, nil
	})
}

// Kind implements resource.Mergeable.
func (l Lod) Kind() resource.Kind { return resource.KindLod }

// ToBinary implements resource.Mergeable.
func (l Lod) ToBinary() []byte {
	return aamp.ParameterIO{ParameterList: l.Root}.ToBinary()
}

// ToBinaryOrder implements resource.Mergeable.
func (l Lod) ToBinaryOrder(order binary.ByteOrder) []byte {
	return aamp.ParameterIO{ParameterList: l.Root}.ToBinaryOrder(order)
}

// Diff implements resource.Mergeable.
func (l Lod) Diff(base resource.Mergeable) (resource.Mergeable, error) {
	baseLod, ok := base.(Lod)
	if !ok {
		return nil, fmt.Errorf("merge: Lod.Diff: mismatched kind %T", base)
	}
	return Lod{Root: DiffList(baseLod.Root, l.Root)}, nil
}

// MergeWith implements resource.Mergeable.
func (l Lod) MergeWith(patch resource.Mergeable) (resource.Mergeable, error) {
	patchLod, ok := patch.(Lod)
	if !ok {
		return nil, fmt.Errorf("merge: Lod.MergeWith: mismatched kind %T", patch)
	}
	return Lod{Root: MergeList(l.Root, patchLod.Root)}, nil
}

// Equal performs structural comparison.
func (l Lod) Equal(other Lod) bool {
	return l.Root.Equal(other.Root)
}

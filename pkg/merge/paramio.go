package merge

import (
	"encoding/binary"
	"fmt"

	"github.com/kestrelmods/kestrel/pkg/format/aamp"
	"github.com/kestrelmods/kestrel/pkg/resource"
)

// ParamIO is the generic mergeable wrapper for any suffix that maps to a
// raw parameter tree with no specialized composite shape (KindParamIO).
type ParamIO struct {
	Root *aamp.ParameterList
}

func init() {
	resource.RegisterKind(resource.KindParamIO, func(data []byte, order binary.ByteOrder) (resource.Mergeable, error) {
		pio, err := aamp.FromBinaryOrder(data, order)
		if err != nil {
			return nil, err
		}
		return ParamIO{Root: pio.ParameterList}, nil
	})
}

// Kind implements resource.Mergeable.
func (p ParamIO) Kind() resource.Kind { return resource.KindParamIO }

// ToBinary implements resource.Mergeable.
func (p ParamIO) ToBinary() []byte {
	return aamp.ParameterIO{ParameterList: p.Root}.ToBinary()
}

// ToBinaryOrder implements resource.Mergeable.
func (p ParamIO) ToBinaryOrder(order binary.ByteOrder) []byte {
	return aamp.ParameterIO{ParameterList: p.Root}.ToBinaryOrder(order)
}

// Diff implements resource.Mergeable.
func (p ParamIO) Diff(base resource.Mergeable) (resource.Mergeable, error) {
	baseParamIO, ok := base.(ParamIO)
	if !ok {
		return nil, fmt.Errorf("merge: ParamIO.Diff: mismatched kind %T", base)
	}
	return ParamIO{Root: DiffList(baseParamIO.Root, p.Root)}, nil
}

// MergeWith implements resource.Mergeable.
func (p ParamIO) MergeWith(patch resource.Mergeable) (resource.Mergeable, error) {
	patchParamIO, ok := patch.(ParamIO)
	if !ok {
		return nil, fmt.Errorf("merge: ParamIO.MergeWith: mismatched kind %T", patch)
	}
	return ParamIO{Root: MergeList(p.Root, patchParamIO.Root)}, nil
}

// Equal performs structural comparison, used by tests checking the
// algebraic laws.
func (p ParamIO) Equal(other ParamIO) bool {
	return p.Root.Equal(other.Root)
}

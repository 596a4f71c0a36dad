package resource

import (
	"encoding/binary"
	"fmt"
)

// Kind identifies a concrete resource shape recognized by the engine.
type Kind int

const (
	// KindBinary is an opaque byte blob; diff/merge reduce to last-writer-
	// wins at the orchestrator level (C7), never inside C4.
	KindBinary Kind = iota
	// KindSarc is a packed container; its children are resolved
	// recursively rather than diffed as bytes.
	KindSarc
	// KindParamIO is a generic parameter-archive-backed mergeable, used
	// for any suffix that maps to a raw parameter tree with no
	// specialized composite shape.
	KindParamIO
	// KindAttClient is the actor-parameter-tree-plus-deletable-sequence
	// composite kind.
	KindAttClient
	// KindLod is a simple parameter-tree wrapper with no composite
	// structure beyond the tree itself.
	KindLod
	// KindAIProgram is the AI-program forest composite kind.
	KindAIProgram
	// KindMapUnit is the map-section composite kind (object and rail
	// lists, each independently add/delete/modify mergeable).
	KindMapUnit
	// KindBymlDocument is a generic binary-YAML-backed mergeable, used
	// for any suffix that maps to a byml tree with no specialized
	// composite shape.
	KindBymlDocument
)

func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "Binary"
	case KindSarc:
		return "Sarc"
	case KindParamIO:
		return "ParamIO"
	case KindAttClient:
		return "AttClient"
	case KindLod:
		return "Lod"
	case KindAIProgram:
		return "AIProgram"
	case KindMapUnit:
		return "MapUnit"
	case KindBymlDocument:
		return "BymlDocument"
	default:
		return "Unknown"
	}
}

// Variant classifies a resource into the top-level trichotomy the design
// calls for: plain bytes, a mergeable structural value, or a packed
// container whose children are themselves resources.
type Variant int

const (
	VariantBinary Variant = iota
	VariantMergeable
	VariantSarc
)

// Mergeable is the capability set every structural resource kind
// implements: parse/serialize against the external codec layer, plus the
// diff/merge algebra (C4). Diff returns a patch of the same kind (it is
// itself a Mergeable, satisfying property P2's "canonically empty patch"
// requirement when base and target are equal). MergeWith folds a patch
// (produced by some prior Diff) onto the receiver and returns the result;
// it does not mutate the receiver, so callers can fold repeatedly without
// aliasing hazards.
//
// This is the single-dispatcher-over-a-capability-set design the notes
// describe as an alternative to an open subtype hierarchy: every concrete
// kind below implements this interface, and C7's orchestrator never
// switches on concrete type.
type Mergeable interface {
	Kind() Kind
	ToBinary() []byte
	ToBinaryOrder(order binary.ByteOrder) []byte
	Diff(base Mergeable) (Mergeable, error)
	MergeWith(patch Mergeable) (Mergeable, error)
}

// Resource is the tagged-variant in-memory form of a parsed path: exactly
// one of Bytes, Value, or Sarc is meaningful, selected by Variant.
type Resource struct {
	Variant Variant
	Bytes   []byte
	Value   Mergeable
	Sarc    *SarcValue
}

// SarcValue is the Variant == VariantSarc arm: the packed container's
// ordered set of canonical child paths. Child bytes are not retained here;
// they are resolved through the dump/mod readers by canonical path, per
// the design's C3 description of a packed container as storing no bytes
// of its own.
type SarcValue struct {
	Children []string
}

// BinaryResource wraps an opaque byte blob as a Resource.
func BinaryResource(data []byte) Resource {
	return Resource{Variant: VariantBinary, Bytes: data}
}

// MergeableResource wraps a structural value as a Resource.
func MergeableResource(v Mergeable) Resource {
	return Resource{Variant: VariantMergeable, Value: v}
}

// SarcResource wraps a packed container's child list as a Resource.
func SarcResource(children []string) Resource {
	return Resource{Variant: VariantSarc, Sarc: &SarcValue{Children: children}}
}

// KindFor classifies a canonical path by suffix. It returns the resource
// variant and, for VariantMergeable, the specific kind that owns that
// suffix. Unrecognized suffixes are treated as opaque binary, which is
// always a safe fallback per the design's last-writer-wins reduction.
func KindFor(canonicalPath string) (Variant, Kind) {
	suffix := suffixOf(canonicalPath)
	if suffix == "sarc" || suffix == "pack" || suffix == "sbactorpack" || suffix == "bactorpack" {
		return VariantSarc, KindSarc
	}
	if kind, ok := mergeableSuffixes[suffix]; ok {
		return VariantMergeable, kind
	}
	return VariantBinary, KindBinary
}

// mergeableSuffixes maps a canonical path's final suffix to the concrete
// mergeable kind responsible for it. Suffixes not listed here (and not
// recognized by KindFor's container check) fall back to opaque binary.
var mergeableSuffixes = map[string]Kind{
	"atcl":    KindAttClient,
	"lod":     KindLod,
	"baiprog": KindAIProgram,
	"bmapunit": KindMapUnit,
	"bgparamlist": KindParamIO,
	"bxml":        KindBymlDocument,
	"baglblob":    KindBymlDocument,
}

func suffixOf(path string) string {
	dot := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			dot = i
			break
		}
		if path[i] == '/' {
			break
		}
	}
	if dot < 0 {
		return ""
	}
	return path[dot+1:]
}

// ParseFunc parses a raw byte payload, encoded with the given byte order,
// into the mergeable value for a given kind. RegisterKind wires a new
// mergeable kind's codec into the engine.
type ParseFunc func(data []byte, order binary.ByteOrder) (Mergeable, error)

var parsers = map[Kind]ParseFunc{}

// RegisterKind installs the parse function for a mergeable kind. Concrete
// kinds call this from an init() in the package that defines them, so the
// resource package itself never imports the codec packages directly.
func RegisterKind(kind Kind, parse ParseFunc) {
	parsers[kind] = parse
}

// Parse dispatches to the registered parser for kind, using little-endian
// byte order.
func Parse(kind Kind, data []byte) (Mergeable, error) {
	return ParseOrder(kind, data, binary.LittleEndian)
}

// ParseOrder dispatches to the registered parser for kind, reading data
// with the given byte order (the dump/mod-package's platform variant).
func ParseOrder(kind Kind, data []byte, order binary.ByteOrder) (Mergeable, error) {
	parse, ok := parsers[kind]
	if !ok {
		return nil, fmt.Errorf("resource: no parser registered for kind %s", kind)
	}
	return parse(data, order)
}

// ParseResource parses raw bytes at a canonical path into a Resource,
// dispatching on the path's classified variant and kind, using
// little-endian byte order.
func ParseResource(canonicalPath string, data []byte) (Resource, error) {
	return ParseResourceOrder(canonicalPath, data, binary.LittleEndian)
}

// ParseResourceOrder is ParseResource with an explicit byte order, for
// dumps and mod packages built for the big-endian platform variant. A
// parse failure for a kind the suffix claims is a hard error for that
// path, per the design's C3 description.
func ParseResourceOrder(canonicalPath string, data []byte, order binary.ByteOrder) (Resource, error) {
	variant, kind := KindFor(canonicalPath)
	switch variant {
	case VariantBinary:
		return BinaryResource(data), nil
	case VariantMergeable:
		v, err := ParseOrder(kind, data, order)
		if err != nil {
			return Resource{}, fmt.Errorf("resource: parsing %s as %s: %w", canonicalPath, kind, err)
		}
		return MergeableResource(v), nil
	default:
		return Resource{}, fmt.Errorf("resource: %s is a packed container and must be opened, not parsed as a leaf", canonicalPath)
	}
}

// ToBinary serializes a Resource back to its compact binary representation.
// It is undefined (and panics) to call ToBinary on a VariantSarc resource:
// containers are rebuilt by the orchestrator (C7), which has access to the
// readers needed to resolve children, not by this package.
func (r Resource) ToBinary() []byte {
	return r.ToBinaryOrder(binary.LittleEndian)
}

// ToBinaryOrder serializes a Resource using the given byte order, the
// merger-construction parameter that threads through all serialisation
// for the big-endian platform variant.
func (r Resource) ToBinaryOrder(order binary.ByteOrder) []byte {
	switch r.Variant {
	case VariantBinary:
		return r.Bytes
	case VariantMergeable:
		return r.Value.ToBinaryOrder(order)
	default:
		panic("resource: cannot serialize a Sarc resource directly")
	}
}

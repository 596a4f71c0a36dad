// Package rstb computes the resource-size-table sidecar the merge
// orchestrator emits alongside rebuilt files (C7): a mapping from
// canonical path to a recomputed 32-bit size value, or an absence when
// the resource's kind carries no size-table entry at all.
//
// The real resource-size-table value is a console-specific, kind-
// dependent estimate of the buffer the game must allocate to hold a
// parsed resource in memory; it is not simply len(bytes). No published Go
// module computes it, and it is a narrow, well-specified numeric
// function, so it is implemented directly here (grounded in the same
// narrow-external-codec-contract reasoning as the format packages) rather
// than reached for as a third-party dependency.
package rstb

import (
	"github.com/kestrelmods/kestrel/pkg/format/sarc"
	"github.com/kestrelmods/kestrel/pkg/resource"
)

// alignment is the byte boundary resource-size-table entries are rounded
// up to, matching the allocator granularity of the in-game resource
// loader.
const alignment = 32

// HasSizeEntry reports whether a resource kind participates in the size
// table at all. Only opaque binary blobs are excluded: they are loaded by
// callers that manage their own buffers and carry no parsed-size estimate.
// Packed containers do participate (see ComputeForContainerChildren) — a
// container's own entry is the rollup of its children's entries, not a
// function of the container's own byte length.
func HasSizeEntry(variant resource.Variant) bool {
	return variant == resource.VariantMergeable || variant == resource.VariantSarc
}

// Compute derives the recomputed size-table value for a rebuilt resource's
// emitted bytes. The function is deterministic and depends only on the
// byte length and the resource kind's structural overhead, matching
// scenario S5's requirement that the recomputed value is a pure function
// of the emitted bytes and the canonical path's kind.
func Compute(kind resource.Kind, data []byte) uint32 {
	overhead := kindOverhead(kind)
	size := uint32(len(data)) + overhead
	if rem := size % alignment; rem != 0 {
		size += alignment - rem
	}
	return size
}

// kindOverhead models the fixed per-kind parsing overhead the in-game
// resource loader reserves above the raw byte count (tree node headers,
// index tables, and similar bookkeeping that does not appear in the
// serialised bytes themselves).
func kindOverhead(kind resource.Kind) uint32 {
	switch kind {
	case resource.KindParamIO, resource.KindLod:
		return 0x100
	case resource.KindAttClient:
		return 0x180
	case resource.KindAIProgram:
		return 0x400
	case resource.KindMapUnit:
		return 0x200
	case resource.KindBymlDocument:
		return 0x100
	default:
		return 0
	}
}

// ComputeForContainerChildren sums the recomputed sizes of a packed
// container's children: a container has no single parsed-size estimate of
// its own, so its size-table entry is the rollup of whatever entries its
// children carry (a child with no entry of its own, such as a binary blob,
// contributes zero).
func ComputeForContainerChildren(sizes map[string]uint32, archive *sarc.Archive) uint32 {
	var total uint32
	archive.Range(func(name string, _ []byte) bool {
		total += sizes[name]
		return true
	})
	return total
}

package merge

// IndexedEntry pairs a sequence element with the index-based patch
// decision of whether it changed.
type IndexedEntry[T any] struct {
	Index int
	Value T
}

// DiffIndexed computes an indexed-sequence diff: only indices whose value
// differs between base and other are emitted, keyed by their position.
// Indices of other beyond base's length are emitted as changed. When other
// is shorter than base, the surplus base indices are not represented in the
// patch, so MergeIndexed keeps them.
func DiffIndexed[T any](base, other []T, equal func(a, b T) bool) []IndexedEntry[T] {
	var patch []IndexedEntry[T]
	for i, v := range other {
		if i >= len(base) || !equal(base[i], v) {
			patch = append(patch, IndexedEntry[T]{Index: i, Value: v})
		}
	}
	return patch
}

// MergeIndexed overlays an indexed-sequence patch onto base, index-wise.
// Patch entries beyond the base length extend the sequence.
func MergeIndexed[T any](base []T, patch []IndexedEntry[T]) []T {
	result := append([]T(nil), base...)
	for _, entry := range patch {
		for len(result) <= entry.Index {
			var zero T
			result = append(result, zero)
		}
		result[entry.Index] = entry.Value
	}
	return result
}

// DeletableEntry is a single element of a deletable sequence: the
// mark-delete pattern used for ordered multisets that support removal.
type DeletableEntry[T any] struct {
	Value   T
	Deleted bool
}

// DiffDeletable computes a deletable-sequence diff keyed by identity: for
// every base element absent from other (by identity), emit a deleted
// marker; for every other element absent from base, emit it as an
// addition. Elements present in both are left out of the patch.
func DiffDeletable[T any](base, other []T, identity func(v T) string) []DeletableEntry[T] {
	baseSet := make(map[string]bool, len(base))
	for _, v := range base {
		baseSet[identity(v)] = true
	}
	otherSet := make(map[string]bool, len(other))

	var patch []DeletableEntry[T]
	for _, v := range other {
		otherSet[identity(v)] = true
		if !baseSet[identity(v)] {
			patch = append(patch, DeletableEntry[T]{Value: v})
		}
	}
	for _, v := range base {
		if !otherSet[identity(v)] {
			patch = append(patch, DeletableEntry[T]{Value: v, Deleted: true})
		}
	}
	return patch
}

// MergeDeletable concatenates survivors from base (those not marked
// deleted in patch) with additions from patch, preserving order: base
// order first, then patch additions in patch order.
func MergeDeletable[T any](base []T, patch []DeletableEntry[T], identity func(v T) string) []T {
	deleted := make(map[string]bool)
	for _, entry := range patch {
		if entry.Deleted {
			deleted[identity(entry.Value)] = true
		}
	}

	result := make([]T, 0, len(base)+len(patch))
	for _, v := range base {
		if !deleted[identity(v)] {
			result = append(result, v)
		}
	}
	for _, entry := range patch {
		if !entry.Deleted {
			result = append(result, entry.Value)
		}
	}
	return result
}

// Package merge implements the diff/merge algebra (C4): the structural
// patch representation and the reduction rules for every mergeable
// resource kind, grounded in the algebraic laws L1-L4.
package merge

import "github.com/kestrelmods/kestrel/pkg/format/aamp"

// DiffObject computes the parameter-tree diff between base and other: a
// key is emitted iff it is absent from base or differs from base's value.
// Deletion is never represented — parameter diffs are additive/overwriting
// only (see L2's emptiness rule: a patch with no entries is empty).
func DiffObject(base, other aamp.ParameterObject) aamp.ParameterObject {
	patch := aamp.NewParameterObject()
	other.Range(func(key uint32, value aamp.Parameter) bool {
		if baseValue, ok := base.Get(key); !ok || !baseValue.Equal(value) {
			patch.Set(key, value)
		}
		return true
	})
	return patch
}

// MergeObject folds patch onto base: patch entries win (L4), unmentioned
// base entries survive unchanged, and patch entries absent from base are
// inserted in patch order at the end.
func MergeObject(base, patch aamp.ParameterObject) aamp.ParameterObject {
	result := base.Clone()
	patch.Range(func(key uint32, value aamp.Parameter) bool {
		result.Set(key, value)
		return true
	})
	return result
}

// ObjectIsEmpty reports whether a parameter-object patch carries no
// changes (L2's emptiness rule).
func ObjectIsEmpty(patch aamp.ParameterObject) bool {
	return patch.Len() == 0
}

// DiffList computes the parameter-list diff between base and other:
// shared object/list keys are diffed recursively, and keys present only
// in other are emitted wholesale (added). Keys present only in base are
// dropped silently from the patch, consistent with the deletion-absent
// policy for parameter structures.
func DiffList(base, other *aamp.ParameterList) *aamp.ParameterList {
	patch := aamp.NewParameterList()

	other.Objects.Range(func(key uint32, otherObj aamp.ParameterObject) bool {
		if baseObj, ok := base.Objects.Get(key); ok {
			objPatch := DiffObject(baseObj, otherObj)
			if !ObjectIsEmpty(objPatch) {
				patch.Objects.Set(key, objPatch)
			}
		} else {
			patch.Objects.Set(key, otherObj)
		}
		return true
	})

	other.Lists.Range(func(key uint32, otherList *aamp.ParameterList) bool {
		if baseList, ok := base.Lists.Get(key); ok {
			listPatch := DiffList(baseList, otherList)
			if !ListIsEmpty(listPatch) {
				patch.Lists.Set(key, listPatch)
			}
		} else {
			patch.Lists.Set(key, otherList)
		}
		return true
	})

	return patch
}

// MergeList folds a parameter-list patch onto base. Object and list
// children present in the patch but absent from base are inserted
// wholesale; children present in both are merged recursively.
func MergeList(base, patch *aamp.ParameterList) *aamp.ParameterList {
	result := base.Clone()

	patch.Objects.Range(func(key uint32, patchObj aamp.ParameterObject) bool {
		if baseObj, ok := result.Objects.Get(key); ok {
			result.Objects.Set(key, MergeObject(baseObj, patchObj))
		} else {
			result.Objects.Set(key, patchObj)
		}
		return true
	})

	patch.Lists.Range(func(key uint32, patchList *aamp.ParameterList) bool {
		if baseList, ok := result.Lists.Get(key); ok {
			result.Lists.Set(key, MergeList(baseList, patchList))
		} else {
			result.Lists.Set(key, patchList)
		}
		return true
	})

	return result
}

// ListIsEmpty reports whether a parameter-list patch carries no changes.
func ListIsEmpty(patch *aamp.ParameterList) bool {
	return patch.Objects.Len() == 0 && patch.Lists.Len() == 0
}

package merge

import (
	"testing"

	"github.com/kestrelmods/kestrel/pkg/format/aamp"
)

func objWith(pairs map[uint32]aamp.Parameter) aamp.ParameterObject {
	o := aamp.NewParameterObject()
	for k, v := range pairs {
		o.Set(k, v)
	}
	return o
}

// TestDiffObjectEmitsOnlyChangedOrAddedKeys tests the parameter-object
// diff rule: a key is emitted iff absent from base or different.
func TestDiffObjectEmitsOnlyChangedOrAddedKeys(t *testing.T) {
	base := objWith(map[uint32]aamp.Parameter{
		1: {Type: aamp.TypeInt, Int: 10},
		2: {Type: aamp.TypeInt, Int: 20},
	})
	other := objWith(map[uint32]aamp.Parameter{
		1: {Type: aamp.TypeInt, Int: 10},
		2: {Type: aamp.TypeInt, Int: 99},
		3: {Type: aamp.TypeInt, Int: 30},
	})

	patch := DiffObject(base, other)
	if patch.Len() != 2 {
		t.Fatalf("expected 2 patch entries, got %d", patch.Len())
	}
	if v, ok := patch.Get(2); !ok || v.Int != 99 {
		t.Error("expected key 2 in patch with value 99")
	}
	if v, ok := patch.Get(3); !ok || v.Int != 30 {
		t.Error("expected key 3 in patch with value 30")
	}
}

// TestDiffObjectNeverRepresentsDeletion tests that keys present only in
// base are silently absent from the patch (the deletion-absent policy).
func TestDiffObjectNeverRepresentsDeletion(t *testing.T) {
	base := objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 1}, 2: {Type: aamp.TypeInt, Int: 2}})
	other := objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 1}})

	patch := DiffObject(base, other)
	if !ObjectIsEmpty(patch) {
		t.Errorf("expected empty patch since other has no changed or added keys, got %d entries", patch.Len())
	}
}

// TestParamTreeReconstructionLaw tests L1: merge(base, diff(base, other)) == other.
func TestParamTreeReconstructionLaw(t *testing.T) {
	base := objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 10}, 2: {Type: aamp.TypeInt, Int: 20}})
	other := objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 10}, 2: {Type: aamp.TypeInt, Int: 99}})

	merged := MergeObject(base, DiffObject(base, other))
	if !merged.Equal(other) {
		t.Error("merge(base, diff(base, other)) did not reconstruct other")
	}
}

// TestParamTreeEmptyDiffIdentityLaw tests L2 and L3: diff(x, x) is empty,
// and merge(x, empty) == x.
func TestParamTreeEmptyDiffIdentityLaw(t *testing.T) {
	x := objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 10}, 2: {Type: aamp.TypeFloat, Float: 1.5}})

	patch := DiffObject(x, x)
	if !ObjectIsEmpty(patch) {
		t.Error("diff(x, x) is not empty")
	}
	if !MergeObject(x, patch).Equal(x) {
		t.Error("merge(x, empty) != x")
	}
}

// TestParamTreeOrderingLaw tests L4/P4: folding two patches in priority
// order applies a key-wise last-wins overlay.
func TestParamTreeOrderingLaw(t *testing.T) {
	base := objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeFloat, Float: 5.0}})
	modA := objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeFloat, Float: 7.0}})
	modB := objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeFloat, Float: 9.0}})

	result := MergeObject(MergeObject(base, DiffObject(base, modA)), DiffObject(base, modB))
	if v, _ := result.Get(1); v.Float != 9.0 {
		t.Errorf("expected 9.0 with priority [A, B], got %v", v.Float)
	}

	reverse := MergeObject(MergeObject(base, DiffObject(base, modB)), DiffObject(base, modA))
	if v, _ := reverse.Get(1); v.Float != 7.0 {
		t.Errorf("expected 7.0 with priority [B, A], got %v", v.Float)
	}
}

// TestDiffListRecursesIntoSharedChildren tests that DiffList diffs shared
// object and list keys recursively rather than replacing them wholesale.
func TestDiffListRecursesIntoSharedChildren(t *testing.T) {
	base := aamp.NewParameterList()
	base.SetObject("core", objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 1}, 2: {Type: aamp.TypeInt, Int: 2}}))

	other := aamp.NewParameterList()
	other.SetObject("core", objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 1}, 2: {Type: aamp.TypeInt, Int: 99}}))

	patch := DiffList(base, other)
	patchObj, ok := patch.Object("core")
	if !ok {
		t.Fatal("expected patch to contain the core object")
	}
	if patchObj.Len() != 1 {
		t.Fatalf("expected exactly one changed key in the recursive patch, got %d", patchObj.Len())
	}
}

// TestMergeListOrderMatchesScenarioPattern tests that merging preserves
// base key order and appends new keys, the same ordering pattern
// scenario S4 exercises for map sections.
func TestMergeListOrderMatchesScenarioPattern(t *testing.T) {
	base := aamp.NewParameterList()
	base.SetObject("a", objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 1}}))
	base.SetObject("b", objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 2}}))

	other := aamp.NewParameterList()
	other.SetObject("a", objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 1}}))
	other.SetObject("b", objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 2}}))
	other.SetObject("c", objWith(map[uint32]aamp.Parameter{1: {Type: aamp.TypeInt, Int: 3}}))

	merged := MergeList(base, DiffList(base, other))
	keys := merged.Objects.Keys()
	if len(keys) != 3 {
		t.Fatalf("expected 3 object keys, got %d", len(keys))
	}
	lastKey := keys[len(keys)-1]
	wantLast := aamp.HashName("c")
	if lastKey != wantLast {
		t.Error("newly added key was not appended last")
	}
}

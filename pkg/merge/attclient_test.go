package merge

import (
	"testing"

	"github.com/kestrelmods/kestrel/pkg/format/aamp"
)

func attClientWithQueries(names ...string) AttClient {
	root := aamp.NewParameterList()
	obj := aamp.NewParameterObject()
	obj.Set(aamp.HashName("IsGetAllInfoAboutTargets"), aamp.Parameter{Type: aamp.TypeBool, Bool: true})
	root.SetObject("Settings", obj)
	entries := make([]DeletableEntry[string], len(names))
	for i, n := range names {
		entries[i] = DeletableEntry[string]{Value: n}
	}
	return AttClient{Root: root, Queries: entries}
}

// TestAttClientQueryAddDelete tests the deletable-sequence pattern applied
// to the query list: a mod can add a query and remove one, and the
// result preserves base order for survivors with additions appended.
func TestAttClientQueryAddDelete(t *testing.T) {
	base := attClientWithQueries("IsInWater", "IsNearPlayer", "IsDead")
	other := attClientWithQueries("IsInWater", "IsDead", "IsInAir")

	patchVal, err := other.Diff(base)
	if err != nil {
		t.Fatalf("unexpected diff error: %v", err)
	}
	patch := patchVal.(AttClient)

	mergedVal, err := base.MergeWith(patch)
	if err != nil {
		t.Fatalf("unexpected merge error: %v", err)
	}
	merged := mergedVal.(AttClient)

	var got []string
	for _, e := range merged.Queries {
		got = append(got, e.Value)
	}
	want := []string{"IsInWater", "IsDead", "IsInAir"}
	if len(got) != len(want) {
		t.Fatalf("expected %d queries, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

// TestAttClientReconstructionLaw tests L1 for the AttClient composite:
// merge(base, diff(base, other)) == other.
func TestAttClientReconstructionLaw(t *testing.T) {
	base := attClientWithQueries("A", "B", "C")
	other := attClientWithQueries("A", "C", "D")

	patchVal, err := other.Diff(base)
	if err != nil {
		t.Fatalf("unexpected diff error: %v", err)
	}
	mergedVal, err := base.MergeWith(patchVal)
	if err != nil {
		t.Fatalf("unexpected merge error: %v", err)
	}
	merged := mergedVal.(AttClient)
	if !merged.Equal(other) {
		t.Errorf("reconstruction law violated: merged %+v != other %+v", merged.Queries, other.Queries)
	}
}

// TestAttClientPatchRoundTripsThroughBinary tests that a diff produced
// in-memory survives a serialise/parse round trip and still merges
// correctly, since mod packages store diffs as compact binary payloads
// rather than keeping the in-memory patch value around.
func TestAttClientPatchRoundTripsThroughBinary(t *testing.T) {
	base := attClientWithQueries("A", "B", "C")
	other := attClientWithQueries("A", "C", "D")

	patchVal, err := other.Diff(base)
	if err != nil {
		t.Fatalf("unexpected diff error: %v", err)
	}
	patch := patchVal.(AttClient)

	data := patch.ToBinary()
	reparsed, err := aamp.FromBinary(data)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	roundTripped := AttClient{Root: reparsed.ParameterList, Queries: extractQueries(reparsed.ParameterList)}

	mergedVal, err := base.MergeWith(roundTripped)
	if err != nil {
		t.Fatalf("unexpected merge error: %v", err)
	}
	merged := mergedVal.(AttClient)
	if !merged.Equal(other) {
		t.Errorf("round-tripped patch failed to reconstruct other: got %+v, want %+v", merged.Queries, other.Queries)
	}
}

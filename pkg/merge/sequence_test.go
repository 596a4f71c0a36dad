package merge

import "testing"

func intEqual(a, b int) bool { return a == b }
func intIdentity(v int) string {
	if v < 0 {
		return "neg"
	}
	return string(rune('a' + v))
}

// TestIndexedSequenceRoundTrip tests that overlaying an indexed-sequence
// patch onto its base reconstructs the target sequence.
func TestIndexedSequenceRoundTrip(t *testing.T) {
	base := []int{10, 20, 30}
	other := []int{10, 99, 30, 40}

	patch := DiffIndexed(base, other, intEqual)
	merged := MergeIndexed(base, patch)

	if len(merged) != len(other) {
		t.Fatalf("expected length %d, got %d", len(other), len(merged))
	}
	for i := range other {
		if merged[i] != other[i] {
			t.Errorf("index %d: got %d, want %d", i, merged[i], other[i])
		}
	}
}

// TestIndexedSequenceDiffOnlyEmitsChangedIndices tests that unchanged
// indices are omitted from the patch.
func TestIndexedSequenceDiffOnlyEmitsChangedIndices(t *testing.T) {
	base := []int{1, 2, 3}
	other := []int{1, 2, 3}
	patch := DiffIndexed(base, other, intEqual)
	if len(patch) != 0 {
		t.Errorf("expected empty patch for identical sequences, got %d entries", len(patch))
	}
}

// TestDeletableSequenceMarksAndConcatenates tests the mark-delete pattern:
// merge concatenates base survivors with patch additions, preserving
// order.
func TestDeletableSequenceMarksAndConcatenates(t *testing.T) {
	base := []int{0, 1, 2} // identities "a", "b", "c"
	other := []int{0, 2, 3}

	patch := DiffDeletable(base, other, intIdentity)
	merged := MergeDeletable(base, patch, intIdentity)

	want := []int{0, 2, 3}
	if len(merged) != len(want) {
		t.Fatalf("expected length %d, got %d", len(want), len(merged))
	}
	for i := range want {
		if merged[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, merged[i], want[i])
		}
	}
}

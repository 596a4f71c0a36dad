package aamp

import "testing"

// TestParameterObjectOrderPreserved tests that insertion order survives a
// binary round trip, since order is semantically significant for parameter
// objects.
func TestParameterObjectOrderPreserved(t *testing.T) {
	pio := NewParameterIO()
	obj := NewParameterObject()
	obj.Set(HashName("z"), Parameter{Type: TypeInt, Int: 1})
	obj.Set(HashName("a"), Parameter{Type: TypeInt, Int: 2})
	obj.Set(HashName("m"), Parameter{Type: TypeInt, Int: 3})
	pio.SetObject("root", obj)

	encoded := pio.ToBinary()
	decoded, err := FromBinary(encoded)
	if err != nil {
		t.Fatalf("unable to decode: %v", err)
	}

	got, ok := decoded.Object("root")
	if !ok {
		t.Fatal("decoded archive missing root object")
	}
	wantOrder := []uint32{HashName("z"), HashName("a"), HashName("m")}
	gotOrder := got.Keys()
	if len(gotOrder) != len(wantOrder) {
		t.Fatalf("key count mismatch: got %d, want %d", len(gotOrder), len(wantOrder))
	}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Errorf("key index %d: got %#x, want %#x", i, gotOrder[i], wantOrder[i])
		}
	}
}

// TestRoundTripNestedLists tests that a nested tree of parameter lists and
// objects survives a binary round trip unchanged.
func TestRoundTripNestedLists(t *testing.T) {
	pio := NewParameterIO()
	child := NewParameterList()
	childObj := NewParameterObject()
	childObj.Set(HashName("flag"), Parameter{Type: TypeBool, Bool: true})
	childObj.Set(HashName("name"), Parameter{Type: TypeString, Str: "actor"})
	childObj.Set(HashName("scale"), Parameter{Type: TypeFloat, Float: 1.5})
	childObj.Set(HashName("tags"), Parameter{Type: TypeIntArray, Ints: []int32{1, 2, 3}})
	child.SetObject("core", childObj)
	pio.SetList("child", child)

	encoded := pio.ToBinary()
	decoded, err := FromBinary(encoded)
	if err != nil {
		t.Fatalf("unable to decode: %v", err)
	}

	if !decoded.Equal(pio) {
		t.Error("decoded archive does not equal original")
	}
}

// TestParameterEqualIsTypeSensitive tests that Equal distinguishes values
// that differ only in type tag.
func TestParameterEqualIsTypeSensitive(t *testing.T) {
	a := Parameter{Type: TypeInt, Int: 0}
	b := Parameter{Type: TypeFloat, Float: 0}
	if a.Equal(b) {
		t.Error("parameters of different types unexpectedly compared equal")
	}
}

// TestFromBinaryRejectsBadMagic tests that FromBinary refuses buffers
// lacking the expected header.
func TestFromBinaryRejectsBadMagic(t *testing.T) {
	if _, err := FromBinary([]byte("not an archive")); err == nil {
		t.Error("decode unexpectedly succeeded on invalid input")
	}
}

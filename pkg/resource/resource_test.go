package resource

import "testing"

// TestKindForClassifiesContainers tests that known container suffixes are
// classified as VariantSarc.
func TestKindForClassifiesContainers(t *testing.T) {
	variant, _ := KindFor("Actor/Pack/Guardian_A.sbactorpack")
	if variant != VariantSarc {
		t.Errorf("expected VariantSarc, got %v", variant)
	}
}

// TestKindForClassifiesMergeable tests that a registered mergeable suffix
// resolves to VariantMergeable and the expected kind.
func TestKindForClassifiesMergeable(t *testing.T) {
	variant, kind := KindFor("Actor/AIProgram/Guardian_A.baiprog")
	if variant != VariantMergeable {
		t.Errorf("expected VariantMergeable, got %v", variant)
	}
	if kind != KindAIProgram {
		t.Errorf("expected KindAIProgram, got %v", kind)
	}
}

// TestKindForFallsBackToBinary tests that an unrecognized suffix is
// treated as opaque binary.
func TestKindForFallsBackToBinary(t *testing.T) {
	variant, kind := KindFor("System/Version.txt")
	if variant != VariantBinary {
		t.Errorf("expected VariantBinary, got %v", variant)
	}
	if kind != KindBinary {
		t.Errorf("expected KindBinary, got %v", kind)
	}
}

// TestParseResourceRequiresRegisteredParser tests that parsing a mergeable
// kind with no registered parser produces an error rather than a panic.
func TestParseResourceRequiresRegisteredParser(t *testing.T) {
	delete(parsers, KindLod)
	_, err := ParseResource("Actor/Lod/Guardian_A.lod", []byte{})
	if err == nil {
		t.Error("expected an error when no parser is registered")
	}
}

// TestToBinaryPanicsOnSarc tests that a Sarc-variant Resource cannot be
// serialized directly, since its children must be resolved by the
// orchestrator rather than this package.
func TestToBinaryPanicsOnSarc(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic when serializing a Sarc resource directly")
		}
	}()
	r := SarcResource([]string{"Actor/AIProgram/Guardian_A.baiprog"})
	_ = r.ToBinary()
}

package rstb

import (
	"testing"

	"github.com/kestrelmods/kestrel/pkg/format/sarc"
	"github.com/kestrelmods/kestrel/pkg/resource"
)

func TestHasSizeEntry(t *testing.T) {
	cases := []struct {
		variant resource.Variant
		want    bool
	}{
		{resource.VariantBinary, false},
		{resource.VariantMergeable, true},
		{resource.VariantSarc, true},
	}
	for _, c := range cases {
		if got := HasSizeEntry(c.variant); got != c.want {
			t.Errorf("HasSizeEntry(%v) = %v, want %v", c.variant, got, c.want)
		}
	}
}

func TestComputeAlignsAndAddsOverhead(t *testing.T) {
	data := make([]byte, 10)
	got := Compute(resource.KindAttClient, data)
	if got%alignment != 0 {
		t.Errorf("Compute result %d is not 32-byte aligned", got)
	}
	if got < uint32(len(data))+0x180 {
		t.Errorf("Compute result %d smaller than raw length plus AttClient overhead", got)
	}
}

func TestComputeForContainerChildren(t *testing.T) {
	archive := sarc.New()
	archive.Set("a", []byte("aaa"))
	archive.Set("b", []byte("bb"))
	archive.Set("c", []byte("c"))

	sizes := map[string]uint32{"a": 64, "b": 32}
	got := ComputeForContainerChildren(sizes, archive)
	if got != 96 {
		t.Errorf("ComputeForContainerChildren = %d, want 96 (missing entry for %q contributes 0)", got, "c")
	}
}

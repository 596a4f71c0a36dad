package modpkg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func writeCompressed(t *testing.T, path string, payload []byte) {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("unable to create zstd encoder: %v", err)
	}
	compressed := enc.EncodeAll(payload, nil)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("unable to create directory: %v", err)
	}
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		t.Fatalf("unable to write file: %v", err)
	}
}

func buildTestPackage(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	meta := "name = \"test-mod\"\nversion = \"1.0.0\"\ncategory = \"other\"\n\n[[options]]\nid = \"opt1\"\nname = \"Option One\"\ndefault = true\n"
	if err := os.WriteFile(filepath.Join(root, "meta.toml"), []byte(meta), 0o644); err != nil {
		t.Fatalf("unable to write meta.toml: %v", err)
	}

	manifest := "content_files:\n  - Actor/Pack/Guardian_A.sbactorpack\naoc_files: []\n"
	if err := os.WriteFile(filepath.Join(root, "manifest.yml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("unable to write manifest.yml: %v", err)
	}

	optManifest := "content_files:\n  - Actor/Pack/Guardian_B.sbactorpack\naoc_files: []\n"
	if err := os.MkdirAll(filepath.Join(root, "options", "opt1"), 0o755); err != nil {
		t.Fatalf("unable to create option directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "options", "opt1", "manifest.yml"), []byte(optManifest), 0o644); err != nil {
		t.Fatalf("unable to write option manifest.yml: %v", err)
	}

	writeCompressed(t, filepath.Join(root, "Actor/Pack/Guardian_A.sbactorpack"), []byte("root payload"))
	writeCompressed(t, filepath.Join(root, "options", "opt1", "Actor/Pack/Guardian_B.sbactorpack"), []byte("option payload"))

	return root
}

// TestOpenDirReadsMetaAndManifest tests that OpenDir parses the package's
// meta.toml and manifest.yml.
func TestOpenDirReadsMetaAndManifest(t *testing.T) {
	root := buildTestPackage(t)
	r, err := OpenDir(root)
	if err != nil {
		t.Fatalf("unable to open package: %v", err)
	}
	if r.Meta().Name != "test-mod" {
		t.Errorf("got name %q, want test-mod", r.Meta().Name)
	}
	if len(r.manifest.ContentFiles) != 1 {
		t.Errorf("expected 1 base content file, got %d", len(r.manifest.ContentFiles))
	}
}

// TestManifestUnionsActiveOptions tests that Manifest() returns the union
// of the base manifest and every active option's sub-manifest.
func TestManifestUnionsActiveOptions(t *testing.T) {
	root := buildTestPackage(t)
	r, err := OpenDir(root)
	if err != nil {
		t.Fatalf("unable to open package: %v", err)
	}

	manifest := r.Manifest()
	if len(manifest.ContentFiles) != 2 {
		t.Fatalf("expected 2 content files in the union, got %d", len(manifest.ContentFiles))
	}
}

// TestGetDataSearchesRootThenOptions tests the search order: root first,
// then active options in declaration order, with decompression applied.
func TestGetDataSearchesRootThenOptions(t *testing.T) {
	root := buildTestPackage(t)
	r, err := OpenDir(root)
	if err != nil {
		t.Fatalf("unable to open package: %v", err)
	}

	data, err := r.GetData("Actor/Pack/Guardian_A.sbactorpack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "root payload" {
		t.Errorf("got %q, want %q", data, "root payload")
	}

	optData, err := r.GetData("Actor/Pack/Guardian_B.sbactorpack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(optData) != "option payload" {
		t.Errorf("got %q, want %q", optData, "option payload")
	}
}

// TestGetDataMissingReturnsError tests that an unresolvable canonical
// path produces an error rather than a zero-value success.
func TestGetDataMissingReturnsError(t *testing.T) {
	root := buildTestPackage(t)
	r, err := OpenDir(root)
	if err != nil {
		t.Fatalf("unable to open package: %v", err)
	}
	if _, err := r.GetData("Does/Not/Exist.sbactorpack"); err == nil {
		t.Error("expected an error for a missing path")
	}
}

// TestSetActiveOptionsDisablesDefault tests that clearing the active
// option set removes its contribution from the manifest and payload
// search.
func TestSetActiveOptionsDisablesDefault(t *testing.T) {
	root := buildTestPackage(t)
	r, err := OpenDir(root)
	if err != nil {
		t.Fatalf("unable to open package: %v", err)
	}
	r.SetActiveOptions(nil)

	manifest := r.Manifest()
	if len(manifest.ContentFiles) != 1 {
		t.Errorf("expected 1 content file with no active options, got %d", len(manifest.ContentFiles))
	}
	if _, err := r.GetData("Actor/Pack/Guardian_B.sbactorpack"); err == nil {
		t.Error("expected the option-only file to be unreachable with no active options")
	}
}

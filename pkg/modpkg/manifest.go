// Package modpkg implements the mod package reader (C6): opening a
// package directory or archive, reading its metadata and manifests, and
// resolving payloads by canonical path across the active option set.
package modpkg

// Meta is the package's meta.toml content: name, version, category, and
// the declared option tree.
type Meta struct {
	Name        string       `toml:"name"`
	Description string       `toml:"description"`
	Version     string       `toml:"version"`
	Category    string       `toml:"category"`
	Options     []ModOption  `toml:"options"`
}

// ModOption is a single entry in the package's option tree: a sub-
// manifest the user may enable, identified by its directory name under
// options/.
type ModOption struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Default     bool   `toml:"default"`
}

// Manifest is the { content_files, aoc_files } pair naming the canonical
// paths a mod or a single option touches.
type Manifest struct {
	ContentFiles []string `yaml:"content_files"`
	AocFiles     []string `yaml:"aoc_files"`
}

// Merge returns the union of two manifests' path sets, used to fold a
// sub-option's manifest into the package's effective manifest.
func (m Manifest) Merge(other Manifest) Manifest {
	return Manifest{
		ContentFiles: unionStrings(m.ContentFiles, other.ContentFiles),
		AocFiles:     unionStrings(m.AocFiles, other.AocFiles),
	}
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

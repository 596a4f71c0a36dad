// Package resource implements the canonical path normalizer (C2) and the
// tagged-variant resource model (C3) described by the design: mapping any
// path spelling to a single key used everywhere, and representing every
// supported resource kind behind a Binary/Mergeable/Sarc trichotomy.
package resource

import (
	"fmt"
	"strings"
)

// aocRoot is the canonical add-on-content root every recognized spelling is
// rewritten to.
const aocRoot = "Aoc/0010/"

// platformPrefixes lists the leading path segments that identify a
// platform-specific dump root and must be stripped before the remainder is
// treated as a canonical path.
var platformPrefixes = []string{
	"content/",
	"atmosphere/contents/01007EF00011E000/romfs/",
	"atmosphere/contents/01007EF00011F001/romfs/",
}

// aocPrefixes lists the spellings of the add-on-content root that must be
// rewritten to the canonical aocRoot.
var aocPrefixes = []string{
	"aoc/content/0010/",
	"aoc/0010/",
	"aoc/",
}

// Canonicalize maps any raw path spelling to its canonical form: platform
// prefixes are stripped, the add-on-content root is rewritten to its
// canonical spelling, redundant separators are collapsed, and case is
// retained. It is deterministic and idempotent (property P6); it fails
// only when the input cannot be treated as a textual path.
func Canonicalize(raw string) (string, error) {
	if strings.IndexByte(raw, 0) >= 0 {
		return "", fmt.Errorf("resource: path is not textual")
	}

	p := strings.ReplaceAll(raw, "\\", "/")
	for strings.HasPrefix(p, "/") {
		p = p[1:]
	}

	lower := strings.ToLower(p)
	for _, prefix := range platformPrefixes {
		if strings.HasPrefix(lower, prefix) {
			p = p[len(prefix):]
			lower = lower[len(prefix):]
			break
		}
	}

	for _, prefix := range aocPrefixes {
		if strings.HasPrefix(lower, prefix) {
			p = aocRoot + p[len(prefix):]
			break
		}
	}

	p = collapseSeparators(p)
	return p, nil
}

// collapseSeparators removes empty path segments produced by repeated or
// trailing slashes, without altering case or segment spelling.
func collapseSeparators(p string) string {
	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, "/")
}

// MustCanonicalize is a convenience wrapper for call sites that have
// already validated the input is textual (e.g. it came from a manifest
// that was itself decoded as text); it panics on failure.
func MustCanonicalize(raw string) string {
	p, err := Canonicalize(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// IsAocPath reports whether a canonical path lives under the add-on-content
// root.
func IsAocPath(canonical string) bool {
	return strings.HasPrefix(canonical, aocRoot)
}

// JoinChildPath builds the canonical path of a packed container's child
// entry by slash-joining the container's own canonical path with the
// child's internal name within the archive, per the path normaliser's
// "replacing packed-container internal paths with slash-joined segments"
// rule: a container's contents are addressed the same way whether they
// live as loose files in a mod package or packed inside a game archive.
func JoinChildPath(containerPath, childName string) string {
	return containerPath + "/" + childName
}

// SplitTopLevelPath splits a canonical path into its outermost container
// path and the remainder inside it, by walking path segments left to
// right and stopping at the first one whose own suffix names a container
// kind (see KindFor). It returns ok == false when path contains no
// container segment, i.e. path is itself a top-level resource with no
// enclosing archive.
func SplitTopLevelPath(path string) (top, rest string, ok bool) {
	segments := strings.Split(path, "/")
	for i := 0; i < len(segments)-1; i++ {
		candidate := strings.Join(segments[:i+1], "/")
		if variant, _ := KindFor(candidate); variant == VariantSarc {
			return candidate, strings.Join(segments[i+1:], "/"), true
		}
	}
	return "", "", false
}

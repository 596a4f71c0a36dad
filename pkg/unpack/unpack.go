// Package unpack implements the merge orchestrator (C7): given a dump
// reader and an ordered list of mod readers, it rebuilds every touched
// canonical path, recursing into packed containers, and recomputes the
// resource-size-table sidecar for every rebuilt mergeable leaf.
package unpack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/kestrelmods/kestrel/pkg/dump"
	"github.com/kestrelmods/kestrel/pkg/format/sarc"
	"github.com/kestrelmods/kestrel/pkg/format/yaz0"
	"github.com/kestrelmods/kestrel/pkg/logging"
	"github.com/kestrelmods/kestrel/pkg/modpkg"
	"github.com/kestrelmods/kestrel/pkg/parallelism"
	"github.com/kestrelmods/kestrel/pkg/resource"
	"github.com/kestrelmods/kestrel/pkg/rstb"
)

// DumpSource is the subset of *dump.Reader the orchestrator needs, kept as
// an interface so tests can substitute a fake without touching the
// filesystem.
type DumpSource interface {
	GetFileData(canonicalPath string) ([]byte, error)
	GetAocFileData(canonicalPath string) ([]byte, error)
	GetResource(canonicalPath string) (resource.Resource, error)
}

// ModSource is the subset of *modpkg.Reader the orchestrator needs.
type ModSource interface {
	FileExists(canonicalPath string) bool
	GetData(canonicalPath string) ([]byte, error)
	GetAocFileData(canonicalPath string) ([]byte, error)
	Manifest() modpkg.Manifest
	Meta() modpkg.Meta
}

// Orchestrator rebuilds a merged asset tree from a dump and an ordered
// list of mods, lowest priority first, matching the ordering guarantee
// that within a single file's build, versions are combined strictly in
// the caller's given order.
type Orchestrator struct {
	Dump      DumpSource
	Mods      []ModSource
	Order     binary.ByteOrder
	OutputDir string
	Pool      *parallelism.Pool
	Logger    *logging.Logger
}

// Result is the outcome of a successful Run: the recomputed resource-
// size-table sidecar, keyed by every rebuilt canonical path that carries
// a size entry (see rstb.HasSizeEntry). Paths whose merged content was
// byte-identical to the base are omitted from both the output tree and
// this table, matching scenario S6's empty-diff no-op.
type Result struct {
	SizeTable map[string]uint32
}

// buildOutcome is the per-top-level-path result of buildFile, threaded
// back to Run through a pre-sized slice so concurrent tasks never share
// a map.
type buildOutcome struct {
	path    string
	raw     []byte
	variant resource.Variant
	kind    resource.Kind
	skip    bool
	size    uint32
	hasSize bool
}

// Run computes the union of touched canonical paths (from explicitManifest
// if given, otherwise from every mod's own manifest), rebuilds every
// top-level file the union touches, and writes the result to OutputDir.
// No partial output is committed: every file is built and held in memory
// first, and the directory is only populated once every build succeeds.
func (o *Orchestrator) Run(explicitManifest *modpkg.Manifest) (*Result, error) {
	logf := o.logf
	if o.Logger != nil {
		sub := o.Logger.Sublogger(uuid.NewString())
		logf = func(format string, v ...interface{}) { sub.Debugf(format, v...) }
	}

	touched := o.collectTouched(explicitManifest)
	if len(touched) == 0 {
		return &Result{SizeTable: map[string]uint32{}}, nil
	}

	top := topLevelPaths(touched)
	logf("rebuilding %d top-level path(s) from %d touched path(s)", len(top), len(touched))

	pool := o.Pool
	if pool == nil {
		pool = parallelism.NewPool(0)
	}

	outcomes := make([]buildOutcome, len(top))
	tasks := make([]parallelism.Task, len(top))
	for i, p := range top {
		i, p := i, p
		tasks[i] = func() error {
			raw, variant, kind, skip, size, hasSize, err := o.buildFile(p, touched)
			if err != nil {
				return err
			}
			outcomes[i] = buildOutcome{path: p, raw: raw, variant: variant, kind: kind, skip: skip, size: size, hasSize: hasSize}
			return nil
		}
	}
	if err := pool.Run(tasks); err != nil {
		return nil, err
	}

	type outFile struct {
		outPath string
		data    []byte
	}
	var files []outFile
	var totalBytes uint64
	sizeTable := make(map[string]uint32)
	for _, oc := range outcomes {
		if oc.skip {
			logf("%s unchanged from base, omitting from output", oc.path)
			continue
		}
		compressed, err := compressForSuffix(oc.path, oc.raw)
		if err != nil {
			return nil, fmt.Errorf("unpack: compressing %s: %w", oc.path, err)
		}
		files = append(files, outFile{outPath: outputPath(o.OutputDir, oc.path), data: compressed})
		totalBytes += uint64(len(compressed))
		if oc.hasSize {
			sizeTable[oc.path] = oc.size
		}
	}

	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.outPath), 0o755); err != nil {
			return nil, fmt.Errorf("unpack: creating output directory for %s: %w", f.outPath, err)
		}
	}
	for _, f := range files {
		if err := os.WriteFile(f.outPath, f.data, 0o644); err != nil {
			return nil, fmt.Errorf("unpack: writing %s: %w", f.outPath, err)
		}
	}

	logf("wrote %d file(s) totaling %s", len(files), humanize.Bytes(totalBytes))
	return &Result{SizeTable: sizeTable}, nil
}

func (o *Orchestrator) logf(format string, v ...interface{}) {
	if o.Logger == nil {
		return
	}
	o.Logger.Debugf(format, v...)
}

// collectTouched computes the set of canonical paths any mod (or the
// explicit manifest, if given) declares as touched.
func (o *Orchestrator) collectTouched(explicitManifest *modpkg.Manifest) map[string]bool {
	touched := make(map[string]bool)
	add := func(m modpkg.Manifest) {
		for _, p := range m.ContentFiles {
			touched[p] = true
		}
		for _, p := range m.AocFiles {
			touched[p] = true
		}
	}
	if explicitManifest != nil {
		add(*explicitManifest)
		return touched
	}
	for _, mod := range o.Mods {
		add(mod.Manifest())
	}
	return touched
}

// topLevelPaths reduces a set of touched leaf canonical paths to the set
// of outermost files that must actually be rebuilt and written: a leaf
// nested inside one or more packed containers is reduced to its
// outermost container's own canonical path.
func topLevelPaths(touched map[string]bool) []string {
	seen := make(map[string]bool, len(touched))
	for p := range touched {
		top := p
		if t, _, ok := resource.SplitTopLevelPath(p); ok {
			top = t
		}
		seen[top] = true
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// buildFile rebuilds a single top-level canonical path: a leaf (Binary or
// Mergeable) is folded from the base plus every mod's version in
// priority order; a container recurses into buildFile for each of its
// children. size/hasSize carry the path's own resource-size-table entry,
// computed alongside the rebuilt bytes: hasSize is true for mergeable
// leaves and containers and false for opaque binary leaves, the same split
// rstb.HasSizeEntry reports.
func (o *Orchestrator) buildFile(path string, touched map[string]bool) (raw []byte, variant resource.Variant, kind resource.Kind, skip bool, size uint32, hasSize bool, err error) {
	variant, kind = resource.KindFor(path)
	if variant == resource.VariantSarc {
		return o.buildSarc(path, touched)
	}
	return o.buildLeaf(path, variant, kind)
}

func (o *Orchestrator) buildLeaf(path string, variant resource.Variant, kind resource.Kind) (raw []byte, outVariant resource.Variant, outKind resource.Kind, skip bool, size uint32, hasSize bool, err error) {
	aoc := resource.IsAocPath(path)

	baseRaw, baseErr := o.fetchBaseRaw(path, aoc)
	basePresent := baseErr == nil
	if baseErr != nil && !errors.Is(baseErr, dump.ErrPathNotFound) {
		return nil, variant, kind, false, 0, false, fmt.Errorf("unpack: fetching base for %s: %w", path, baseErr)
	}

	switch variant {
	case resource.VariantBinary:
		result, present, err := o.foldBinary(path, aoc, baseRaw, basePresent)
		if err != nil {
			return nil, variant, kind, false, 0, false, err
		}
		if !present {
			return nil, variant, kind, false, 0, false, fmt.Errorf("unpack: %s has no base or mod version", path)
		}
		skip = basePresent && bytes.Equal(baseRaw, result)
		return result, variant, kind, skip, 0, false, nil

	case resource.VariantMergeable:
		var baseRes resource.Resource
		haveBase := basePresent
		if basePresent {
			baseRes, err = o.Dump.GetResource(path)
			if err != nil {
				return nil, variant, kind, false, 0, false, fmt.Errorf("unpack: parsing base %s: %w", path, err)
			}
		} else if res, resErr := o.Dump.GetResource(path); resErr == nil {
			// A leaf inside a packed container has no loose bytes of its own;
			// its base is the resource the dump cached when it opened the
			// container.
			baseRes, haveBase = res, true
		}
		merged, present, err := o.foldMergeable(path, aoc, baseRes, haveBase, kind)
		if err != nil {
			return nil, variant, kind, false, 0, false, err
		}
		if !present {
			return nil, variant, kind, false, 0, false, fmt.Errorf("unpack: %s has no base or mod version", path)
		}
		result := merged.ToBinaryOrder(o.Order)
		skip = basePresent && bytes.Equal(baseRaw, result)
		return result, variant, kind, skip, rstb.Compute(kind, result), true, nil

	default:
		return nil, variant, kind, false, 0, false, fmt.Errorf("unpack: %s classified with unexpected variant", path)
	}
}

func (o *Orchestrator) foldBinary(path string, aoc bool, baseRaw []byte, basePresent bool) ([]byte, bool, error) {
	result := baseRaw
	present := basePresent
	for _, mod := range o.Mods {
		if !mod.FileExists(path) {
			continue
		}
		data, err := fetchMod(mod, path, aoc)
		if err != nil {
			return nil, false, contextualizeModErr(path, mod, err)
		}
		result = data
		present = true
	}
	return result, present, nil
}

func (o *Orchestrator) foldMergeable(path string, aoc bool, baseRes resource.Resource, basePresent bool, kind resource.Kind) (resource.Mergeable, bool, error) {
	var acc resource.Mergeable
	if basePresent {
		acc = baseRes.Value
	}
	for _, mod := range o.Mods {
		if !mod.FileExists(path) {
			continue
		}
		data, err := fetchMod(mod, path, aoc)
		if err != nil {
			return nil, false, contextualizeModErr(path, mod, err)
		}
		patch, err := resource.ParseOrder(kind, data, o.Order)
		if err != nil {
			return nil, false, contextualizeModErr(path, mod, fmt.Errorf("parsing diff: %w", err))
		}
		if acc == nil {
			acc = patch
			continue
		}
		merged, err := acc.MergeWith(patch)
		if err != nil {
			return nil, false, contextualizeModErr(path, mod, fmt.Errorf("merging: %w", err))
		}
		acc = merged
	}
	return acc, acc != nil, nil
}

// buildSarc rebuilds a packed container by recursively building every
// child reachable either from the base archive's own listing or from the
// touched set (a mod can add a brand-new child that the base container
// never contained), writing the result in canonical sorted order. The
// container's own resource-size-table entry is the rollup of its
// children's entries (see rstb.ComputeForContainerChildren), since a
// container has no single parsed-size estimate of its own.
func (o *Orchestrator) buildSarc(path string, touched map[string]bool) (raw []byte, variant resource.Variant, kind resource.Kind, skip bool, size uint32, hasSize bool, err error) {
	variant = resource.VariantSarc
	kind = resource.KindSarc
	aoc := resource.IsAocPath(path)

	baseRaw, baseErr := o.fetchBaseRaw(path, aoc)
	basePresent := baseErr == nil
	if baseErr != nil && !errors.Is(baseErr, dump.ErrPathNotFound) {
		return nil, variant, kind, false, 0, false, fmt.Errorf("unpack: fetching base container %s: %w", path, baseErr)
	}

	children := make(map[string]bool)
	if basePresent {
		baseRes, err := o.Dump.GetResource(path)
		if err != nil {
			return nil, variant, kind, false, 0, false, fmt.Errorf("unpack: parsing base container %s: %w", path, err)
		}
		for _, c := range baseRes.Sarc.Children {
			children[c] = true
		}
	}
	prefix := path + "/"
	for t := range touched {
		if !strings.HasPrefix(t, prefix) {
			continue
		}
		rest := t[len(prefix):]
		if nested, _, ok := resource.SplitTopLevelPath(rest); ok {
			rest = nested
		}
		children[resource.JoinChildPath(path, rest)] = true
	}

	names := make([]string, 0, len(children))
	for c := range children {
		names = append(names, c)
	}
	sort.Strings(names)

	archive := sarc.New()
	childSizes := make(map[string]uint32, len(names))
	for _, childPath := range names {
		childRaw, _, _, _, childSize, childHasSize, err := o.buildFile(childPath, touched)
		if err != nil {
			return nil, variant, kind, false, 0, false, err
		}
		internalName := strings.TrimPrefix(childPath, prefix)
		archive.Set(internalName, childRaw)
		if childHasSize {
			childSizes[internalName] = childSize
		}
	}

	result := archive.WriteOrder(o.Order)
	skip = basePresent && bytes.Equal(baseRaw, result)
	return result, variant, kind, skip, rstb.ComputeForContainerChildren(childSizes, archive), true, nil
}

func (o *Orchestrator) fetchBaseRaw(path string, aoc bool) ([]byte, error) {
	if aoc {
		return o.Dump.GetAocFileData(path)
	}
	return o.Dump.GetFileData(path)
}

func fetchMod(mod ModSource, path string, aoc bool) ([]byte, error) {
	if aoc {
		return mod.GetAocFileData(path)
	}
	return mod.GetData(path)
}

func contextualizeModErr(path string, mod ModSource, err error) error {
	return fmt.Errorf("unpack: building %s (mod %s): %w", path, mod.Meta().Name, err)
}

// outputPath maps a canonical path to its location under outputDir,
// writing content paths under content/ and add-on-content paths under
// aoc/ with the shared "Aoc/0010/" prefix stripped, per the two-sibling-
// directory output layout.
func outputPath(outputDir, canonicalPath string) string {
	if resource.IsAocPath(canonicalPath) {
		rest := strings.TrimPrefix(canonicalPath, "Aoc/0010/")
		return filepath.Join(outputDir, "aoc", filepath.FromSlash(rest))
	}
	return filepath.Join(outputDir, "content", filepath.FromSlash(canonicalPath))
}

// compressForSuffix outer-compresses raw with Yaz0 iff the canonical
// path's suffix names a compressed variant (the game's convention of an
// 's' prefix on an otherwise uncompressed extension, e.g. sbactorpack
// over bactorpack), matching "outer compression is applied iff the
// path's suffix matches the codec's extension set".
func compressForSuffix(canonicalPath string, raw []byte) ([]byte, error) {
	if !needsYaz0(suffixOf(canonicalPath)) {
		return raw, nil
	}
	return yaz0.Compress(raw), nil
}

func needsYaz0(suffix string) bool {
	return len(suffix) > 1 && suffix[0] == 's' && suffix != "sarc"
}

func suffixOf(path string) string {
	dot := strings.LastIndexByte(path, '.')
	slash := strings.LastIndexByte(path, '/')
	if dot < 0 || dot < slash {
		return ""
	}
	return path[dot+1:]
}

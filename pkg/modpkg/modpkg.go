package modpkg

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/zstd"

	"github.com/kestrelmods/kestrel/pkg/encoding"
)

// mmapThreshold is the size above which an archive is opened via memory
// mapping rather than read wholesale into memory (the design's "files
// ≤256 MiB are read into memory; larger files ... use memory mapping"
// heuristic).
const mmapThreshold = 256 * 1024 * 1024

// Reader is the mod package reader: it resolves a canonical path against
// the package root and each active option, in declaration order, and
// decompresses whatever payload it finds.
type Reader struct {
	meta     Meta
	manifest Manifest
	active   []string // active option IDs, in declaration order

	open func(relPath string) ([]byte, bool)
	decoder *zstd.Decoder
	closers []io.Closer
}

// Close releases any resources (archive handles, memory maps) held open
// by the reader.
func (r *Reader) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Meta returns the package's parsed meta.toml content.
func (r *Reader) Meta() Meta { return r.meta }

// Manifest returns the union of the base manifest and every active
// option's sub-manifest.
func (r *Reader) Manifest() Manifest {
	m := r.manifest
	for _, id := range r.active {
		sub, ok := r.readOptionManifest(id)
		if ok {
			m = m.Merge(sub)
		}
	}
	return m
}

func (r *Reader) readOptionManifest(id string) (Manifest, bool) {
	data, ok := r.open(filepath.ToSlash(filepath.Join("options", id, "manifest.yml")))
	if !ok {
		return Manifest{}, false
	}
	var m Manifest
	if err := encoding.UnmarshalYAML(data, &m); err != nil {
		return Manifest{}, false
	}
	return m, true
}

// FileExists reports manifest membership for a canonical path.
func (r *Reader) FileExists(canonicalPath string) bool {
	manifest := r.Manifest()
	for _, p := range manifest.ContentFiles {
		if p == canonicalPath {
			return true
		}
	}
	for _, p := range manifest.AocFiles {
		if p == canonicalPath {
			return true
		}
	}
	return false
}

// GetData resolves and decompresses the payload for a content-root
// canonical path, searching the package root first and then each active
// option in declaration order. The first hit wins.
func (r *Reader) GetData(canonicalPath string) ([]byte, error) {
	return r.getPayload(canonicalPath)
}

// GetAocFileData is GetData for add-on-content paths; the search order is
// identical, since the package stores content and add-on-content payloads
// under the same relative-path scheme keyed by canonical path.
func (r *Reader) GetAocFileData(canonicalPath string) ([]byte, error) {
	return r.getPayload(canonicalPath)
}

func (r *Reader) getPayload(canonicalPath string) ([]byte, error) {
	if data, ok := r.open(canonicalPath); ok {
		return r.decompress(data)
	}
	for _, id := range r.active {
		rel := filepath.ToSlash(filepath.Join("options", id, canonicalPath))
		if data, ok := r.open(rel); ok {
			return r.decompress(data)
		}
	}
	return nil, fmt.Errorf("modpkg: %s not found in package or any active option", canonicalPath)
}

func (r *Reader) decompress(payload []byte) ([]byte, error) {
	return r.decoder.DecodeAll(payload, nil)
}

// SetActiveOptions replaces the ordered list of active option IDs used
// for payload search and manifest union.
func (r *Reader) SetActiveOptions(ids []string) {
	r.active = ids
}

// newReader wires the common zstd decoder and default active-option set
// (every option marked default in meta.toml) shared by both package
// shapes.
func newReader(meta Meta, manifest Manifest, open func(string) ([]byte, bool), closers []io.Closer) (*Reader, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("modpkg: creating zstd decoder: %w", err)
	}
	var active []string
	for _, opt := range meta.Options {
		if opt.Default {
			active = append(active, opt.ID)
		}
	}
	return &Reader{meta: meta, manifest: manifest, active: active, open: open, decoder: decoder, closers: closers}, nil
}

// OpenDir opens a package stored as a plain directory tree.
func OpenDir(root string) (*Reader, error) {
	var meta Meta
	if err := encoding.LoadAndUnmarshalTOML(filepath.Join(root, "meta.toml"), &meta); err != nil {
		return nil, fmt.Errorf("modpkg: reading meta.toml: %w", err)
	}
	var manifest Manifest
	if err := encoding.LoadAndUnmarshalYAML(filepath.Join(root, "manifest.yml"), &manifest); err != nil {
		return nil, fmt.Errorf("modpkg: reading manifest.yml: %w", err)
	}

	open := func(relPath string) ([]byte, bool) {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
		if err != nil {
			return nil, false
		}
		return data, true
	}

	return newReader(meta, manifest, open, nil)
}

// OpenArchive opens a package stored as a ZIP archive at path. Archives
// larger than mmapThreshold, or any archive when peek is true, are opened
// via memory mapping rather than read wholesale into memory, per the
// design's memory-pressure guidance that very large archives must be
// memory-mapped and entries must not be copied eagerly.
func OpenArchive(path string, peek bool) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("modpkg: opening archive: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("modpkg: statting archive: %w", err)
	}

	var (
		zr      *zip.Reader
		closers []io.Closer
	)
	if peek || info.Size() > mmapThreshold {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("modpkg: memory-mapping archive: %w", err)
		}
		zr, err = zip.NewReader(bytes.NewReader([]byte(m)), info.Size())
		if err != nil {
			m.Unmap()
			f.Close()
			return nil, fmt.Errorf("modpkg: reading archive: %w", err)
		}
		closers = []io.Closer{mmapCloser{m}, f}
	} else {
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("modpkg: reading archive: %w", err)
		}
		zr, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("modpkg: reading archive: %w", err)
		}
	}

	// Pre-index the central directory into a map from inner path to
	// *zip.File so lookups are O(1) rather than a linear scan per call.
	index := make(map[string]*zip.File, len(zr.File))
	for _, file := range zr.File {
		index[file.Name] = file
	}

	open := func(relPath string) ([]byte, bool) {
		file, ok := index[relPath]
		if !ok {
			return nil, false
		}
		rc, err := file.Open()
		if err != nil {
			return nil, false
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, false
		}
		return data, true
	}

	metaData, ok := open("meta.toml")
	if !ok {
		closeAll(closers)
		return nil, fmt.Errorf("modpkg: archive missing meta.toml")
	}
	var meta Meta
	if err := encoding.UnmarshalTOML(metaData, &meta); err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("modpkg: parsing meta.toml: %w", err)
	}

	manifestData, ok := open("manifest.yml")
	if !ok {
		closeAll(closers)
		return nil, fmt.Errorf("modpkg: archive missing manifest.yml")
	}
	var manifest Manifest
	if err := encoding.UnmarshalYAML(manifestData, &manifest); err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("modpkg: parsing manifest.yml: %w", err)
	}

	return newReader(meta, manifest, open, closers)
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}

// mmapCloser adapts an mmap.MMap to io.Closer.
type mmapCloser struct {
	m mmap.MMap
}

func (c mmapCloser) Close() error { return c.m.Unmap() }

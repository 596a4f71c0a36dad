// Command kestrel-merge runs the content merge engine end to end over an
// unpacked game dump and an ordered list of mod package directories,
// writing the rebuilt asset tree to an output directory. It exists to
// exercise pkg/dump, pkg/modpkg, and pkg/unpack from a runnable entry
// point; the desktop GUI and the full settings-driven CLI surface are out
// of scope for this module (see spec.md §1).
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kestrelmods/kestrel/pkg/dump"
	"github.com/kestrelmods/kestrel/pkg/kestrel"
	"github.com/kestrelmods/kestrel/pkg/logging"
	"github.com/kestrelmods/kestrel/pkg/modpkg"
	"github.com/kestrelmods/kestrel/pkg/unpack"
)

func main() {
	var (
		dumpDir   = flag.String("dump", "", "root of an unpacked game dump")
		aocDir    = flag.String("aoc", "", "root of an unpacked add-on-content dump (optional)")
		outDir    = flag.String("out", "", "output directory for the rebuilt asset tree")
		modDirs   modDirList
		bigEndian = flag.Bool("big-endian", false, "target the big-endian platform variant")
		logLevel  = flag.String("log-level", "info", "logging verbosity: disabled, error, warn, info, or debug")
	)
	flag.Var(&modDirs, "mod", "mod package directory, lowest priority first (repeatable)")
	flag.Parse()

	level, ok := logging.NameToLevel(*logLevel)
	if !ok {
		logging.RootLogger.Error(fmt.Errorf("kestrel-merge: invalid -log-level %q", *logLevel))
		os.Exit(1)
	}
	logging.SetLevel(level)

	if err := run(*dumpDir, *aocDir, *outDir, []string(modDirs), *bigEndian); err != nil {
		logging.RootLogger.Error(err)
		os.Exit(1)
	}
}

type modDirList []string

func (m *modDirList) String() string     { return strings.Join(*m, ",") }
func (m *modDirList) Set(v string) error { *m = append(*m, v); return nil }

func run(dumpDir, aocDir, outDir string, modDirs []string, bigEndian bool) error {
	if dumpDir == "" || outDir == "" {
		return fmt.Errorf("kestrel-merge %s: -dump and -out are required", kestrel.Version)
	}

	content := dump.DirSource{Root: dumpDir}
	var aoc dump.DirSource
	if aocDir != "" {
		aoc = dump.DirSource{Root: aocDir}
	}
	order := orderFor(bigEndian)

	reader, err := dump.NewReaderOrder(content, aoc, 0, order)
	if err != nil {
		return fmt.Errorf("opening dump: %w", err)
	}

	mods := make([]unpack.ModSource, 0, len(modDirs))
	for _, dir := range modDirs {
		mod, err := modpkg.OpenDir(dir)
		if err != nil {
			return fmt.Errorf("opening mod %s: %w", dir, err)
		}
		defer mod.Close()
		mods = append(mods, mod)
	}

	o := &unpack.Orchestrator{
		Dump:      reader,
		Mods:      mods,
		Order:     order,
		OutputDir: outDir,
		Logger:    logging.RootLogger.Sublogger("merge"),
	}
	result, err := o.Run(nil)
	if err != nil {
		return fmt.Errorf("running merge: %w", err)
	}

	logging.RootLogger.Printf("rebuilt %d size-table entr(ies) into %s", len(result.SizeTable), outDir)
	return nil
}

func orderFor(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

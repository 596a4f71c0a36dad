// Package logging provides the engine's nil-safe, prefix-scoped logger.
package logging

import (
	"log"
	"os"

	"github.com/kestrelmods/kestrel/pkg/kestrel"
)

func init() {
	// Set the global logger to use standard output.
	log.SetOutput(os.Stdout)
	if kestrel.DebugEnabled {
		level = LevelDebug
	}
}

// level is the global logging verbosity threshold. It is set once at
// startup, via SetLevel or the KESTREL_DEBUG environment variable, before
// any logger begins emitting output; it is not meant to change mid-run.
var level = LevelInfo

// SetLevel sets the global logging verbosity threshold.
func SetLevel(l Level) {
	level = l
}

// CurrentLevel returns the global logging verbosity threshold.
func CurrentLevel() Level {
	return level
}

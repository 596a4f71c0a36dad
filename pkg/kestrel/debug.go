package kestrel

import "os"

// DebugEnabled controls whether or not verbose debugging output is enabled.
// It is set automatically based on the KESTREL_DEBUG environment variable.
var DebugEnabled bool

func init() {
	DebugEnabled = os.Getenv("KESTREL_DEBUG") == "1"
}

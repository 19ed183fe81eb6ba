// Package loader decodes stored constraints of any known format version
// and migrates them forward to the current version.
package loader

import "github.com/gonewton/constraint/pkg/core"

// Loader understands one format version.
type Loader interface {
	// Version is the format version this loader produces.
	Version() int

	// HandlesVersion reports whether Load accepts data tagged with v.
	HandlesVersion(v int) bool

	// Load decodes and validates data.
	Load(data []byte) (core.Constraint, error)

	// Upgrade converts a record of Version() into Version()+1.
	Upgrade(c core.Constraint) (core.Constraint, error)
}

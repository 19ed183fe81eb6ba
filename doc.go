// Package constraint is the Composition Root for the constraint store.
//
// It connects the domain layer (pkg/core) with the filesystem adapter
// (pkg/adapters/fs) and the version loader registry (pkg/loader).
//
// A constraint is a single RFC 2119 requirement ("All passwords MUST be hashed")
// persisted as one JSON file under .newton/constraints/<category>/<id>.jsonl.
// Identifiers are derived from content, writes are atomic renames, and every
// record carries a format version so older files can be migrated on read.
//
// Usage:
//
//	svc, err := constraint.New(".",
//		constraint.WithAutoInit(true),
//		constraint.WithLogger(logger),
//	)
//
//	c, err := svc.AddConstraint(ctx, constraint.Params{
//		Type:     core.TypeMust,
//		Category: "security",
//		Text:     "All passwords must be hashed",
//		Author:   "alice",
//	})
package constraint

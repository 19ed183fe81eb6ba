package core

import (
	"errors"
	"fmt"
)

// Common errors. Every typed error below matches one of these with errors.Is.
var (
	ErrReadOnly          = errors.New("repository is in read-only mode")
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("constraint not found")
	ErrInvalidID         = errors.New("invalid constraint ID format")
	ErrInvalidType       = errors.New("invalid constraint type")
	ErrUnknownVersion    = errors.New("unknown version")
	ErrVersionMismatch   = errors.New("version mismatch")
	ErrIO                = errors.New("io error")
	ErrParse             = errors.New("parse error")
	ErrWorkspaceNotFound = errors.New("workspace not found")
)

// ValidationError reports the first structural rule a constraint violates.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError is returned when no stored constraint has the requested ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "constraint not found: " + e.ID
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidIDError is returned for identifiers that do not match nt-xxxxxx.
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid constraint ID format: %q. Expected format: nt-<6-char-base36-suffix> (e.g., nt-a3f2k9)", e.ID)
}

func (e *InvalidIDError) Is(target error) bool { return target == ErrInvalidID }

// InvalidTypeError is returned when a requirement strength label is unknown.
type InvalidTypeError struct {
	Label string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid constraint type: %q. Must be one of: MUST, SHALL, SHOULD, MAY, FORBIDDEN", e.Label)
}

func (e *InvalidTypeError) Is(target error) bool { return target == ErrInvalidType }

// UnknownVersionError is returned when no loader handles a stored format version.
type UnknownVersionError struct {
	Version int
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("unknown version: %d", e.Version)
}

func (e *UnknownVersionError) Is(target error) bool { return target == ErrUnknownVersion }

// VersionMismatchError is returned when a loader receives data of a version it does not own,
// or when an upgrade step fails to advance the record by exactly one version.
type VersionMismatchError struct {
	Expected int
	Found    int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("version mismatch: expected %d, found %d", e.Expected, e.Found)
}

func (e *VersionMismatchError) Is(target error) bool { return target == ErrVersionMismatch }

// IOError wraps a filesystem failure with the operation and path involved.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// ParseError wraps a decoding failure. Path is empty for in-memory payloads.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("parse error: %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

package constraint

import (
	"log/slog"

	"github.com/gonewton/constraint/internal/platform"
	"github.com/gonewton/constraint/pkg/core"
	"github.com/gonewton/constraint/pkg/loader"
)

// --- Types ---

// Constraint is a public alias for the stored record.
type Constraint = core.Constraint

// Params is a public alias for the fields of a new constraint.
type Params = core.Params

// Update is a public alias for a sparse patch.
type Update = core.Update

// Service is a public alias for the domain service.
type Service = core.Service

// --- Configuration ---

// Option defines a functional option for configuring the service.
type Option = platform.Option

// WithAutoInit creates the .newton workspace in the start directory when none is found.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithMustExist ensures the constraints directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository allows injecting a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithRegistry replaces the loader registry used for bulk reads.
func WithRegistry(r *loader.Registry) Option {
	return platform.WithRegistry(r)
}

// WithErrorHandler registers a callback for records skipped during bulk reads.
func WithErrorHandler(fn func(error)) Option {
	return platform.WithErrorHandler(fn)
}

// WithReadOnly rejects writes and deletes with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// --- Factory ---

// New discovers the workspace from dir and creates a Service.
func New(dir string, opts ...Option) (*core.Service, error) {
	return platform.New(dir, opts...)
}

// Init resolves the workspace from dir and returns its repository.
func Init(dir string, opts ...Option) (core.Repository, error) {
	return platform.Init(dir, opts...)
}

// FindRoot walks upward from dir to the .newton marker directory.
func FindRoot(dir string) (string, error) {
	return platform.FindRoot(dir)
}

// InitWorkspace creates .newton/constraints under dir.
func InitWorkspace(dir string) (string, error) {
	return platform.InitWorkspace(dir)
}

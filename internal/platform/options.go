package platform

import (
	"log/slog"

	"github.com/gonewton/constraint/pkg/core"
	"github.com/gonewton/constraint/pkg/loader"
)

// options holds the internal configuration for the constraint service.
type options struct {
	repository   core.Repository
	registry     *loader.Registry
	logger       *slog.Logger
	errorHandler func(error)
	autoInit     bool
	mustExist    bool
	readOnly     bool
}

// Option defines a functional option for configuring the service.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{}
}

// WithAutoInit creates the workspace in the start directory when none is found.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithMustExist ensures the constraints directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository allows injecting a custom storage adapter (e.g. a mock).
// If provided, workspace discovery and the filesystem adapter are skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithRegistry replaces the default loader registry, e.g. to add migrations.
func WithRegistry(r *loader.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithErrorHandler registers a callback for records skipped during bulk reads
// and for runtime watcher failures, which are otherwise only logged.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithReadOnly enables read-only mode.
// Write and Delete return core.ErrReadOnly and no directories are created.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

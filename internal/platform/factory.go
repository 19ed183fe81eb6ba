package platform

import (
	"context"
	"errors"

	"github.com/gonewton/constraint/pkg/adapters/fs"
	"github.com/gonewton/constraint/pkg/core"
)

// New discovers the workspace from startDir and wires the domain service.
//
//	svc, err := platform.New(".", platform.WithLogger(logger))
func New(startDir string, opts ...Option) (*core.Service, error) {
	repo, err := Init(startDir, opts...)
	if err != nil {
		return nil, err
	}

	o := resolve(opts)
	var svcOpts []core.ServiceOption
	if o.logger != nil {
		svcOpts = append(svcOpts, core.WithServiceLogger(o.logger))
	}
	return core.NewService(repo, svcOpts...), nil
}

// Init resolves the workspace and returns a ready repository.
func Init(startDir string, opts ...Option) (core.Repository, error) {
	o := resolve(opts)

	if o.repository != nil {
		return o.repository, nil
	}

	marker, err := FindRoot(startDir)
	if errors.Is(err, ErrWorkspaceNotFound) && o.autoInit && !o.readOnly {
		marker, err = InitWorkspace(startDir)
	}
	if err != nil {
		return nil, err
	}

	if o.logger != nil {
		o.logger.Debug("workspace resolved", "marker", marker, "read_only", o.readOnly)
	}

	repo := fs.NewRepository(fs.Config{
		Path:         ConstraintsPath(marker),
		Registry:     o.registry,
		MustExist:    o.mustExist,
		ReadOnly:     o.readOnly,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

func resolve(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

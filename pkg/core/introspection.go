package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	RepositoryType string `json:"repository_type" yaml:"repository_type"`
	Watching       bool   `json:"watching" yaml:"watching"`
	Repository     any    `json:"repository,omitempty" yaml:"repository,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := ServiceState{
		RepositoryType: "unknown",
		Watching:       s.watching,
	}
	if s.repo != nil {
		st.RepositoryType = "repository"
		if comp, ok := s.repo.(introspection.Component); ok {
			st.RepositoryType = comp.ComponentType()
		}
		if in, ok := s.repo.(introspection.Introspectable); ok {
			st.Repository = in.State()
		}
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)

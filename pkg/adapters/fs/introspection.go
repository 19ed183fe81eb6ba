package fs

import (
	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path              string `json:"path" yaml:"path"`
	Extension         string `json:"extension" yaml:"extension"`
	CurrentVersion    int    `json:"current_version" yaml:"current_version"`
	SupportedVersions []int  `json:"supported_versions" yaml:"supported_versions"`
	ReadOnly          bool   `json:"read_only" yaml:"read_only"`
	WatcherActive     bool   `json:"watcher_active" yaml:"watcher_active"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RepositoryState{
		Path:              r.Path,
		Extension:         Extension,
		CurrentVersion:    r.registry.CurrentVersion(),
		SupportedVersions: r.registry.Versions(),
		ReadOnly:          r.config.ReadOnly,
		WatcherActive:     r.watcherActive,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}

package loader

import (
	"encoding/json"
	"errors"
	"slices"

	"github.com/gonewton/constraint/pkg/core"
)

// Registry resolves loaders by version and drives forward migration.
// It is not safe for concurrent Register calls; build it once and share it read-only.
type Registry struct {
	loaders []Loader
	current int
}

// NewRegistry builds a registry from loaders. The current version is the
// highest version any loader declares.
func NewRegistry(loaders ...Loader) *Registry {
	r := &Registry{}
	for _, l := range loaders {
		r.Register(l)
	}
	return r
}

// Default returns a registry that knows every built-in format.
func Default() *Registry {
	return NewRegistry(V1Loader{})
}

// Register adds l. Loaders registered earlier win when several handle the same version.
func (r *Registry) Register(l Loader) {
	r.loaders = append(r.loaders, l)
	if l.Version() > r.current {
		r.current = l.Version()
	}
}

// CurrentVersion is the version every loaded record is migrated to.
func (r *Registry) CurrentVersion() int {
	return r.current
}

// Supports reports whether some loader handles v.
func (r *Registry) Supports(v int) bool {
	_, ok := r.LoaderFor(v)
	return ok
}

// LoaderFor returns the first loader that handles v.
func (r *Registry) LoaderFor(v int) (Loader, bool) {
	for _, l := range r.loaders {
		if l.HandlesVersion(v) {
			return l, true
		}
	}
	return nil, false
}

// Versions lists the declared versions in ascending order.
func (r *Registry) Versions() []int {
	out := make([]int, 0, len(r.loaders))
	for _, l := range r.loaders {
		if !slices.Contains(out, l.Version()) {
			out = append(out, l.Version())
		}
	}
	slices.Sort(out)
	return out
}

// DetectVersion reads only the version field of a serialized record.
func (r *Registry) DetectVersion(data []byte) (int, error) {
	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, &core.ParseError{Err: err}
	}
	if probe.Version == nil {
		return 0, &core.ParseError{Err: errors.New("missing version field")}
	}
	return *probe.Version, nil
}

// Load decodes data with the loader for its version and upgrades the result.
func (r *Registry) Load(data []byte) (core.Constraint, error) {
	v, err := r.DetectVersion(data)
	if err != nil {
		return core.Constraint{}, err
	}
	l, ok := r.LoaderFor(v)
	if !ok {
		return core.Constraint{}, &core.UnknownVersionError{Version: v}
	}
	c, err := l.Load(data)
	if err != nil {
		return core.Constraint{}, err
	}
	return r.UpgradeToCurrent(c)
}

// UpgradeToCurrent applies upgrade steps until c reaches the current version.
// Every step must advance the version by exactly one.
func (r *Registry) UpgradeToCurrent(c core.Constraint) (core.Constraint, error) {
	for c.Version < r.current {
		l, ok := r.LoaderFor(c.Version)
		if !ok {
			return core.Constraint{}, &core.UnknownVersionError{Version: c.Version}
		}
		next, err := l.Upgrade(c)
		if err != nil {
			return core.Constraint{}, err
		}
		if next.Version != c.Version+1 {
			return core.Constraint{}, &core.VersionMismatchError{Expected: c.Version + 1, Found: next.Version}
		}
		c = next
	}
	return c, nil
}

package loader

import (
	"encoding/json"

	"github.com/gonewton/constraint/pkg/core"
)

// V1Loader handles the first on-disk format.
type V1Loader struct{}

var _ Loader = V1Loader{}

func (V1Loader) Version() int { return 1 }

func (V1Loader) HandlesVersion(v int) bool { return v == 1 }

// Load decodes a version 1 record and re-runs structural validation,
// so an invalid stored record fails to load.
func (V1Loader) Load(data []byte) (core.Constraint, error) {
	var c core.Constraint
	if err := json.Unmarshal(data, &c); err != nil {
		return core.Constraint{}, &core.ParseError{Err: err}
	}
	if c.Version != 1 {
		return core.Constraint{}, &core.VersionMismatchError{Expected: 1, Found: c.Version}
	}
	if err := core.Validate(c); err != nil {
		return core.Constraint{}, err
	}
	return c, nil
}

// Upgrade is the identity: version 1 is the newest format.
func (V1Loader) Upgrade(c core.Constraint) (core.Constraint, error) {
	return c, nil
}

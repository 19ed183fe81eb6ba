package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gonewton/constraint/pkg/core"
)

const (
	// MarkerDir identifies a workspace root.
	MarkerDir = ".newton"
	// ConstraintsDir is the storage root inside the marker directory.
	ConstraintsDir = "constraints"
	// ConfigFile is the optional workspace configuration inside the marker directory.
	ConfigFile = "config.yaml"
)

// ErrWorkspaceNotFound is returned when no marker directory exists up to the filesystem root.
var ErrWorkspaceNotFound = core.ErrWorkspaceNotFound

// FindRoot recursively looks upwards for a MarkerDir directory.
// If found, returns the absolute path to the marker directory itself.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		marker := filepath.Join(dir, MarkerDir)
		if isDir(marker) {
			return marker, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w: no %s directory in %s or any parent", ErrWorkspaceNotFound, MarkerDir, abs)
}

// InitWorkspace creates the marker and storage directories under dir.
// It is idempotent and returns the marker directory.
func InitWorkspace(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	marker := filepath.Join(abs, MarkerDir)
	if err := os.MkdirAll(ConstraintsPath(marker), 0o755); err != nil {
		return "", &core.IOError{Op: "mkdir", Path: marker, Err: err}
	}
	return marker, nil
}

// ConstraintsPath is the storage root for a marker directory.
func ConstraintsPath(marker string) string {
	return filepath.Join(marker, ConstraintsDir)
}

// ConfigPath is the configuration file for a marker directory.
func ConfigPath(marker string) string {
	return filepath.Join(marker, ConfigFile)
}

// WorkspaceDir is the project directory that contains the marker.
func WorkspaceDir(marker string) string {
	return filepath.Dir(marker)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

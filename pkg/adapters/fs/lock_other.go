//go:build !unix

package fs

// lockDir is a no-op where flock is unavailable; the rename alone keeps writes atomic.
func lockDir(string) (func(), error) {
	return func() {}, nil
}

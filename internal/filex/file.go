// Package filex resolves and creates the client's local data directory.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDataDir creates dir (relative paths resolve against the working
// directory) and returns its absolute path.
func EnsureDataDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// DataFile returns the path of name inside the ensured data directory.
func DataFile(dir, name string) (string, error) {
	d, err := EnsureDataDir(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}

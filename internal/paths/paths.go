// Package paths normalizes snapshot-relative paths used as index keys.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// CanonicalizePath converts an absolute path to a snapshot-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to the snapshot root
// - Returns the relative path with forward slashes
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return NormalizePath(relativePath), nil
}

// NormalizePath converts backslashes to forward slashes
func NormalizePath(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "\\", "/")
}

// IsHidden reports whether a file or directory name is hidden (dot-prefixed).
// "." and ".." are not hidden.
func IsHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}

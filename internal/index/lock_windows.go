//go:build windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// LockFile is the name of the workspace lock held while an index is regenerated.
const LockFile = "docindex.lock"

// Lock is a PID file on Windows; it does not exclude concurrent runs.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock writes the PID file in stateDir.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", stateDir, err)
	}

	path := filepath.Join(stateDir, LockFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}

	return &Lock{path: path, file: file}, nil
}

// Release removes the PID file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = l.file.Close()
	_ = os.Remove(l.path)
}

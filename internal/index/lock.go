//go:build !windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	docerrors "github.com/JanSimek/fallout2-modding/internal/errors"
)

// LockFile is the name of the workspace lock held while an index is regenerated.
const LockFile = "docindex.lock"

// Lock is an exclusive lock on a workspace state directory.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the workspace lock in stateDir without blocking. It fails
// with INDEX_LOCKED when another process holds it.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", stateDir, err)
	}

	path := filepath.Join(stateDir, LockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()

		msg := "workspace is locked by another docindex run"
		if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
			msg = fmt.Sprintf("workspace is locked by another docindex run (PID %s)", strings.TrimSpace(string(content)))
		}
		return nil, docerrors.New(docerrors.IndexLocked, msg, err, nil)
	}

	unlock := func() {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
	}

	if err := file.Truncate(0); err != nil {
		unlock()
		return nil, fmt.Errorf("truncating lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		unlock()
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}

	return &Lock{path: path, file: file}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}

	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path)
}

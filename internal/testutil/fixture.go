// Package testutil provides test helpers: synthetic source trees, golden files and a fake git.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// WriteTree materializes files (slash-separated relative path -> content) under root.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", full, err)
		}
	}
}

// FixtureDir returns the absolute path to testdata/fixtures/<name>.
func FixtureDir(t *testing.T, name string) string {
	t.Helper()

	dir := filepath.Join(projectRoot(t), "testdata", "fixtures", name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Fatalf("Fixture directory not found: %s", dir)
	}
	return dir
}

// GoldenDir returns the absolute path to testdata/golden/<name>. The directory
// need not exist yet; -update creates it.
func GoldenDir(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(projectRoot(t), "testdata", "golden", name)
}

func projectRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}
	// Navigate from internal/testutil to project root
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

// CopyTree copies the fixture src into a fresh temp dir so tests may mutate it.
func CopyTree(t *testing.T, src string) string {
	t.Helper()

	dst := t.TempDir()
	err := filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		t.Fatalf("Failed to copy fixture %s: %v", src, err)
	}
	return dst
}

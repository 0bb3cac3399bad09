package testutil

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// updateGolden controls whether golden files should be updated.
// Use: go test ./internal/generate -run Golden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// CompareGolden compares got against dir/name, failing with a unified diff on mismatch.
// Volatile fields are scrubbed before comparison.
// If -update flag is set, updates the golden file instead of comparing.
func CompareGolden(t *testing.T, dir, name string, got []byte) {
	t.Helper()

	normalized := ScrubVolatile(got)
	goldenPath := filepath.Join(dir, name)

	if *updateGolden {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("Failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, normalized, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				goldenPath, string(normalized), t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(normalized, expected) {
		t.Fatalf("Golden mismatch for %s:\n%s\n\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, UnifiedDiff(string(expected), string(normalized), goldenPath), t.Name())
	}
}

// UnifiedDiff renders expected vs got as a unified patch.
func UnifiedDiff(expected, got, path string) string {
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(got),
		FromFile: path + " (expected)",
		ToFile:   path + " (got)",
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return out
}

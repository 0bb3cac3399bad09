package diff

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Patch renders a unified diff between two artifact encodings. It returns an
// empty string when they are equal.
func Patch(fromName, toName string, before, after []byte) (string, error) {
	if string(before) == string(after) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
}

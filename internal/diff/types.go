// Package diff parses git diffs between snapshot revisions and renders
// preview patches of index artifacts.
package diff

// ChangedFile is one file in a unified diff.
type ChangedFile struct {
	OldPath string
	NewPath string
	IsNew   bool
	Deleted bool
	Renamed bool
	Hunks   []Hunk
}

// Path returns the path the file had before the change, or its new path
// when the file was added.
func (f ChangedFile) Path() string {
	if f.OldPath != "" {
		return f.OldPath
	}
	return f.NewPath
}

// Hunk is one @@ section. Added holds new-file line numbers, Removed holds
// old-file line numbers.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Added    []int
	Removed  []int
}

// OldRange returns the old-file lines the hunk touches. A pure insertion
// touches the line it was inserted after.
func (h Hunk) OldRange() (start, end int) {
	if h.OldLines == 0 {
		return h.OldStart, h.OldStart
	}
	return h.OldStart, h.OldStart + h.OldLines - 1
}

package diff

import (
	"context"
	"fmt"
	"sort"

	"github.com/JanSimek/fallout2-modding/internal/index"
	"github.com/JanSimek/fallout2-modding/internal/repostate"
)

// Drift summarizes how the source moved between the indexed revision and the
// new one.
type Drift struct {
	FromCommit   string   `json:"fromCommit" yaml:"fromCommit"`
	ToCommit     string   `json:"toCommit" yaml:"toCommit"`
	ChangedFiles []string `json:"changedFiles" yaml:"changedFiles"`
	// Touched lists prior entries whose line range overlaps a changed hunk.
	Touched []string `json:"touched" yaml:"touched"`
}

// Detect runs git diff between from and to in the snapshot at dir and matches
// the hunks against prev. It fails when either commit is unknown to the
// checkout, which is common for shallow clones.
func Detect(ctx context.Context, runner repostate.Runner, dir, from, to string, prev *index.Artifact) (*Drift, error) {
	out, err := runner.Git(ctx, dir, "diff", "--no-color", "--unified=0", from, to)
	if err != nil {
		return nil, fmt.Errorf("diffing %s..%s: %w", repostate.Short(from), repostate.Short(to), err)
	}

	files, err := Parse(out)
	if err != nil {
		return nil, err
	}

	d := &Drift{FromCommit: from, ToCommit: to, ChangedFiles: []string{}}
	for _, f := range files {
		d.ChangedFiles = append(d.ChangedFiles, f.Path())
	}
	sort.Strings(d.ChangedFiles)
	d.Touched = Touched(files, prev)

	return d, nil
}

// Touched returns the names of entries in prev located in a deleted or
// renamed file, or whose range overlaps a hunk's old-file range. The result
// is sorted.
func Touched(files []ChangedFile, prev *index.Artifact) []string {
	byFile := make(map[string]ChangedFile, len(files))
	for _, f := range files {
		if f.OldPath != "" {
			byFile[f.OldPath] = f
		}
	}

	touched := []string{}
	for _, name := range prev.Names() {
		e := prev.Entries[name]
		f, ok := byFile[e.File]
		if !ok {
			continue
		}
		if f.Deleted || f.Renamed || overlapsAny(f.Hunks, e.StartLine, e.EndLine) {
			touched = append(touched, name)
		}
	}
	return touched
}

func overlapsAny(hunks []Hunk, start, end int) bool {
	for _, h := range hunks {
		hs, he := h.OldRange()
		if hs <= end && he >= start {
			return true
		}
	}
	return false
}

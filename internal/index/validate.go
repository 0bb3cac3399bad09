package index

import (
	"fmt"
	"sort"
	"strings"

	docerrors "github.com/JanSimek/fallout2-modding/internal/errors"
)

// Conflict is a location that more than one public name resolves to.
type Conflict struct {
	File      string   `json:"file" yaml:"file"`
	StartLine int      `json:"startLine" yaml:"startLine"`
	EndLine   int      `json:"endLine" yaml:"endLine"`
	Names     []string `json:"names" yaml:"names"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s:%d-%d claimed by %s", c.File, c.StartLine, c.EndLine, strings.Join(c.Names, ", "))
}

type triple struct {
	file       string
	start, end int
}

// Validate returns every location claimed by more than one alias-bearing
// entry (one with cppName or dispatchKey), sorted by location.
func Validate(a *Artifact) []Conflict {
	groups := make(map[triple][]string)
	for name, e := range a.Entries {
		if e.CppName == "" && e.DispatchKey == "" {
			continue
		}
		k := triple{e.File, e.StartLine, e.EndLine}
		groups[k] = append(groups[k], name)
	}

	var conflicts []Conflict
	for k, names := range groups {
		if len(names) < 2 {
			continue
		}
		sort.Strings(names)
		conflicts = append(conflicts, Conflict{File: k.file, StartLine: k.start, EndLine: k.end, Names: names})
	}

	sort.Slice(conflicts, func(i, j int) bool {
		ci, cj := conflicts[i], conflicts[j]
		if ci.File != cj.File {
			return ci.File < cj.File
		}
		if ci.StartLine != cj.StartLine {
			return ci.StartLine < cj.StartLine
		}
		return ci.EndLine < cj.EndLine
	})
	return conflicts
}

// ConflictError wraps conflicts in a DUPLICATE_CONFLICT error, or returns nil.
func ConflictError(conflicts []Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	lines := make([]string, len(conflicts))
	for i, c := range conflicts {
		lines[i] = c.String()
	}
	return docerrors.New(docerrors.DuplicateConflict,
		fmt.Sprintf("%d location(s) resolve to more than one name", len(conflicts)), nil, nil).
		WithDetails(lines)
}

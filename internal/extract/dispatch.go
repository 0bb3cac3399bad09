package extract

import (
	"regexp"
	"sort"
	"strings"
)

var (
	casePattern    = regexp.MustCompile(`^\s*case\s+([A-Za-z_]\w*)\s*:`)
	defaultPattern = regexp.MustCompile(`^\s*default\s*:`)
	breakPattern   = regexp.MustCompile(`\bbreak\s*;`)
)

// FindRoutine returns the first definition-site symbol named name.
func FindRoutine(symbols []Symbol, name string) (Symbol, bool) {
	for _, s := range symbols {
		if s.Kind == DefinitionSite && s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// Dispatch locates one case branch per key inside the body of routine. lines
// must be the routine's file. A branch ends on the first line at the branch's
// own brace depth that is another case label, a default label or a break, or on
// the line closing the enclosing block. Keys with no case label are returned as
// missing, sorted.
func Dispatch(lines []string, routine Symbol, keys []string) ([]Symbol, []string) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	first := routine.StartLine - 1
	last := routine.EndLine
	if last > len(lines) {
		last = len(lines)
	}

	var out []Symbol
	found := make(map[string]bool)

	for i := first; i < last; i++ {
		m := casePattern.FindStringSubmatch(lines[i])
		if m == nil || !want[m[1]] || found[m[1]] {
			continue
		}
		found[m[1]] = true

		out = append(out, Symbol{
			Name:        m[1],
			Location:    Location{File: routine.File, StartLine: i + 1, EndLine: branchEnd(lines, i, last)},
			Kind:        DispatchCase,
			Family:      FamilyDispatch,
			DispatchKey: m[1],
		})
	}

	var missing []string
	for _, k := range keys {
		if !found[k] {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)

	return out, missing
}

func branchEnd(lines []string, start, limit int) int {
	depth := 0
	for j := start; j < limit; j++ {
		line := lines[j]
		if depth == 0 {
			if j > start && (casePattern.MatchString(line) || defaultPattern.MatchString(line)) {
				return j + 1
			}
			label := line
			if j == start {
				label = line[strings.Index(line, ":")+1:]
			}
			if breakPattern.MatchString(label) {
				return j + 1
			}
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			return j + 1
		}
	}
	return limit
}

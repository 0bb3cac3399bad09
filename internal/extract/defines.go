package extract

import (
	"regexp"
	"strings"
)

// DefineKind separates object-like from function-like macros.
type DefineKind string

const (
	KindDefine DefineKind = "define"
	KindMacro  DefineKind = "macro"
)

// Define is one preprocessor definition.
type Define struct {
	Name string `json:"name"`
	Location
	Kind  DefineKind `json:"kind"`
	Value string     `json:"value"`
}

var (
	definePattern = regexp.MustCompile(`^\s*#\s*define\s+([A-Za-z_]\w*)(\([^)]*\))?(.*)$`)
	guardPattern  = regexp.MustCompile(`_(H|HPP|HH|INCLUDED)_*$`)
)

// Defines extracts #define directives, following backslash continuations.
// Value-less include guards are skipped.
func Defines(rel string, lines []string) []Define {
	var out []Define

	for i := 0; i < len(lines); i++ {
		m := definePattern.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}

		start := i
		parts := []string{m[3]}
		for strings.HasSuffix(strings.TrimRight(lines[i], " \t"), `\`) && i+1 < len(lines) {
			i++
			parts = append(parts, lines[i])
		}

		value := joinContinued(parts)
		kind := KindDefine
		if m[2] != "" {
			kind = KindMacro
		}
		if kind == KindDefine && value == "" && guardPattern.MatchString(m[1]) {
			continue
		}

		out = append(out, Define{
			Name:     m[1],
			Location: Location{File: rel, StartLine: start + 1, EndLine: i + 1},
			Kind:     kind,
			Value:    value,
		})
	}

	return out
}

func joinContinued(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSuffix(strings.TrimRight(p, " \t"), `\`)
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return stripTrailingComment(b.String())
}

func stripTrailingComment(v string) string {
	if i := strings.Index(v, "//"); i >= 0 && !strings.Contains(v[:i], `"`) {
		v = v[:i]
	}
	if strings.HasSuffix(strings.TrimSpace(v), "*/") {
		if i := strings.LastIndex(v, "/*"); i >= 0 {
			v = v[:i]
		}
	}
	return strings.TrimSpace(v)
}

// Package alias resolves the canonical external name of each detected symbol.
package alias

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/JanSimek/fallout2-modding/internal/extract"
	"github.com/JanSimek/fallout2-modding/internal/logging"
	"github.com/JanSimek/fallout2-modding/internal/tables"
)

// Origin records which source decided an alias.
type Origin string

const (
	OriginOverride     Origin = "override"
	OriginComment      Origin = "comment-derived"
	OriginRegistration Origin = "registration-derived"
	OriginTransform    Origin = "transform-derived"
	OriginFixedTable   Origin = "fixed-table"
)

// Alias is a canonical name bound to a location.
type Alias struct {
	Canonical string `json:"canonical"`
	// Underlying is the native name; empty for dispatch cases.
	Underlying  string `json:"underlying,omitempty"`
	DispatchKey string `json:"dispatchKey,omitempty"`
	Origin      Origin `json:"origin"`
	extract.Location
}

type annotation struct {
	name   string
	origin Origin
	at     extract.Location
}

// Resolve computes at most one alias per opcode handler definition and one per
// dispatch case. Candidates are tried in order: override table, first
// annotation in scan order (definition comment or registration comment),
// prefix-stripping transform. An alias equal to the lowercased native name is
// not emitted. Output follows scan order. A later annotation naming a handler
// differently is dropped with a warning; the override table is the way to
// correct it. logger may be nil.
func Resolve(symbols []extract.Symbol, t *tables.Tables, logger *logging.Logger) []Alias {
	ordered := append([]extract.Symbol(nil), symbols...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	annotations := make(map[string]annotation)
	note := func(native, name string, origin Origin, at extract.Location) {
		if name == "" {
			return
		}
		kept, ok := annotations[native]
		if !ok {
			annotations[native] = annotation{name: name, origin: origin, at: at}
			return
		}
		if kept.name != name {
			logger.Warn("Conflicting alias annotation ignored", logging.Fields{
				"handler":       native,
				"kept":          kept.name,
				"keptAt":        fmt.Sprintf("%s:%d", kept.at.File, kept.at.StartLine),
				"keptOrigin":    string(kept.origin),
				"dropped":       name,
				"droppedAt":     fmt.Sprintf("%s:%d", at.File, at.StartLine),
				"droppedOrigin": string(origin),
			})
		}
	}
	for _, s := range ordered {
		switch {
		case s.Kind == extract.DefinitionSite && s.Family.IsOpcode():
			note(s.Name, s.Comment, OriginComment, s.Location)
		case s.Kind == extract.RegistrationSite:
			note(s.Handler, s.Annotation, OriginRegistration, s.Location)
		}
	}

	var out []Alias
	seen := make(map[string]bool)

	for _, s := range ordered {
		switch {
		case s.Kind == extract.DefinitionSite && s.Family.IsOpcode():
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true

			name, origin := candidate(s, t, annotations)
			if name == "" || name == strings.ToLower(s.Name) {
				continue
			}
			out = append(out, Alias{Canonical: name, Underlying: s.Name, Origin: origin, Location: s.Location})

		case s.Kind == extract.DispatchCase:
			name, ok := t.Dispatch(s.DispatchKey)
			if !ok {
				continue
			}
			out = append(out, Alias{Canonical: name, DispatchKey: s.DispatchKey, Origin: OriginFixedTable, Location: s.Location})
		}
	}

	return out
}

func candidate(s extract.Symbol, t *tables.Tables, annotations map[string]annotation) (string, Origin) {
	if v, ok := t.Override(s.Name); ok {
		return v, OriginOverride
	}
	if a, ok := annotations[s.Name]; ok {
		return a.name, a.origin
	}
	return Transform(s.Name, s.Prefix), OriginTransform
}

// Transform strips prefix from name and converts the remainder to snake_case:
// "opGetSelf" with prefix "op" gives "get_self", "HTTPGet" gives "http_get".
func Transform(name, prefix string) string {
	rest := []rune(strings.TrimPrefix(name, prefix))

	var b strings.Builder
	for i, r := range rest {
		if unicode.IsUpper(r) && i > 0 {
			prev := rest[i-1]
			nextLower := i+1 < len(rest) && unicode.IsLower(rest[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return collapseUnderscores(b.String())
}

func collapseUnderscores(s string) string {
	parts := strings.Split(s, "_")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_")
}

package index

import "fmt"

// Target is what a consumer needs to link to a name.
type Target struct {
	Name      string `json:"name" yaml:"name"`
	File      string `json:"file" yaml:"file"`
	StartLine int    `json:"startLine" yaml:"startLine"`
	EndLine   int    `json:"endLine" yaml:"endLine"`
	Commit    string `json:"commit" yaml:"commit"`
	Kind      string `json:"kind" yaml:"kind"`
}

// Resolver answers name lookups against a loaded artifact.
type Resolver struct {
	art *Artifact
}

// NewResolver creates a Resolver over a.
func NewResolver(a *Artifact) *Resolver {
	return &Resolver{art: a}
}

// Resolve looks up name. Lookups are exact.
func (r *Resolver) Resolve(name string) (Target, bool) {
	e, ok := r.art.Entries[name]
	if !ok {
		return Target{}, false
	}
	return Target{
		Name:      name,
		File:      e.File,
		StartLine: e.StartLine,
		EndLine:   e.EndLine,
		Commit:    e.Commit,
		Kind:      e.Kind,
	}, true
}

// Permalink formats a commit-pinned source link, e.g.
// https://github.com/alexbatalov/fallout2-ce/blob/<commit>/src/x.cc#L10-L20
func Permalink(host, repo string, t Target) string {
	return fmt.Sprintf("https://%s/%s/blob/%s/%s#L%d-L%d", host, repo, t.Commit, t.File, t.StartLine, t.EndLine)
}

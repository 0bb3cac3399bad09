package index

import (
	"fmt"

	"github.com/JanSimek/fallout2-modding/internal/alias"
	"github.com/JanSimek/fallout2-modding/internal/extract"
)

// Header carries the artifact metadata shared by both kinds.
type Header struct {
	Repo        string
	Commit      string
	ShortCommit string
	GeneratedAt *string
}

// Collision is a name that was already taken by an entry at another location.
// The earlier entry is kept.
type Collision struct {
	Name string
	Kept extract.Location
	Lost extract.Location
}

func (c Collision) String() string {
	return fmt.Sprintf("%s: kept %s:%d-%d, dropped %s:%d-%d",
		c.Name, c.Kept.File, c.Kept.StartLine, c.Kept.EndLine, c.Lost.File, c.Lost.StartLine, c.Lost.EndLine)
}

type builder struct {
	art        *Artifact
	collisions []Collision
}

func newBuilder(kind Kind, h Header) *builder {
	art := Empty(kind)
	art.Meta = Meta{Repo: h.Repo, Commit: h.Commit, ShortCommit: h.ShortCommit, GeneratedAt: h.GeneratedAt}
	return &builder{art: art}
}

func (b *builder) add(name string, e Entry) {
	if prev, ok := b.art.Entries[name]; ok {
		if prev.Location() != e.Location() {
			b.collisions = append(b.collisions, Collision{Name: name, Kept: prev.Location(), Lost: e.Location()})
		}
		return
	}
	b.art.Entries[name] = e
}

func (b *builder) finish() (*Artifact, []Collision) {
	b.art.Meta.Count = len(b.art.Entries)
	return b.art, b.collisions
}

// AssembleFunctions builds the function index: one entry per definition keyed
// by native name, and one per alias keyed by canonical name.
func AssembleFunctions(h Header, symbols []extract.Symbol, aliases []alias.Alias) (*Artifact, []Collision) {
	b := newBuilder(Functions, h)

	for _, s := range symbols {
		if s.Kind != extract.DefinitionSite {
			continue
		}
		kind := EntryFunction
		if s.Family.IsOpcode() {
			kind = EntryOpcode
		}
		b.add(s.Name, Entry{
			File:      s.File,
			StartLine: s.StartLine,
			EndLine:   s.EndLine,
			Kind:      kind,
			Commit:    h.Commit,
		})
	}

	for _, a := range aliases {
		e := Entry{
			File:      a.File,
			StartLine: a.StartLine,
			EndLine:   a.EndLine,
			Commit:    h.Commit,
		}
		if a.DispatchKey != "" {
			e.Kind = EntryMetarule
			e.DispatchKey = a.DispatchKey
		} else {
			e.Kind = EntryOpcode
			e.CppName = a.Underlying
		}
		b.add(a.Canonical, e)
	}

	return b.finish()
}

// AssembleDefines builds the define index. The first definition of a name in
// scan order wins.
func AssembleDefines(h Header, defines []extract.Define) (*Artifact, []Collision) {
	b := newBuilder(Defines, h)

	for _, d := range defines {
		b.add(d.Name, Entry{
			File:      d.File,
			StartLine: d.StartLine,
			EndLine:   d.EndLine,
			Kind:      string(d.Kind),
			Commit:    h.Commit,
			Value:     d.Value,
		})
	}

	return b.finish()
}

// Package index assembles, compares, validates and persists the generated
// symbol indexes.
package index

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	docerrors "github.com/JanSimek/fallout2-modding/internal/errors"
	"github.com/JanSimek/fallout2-modding/internal/extract"
)

// Kind selects which artifact an index describes.
type Kind string

const (
	Functions Kind = "functions"
	Defines   Kind = "defines"
)

// CountKey returns the _meta key holding the entry count.
func (k Kind) CountKey() string {
	if k == Defines {
		return "defineCount"
	}
	return "functionCount"
}

// Entry kinds.
const (
	EntryOpcode   = "opcode"
	EntryFunction = "function"
	EntryMetarule = "metarule"
	EntryDefine   = "define"
	EntryMacro    = "macro"
)

// Entry locates one public name.
type Entry struct {
	File        string `json:"file" yaml:"file"`
	StartLine   int    `json:"startLine" yaml:"startLine"`
	EndLine     int    `json:"endLine" yaml:"endLine"`
	Kind        string `json:"kind" yaml:"kind"`
	Commit      string `json:"commit" yaml:"commit"`
	CppName     string `json:"cppName,omitempty" yaml:"cppName,omitempty"`
	DispatchKey string `json:"dispatchKey,omitempty" yaml:"dispatchKey,omitempty"`
	Value       string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Location returns the entry's line range.
func (e Entry) Location() extract.Location {
	return extract.Location{File: e.File, StartLine: e.StartLine, EndLine: e.EndLine}
}

// Meta is the artifact header.
type Meta struct {
	Repo        string
	Commit      string
	ShortCommit string
	// GeneratedAt is nil when timestamps are disabled.
	GeneratedAt *string
	Count       int
}

// Artifact is one generated index.
type Artifact struct {
	Kind    Kind
	Meta    Meta
	Entries map[string]Entry
}

// Empty returns an artifact with no entries, used as the baseline when no
// prior index exists.
func Empty(kind Kind) *Artifact {
	return &Artifact{Kind: kind, Entries: map[string]Entry{}}
}

// Names returns entry names sorted.
func (a *Artifact) Names() []string {
	names := make([]string, 0, len(a.Entries))
	for n := range a.Entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON writes the _meta header and the kind-named entry map.
// encoding/json sorts map keys, which keeps output stable across runs.
func (a *Artifact) MarshalJSON() ([]byte, error) {
	meta := map[string]interface{}{
		"repo":        a.Meta.Repo,
		"commit":      a.Meta.Commit,
		"shortCommit": a.Meta.ShortCommit,
		"generatedAt": a.Meta.GeneratedAt,
	}
	meta[a.Kind.CountKey()] = len(a.Entries)
	entries := a.Entries
	if entries == nil {
		entries = map[string]Entry{}
	}
	return marshal(map[string]interface{}{
		"_meta":        meta,
		string(a.Kind): entries,
	})
}

// marshal is json.Marshal without HTML escaping; macro bodies keep their
// operators readable.
func marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type rawMeta struct {
	Repo          string  `json:"repo"`
	Commit        string  `json:"commit"`
	ShortCommit   string  `json:"shortCommit"`
	GeneratedAt   *string `json:"generatedAt"`
	FunctionCount *int    `json:"functionCount"`
	DefineCount   *int    `json:"defineCount"`
}

type rawArtifact struct {
	Meta      *rawMeta         `json:"_meta"`
	Functions map[string]Entry `json:"functions"`
	Defines   map[string]Entry `json:"defines"`
}

// UnmarshalJSON reads either artifact kind; the kind is taken from the
// entry map present.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Meta == nil {
		return fmt.Errorf("missing _meta")
	}

	switch {
	case raw.Functions != nil && raw.Defines == nil:
		a.Kind, a.Entries = Functions, raw.Functions
	case raw.Defines != nil && raw.Functions == nil:
		a.Kind, a.Entries = Defines, raw.Defines
	default:
		return fmt.Errorf("expected exactly one of %q or %q", Functions, Defines)
	}

	a.Meta = Meta{
		Repo:        raw.Meta.Repo,
		Commit:      raw.Meta.Commit,
		ShortCommit: raw.Meta.ShortCommit,
		GeneratedAt: raw.Meta.GeneratedAt,
		Count:       len(a.Entries),
	}
	return nil
}

// Encode renders the artifact as written to disk: two-space indentation and a
// trailing newline.
func (a *Artifact) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads the artifact at path. A missing file returns an error wrapping
// os.ErrNotExist; unparsable content or the wrong kind is ARTIFACT_CORRUPT.
func Load(path string, kind Kind) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", path, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, docerrors.New(docerrors.ArtifactCorrupt, fmt.Sprintf("parsing index %s", path), err, nil)
	}
	if a.Kind != kind {
		return nil, docerrors.New(docerrors.ArtifactCorrupt,
			fmt.Sprintf("index %s holds %s, expected %s", path, a.Kind, kind), nil, nil)
	}
	return &a, nil
}

// LoadBaseline is Load that degrades to an empty artifact. It always returns an
// artifact; the error is non-nil only when a file existed but could not be used.
func LoadBaseline(path string, kind Kind) (*Artifact, error) {
	a, err := Load(path, kind)
	if err == nil {
		return a, nil
	}
	if stderrors.Is(err, os.ErrNotExist) {
		return Empty(kind), nil
	}
	return Empty(kind), err
}

// Save writes the artifact atomically: a temporary file in the target
// directory is renamed over path.
func (a *Artifact) Save(path string) error {
	data, err := a.Encode()
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic replaces path with data via temp file and rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

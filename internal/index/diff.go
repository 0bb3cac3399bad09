package index

// Change is a name present in both artifacts whose location or identity moved.
type Change struct {
	Name   string   `json:"name" yaml:"name"`
	Before Entry    `json:"before" yaml:"before"`
	After  Entry    `json:"after" yaml:"after"`
	Fields []string `json:"fields" yaml:"fields"`
}

// DiffResult is the difference between a prior artifact and a new one. The
// lists are never nil.
type DiffResult struct {
	Added           []string `json:"added" yaml:"added"`
	Removed         []string `json:"removed" yaml:"removed"`
	Modified        []Change `json:"modified" yaml:"modified"`
	RevisionChanged bool     `json:"revisionChanged" yaml:"revisionChanged"`
	FromCommit      string   `json:"fromCommit" yaml:"fromCommit"`
	ToCommit        string   `json:"toCommit" yaml:"toCommit"`
}

// Empty reports whether nothing would change on disk apart from the timestamp.
func (d *DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0 && !d.RevisionChanged
}

// Compute compares prev with next. Per-entry commits are not compared; a new
// revision is reported once through RevisionChanged.
func Compute(prev, next *Artifact) *DiffResult {
	d := &DiffResult{
		Added:           []string{},
		Removed:         []string{},
		Modified:        []Change{},
		FromCommit:      prev.Meta.Commit,
		ToCommit:        next.Meta.Commit,
		RevisionChanged: prev.Meta.Commit != next.Meta.Commit,
	}

	for _, name := range next.Names() {
		after := next.Entries[name]
		before, ok := prev.Entries[name]
		if !ok {
			d.Added = append(d.Added, name)
			continue
		}
		if fields := changedFields(before, after); len(fields) > 0 {
			d.Modified = append(d.Modified, Change{Name: name, Before: before, After: after, Fields: fields})
		}
	}

	for _, name := range prev.Names() {
		if _, ok := next.Entries[name]; !ok {
			d.Removed = append(d.Removed, name)
		}
	}

	return d
}

func changedFields(a, b Entry) []string {
	var fields []string
	check := func(name string, differ bool) {
		if differ {
			fields = append(fields, name)
		}
	}
	check("file", a.File != b.File)
	check("startLine", a.StartLine != b.StartLine)
	check("endLine", a.EndLine != b.EndLine)
	check("kind", a.Kind != b.Kind)
	check("cppName", a.CppName != b.CppName)
	check("dispatchKey", a.DispatchKey != b.DispatchKey)
	check("value", a.Value != b.Value)
	return fields
}

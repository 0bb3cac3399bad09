package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JanSimek/fallout2-modding/internal/gate"
	"github.com/JanSimek/fallout2-modding/internal/generate"
	"github.com/JanSimek/fallout2-modding/internal/index"
	"github.com/JanSimek/fallout2-modding/internal/output"
	"github.com/JanSimek/fallout2-modding/internal/repostate"
	"github.com/JanSimek/fallout2-modding/internal/storage"
)

const ruleWidth = 60

// formatDiffHuman renders everything known before the write decision.
func formatDiffHuman(r *generate.Report, s output.Styles, maxListed int) string {
	var b strings.Builder

	title := fmt.Sprintf("docindex %s", r.Kind)
	if r.Revision != nil {
		title += " @ " + r.Revision.ShortCommit
		if r.Revision.Branch != "" && r.Revision.Branch != r.Revision.ShortCommit {
			title += " (" + r.Revision.Branch + ")"
		}
	}
	b.WriteString(s.Title.Render(title) + "\n")
	b.WriteString(s.Rule(ruleWidth) + "\n")

	if r.Snapshot != nil {
		b.WriteString(fmt.Sprintf("%s %s (%s)\n", s.Label.Render("Snapshot:"), r.Snapshot.Path, snapshotState(r.Snapshot.Cloned, r.Snapshot.Updated, r.Snapshot.Stale)))
	}
	b.WriteString(fmt.Sprintf("%s %d from %d files\n", s.Label.Render("Entries:"), r.EntryCount, r.Files))

	if len(r.Warnings) > 0 {
		b.WriteString("\n" + s.Warning.Render("Warnings:") + "\n")
		for _, w := range r.Warnings {
			b.WriteString(fmt.Sprintf("  ! %s\n", w))
		}
	}
	if len(r.MissingDispatch) > 0 {
		b.WriteString(fmt.Sprintf("\n%s %d keys without a case branch\n", s.Label.Render("Dispatch:"), len(r.MissingDispatch)))
		writeList(&b, r.MissingDispatch, maxListed, func(k string) string { return "  " + s.Muted.Render(k) })
	}
	if len(r.Collisions) > 0 {
		b.WriteString(fmt.Sprintf("\n%s\n", s.Warning.Render(fmt.Sprintf("Collisions (%d):", len(r.Collisions)))))
		writeList(&b, r.Collisions, maxListed, func(c string) string { return "  " + c })
	}

	if d := r.Diff; d != nil {
		if d.RevisionChanged {
			from := repostate.Short(d.FromCommit)
			if from == "" {
				from = "(none)"
			}
			b.WriteString(fmt.Sprintf("\n%s %s -> %s\n", s.Label.Render("Revision:"), from, repostate.Short(d.ToCommit)))
		}
		if len(d.Added) > 0 {
			b.WriteString("\n" + s.Label.Render(fmt.Sprintf("Added (%d):", len(d.Added))) + "\n")
			writeList(&b, d.Added, maxListed, func(n string) string { return "  " + s.Added.Render("+ "+n) })
		}
		if len(d.Removed) > 0 {
			b.WriteString("\n" + s.Label.Render(fmt.Sprintf("Removed (%d):", len(d.Removed))) + "\n")
			writeList(&b, d.Removed, maxListed, func(n string) string { return "  " + s.Removed.Render("- "+n) })
		}
		if len(d.Modified) > 0 {
			lines := make([]string, 0, len(d.Modified))
			for _, c := range d.Modified {
				lines = append(lines, describeChange(c))
			}
			b.WriteString("\n" + s.Label.Render(fmt.Sprintf("Modified (%d):", len(d.Modified))) + "\n")
			writeList(&b, lines, maxListed, func(l string) string { return "  " + s.Modified.Render("~ "+l) })
		}
	}

	if dr := r.Drift; dr != nil {
		b.WriteString(fmt.Sprintf("\n%s %d files changed since %s, %d entries touched\n",
			s.Label.Render("Drift:"), len(dr.ChangedFiles), repostate.Short(dr.FromCommit), len(dr.Touched)))
		writeList(&b, dr.Touched, maxListed, func(n string) string { return "  " + n })
	}

	if r.Patch != "" {
		b.WriteString("\n" + r.Patch)
		if !strings.HasSuffix(r.Patch, "\n") {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	return b.String()
}

// formatOutcomeHuman renders the final line of a run.
func formatOutcomeHuman(r *generate.Report, s output.Styles) string {
	switch {
	case r.UpToDate:
		return fmt.Sprintf("%s %s (%d entries)\n", s.Added.Render("Up to date:"), r.Output, r.EntryCount)
	case r.State == gate.Persisted:
		return fmt.Sprintf("%s %s (%d entries)\n", s.Added.Render("Written:"), r.Output, r.EntryCount)
	case r.State == gate.PreviewOnly:
		return fmt.Sprintf("%s nothing written to %s\n", s.Modified.Render("Dry run:"), r.Output)
	case r.State == gate.Aborted:
		return fmt.Sprintf("%s existing index kept at %s\n", s.Removed.Render("Aborted:"), r.Output)
	default:
		return fmt.Sprintf("State: %s\n", r.State)
	}
}

func snapshotState(cloned, updated, stale bool) string {
	switch {
	case cloned:
		return "cloned"
	case updated:
		return "updated"
	case stale:
		return "stale"
	default:
		return "as-is"
	}
}

func writeList(b *strings.Builder, items []string, max int, render func(string) string) {
	shown, more := output.Truncate(items, max)
	for _, item := range shown {
		b.WriteString(render(item) + "\n")
	}
	if more > 0 {
		b.WriteString("  " + output.More(more) + "\n")
	}
}

// describeChange lists the changed fields of one entry, e.g.
// "self_obj: startLine 10 -> 12".
func describeChange(c index.Change) string {
	parts := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		parts = append(parts, fmt.Sprintf("%s %s -> %s", f, fieldValue(c.Before, f), fieldValue(c.After, f)))
	}
	return c.Name + ": " + strings.Join(parts, ", ")
}

func fieldValue(e index.Entry, field string) string {
	var v string
	switch field {
	case "file":
		v = e.File
	case "startLine":
		return fmt.Sprint(e.StartLine)
	case "endLine":
		return fmt.Sprint(e.EndLine)
	case "kind":
		v = e.Kind
	case "cppName":
		v = e.CppName
	case "dispatchKey":
		v = e.DispatchKey
	case "value":
		v = e.Value
	}
	if v == "" {
		return `""`
	}
	return v
}

// ValidateResponseCLI is the result of --validate.
type ValidateResponseCLI struct {
	Path      string           `json:"path" yaml:"path"`
	Conflicts []index.Conflict `json:"conflicts" yaml:"conflicts"`
}

func formatValidateHuman(resp *ValidateResponseCLI, s output.Styles) string {
	if len(resp.Conflicts) == 0 {
		return fmt.Sprintf("%s no duplicate locations in %s\n", s.Added.Render("OK:"), resp.Path)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %d locations claimed by more than one name in %s\n",
		s.Error.Render("Conflicts:"), len(resp.Conflicts), resp.Path))
	for _, c := range resp.Conflicts {
		b.WriteString("  " + c.String() + "\n")
	}
	return b.String()
}

func formatResolveHuman(resp *ResolveResponseCLI) string {
	return resp.Permalink + "\n"
}

func formatHistoryHuman(resp *HistoryResponseCLI, s output.Styles) string {
	if len(resp.Runs) == 0 {
		return "No runs recorded.\n"
	}

	var b strings.Builder
	b.WriteString(s.Label.Render(fmt.Sprintf("%-8s  %-16s  %-9s  %-7s  %-13s  %-14s  %s",
		"RUN", "STARTED", "KIND", "COMMIT", "OUTCOME", "CHANGES", "ENTRIES")) + "\n")
	for _, run := range resp.Runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		commit := repostate.Short(run.Commit)
		if run.Placeholder {
			commit += "?"
		}
		changes := fmt.Sprintf("+%d -%d ~%d", run.Added, run.Removed, run.Modified)
		line := fmt.Sprintf("%-8s  %-16s  %-9s  %-7s  %-13s  %-14s  %d",
			id, run.StartedAt.Local().Format("2006-01-02 15:04"), run.Kind, commit, run.Outcome, changes, run.EntryCount)
		b.WriteString(outcomeStyle(run.Outcome, s).Render(line) + "\n")
	}
	return b.String()
}

func outcomeStyle(outcome string, s output.Styles) lipgloss.Style {
	switch outcome {
	case storage.OutcomeFailed, string(gate.Aborted):
		return s.Removed
	case string(gate.Persisted):
		return s.Added
	default:
		return s.Muted
	}
}

func formatExplainHuman(o *storage.Origin, s output.Styles) string {
	var b strings.Builder

	b.WriteString(s.Title.Render(o.Canonical) + "\n")
	b.WriteString(fmt.Sprintf("  %-10s %s\n", "origin:", o.Origin))
	if o.Underlying != "" {
		b.WriteString(fmt.Sprintf("  %-10s %s\n", "native:", o.Underlying))
	}
	if o.DispatchKey != "" {
		b.WriteString(fmt.Sprintf("  %-10s %s\n", "dispatch:", o.DispatchKey))
	}
	b.WriteString(fmt.Sprintf("  %-10s %s:%d-%d\n", "location:", o.File, o.StartLine, o.EndLine))
	b.WriteString(fmt.Sprintf("  %-10s %s at %s (run %s)\n", "recorded:",
		repostate.Short(o.Commit), o.RecordedAt.UTC().Format("2006-01-02 15:04:05Z"), o.RunID))
	return b.String()
}

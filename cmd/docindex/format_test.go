package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/JanSimek/fallout2-modding/internal/diff"
	"github.com/JanSimek/fallout2-modding/internal/errors"
	"github.com/JanSimek/fallout2-modding/internal/gate"
	"github.com/JanSimek/fallout2-modding/internal/generate"
	"github.com/JanSimek/fallout2-modding/internal/index"
	"github.com/JanSimek/fallout2-modding/internal/output"
	"github.com/JanSimek/fallout2-modding/internal/repostate"
	"github.com/JanSimek/fallout2-modding/internal/snapshot"
	"github.com/JanSimek/fallout2-modding/internal/storage"
)

var plain = output.NewStyles(false)

func sampleReport() *generate.Report {
	return &generate.Report{
		Kind:       index.Functions,
		Output:     "static/data/fallout2-ce-functions.json",
		Snapshot:   &snapshot.Result{Path: "/work/.docindex/fallout2-ce", Updated: true},
		Revision:   &repostate.Revision{Commit: "9e8d7c6b5a4f3e2d1c0b9a8f7e6d5c4b3a291807", ShortCommit: "9e8d7c6", Branch: "main"},
		Files:      3,
		EntryCount: 12,
		Diff: &index.DiffResult{
			Added:   []string{"a1", "a2", "a3"},
			Removed: []string{"r1"},
			Modified: []index.Change{{
				Name:   "self_obj",
				Before: index.Entry{StartLine: 10, EndLine: 14},
				After:  index.Entry{StartLine: 12, EndLine: 16},
				Fields: []string{"startLine", "endLine"},
			}},
			RevisionChanged: true,
			FromCommit:      "3f2a9c1d4e5b6a7980112233445566778899aabb",
			ToCommit:        "9e8d7c6b5a4f3e2d1c0b9a8f7e6d5c4b3a291807",
		},
		Drift: &diff.Drift{
			FromCommit:   "3f2a9c1d4e5b6a7980112233445566778899aabb",
			ChangedFiles: []string{"src/interpreter_extra.cc"},
			Touched:      []string{"op_sqrt", "sqrt"},
		},
		Warnings: []string{"dispatch keys without a case branch"},
	}
}

func TestFormatDiffHuman(t *testing.T) {
	got := formatDiffHuman(sampleReport(), plain, 2)

	wantParts := []string{
		"docindex functions @ 9e8d7c6 (main)",
		"Snapshot: /work/.docindex/fallout2-ce (updated)",
		"Entries: 12 from 3 files",
		"  ! dispatch keys without a case branch",
		"Revision: 3f2a9c1 -> 9e8d7c6",
		"Added (3):\n  + a1\n  + a2\n  ... and 1 more\n",
		"Removed (1):\n  - r1\n",
		"Modified (1):\n  ~ self_obj: startLine 10 -> 12, endLine 14 -> 16\n",
		"Drift: 1 files changed since 3f2a9c1, 2 entries touched",
	}
	for _, part := range wantParts {
		if !strings.Contains(got, part) {
			t.Errorf("output missing %q\n%s", part, got)
		}
	}
}

func TestFormatDiffHuman_NoLimit(t *testing.T) {
	got := formatDiffHuman(sampleReport(), plain, 0)
	if strings.Contains(got, "more") {
		t.Errorf("maxListed 0 should list everything:\n%s", got)
	}
	if !strings.Contains(got, "  + a3\n") {
		t.Errorf("missing a3:\n%s", got)
	}
}

func TestReportYAMLKeys(t *testing.T) {
	got, err := output.Encode(sampleReport(), output.FormatYAML)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	for _, key := range []string{"startLine: 10", "endLine: 16", "revisionChanged: true", "fromCommit: 3f2a9c1d", "shortCommit: 9e8d7c6", "changedFiles:", "entryCount: 12"} {
		if !strings.Contains(got, key) {
			t.Errorf("yaml report missing %q\n%s", key, got)
		}
	}
	for _, key := range []string{"startline", "revisionchanged", "fromcommit", "cppName", "dispatchKey", "value:"} {
		if strings.Contains(got, key) {
			t.Errorf("yaml report contains %q\n%s", key, got)
		}
	}
}

func TestFormatOutcomeHuman(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*generate.Report)
		want   string
	}{
		{"up to date", func(r *generate.Report) { r.UpToDate = true }, "Up to date: static/data/fallout2-ce-functions.json (12 entries)\n"},
		{"persisted", func(r *generate.Report) { r.State = gate.Persisted }, "Written: static/data/fallout2-ce-functions.json (12 entries)\n"},
		{"dry run", func(r *generate.Report) { r.State = gate.PreviewOnly }, "Dry run: nothing written to static/data/fallout2-ce-functions.json\n"},
		{"aborted", func(r *generate.Report) { r.State = gate.Aborted }, "Aborted: existing index kept at static/data/fallout2-ce-functions.json\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleReport()
			tt.mutate(r)
			if got := formatOutcomeHuman(r, plain); got != tt.want {
				t.Errorf("formatOutcomeHuman = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribeChange_EmptyValue(t *testing.T) {
	c := index.Change{
		Name:   "self_obj",
		Before: index.Entry{CppName: ""},
		After:  index.Entry{CppName: "opGetSelf"},
		Fields: []string{"cppName"},
	}
	if got := describeChange(c); got != `self_obj: cppName "" -> opGetSelf` {
		t.Errorf("describeChange = %q", got)
	}
}

func TestFormatValidateHuman(t *testing.T) {
	clean := formatValidateHuman(&ValidateResponseCLI{Path: "f.json"}, plain)
	if clean != "OK: no duplicate locations in f.json\n" {
		t.Errorf("clean = %q", clean)
	}

	resp := &ValidateResponseCLI{Path: "f.json", Conflicts: []index.Conflict{
		{File: "a.cc", StartLine: 1, EndLine: 4, Names: []string{"self_obj", "self_object"}},
	}}
	got := formatValidateHuman(resp, plain)
	if !strings.HasPrefix(got, "Conflicts: 1 locations claimed by more than one name in f.json\n") {
		t.Errorf("header = %q", got)
	}
	if !strings.Contains(got, resp.Conflicts[0].String()) {
		t.Errorf("conflict line missing:\n%s", got)
	}
}

func TestFormatHistoryHuman(t *testing.T) {
	if got := formatHistoryHuman(&HistoryResponseCLI{}, plain); got != "No runs recorded.\n" {
		t.Errorf("empty history = %q", got)
	}

	resp := &HistoryResponseCLI{Runs: []storage.Run{{
		ID:          "0b7f3c9e-1111-2222-3333-444455556666",
		Kind:        "functions",
		StartedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local),
		Commit:      "main",
		Placeholder: true,
		Outcome:     "persisted",
		Added:       2,
		Modified:    1,
		EntryCount:  12,
	}}}
	got := formatHistoryHuman(resp, plain)

	for _, part := range []string{"RUN", "0b7f3c9e ", "2026-01-02 03:04", "main?", "persisted", "+2 -0 ~1", "12\n"} {
		if !strings.Contains(got, part) {
			t.Errorf("history missing %q\n%s", part, got)
		}
	}
}

func TestFormatExplainHuman(t *testing.T) {
	o := &storage.Origin{
		RunID:       "run-1",
		Canonical:   "party_member_count",
		DispatchKey: "METARULE_PARTY_COUNT",
		Origin:      "fixed-table",
		File:        "src/interpreter_extra.cc",
		StartLine:   12,
		EndLine:     14,
		Commit:      "3f2a9c1d4e5b6a7980112233445566778899aabb",
		RecordedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	got := formatExplainHuman(o, plain)

	want := "party_member_count\n" +
		"  origin:    fixed-table\n" +
		"  dispatch:  METARULE_PARTY_COUNT\n" +
		"  location:  src/interpreter_extra.cc:12-14\n" +
		"  recorded:  3f2a9c1 at 2026-01-02 03:04:05Z (run run-1)\n"
	if got != want {
		t.Errorf("formatExplainHuman =\n%s\nwant\n%s", got, want)
	}
}

func TestPrintError(t *testing.T) {
	err := errors.New(errors.DuplicateConflict, "1 location claimed by several names", nil, nil).
		WithDetails([]string{"a.cc:1-4: self_obj, self_object"})

	var buf bytes.Buffer
	printError(&buf, fmt.Errorf("generating functions: %w", err))
	got := buf.String()

	for _, part := range []string{"Error: generating functions:", "  a.cc:1-4: self_obj, self_object\n", "Hint: "} {
		if !strings.Contains(got, part) {
			t.Errorf("printError missing %q\n%s", part, got)
		}
	}
}

func TestInvocationErrors(t *testing.T) {
	if _, err := parseFormat("xml"); !errors.Is(err, errors.InvalidInvocation) {
		t.Errorf("parseFormat error = %v, want %s", err, errors.InvalidInvocation)
	}
	if err := exactArgs(1)(resolveCmd, nil); !errors.Is(err, errors.InvalidInvocation) {
		t.Errorf("exactArgs error = %v, want %s", err, errors.InvalidInvocation)
	}
	if err := exactArgs(1)(resolveCmd, []string{"self_obj"}); err != nil {
		t.Errorf("exactArgs with one arg = %v", err)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"functions": false, "defines": false, "resolve": false, "history": false, "explain": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}

	for _, flag := range []string{"repo-path", "yes", "dry-run", "validate", "output", "tables", "no-timestamp", "format", "show-patch", "offline"} {
		if functionsCmd.Flags().Lookup(flag) == nil {
			t.Errorf("functions is missing --%s", flag)
		}
	}
	if functionsCmd.Flags().ShorthandLookup("y") == nil {
		t.Error("functions is missing -y")
	}
}

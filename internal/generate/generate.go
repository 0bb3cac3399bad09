// Package generate runs the index pipeline end to end: snapshot, scan,
// extraction, alias resolution, validation, diff and the update gate.
package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JanSimek/fallout2-modding/internal/alias"
	"github.com/JanSimek/fallout2-modding/internal/config"
	"github.com/JanSimek/fallout2-modding/internal/diff"
	"github.com/JanSimek/fallout2-modding/internal/errors"
	"github.com/JanSimek/fallout2-modding/internal/extract"
	"github.com/JanSimek/fallout2-modding/internal/gate"
	"github.com/JanSimek/fallout2-modding/internal/index"
	"github.com/JanSimek/fallout2-modding/internal/logging"
	"github.com/JanSimek/fallout2-modding/internal/repostate"
	"github.com/JanSimek/fallout2-modding/internal/scanner"
	"github.com/JanSimek/fallout2-modding/internal/snapshot"
	"github.com/JanSimek/fallout2-modding/internal/storage"
	"github.com/JanSimek/fallout2-modding/internal/tables"
)

// Options configures one generation run.
type Options struct {
	Kind    index.Kind
	WorkDir string
	Config  *config.Config
	// Tables defaults to tables.Default().
	Tables *tables.Tables

	// RepoPath uses an existing checkout instead of the configured snapshot.
	// It is never fetched.
	RepoPath string
	// Offline skips clone and update of the configured snapshot.
	Offline bool
	// OutputPath overrides the configured artifact path.
	OutputPath string

	Mode        gate.Mode
	Confirmer   gate.Confirmer
	NoTimestamp bool
	ShowPatch   bool
	// BeforeGate sees the report once a non-empty diff is known, before any
	// confirmation is requested.
	BeforeGate func(*Report)

	Runner repostate.Runner
	// Ledger is optional; nil disables run recording.
	Ledger *storage.Ledger
	Logger *logging.Logger
	Now    func() time.Time
}

// Report describes what a run found and did.
type Report struct {
	RunID           string              `json:"runId" yaml:"runId"`
	Kind            index.Kind          `json:"kind" yaml:"kind"`
	Output          string              `json:"output" yaml:"output"`
	Snapshot        *snapshot.Result    `json:"snapshot" yaml:"snapshot"`
	Revision        *repostate.Revision `json:"revision" yaml:"revision"`
	Files           int                 `json:"files" yaml:"files"`
	EntryCount      int                 `json:"entryCount" yaml:"entryCount"`
	Diff            *index.DiffResult   `json:"diff" yaml:"diff"`
	UpToDate        bool                `json:"upToDate" yaml:"upToDate"`
	State           gate.State          `json:"state,omitempty" yaml:"state,omitempty"`
	Collisions      []string            `json:"collisions,omitempty" yaml:"collisions,omitempty"`
	MissingDispatch []string            `json:"missingDispatch,omitempty" yaml:"missingDispatch,omitempty"`
	Drift           *diff.Drift         `json:"drift,omitempty" yaml:"drift,omitempty"`
	Patch           string              `json:"patch,omitempty" yaml:"patch,omitempty"`
	Warnings        []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func (r *Report) warn(logger *logging.Logger, msg string, fields logging.Fields) {
	r.Warnings = append(r.Warnings, msg)
	logger.Warn(msg, fields)
}

// Run executes the pipeline. The artifact is written only when the gate
// reaches Persisted; every earlier failure leaves the file untouched.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	lock, err := index.AcquireLock(config.ResolvePath(opts.WorkDir, config.Dir))
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	p := &pipeline{opts: opts, logger: opts.Logger, report: &Report{
		RunID:  storage.NewRunID(),
		Kind:   opts.Kind,
		Output: opts.outputPath(),
	}}
	started := opts.Now()

	runErr := p.run(ctx)
	p.record(started, runErr)

	if runErr != nil {
		return p.report, runErr
	}
	return p.report, nil
}

func (o *Options) normalize() error {
	if o.Config == nil {
		o.Config = config.DefaultConfig()
	}
	if o.Kind != index.Functions && o.Kind != index.Defines {
		return errors.New(errors.InvalidInvocation, fmt.Sprintf("unknown index kind %q", o.Kind), nil, nil)
	}
	if o.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		o.WorkDir = wd
	}
	if o.Tables == nil {
		o.Tables = tables.Default()
	}
	if o.Runner == nil {
		o.Runner = repostate.ExecRunner{}
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Confirmer == nil {
		o.Confirmer = gate.AutoConfirmer{}
	}
	return nil
}

func (o *Options) outputPath() string {
	if o.OutputPath != "" {
		return config.ResolvePath(o.WorkDir, o.OutputPath)
	}
	if o.Kind == index.Defines {
		return config.ResolvePath(o.WorkDir, o.Config.Artifacts.Defines)
	}
	return config.ResolvePath(o.WorkDir, o.Config.Artifacts.Functions)
}

type pipeline struct {
	opts   Options
	logger *logging.Logger
	report *Report

	aliases  []alias.Alias
	encoded  []byte
	baseline *index.Artifact
}

func (p *pipeline) run(ctx context.Context) error {
	root, err := p.acquire(ctx)
	if err != nil {
		return err
	}

	rev := repostate.Discover(ctx, p.opts.Runner, root, p.opts.Config.Source.Branch)
	p.report.Revision = rev
	if rev.Placeholder {
		p.report.warn(p.logger, "commit unknown, using branch name as placeholder", logging.Fields{
			"branch": rev.Commit,
			"reason": rev.Reason,
		})
	}

	files, err := scanner.Scan(root, scanner.Options{
		Extensions: p.opts.Config.Scan.Extensions,
		Exclude:    p.opts.Config.Scan.Exclude,
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}
	p.report.Files = len(files)
	p.logger.Info("Scanned snapshot", logging.Fields{"root": root, "files": len(files)})

	sources, err := readSources(files)
	if err != nil {
		return err
	}

	header := index.Header{
		Repo:        p.opts.Config.Source.Repository,
		Commit:      rev.Commit,
		ShortCommit: rev.ShortCommit,
	}
	if !p.opts.NoTimestamp {
		ts := p.opts.Now().UTC().Format(time.RFC3339)
		header.GeneratedAt = &ts
	}

	var next *index.Artifact
	var collisions []index.Collision
	if p.opts.Kind == index.Defines {
		next, collisions = p.assembleDefines(header, sources)
	} else {
		next, collisions = p.assembleFunctions(header, sources)
	}
	for _, c := range collisions {
		p.report.Collisions = append(p.report.Collisions, c.String())
	}
	p.report.EntryCount = next.Meta.Count

	if err := index.ConflictError(index.Validate(next)); err != nil {
		return err
	}

	if p.encoded, err = next.Encode(); err != nil {
		return fmt.Errorf("encoding %s index: %w", p.opts.Kind, err)
	}

	p.baseline, err = index.LoadBaseline(p.report.Output, p.opts.Kind)
	if err != nil {
		p.report.warn(p.logger, "existing index is unreadable, treating it as empty", logging.Fields{
			"path":  p.report.Output,
			"error": err.Error(),
		})
	}

	d := index.Compute(p.baseline, next)
	p.report.Diff = d
	p.drift(ctx, root, d)

	if d.Empty() {
		p.report.UpToDate = true
		p.logger.Info("Index is up to date", logging.Fields{"path": p.report.Output, "entries": next.Meta.Count})
		return nil
	}

	if p.opts.ShowPatch {
		if err := p.patch(); err != nil {
			p.report.warn(p.logger, "could not build preview patch", logging.Fields{"error": err.Error()})
		}
	}

	if p.opts.BeforeGate != nil {
		p.opts.BeforeGate(p.report)
	}

	g := gate.New(p.opts.Mode, p.opts.Confirmer, func() error {
		return index.WriteFileAtomic(p.report.Output, p.encoded)
	}, p.logger)

	prompt := fmt.Sprintf("Write %d %s entries to %s?", next.Meta.Count, p.opts.Kind, p.report.Output)
	state, err := g.Run(ctx, prompt)
	p.report.State = state
	if err != nil {
		return fmt.Errorf("updating %s: %w", p.report.Output, err)
	}

	switch state {
	case gate.Persisted:
		p.logger.Info("Index written", logging.Fields{"path": p.report.Output, "entries": next.Meta.Count})
	case gate.Aborted:
		p.logger.Info("Update aborted, existing index kept", logging.Fields{"path": p.report.Output})
	}
	return nil
}

// acquire returns the snapshot root, cloning or updating it unless fetching is disabled.
func (p *pipeline) acquire(ctx context.Context) (string, error) {
	if p.opts.RepoPath != "" || p.opts.Offline {
		path := p.opts.RepoPath
		if path == "" {
			path = p.opts.Config.Source.Path
		}
		root := config.ResolvePath(p.opts.WorkDir, path)
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return "", errors.New(errors.FetchFailed, fmt.Sprintf("no source tree at %s", root), err, nil)
		}
		p.report.Snapshot = &snapshot.Result{Path: root}
		return root, nil
	}

	acq := snapshot.NewAcquirer(p.opts.Runner, p.logger, snapshot.Options{
		URL:    p.opts.Config.Source.URL,
		Branch: p.opts.Config.Source.Branch,
	})
	res, err := acq.Ensure(ctx, config.ResolvePath(p.opts.WorkDir, p.opts.Config.Source.Path))
	if err != nil {
		return "", err
	}
	p.report.Snapshot = res
	if res.Stale {
		p.report.Warnings = append(p.report.Warnings, "snapshot could not be updated, indexing existing checkout")
	}
	return res.Path, nil
}

type source struct {
	rel   string
	lines []string
}

func readSources(files []scanner.File) ([]source, error) {
	out := make([]source, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.AbsPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.RelPath, err)
		}
		out = append(out, source{rel: f.RelPath, lines: extract.SplitLines(data)})
	}
	return out, nil
}

func (p *pipeline) assembleFunctions(h index.Header, sources []source) (*index.Artifact, []index.Collision) {
	scan := p.opts.Config.Scan
	ex := extract.New(extract.Options{
		Rules: extract.DefaultRules(extract.RuleOptions{
			AuxiliaryPrefixes: scan.AuxiliaryPrefixes,
			RegistrationCalls: scan.RegistrationCalls,
		}),
		CommentLookback: scan.CommentLookback,
		ExtentFallback:  scan.ExtentFallback,
	})

	var symbols []extract.Symbol
	byFile := make(map[string][]string, len(sources))
	for _, src := range sources {
		symbols = append(symbols, ex.Lines(src.rel, src.lines)...)
		byFile[src.rel] = src.lines
	}

	if routine, ok := extract.FindRoutine(symbols, scan.DispatchRoutine); ok {
		cases, missing := extract.Dispatch(byFile[routine.File], routine, p.opts.Tables.DispatchKeys())
		symbols = append(symbols, cases...)
		if len(missing) > 0 {
			p.report.MissingDispatch = missing
			p.report.warn(p.logger, "dispatch keys without a case branch", logging.Fields{
				"routine": routine.Name,
				"keys":    missing,
			})
		}
	} else {
		p.report.MissingDispatch = p.opts.Tables.DispatchKeys()
		p.report.warn(p.logger, "dispatch routine not found", logging.Fields{"routine": scan.DispatchRoutine})
	}

	p.aliases = alias.Resolve(symbols, p.opts.Tables, p.logger)
	p.logger.Debug("Resolved aliases", logging.Fields{"symbols": len(symbols), "aliases": len(p.aliases)})

	art, collisions := index.AssembleFunctions(h, symbols, p.aliases)
	for _, c := range collisions {
		p.logger.Warn("alias collides with an existing entry", logging.Fields{"collision": c.String()})
	}
	return art, collisions
}

func (p *pipeline) assembleDefines(h index.Header, sources []source) (*index.Artifact, []index.Collision) {
	var defines []extract.Define
	for _, src := range sources {
		defines = append(defines, extract.Defines(src.rel, src.lines)...)
	}

	art, collisions := index.AssembleDefines(h, defines)
	for _, c := range collisions {
		p.logger.Debug("duplicate define ignored", logging.Fields{"collision": c.String()})
	}
	return art, nil
}

func (p *pipeline) drift(ctx context.Context, root string, d *index.DiffResult) {
	if !d.RevisionChanged || !repostate.IsCommitID(d.FromCommit) || !repostate.IsCommitID(d.ToCommit) {
		return
	}
	dr, err := diff.Detect(ctx, p.opts.Runner, root, d.FromCommit, d.ToCommit, p.baseline)
	if err != nil {
		p.report.warn(p.logger, "drift detection skipped", logging.Fields{"error": err.Error()})
		return
	}
	p.report.Drift = dr
	p.logger.Info("Source drift", logging.Fields{"files": len(dr.ChangedFiles), "touched": len(dr.Touched)})
}

func (p *pipeline) patch() error {
	before, err := os.ReadFile(p.report.Output)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	name := filepath.Base(p.report.Output)
	p.report.Patch, err = diff.Patch("a/"+name, "b/"+name, before, p.encoded)
	return err
}

// record stores the run in the ledger. Ledger failures only warn.
func (p *pipeline) record(started time.Time, runErr error) {
	if p.opts.Ledger == nil {
		return
	}

	r := p.report
	run := storage.Run{
		ID:         r.RunID,
		Kind:       string(r.Kind),
		StartedAt:  started,
		FinishedAt: p.opts.Now(),
		Outcome:    string(r.State),
		EntryCount: r.EntryCount,
		OutputPath: r.Output,
	}
	if r.Revision != nil {
		run.Commit = r.Revision.Commit
		run.Placeholder = r.Revision.Placeholder
	}
	if r.Diff != nil {
		run.Added = len(r.Diff.Added)
		run.Removed = len(r.Diff.Removed)
		run.Modified = len(r.Diff.Modified)
		run.RevisionChanged = r.Diff.RevisionChanged
	}
	switch {
	case runErr != nil:
		run.Outcome = storage.OutcomeFailed
	case r.UpToDate:
		run.Outcome = storage.OutcomeUpToDate
	}

	var blob []byte
	if r.State == gate.Persisted {
		blob = p.encoded
	}

	origins := make([]storage.Origin, 0, len(p.aliases))
	for _, a := range p.aliases {
		origins = append(origins, storage.Origin{
			Canonical:   a.Canonical,
			Underlying:  a.Underlying,
			DispatchKey: a.DispatchKey,
			Origin:      string(a.Origin),
			File:        a.File,
			StartLine:   a.StartLine,
			EndLine:     a.EndLine,
		})
	}

	if err := p.opts.Ledger.Record(run, origins, blob); err != nil {
		p.report.warn(p.logger, "run ledger update failed", logging.Fields{"error": err.Error()})
	}
}

// ValidateExisting checks an artifact on disk for locations claimed by more
// than one alias.
func ValidateExisting(path string, kind index.Kind) ([]index.Conflict, error) {
	art, err := index.Load(path, kind)
	if err != nil {
		return nil, err
	}
	conflicts := index.Validate(art)
	return conflicts, index.ConflictError(conflicts)
}

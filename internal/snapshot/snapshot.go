// Package snapshot keeps a local, revision-pinned checkout of the analyzed repository.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JanSimek/fallout2-modding/internal/errors"
	"github.com/JanSimek/fallout2-modding/internal/logging"
	"github.com/JanSimek/fallout2-modding/internal/repostate"
)

// Options describes where the snapshot comes from.
type Options struct {
	URL    string
	Branch string
	// Depth of the initial clone; 0 means 1.
	Depth int
}

// Result reports what Ensure did.
type Result struct {
	Path    string `json:"path" yaml:"path"`
	Cloned  bool   `json:"cloned" yaml:"cloned"`
	Updated bool   `json:"updated" yaml:"updated"`
	// Stale is set when an existing checkout could not be updated and is used as-is.
	Stale bool `json:"stale" yaml:"stale"`
}

// Acquirer clones or fast-forwards the snapshot.
type Acquirer struct {
	runner repostate.Runner
	logger *logging.Logger
	opts   Options
}

// NewAcquirer creates an Acquirer. A nil runner uses the git binary.
func NewAcquirer(runner repostate.Runner, logger *logging.Logger, opts Options) *Acquirer {
	if runner == nil {
		runner = repostate.ExecRunner{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Depth <= 0 {
		opts.Depth = 1
	}
	return &Acquirer{runner: runner, logger: logger, opts: opts}
}

// Ensure makes sure a usable checkout exists at path.
// A missing checkout is cloned shallowly; failure to clone is fatal.
// An existing checkout is fast-forwarded; failure to update only marks it stale.
func (a *Acquirer) Ensure(ctx context.Context, path string) (*Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.New(errors.InvalidInvocation, "invalid snapshot path", err, nil)
	}
	result := &Result{Path: abs}

	switch state := inspect(abs); state {
	case checkoutMissing:
		if err := a.clone(ctx, abs); err != nil {
			return nil, err
		}
		result.Cloned = true
		return result, nil

	case checkoutPlain:
		// A directory with sources but no git metadata, e.g. an unpacked archive
		a.logger.Warn("Snapshot is not a git checkout, using it as-is", logging.Fields{"path": abs})
		result.Stale = true
		return result, nil
	}

	if _, err := a.runner.Git(ctx, abs, "pull", "--ff-only"); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("Snapshot update failed, continuing with existing checkout", logging.Fields{
			"path":  abs,
			"error": err.Error(),
		})
		result.Stale = true
		return result, nil
	}

	result.Updated = true
	a.logger.Debug("Snapshot updated", logging.Fields{"path": abs})
	return result, nil
}

func (a *Acquirer) clone(ctx context.Context, abs string) error {
	parent := filepath.Dir(abs)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.New(errors.FetchFailed, "cannot create snapshot parent directory", err, nil)
	}

	args := []string{"clone", "--depth", fmt.Sprint(a.opts.Depth)}
	if a.opts.Branch != "" {
		args = append(args, "--branch", a.opts.Branch)
	}
	args = append(args, a.opts.URL, abs)

	a.logger.Info("Cloning snapshot", logging.Fields{"url": a.opts.URL, "path": abs})
	if _, err := a.runner.Git(ctx, parent, args...); err != nil {
		return errors.New(errors.FetchFailed, fmt.Sprintf("cloning %s", a.opts.URL), err, nil).
			WithDetails(map[string]string{"url": a.opts.URL, "path": abs})
	}
	return nil
}

type checkoutState int

const (
	checkoutMissing checkoutState = iota
	checkoutPlain
	checkoutGit
)

// inspect classifies path without invoking git, so a snapshot nested inside
// another repository is not mistaken for that repository.
func inspect(path string) checkoutState {
	entries, err := os.ReadDir(path)
	if err != nil || len(entries) == 0 {
		return checkoutMissing
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return checkoutGit
	}
	return checkoutPlain
}

// Package repostate discovers the revision of a snapshot checkout.
package repostate

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// ShortLength is the number of characters kept in a short commit id.
const ShortLength = 7

// Runner executes git in dir and returns its standard output.
type Runner interface {
	Git(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct{}

// Git implements Runner.
func (ExecRunner) Git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, msg)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(output), nil
}

// Revision identifies the snapshot state recorded in the index.
type Revision struct {
	Commit      string `json:"commit" yaml:"commit"`
	ShortCommit string `json:"shortCommit" yaml:"shortCommit"`
	Branch      string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Dirty       bool   `json:"dirty" yaml:"dirty"`
	// Placeholder is set when Commit is a branch name standing in for an unknown commit.
	Placeholder bool   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
	ComputedAt  string `json:"computedAt" yaml:"computedAt"`
}

var commitPattern = regexp.MustCompile(`^[0-9a-f]{7,64}$`)

// IsCommitID reports whether s looks like a git object id rather than a ref name.
func IsCommitID(s string) bool {
	return commitPattern.MatchString(s)
}

// Short truncates a commit id to ShortLength characters.
func Short(commit string) string {
	if len(commit) > ShortLength && IsCommitID(commit) {
		return commit[:ShortLength]
	}
	return commit
}

// Discover reads HEAD of the checkout at dir. When the commit cannot be read the
// returned Revision carries fallbackBranch as a placeholder commit.
func Discover(ctx context.Context, runner Runner, dir, fallbackBranch string) *Revision {
	rev := &Revision{ComputedAt: time.Now().UTC().Format(time.RFC3339)}

	head, err := runner.Git(ctx, dir, "rev-parse", "HEAD")
	head = strings.TrimSpace(head)
	if err != nil || !IsCommitID(head) {
		rev.Commit = fallbackBranch
		rev.ShortCommit = fallbackBranch
		rev.Branch = fallbackBranch
		rev.Placeholder = true
		if err != nil {
			rev.Reason = err.Error()
		} else {
			rev.Reason = fmt.Sprintf("unexpected rev-parse output %q", head)
		}
		return rev
	}

	rev.Commit = head
	rev.ShortCommit = Short(head)

	if branch, err := runner.Git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		rev.Branch = strings.TrimSpace(branch)
	}
	if status, err := runner.Git(ctx, dir, "status", "--porcelain"); err == nil {
		rev.Dirty = strings.TrimSpace(status) != ""
	}

	return rev
}

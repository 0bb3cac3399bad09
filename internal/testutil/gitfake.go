package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// GitResponse is a canned reply for one git invocation.
type GitResponse struct {
	Output string
	Err    error
	// Do runs before the reply is returned, e.g. to create files a clone would produce.
	Do func(dir string) error
}

// FakeGit records git invocations and replies from a table keyed by the joined args.
type FakeGit struct {
	mu        sync.Mutex
	Responses map[string]GitResponse
	Calls     []string
}

// NewFakeGit creates a FakeGit with the given responses.
func NewFakeGit(responses map[string]GitResponse) *FakeGit {
	if responses == nil {
		responses = map[string]GitResponse{}
	}
	return &FakeGit{Responses: responses}
}

// Git implements repostate.Runner.
func (f *FakeGit) Git(ctx context.Context, dir string, args ...string) (string, error) {
	key := strings.Join(args, " ")

	f.mu.Lock()
	f.Calls = append(f.Calls, key)
	resp, ok := f.Responses[key]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("fake git: unexpected invocation %q", key)
	}
	if resp.Do != nil {
		if err := resp.Do(dir); err != nil {
			return "", err
		}
	}
	return resp.Output, resp.Err
}

// Called reports whether an invocation starting with prefix was recorded.
func (f *FakeGit) Called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

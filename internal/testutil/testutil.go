// Package testutil provides shared test helpers for repository contexts and git.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/drctl/drctl/internal/gitclient"
	"github.com/drctl/drctl/internal/gitmode"
	"github.com/drctl/drctl/internal/repo"
)

// TestRepo creates a temporary repository context with git disabled.
func TestRepo(t *testing.T) *repo.Context {
	t.Helper()
	root := t.TempDir()
	return &repo.Context{
		Root:          root,
		Name:          "test",
		Source:        repo.SourceCLI,
		GitMode:       gitmode.Disabled,
		GitModeSource: gitmode.SourceCLI,
	}
}

// TestGitRepo creates a temporary repository context with a .git
// directory and git enabled. No git binary is involved.
func TestGitRepo(t *testing.T) *repo.Context {
	t.Helper()
	rc := TestRepo(t)
	if err := os.Mkdir(filepath.Join(rc.Root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	rc.GitMode = gitmode.Enabled
	rc.GitModeSource = gitmode.SourceDetected
	rc.GitRoot = rc.Root
	return rc
}

// Commit is one recorded StageAndCommit call.
type Commit struct {
	Paths []string
	Opts  gitclient.CommitOptions
}

// FakeGit records calls and returns preset results.
type FakeGit struct {
	mu sync.Mutex

	Commits []Commit
	// Staged is returned by StagedFiles.
	Staged []string
	// CommitErr and StagedErr are returned by the matching calls.
	CommitErr error
	StagedErr error
}

var _ gitclient.Client = (*FakeGit)(nil)

func (f *FakeGit) StageAndCommit(_ context.Context, paths []string, opts gitclient.CommitOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.Commits = append(f.Commits, Commit{Paths: append([]string(nil), paths...), Opts: opts})
	return nil
}

func (f *FakeGit) StagedFiles(_ context.Context, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Staged...), f.StagedErr
}

// CommitCount returns the number of successful commits.
func (f *FakeGit) CommitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Commits)
}

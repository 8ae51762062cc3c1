package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drctl/drctl/internal/apperr"
	"github.com/drctl/drctl/internal/gitclient"
	"github.com/drctl/drctl/internal/gitmode"
	"github.com/drctl/drctl/internal/testutil"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

func TestRealGit_NotRepositoryHint(t *testing.T) {
	requireGit(t)
	rc := testutil.TestRepo(t)
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(rc.Root))
	rc.GitMode = gitmode.Enabled
	rc.GitModeSource = gitmode.SourceCLI

	svc := New(rc, Options{Git: gitclient.New(), Now: fixedNow, Cwd: rc.Root})
	_, err := svc.Create(context.Background(), "meta", "policy", CreateOptions{})
	if !errors.Is(err, apperr.ErrNotGitRepo) {
		t.Fatalf("expected ErrNotGitRepo, got %v", err)
	}
	if !strings.Contains(err.Error(), "drctl repo init --git "+rc.Root) {
		t.Errorf("missing remediation hint: %v", err)
	}
}

func TestRealGit_CommitAndStagedConflict(t *testing.T) {
	requireGit(t)
	rc := testutil.TestRepo(t)
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(rc.Root))
	gitCmd(t, rc.Root, "init")
	gitCmd(t, rc.Root, "config", "user.email", "test@example.com")
	gitCmd(t, rc.Root, "config", "user.name", "Test")
	gitCmd(t, rc.Root, "config", "commit.gpgsign", "false")
	rc.GitMode = gitmode.Enabled
	rc.GitModeSource = gitmode.SourceDetected
	rc.GitRoot = rc.Root

	svc := New(rc, Options{Git: gitclient.New(), Now: fixedNow, Cwd: rc.Root})
	ctx := context.Background()
	mustCreate(t, svc, "meta", "policy")
	if got := gitCmd(t, rc.Root, "log", "--format=%s"); got != "drctl: create "+policyID+"\n" {
		t.Errorf("log = %q", got)
	}

	if err := os.WriteFile(filepath.Join(rc.Root, "unrelated.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	gitCmd(t, rc.Root, "add", "unrelated.txt")

	_, err := svc.Propose(ctx, policyID)
	if !errors.Is(err, apperr.ErrStagedConflict) {
		t.Fatalf("expected ErrStagedConflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "unrelated.txt") {
		t.Errorf("message does not name the file: %v", err)
	}
	if got := strings.Count(gitCmd(t, rc.Root, "log", "--format=%s"), "\n"); got != 1 {
		t.Errorf("commits = %d, want 1", got)
	}
}

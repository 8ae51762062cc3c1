package gitclient

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	g := New()
	ctx := context.Background()
	if err := g.Init(ctx, dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, kv := range [][]string{{"user.email", "test@example.com"}, {"user.name", "Test"}, {"commit.gpgsign", "false"}} {
		if _, err := g.run(ctx, dir, "config", kv[0], kv[1]); err != nil {
			t.Fatalf("config: %v", err)
		}
	}
	return dir
}

func TestStageAndCommit(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	g := New()
	ctx := context.Background()

	p := filepath.Join(dir, "meta", "a.md")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := g.StageAndCommit(ctx, []string{p}, CommitOptions{Dir: dir, Message: "drctl: create a"}); err != nil {
		t.Fatalf("StageAndCommit: %v", err)
	}
	out, err := g.run(ctx, dir, "log", "--format=%s")
	if err != nil {
		t.Fatal(err)
	}
	if out != "drctl: create a\n" {
		t.Errorf("log = %q", out)
	}
	staged, err := g.StagedFiles(ctx, dir)
	if err != nil || len(staged) != 0 {
		t.Errorf("staged=%v err=%v", staged, err)
	}
}

func TestStagedFiles(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	g := New()
	ctx := context.Background()
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := g.run(ctx, dir, "add", "other.txt"); err != nil {
		t.Fatal(err)
	}
	staged, err := g.StagedFiles(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(staged) != 1 || staged[0] != "other.txt" {
		t.Errorf("staged = %v", staged)
	}
}

func TestNotRepository(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	_, err := New().StagedFiles(context.Background(), dir)
	if !errors.Is(err, ErrNotRepository) || !IsNotRepository(err) {
		t.Fatalf("expected not-a-repository error, got %v", err)
	}
	if strings.Contains(err.Error(), "unknown option") {
		t.Errorf("diff usage leaked into error: %v", err)
	}
}

func TestStagedFiles_EmptyRepository(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	staged, err := New().StagedFiles(context.Background(), dir)
	if err != nil {
		t.Fatalf("StagedFiles on unborn branch: %v", err)
	}
	if len(staged) != 0 {
		t.Errorf("staged = %v", staged)
	}
}

func TestRelative(t *testing.T) {
	if got := Relative("/repo", "/repo/meta/a.md"); got != "meta/a.md" {
		t.Errorf("Relative = %q", got)
	}
	if got := Relative("/repo", "meta/a.md"); got != "meta/a.md" {
		t.Errorf("Relative = %q", got)
	}
}

// Package gitclient runs the git subprocesses drctl needs.
package gitclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// notRepoSignature appears in git's stderr outside a working tree.
const notRepoSignature = "not a git repository"

// ErrNotRepository is returned when dir is not inside a git work tree.
var ErrNotRepository = errors.New(notRepoSignature)

// CommitOptions configure StageAndCommit.
type CommitOptions struct {
	// Dir is the working directory for git.
	Dir        string
	Message    string
	AllowEmpty bool
}

// Client is the git surface used by the lifecycle service.
type Client interface {
	StageAndCommit(ctx context.Context, paths []string, opts CommitOptions) error
	// StagedFiles lists staged paths relative to the work tree root.
	StagedFiles(ctx context.Context, dir string) ([]string, error)
}

// Error is a failed git invocation.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotRepository reports whether err came from running git outside a
// working tree.
func IsNotRepository(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotRepository) || strings.Contains(strings.ToLower(err.Error()), notRepoSignature)
}

// Exec shells out to the git binary.
type Exec struct {
	// Binary defaults to "git".
	Binary string
}

// New returns an Exec client using git from PATH.
func New() *Exec {
	return &Exec{Binary: "git"}
}

var _ Client = (*Exec)(nil)

func (g *Exec) run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &Error{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// ensureRepo fails with ErrNotRepository when dir is outside a work tree.
// Outside a repository git diff falls back to --no-index and rejects
// --cached as an unknown option, so the check has to come first.
func (g *Exec) ensureRepo(ctx context.Context, dir string) error {
	if _, err := g.run(ctx, dir, "rev-parse", "--git-dir"); err != nil {
		var gerr *Error
		if errors.As(err, &gerr) {
			if _, ok := gerr.Err.(*exec.ExitError); ok {
				return fmt.Errorf("%w: %s", ErrNotRepository, dir)
			}
		}
		return err
	}
	return nil
}

// StagedFiles lists files in the index that differ from HEAD.
func (g *Exec) StagedFiles(ctx context.Context, dir string) ([]string, error) {
	if err := g.ensureRepo(ctx, dir); err != nil {
		return nil, err
	}
	out, err := g.run(ctx, dir, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// StageAndCommit adds paths and commits them with opts.Message.
func (g *Exec) StageAndCommit(ctx context.Context, paths []string, opts CommitOptions) error {
	rel := make([]string, 0, len(paths))
	for _, p := range paths {
		rel = append(rel, Relative(opts.Dir, p))
	}
	addArgs := append([]string{"add", "--"}, rel...)
	if _, err := g.run(ctx, opts.Dir, addArgs...); err != nil {
		return err
	}
	commitArgs := []string{"commit", "-m", opts.Message}
	if opts.AllowEmpty {
		commitArgs = append(commitArgs, "--allow-empty")
	}
	if _, err := g.run(ctx, opts.Dir, commitArgs...); err != nil {
		return err
	}
	return nil
}

// Init runs git init in dir.
func (g *Exec) Init(ctx context.Context, dir string) error {
	_, err := g.run(ctx, dir, "init")
	return err
}

// Relative returns p relative to dir in slash form, or p unchanged when it
// cannot be made relative.
func Relative(dir, p string) string {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// Package internal wires the drctl components for one CLI invocation.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drctl/drctl/internal/gitclient"
	"github.com/drctl/drctl/internal/index"
	"github.com/drctl/drctl/internal/lifecycle"
	"github.com/drctl/drctl/internal/mcpserver"
	"github.com/drctl/drctl/internal/pathutil"
	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/repoconfig"
)

// App holds the per-invocation state shared by commands.
type App struct {
	cfg     *Config
	log     *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	git     gitclient.Client
	now     func() time.Time
	notices *Notices
}

// New builds an App from opts. The logger becomes the slog default.
func New(opts ...Option) (*App, error) {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		a.config = NewDefaultConfig()
	}
	if err := a.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}
	if a.git == nil {
		a.git = gitclient.New()
	}
	if a.now == nil {
		a.now = time.Now
	}

	logger := NewLogger(a.stderr, a.config.App)
	slog.SetDefault(logger)

	return &App{
		cfg:     a.config,
		log:     logger,
		stdout:  a.stdout,
		stderr:  a.stderr,
		git:     a.git,
		now:     a.now,
		notices: NewNotices(a.stderr),
	}, nil
}

// NewLogger builds the diagnostics logger described by cfg.
func NewLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.log }

// Stdout is where user-facing output goes.
func (a *App) Stdout() io.Writer { return a.stdout }

// Stderr is where notices and warnings go.
func (a *App) Stderr() io.Writer { return a.stderr }

// Notices returns the once-per-invocation notice state.
func (a *App) Notices() *Notices { return a.notices }

// Resolve resolves the repository context for opts, filling unset
// fields from the environment.
func (a *App) Resolve(opts repo.Options) (*repo.Context, error) {
	rc, err := repo.Resolve(opts.WithEnvironment())
	if err != nil {
		return nil, err
	}
	a.log.Debug("repo: resolved",
		slog.String("root", rc.Root),
		slog.String("name", rc.Name),
		slog.String("source", string(rc.Source)),
		slog.String("git_mode", string(rc.GitMode)),
		slog.String("git_mode_source", string(rc.GitModeSource)))
	if rc.GitOverrideCleared != "" {
		a.notices.Once("git-override-cleared",
			fmt.Sprintf("note: git: disabled from %s ignored because %s is a git repository", rc.GitOverrideCleared, rc.CommitDir()))
	}
	return rc, nil
}

// Lifecycle returns a lifecycle service bound to rc.
func (a *App) Lifecycle(rc *repo.Context) *lifecycle.Service {
	cwd, _ := os.Getwd()
	return lifecycle.New(rc, lifecycle.Options{
		Git:         a.git,
		Logger:      a.log,
		Now:         a.now,
		TemplateEnv: os.Getenv(repoconfig.EnvTemplate),
		Cwd:         cwd,
		OnTemplateWarning: func(msg string) {
			fmt.Fprintf(a.stderr, "warning: %s\n", msg)
		},
		OnGitDisabled: func(rc *repo.Context) {
			a.notices.Once("git-disabled",
				fmt.Sprintf("note: git mode is disabled for %s; changes were not committed", rc.Root))
		},
	})
}

// WatchIndex regenerates the index of rc until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func (a *App) WatchIndex(ctx context.Context, rc *repo.Context) error {
	if _, err := index.Generate(rc); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, rc, a.cfg.Index.Debounce, a.log, func(n int) {
			fmt.Fprintf(a.stdout, "index updated (%d decisions)\n", n)
		})
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			a.log.Info("received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	return g.Wait()
}

// ServeMCP serves the read-only MCP tools for rc on stdio.
func (a *App) ServeMCP(rc *repo.Context, version string) error {
	return mcpserver.New(rc, version, a.log).ServeStdio()
}

// InitOptions configure InitRepo.
type InitOptions struct {
	// Path is the repository root; relative paths resolve against Cwd.
	Path string
	Name string
	Cwd  string
	Git  bool
	// MakeDefault points defaultRepo at the new entry.
	MakeDefault bool
}

// Initializer is implemented by git clients that can create repositories.
type Initializer interface {
	Init(ctx context.Context, dir string) error
}

// InitRepo creates a repository root, optionally runs git init, and
// registers it in the local config file. It returns the config path.
func (a *App) InitRepo(ctx context.Context, opts InitOptions) (string, error) {
	cwd := opts.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		cwd = wd
	}
	target := opts.Path
	if target == "" {
		target = pathutil.FallbackDirName
	}
	root := pathutil.ResolvePath(target, cwd)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("repo init: %w", err)
	}

	if opts.Git {
		initer, ok := a.git.(Initializer)
		if !ok {
			return "", errors.New("repo init: git client cannot initialise repositories")
		}
		if err := initer.Init(ctx, root); err != nil {
			return "", fmt.Errorf("repo init: %w", err)
		}
	}

	configPath := repoconfig.FindLocal(cwd)
	if configPath == "" {
		configPath = filepath.Join(cwd, repoconfig.LocalFileNames[0])
	}
	name := opts.Name
	if name == "" {
		name = filepath.Base(root)
	}
	entry := repoconfig.RepoEntry{Name: name, Path: relativeTo(filepath.Dir(configPath), root)}
	if opts.Git {
		entry.Git = "enabled"
	}
	if err := repoconfig.UpsertRepo(configPath, entry, opts.MakeDefault); err != nil {
		return "", err
	}
	a.log.Info("repo: initialised", slog.String("root", root), slog.String("config", configPath))
	return configPath, nil
}

// relativeTo returns target as a ./-prefixed path under base when possible.
func relativeTo(base, target string) string {
	if !pathutil.IsWithin(base, target) {
		return target
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	if rel == "." {
		return "."
	}
	return "./" + filepath.ToSlash(rel)
}

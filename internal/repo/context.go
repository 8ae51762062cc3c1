// Package repo resolves which decision repository a command operates on.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drctl/drctl/internal/apperr"
	"github.com/drctl/drctl/internal/gitmode"
	"github.com/drctl/drctl/internal/pathutil"
	"github.com/drctl/drctl/internal/repoconfig"
)

// Source records how the repository was chosen.
type Source string

const (
	SourceCLI          Source = "cli"
	SourceEnv          Source = "env"
	SourceLocalConfig  Source = "local-config"
	SourceGlobalConfig Source = "global-config"
	SourceFallbackCwd  Source = "fallback-cwd"
	SourceFallbackHome Source = "fallback-home"
)

// sourceDefault marks a name that came from a config defaultRepo.
const sourceDefault Source = "default"

// Context is the resolved target of one invocation.
type Context struct {
	Root             string
	Name             string
	Source           Source
	DomainMap        map[string]string
	DefaultDomainDir string
	DefaultTemplate  string
	ConfigPath       string

	GitMode            gitmode.Mode
	GitModeSource      gitmode.Source
	GitRoot            string
	GitOverrideCleared gitmode.Source
}

// GitEnabled reports whether lifecycle operations should commit.
func (c *Context) GitEnabled() bool {
	return c.GitMode == gitmode.Enabled
}

// CommitDir is the working directory for git invocations.
func (c *Context) CommitDir() string {
	if c.GitRoot != "" {
		return c.GitRoot
	}
	return c.Root
}

// Options are the per-invocation inputs to Resolve.
type Options struct {
	// Repo is the --repo flag: a configured name or a directory.
	Repo    string
	EnvRepo string

	ConfigPath    string
	EnvConfigPath string

	// Git is the --git flag value.
	Git    string
	EnvGit string

	Cwd  string
	Home string
}

// WithEnvironment fills the Env* fields from the process environment.
func (o Options) WithEnvironment() Options {
	o.EnvRepo = os.Getenv(repoconfig.EnvRepo)
	o.EnvConfigPath = os.Getenv(repoconfig.EnvConfig)
	o.EnvGit = os.Getenv(repoconfig.EnvGit)
	return o
}

func (o Options) cwd() (string, error) {
	if o.Cwd != "" {
		return o.Cwd, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("repo: get working directory: %w", err)
	}
	return wd, nil
}

func (o Options) loadOptions(cwd string) repoconfig.LoadOptions {
	return repoconfig.LoadOptions{
		Cwd:           cwd,
		ConfigPath:    o.ConfigPath,
		EnvConfigPath: o.EnvConfigPath,
		Home:          o.Home,
	}
}

// Resolve loads the config layers and picks exactly one repository.
func Resolve(opts Options) (*Context, error) {
	cwd, err := opts.cwd()
	if err != nil {
		return nil, err
	}
	layers, err := repoconfig.Load(opts.loadOptions(cwd))
	if err != nil {
		return nil, err
	}
	return ResolveMerged(opts, cwd, layers.Merge())
}

type candidate struct {
	value  string
	source Source
}

func firstCandidate(cs ...candidate) candidate {
	for _, c := range cs {
		if strings.TrimSpace(c.value) != "" {
			return c
		}
	}
	return candidate{}
}

// ResolveMerged picks a repository from already merged layers.
func ResolveMerged(opts Options, cwd string, merged *repoconfig.Merged) (*Context, error) {
	requested := firstCandidate(
		candidate{opts.Repo, SourceCLI},
		candidate{opts.EnvRepo, SourceEnv},
		candidate{merged.DefaultRepo, sourceDefault},
	)

	var (
		ctx     *Context
		matched *repoconfig.NormalizedRepo
	)

	if requested.value != "" {
		if r, ok := merged.Repos[requested.value]; ok {
			src := Source(r.Scope)
			if requested.source == SourceCLI || requested.source == SourceEnv {
				src = requested.source
			}
			ctx = fromRepo(r, src)
			matched = &r
		} else if pathutil.LooksLikePath(requested.value) {
			ctx = &Context{
				Root:   pathutil.ResolvePath(requested.value, cwd),
				Source: SourceCLI,
			}
		} else if requested.source != sourceDefault {
			return nil, fmt.Errorf("%w %q (configured: %s)", apperr.ErrUnknownRepo, requested.value, listing(merged.Names()))
		}
	}

	if ctx == nil {
		names := merged.Names()
		switch len(names) {
		case 0:
		case 1:
			r := merged.Repos[names[0]]
			ctx = fromRepo(r, Source(r.Scope))
			matched = &r
		default:
			return nil, fmt.Errorf("%w: multiple repositories configured (%s); pass --repo <name>, set %s, or declare defaultRepo",
				apperr.ErrAmbiguousRepo, strings.Join(names, ", "), repoconfig.EnvRepo)
		}
	}

	if ctx == nil {
		root, src := pathutil.SelectFallbackRoot(cwd)
		ctx = &Context{Root: root, Source: Source(src)}
	}

	var configGit *gitmode.Mode
	if matched != nil {
		configGit = matched.Git
	}
	cliGit, err := gitmode.ParseOptional(opts.Git)
	if err != nil {
		return nil, fmt.Errorf("--git-mode: %w", err)
	}
	envGit, err := gitmode.ParseOptional(opts.EnvGit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", repoconfig.EnvGit, err)
	}
	g := gitmode.Resolve(gitmode.Input{
		Root:   ctx.Root,
		CLI:    cliGit,
		Env:    envGit,
		Config: configGit,
	})
	ctx.GitMode = g.Mode
	ctx.GitModeSource = g.Source
	ctx.GitRoot = g.GitRoot
	ctx.GitOverrideCleared = g.OverrideCleared
	return ctx, nil
}

func fromRepo(r repoconfig.NormalizedRepo, src Source) *Context {
	return &Context{
		Root:             r.Root,
		Name:             r.Name,
		Source:           src,
		DomainMap:        r.Domains,
		DefaultDomainDir: r.DefaultDomainDir,
		DefaultTemplate:  r.Template,
		ConfigPath:       r.ConfigPath,
	}
}

func listing(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// DomainDir resolves the directory holding records of domain.
func DomainDir(ctx *Context, domain string) string {
	if override, ok := ctx.DomainMap[domain]; ok && override != "" {
		return pathutil.ResolvePath(override, ctx.Root)
	}
	if ctx.DefaultDomainDir != "" {
		return pathutil.ResolvePath(filepath.Join(ctx.DefaultDomainDir, domain), ctx.Root)
	}
	return pathutil.ResolvePath(domain, ctx.Root)
}

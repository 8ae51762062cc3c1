// Package repoconfig loads the local and global .drctl configuration layers
// and normalises their repository entries.
package repoconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/drctl/drctl/internal/gitmode"
	"github.com/drctl/drctl/internal/pathutil"
	pkgconfig "github.com/drctl/drctl/pkg/config"
)

// Environment variables consulted by the loader and resolver.
const (
	EnvConfig   = "DRCTL_CONFIG"
	EnvRepo     = "DRCTL_REPO"
	EnvGit      = "DRCTL_GIT"
	EnvTemplate = "DRCTL_TEMPLATE"
)

// LocalFileNames are searched upward from the working directory.
var LocalFileNames = []string{".drctl.yaml", ".drctl.yml"}

// Scope identifies the layer an entry came from.
type Scope string

const (
	ScopeLocal  Scope = "local-config"
	ScopeGlobal Scope = "global-config"
)

// NormalizedRepo is one repository entry after shape normalisation.
type NormalizedRepo struct {
	Name string
	// Root is the absolute repository directory.
	Root string
	// RawPath is the path as written in the config file.
	RawPath          string
	Domains          map[string]string
	DefaultDomainDir string
	Template         string
	// Git is nil when RawGit is blank or unparsable.
	Git              *gitmode.Mode
	RawGit           string
	Scope            Scope
	ConfigPath       string
}

// Validate checks that the entry identifies a directory.
func (r *NormalizedRepo) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Root, validation.Required),
		validation.Field(&r.Scope, validation.Required, validation.In(ScopeLocal, ScopeGlobal)),
	)
}

// Layer is a parsed configuration file.
type Layer struct {
	Path        string
	Scope       Scope
	DefaultRepo string
	Repos       []NormalizedRepo
	// Skipped lists entry names that did not resolve to a path.
	Skipped []string
	// Legacy is true when the file used the flat single-repo shape.
	Legacy bool
}

// LoadOptions steers where layers are searched.
type LoadOptions struct {
	Cwd string
	// ConfigPath is an explicit local layer path (CLI flag).
	ConfigPath string
	// EnvConfigPath is the DRCTL_CONFIG value.
	EnvConfigPath string
	// Home overrides the home directory used for global candidates.
	Home string
}

// Layers holds both layers; either may be nil.
type Layers struct {
	Local  *Layer
	Global *Layer
}

type rawFile struct {
	DefaultRepo string    `yaml:"defaultRepo"`
	Repos       yaml.Node `yaml:"repos"`
}

// Load finds and parses the local and global layers.
func Load(opts LoadOptions) (*Layers, error) {
	cwd := opts.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("repoconfig: get working directory: %w", err)
		}
		cwd = wd
	}

	explicit := firstNonEmpty(opts.ConfigPath, opts.EnvConfigPath)

	var localPath string
	if explicit != "" {
		localPath = pathutil.ResolvePath(explicit, cwd)
	} else {
		localPath = FindLocal(cwd)
	}

	layers := &Layers{}
	if localPath != "" {
		l, err := ReadLayer(localPath, ScopeLocal)
		if err != nil {
			return nil, err
		}
		layers.Local = l
	}

	if explicit == "" {
		for _, candidate := range GlobalCandidates(opts.Home) {
			l, err := ReadLayer(candidate, ScopeGlobal)
			if err != nil {
				return nil, err
			}
			if l != nil {
				layers.Global = l
				break
			}
		}
	}

	return layers, nil
}

// FindLocal walks up from start looking for a local config file.
func FindLocal(start string) string {
	dir := filepath.Clean(start)
	for {
		for _, name := range LocalFileNames {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// GlobalCandidates lists global config paths in priority order.
func GlobalCandidates(home string) []string {
	if home == "" {
		home = pathutil.HomeDir()
	}
	if home == "" {
		return nil
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		xdg = filepath.Join(home, ".config")
	}
	return []string{
		filepath.Join(home, ".drctl.yaml"),
		filepath.Join(home, ".drctl.yml"),
		filepath.Join(xdg, "drctl", "config.yaml"),
	}
}

// ReadLayer parses the file at path. A missing file yields (nil, nil).
func ReadLayer(path string, scope Scope) (*Layer, error) {
	var raw rawFile
	// Paths are expanded per field by pathutil.ResolvePath.
	found, err := pkgconfig.LoadOptional(path, &raw, pkgconfig.WithoutEnvExpansion())
	if err != nil {
		return nil, fmt.Errorf("repoconfig: %w", err)
	}
	if !found {
		return nil, nil
	}

	shape, err := parseShape(&raw.Repos)
	if err != nil {
		return nil, fmt.Errorf("repoconfig: %s: %w", path, err)
	}

	layer := &Layer{
		Path:        path,
		Scope:       scope,
		DefaultRepo: raw.DefaultRepo,
	}
	baseDir := filepath.Dir(path)
	switch s := shape.(type) {
	case keyedShape:
		for _, e := range s.entries {
			add(layer, e, baseDir)
		}
	case flatShape:
		layer.Legacy = true
		add(layer, s.entry, baseDir)
	}
	return layer, nil
}

func add(layer *Layer, e rawEntry, baseDir string) {
	repo := e.normalize(baseDir, layer.Scope, layer.Path)
	if err := repo.Validate(); err != nil {
		layer.Skipped = append(layer.Skipped, e.name)
		return
	}
	layer.Repos = append(layer.Repos, repo)
}

// Merged is the union of both layers with local entries shadowing global ones.
type Merged struct {
	Repos map[string]NormalizedRepo
	// DefaultRepo is the local declaration, else the global one.
	DefaultRepo string
	Layers      *Layers
}

// Merge combines the layers.
func (l *Layers) Merge() *Merged {
	m := &Merged{Repos: map[string]NormalizedRepo{}, Layers: l}
	if l.Global != nil {
		for _, r := range l.Global.Repos {
			m.Repos[r.Name] = r
		}
		m.DefaultRepo = l.Global.DefaultRepo
	}
	if l.Local != nil {
		for _, r := range l.Local.Repos {
			m.Repos[r.Name] = r
		}
		if l.Local.DefaultRepo != "" {
			m.DefaultRepo = l.Local.DefaultRepo
		}
	}
	return m
}

// Names returns the configured repository names, sorted.
func (m *Merged) Names() []string {
	names := make([]string, 0, len(m.Repos))
	for n := range m.Repos {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

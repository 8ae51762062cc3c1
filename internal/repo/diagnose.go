package repo

import (
	"fmt"
	"os"

	"github.com/drctl/drctl/internal/gitmode"
	"github.com/drctl/drctl/internal/pathutil"
	"github.com/drctl/drctl/internal/repoconfig"
)

// RepoDiagnostic describes one configured repository.
type RepoDiagnostic struct {
	Name           string   `json:"name"`
	Root           string   `json:"root"`
	Scope          string   `json:"scope"`
	ConfigPath     string   `json:"configPath"`
	Exists         bool     `json:"exists"`
	GitInitialized bool     `json:"gitInitialized"`
	GitRoot        string   `json:"gitRoot,omitempty"`
	GitMode        string   `json:"gitMode"`
	Template       string   `json:"template,omitempty"`
	TemplatePath   string   `json:"templatePath,omitempty"`
	TemplateExists bool     `json:"templateExists"`
	Default        bool     `json:"default"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Diagnostics is the read-only report produced by Diagnose.
type Diagnostics struct {
	LocalConfig  string           `json:"localConfig,omitempty"`
	GlobalConfig string           `json:"globalConfig,omitempty"`
	DefaultRepo  string           `json:"defaultRepo,omitempty"`
	Repos        []RepoDiagnostic `json:"repos"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// HasWarnings reports whether any warning was produced.
func (d *Diagnostics) HasWarnings() bool {
	if len(d.Warnings) > 0 {
		return true
	}
	for _, r := range d.Repos {
		if len(r.Warnings) > 0 {
			return true
		}
	}
	return false
}

// Diagnose reports on every configured repository without selecting one.
func Diagnose(opts Options) (*Diagnostics, error) {
	cwd, err := opts.cwd()
	if err != nil {
		return nil, err
	}
	layers, err := repoconfig.Load(opts.loadOptions(cwd))
	if err != nil {
		return nil, err
	}
	merged := layers.Merge()

	d := &Diagnostics{DefaultRepo: merged.DefaultRepo}
	for _, l := range []*repoconfig.Layer{layers.Local, layers.Global} {
		if l == nil {
			continue
		}
		if l.Scope == repoconfig.ScopeLocal {
			d.LocalConfig = l.Path
		} else {
			d.GlobalConfig = l.Path
		}
		for _, name := range l.Skipped {
			d.Warnings = append(d.Warnings, fmt.Sprintf("repo %q in %s has no path and was ignored", name, l.Path))
		}
		if l.Legacy {
			d.Warnings = append(d.Warnings, fmt.Sprintf("%s uses the legacy flat repos layout; it is rewritten on next update", l.Path))
		}
	}

	names := merged.Names()
	switch {
	case len(names) == 0:
		d.Warnings = append(d.Warnings, "no repositories configured; commands fall back to ./decisions or ~/decisions")
	case len(names) > 1 && merged.DefaultRepo == "":
		d.Warnings = append(d.Warnings, "multiple repositories configured but no defaultRepo; pass --repo on every command")
	}
	if merged.DefaultRepo != "" {
		if _, ok := merged.Repos[merged.DefaultRepo]; !ok && !pathutil.LooksLikePath(merged.DefaultRepo) {
			d.Warnings = append(d.Warnings, fmt.Sprintf("defaultRepo %q does not match any configured repository", merged.DefaultRepo))
		}
	}

	for _, name := range names {
		d.Repos = append(d.Repos, diagnoseRepo(merged.Repos[name], name == merged.DefaultRepo))
	}
	return d, nil
}

func diagnoseRepo(r repoconfig.NormalizedRepo, isDefault bool) RepoDiagnostic {
	rd := RepoDiagnostic{
		Name:       r.Name,
		Root:       r.Root,
		Scope:      string(r.Scope),
		ConfigPath: r.ConfigPath,
		Template:   r.Template,
		Default:    isDefault,
	}

	if info, err := os.Stat(r.Root); err == nil && info.IsDir() {
		rd.Exists = true
	} else {
		rd.Warnings = append(rd.Warnings, fmt.Sprintf("path does not exist: %s", r.Root))
	}

	if r.Git == nil && r.RawGit != "" {
		rd.Warnings = append(rd.Warnings, fmt.Sprintf("invalid git value %q ignored; use enabled or disabled", r.RawGit))
	}
	g := gitmode.Resolve(gitmode.Input{Root: r.Root, Config: r.Git})
	rd.GitMode = string(g.Mode)
	if root, ok := gitmode.FindGitRoot(r.Root); ok {
		rd.GitInitialized = true
		rd.GitRoot = root
	} else {
		rd.Warnings = append(rd.Warnings, "not a git repository; run `drctl repo init --git` to enable commits")
	}

	if r.Template != "" {
		rd.TemplatePath = pathutil.ResolvePath(r.Template, r.Root)
		if !pathutil.IsWithin(r.Root, rd.TemplatePath) {
			rd.Warnings = append(rd.Warnings, fmt.Sprintf("template %s resolves outside the repository root", r.Template))
		}
		if info, err := os.Stat(rd.TemplatePath); err == nil && !info.IsDir() {
			rd.TemplateExists = true
		} else {
			rd.Warnings = append(rd.Warnings, fmt.Sprintf("template not found: %s", rd.TemplatePath))
		}
	}
	return rd
}

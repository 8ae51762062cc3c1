// Package template picks and renders the body of new decision records.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/drctl/drctl/internal/checksum"
	"github.com/drctl/drctl/internal/pathutil"
	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/store"
)

// Dir is where out-of-repo templates are copied, relative to the repo root.
const Dir = store.TemplatesDir

// Default is the built-in body used when no template is configured.
const Default = `# {{title}}

## Context

Describe the forces at play.

## Decision

State the decision.

## Consequences

What becomes easier or harder.
`

// Source says which candidate produced the template.
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceBuiltin Source = "builtin"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\}`)

// Request describes the inputs for template selection.
type Request struct {
	// Explicit is the --template flag value.
	Explicit string
	// Env is DRCTL_TEMPLATE.
	Env string
	// Cwd resolves relative Explicit and Env paths.
	Cwd string
}

// Resolved is a chosen template.
type Resolved struct {
	Source Source
	// Path is the absolute path inside the repository, empty for builtin.
	Path string
	// Used is Path relative to the repo root in slash form.
	Used    string
	Content string
}

type choice struct {
	path   string
	source Source
}

// Resolve picks the first configured template and makes sure it lives
// inside the repository, copying it into templates/ when it does not.
func Resolve(ctx *repo.Context, req Request) (*Resolved, error) {
	var picked *choice
	for _, c := range []choice{
		{resolve(req.Explicit, req.Cwd), SourceFlag},
		{resolve(req.Env, req.Cwd), SourceEnv},
		{resolve(ctx.DefaultTemplate, ctx.Root), SourceConfig},
	} {
		if c.path != "" {
			c := c
			picked = &c
			break
		}
	}
	if picked == nil {
		return &Resolved{Source: SourceBuiltin, Content: Default}, nil
	}

	data, err := os.ReadFile(picked.path) // #nosec G304 - template path from user config
	if err != nil {
		return nil, fmt.Errorf("template: read %s: %w", picked.path, err)
	}

	inRepo := picked.path
	if !pathutil.IsWithin(ctx.Root, picked.path) {
		inRepo, err = copyIntoRepo(ctx.Root, picked.path, data)
		if err != nil {
			return nil, err
		}
	}
	return &Resolved{
		Source:  picked.source,
		Path:    inRepo,
		Used:    pathutil.ToSlashRel(ctx.Root, inRepo),
		Content: string(data),
	}, nil
}

func resolve(p, base string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	return pathutil.ResolvePath(p, base)
}

// copyIntoRepo stores data under <root>/templates, reusing any existing
// file with identical content.
func copyIntoRepo(root, src string, data []byte) (string, error) {
	dir := filepath.Join(root, Dir)
	sum := checksum.Sum(data)

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("template: read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		existing := filepath.Join(dir, e.Name())
		if s, err := checksum.File(existing); err == nil && s == sum {
			return existing, nil
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("template: mkdir: %w", err)
	}
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	target := filepath.Join(dir, base)
	for i := 1; fileExists(target); i++ {
		target = filepath.Join(dir, stem+"-"+strconv.Itoa(i)+ext)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("template: copy: %w", err)
	}
	return target, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Values fill placeholders when rendering.
type Values struct {
	ID     string
	Title  string
	Domain string
	Slug   string
	Date   string
}

// Render substitutes {{id}}, {{title}}, {{domain}}, {{slug}} and {{date}}.
func Render(content string, v Values) string {
	title := v.Title
	if title == "" {
		title = strings.ReplaceAll(v.Slug, "-", " ")
	}
	r := strings.NewReplacer(
		"{{id}}", v.ID,
		"{{title}}", title,
		"{{domain}}", v.Domain,
		"{{slug}}", v.Slug,
		"{{date}}", v.Date,
	)
	return r.Replace(content)
}

// Hygiene returns warnings about template leftovers in a record body.
func Hygiene(id, body string) []string {
	var warnings []string
	if left := placeholderRe.FindAllString(body, -1); len(left) > 0 {
		warnings = append(warnings, fmt.Sprintf("%s still contains template placeholders: %s", id, strings.Join(left, ", ")))
	}
	for _, line := range []string{"Describe the forces at play.", "State the decision.", "What becomes easier or harder."} {
		if strings.Contains(body, line) {
			warnings = append(warnings, fmt.Sprintf("%s still contains default template text %q", id, line))
		}
	}
	return warnings
}

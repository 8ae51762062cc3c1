// Package store persists decision records as Markdown files under a
// resolved repository context.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/drctl/drctl/internal/apperr"
	"github.com/drctl/drctl/internal/models"
	"github.com/drctl/drctl/internal/parser"
	"github.com/drctl/drctl/internal/pathutil"
	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/storage"
)

// TemplatesDir holds copied templates and is never listed as records.
const TemplatesDir = "templates"

// Record is a loaded decision with its body and location.
type Record struct {
	models.Decision
	Body string
	// Path is the absolute file path.
	Path string
}

// RelPath returns the record path relative to the repository root.
func (r *Record) RelPath(ctx *repo.Context) string {
	return pathutil.ToSlashRel(ctx.Root, r.Path)
}

// FilePath computes where a record with id and domain lives.
func FilePath(ctx *repo.Context, id, domain string) (string, error) {
	p, name, err := locate(ctx, id, domain)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.Root(), name), nil
}

// locate returns a provider rooted at the domain directory of id and the
// record file name inside it.
func locate(ctx *repo.Context, id, domain string) (storage.Provider, string, error) {
	if domain == "" {
		d, err := models.DomainFromID(id)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", apperr.ErrDomainRequired, err)
		}
		domain = d
	}
	if err := models.ValidateSegment("domain", domain); err != nil {
		return nil, "", err
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, "", fmt.Errorf("id %q: %w", id, apperr.ErrInvalidName)
	}
	fs, err := storage.NewFS(repo.DomainDir(ctx, domain))
	if err != nil {
		return nil, "", err
	}
	return fs, id + ".md", nil
}

// Save writes rec to its domain directory. When content is nil the body of
// an existing file is kept; otherwise *content becomes the body.
func Save(ctx *repo.Context, rec *models.Decision, content *string) (string, error) {
	p, name, err := locate(ctx, rec.ID, rec.Domain)
	if err != nil {
		return "", err
	}

	body := ""
	switch {
	case content != nil:
		body = *content
	case p.Exists(name):
		existing, err := p.Read(name)
		if err != nil {
			return "", err
		}
		body = parser.Body(existing)
	}

	data, err := parser.Encode(rec, body)
	if err != nil {
		return "", fmt.Errorf("store: %s: %w", rec.ID, err)
	}
	if err := p.Write(name, data); err != nil {
		return "", err
	}
	return filepath.Join(p.Root(), name), nil
}

// Exists reports whether the record file for id is present.
func Exists(ctx *repo.Context, id, domain string) bool {
	p, name, err := locate(ctx, id, domain)
	if err != nil {
		return false
	}
	return p.Exists(name)
}

// Load reads the record id. domain may be empty when id encodes it.
func Load(ctx *repo.Context, id, domain string) (*Record, error) {
	p, name, err := locate(ctx, id, domain)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(p.Root(), name)
	data, err := p.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("decision %s %w at %s", id, apperr.ErrNotFound, path)
		}
		return nil, fmt.Errorf("store: %w", err)
	}
	rec := &Record{Path: path}
	body, err := parser.Decode(data, &rec.Decision)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}
	rec.Body = body
	return rec, nil
}

// List returns every decision under the repository root. Files without
// readable frontmatter are skipped.
func List(ctx *repo.Context) ([]Record, error) {
	fs, err := storage.NewFS(ctx.Root)
	if err != nil {
		return nil, err
	}
	return listFrom(ctx, fs)
}

func listFrom(ctx *repo.Context, p storage.Provider) ([]Record, error) {
	metas, err := p.List("")
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, m := range metas {
		if strings.HasPrefix(m.Path, TemplatesDir+"/") {
			continue
		}
		data, err := p.Read(m.Path)
		if err != nil {
			continue
		}
		rec := Record{Path: filepath.Join(p.Root(), filepath.FromSlash(m.Path))}
		body, err := parser.Decode(data, &rec.Decision)
		if err != nil {
			continue
		}
		rec.Body = body
		if rec.Domain == "" {
			rec.Domain = inferDomain(ctx, rec.Path)
		}
		out = append(out, rec)
	}
	return out, nil
}

// inferDomain maps a file location back to the domain whose directory
// contains it.
func inferDomain(ctx *repo.Context, path string) string {
	dir := filepath.Dir(path)
	type override struct{ domain, dir string }
	overrides := make([]override, 0, len(ctx.DomainMap))
	for domain, o := range ctx.DomainMap {
		if o == "" {
			continue
		}
		overrides = append(overrides, override{domain, pathutil.ResolvePath(o, ctx.Root)})
	}
	// Deepest directory wins for nested overrides.
	sort.Slice(overrides, func(i, j int) bool {
		if len(overrides[i].dir) != len(overrides[j].dir) {
			return len(overrides[i].dir) > len(overrides[j].dir)
		}
		return overrides[i].domain < overrides[j].domain
	})
	for _, o := range overrides {
		if pathutil.IsWithin(o.dir, dir) {
			return o.domain
		}
	}
	base := ctx.Root
	if ctx.DefaultDomainDir != "" {
		base = pathutil.ResolvePath(ctx.DefaultDomainDir, ctx.Root)
	}
	if !pathutil.IsWithin(base, dir) {
		return ""
	}
	rel := pathutil.ToSlashRel(base, dir)
	if rel == "." {
		return ""
	}
	return strings.SplitN(rel, "/", 2)[0]
}

// Package index renders and maintains the index.md overview of a
// decision repository.
package index

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/drctl/drctl/internal/parser"
	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/storage"
	"github.com/drctl/drctl/internal/store"
)

// FileName is the generated index, relative to the repository root.
const FileName = "index.md"

// Entry is one row of the index.
type Entry struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status"`
	Version    string `json:"version"`
	LastEdited string `json:"lastEdited"`
	// Path is relative to the repository root.
	Path string `json:"path"`
	rank int
}

// Group holds the entries of one domain.
type Group struct {
	Domain  string  `json:"domain"`
	Entries []Entry `json:"entries"`
}

// Build groups records by domain. Domains are sorted by name, entries by
// status rank and then id.
func Build(rc *repo.Context, records []store.Record) []Group {
	byDomain := make(map[string][]Entry)
	for i := range records {
		r := &records[i]
		domain := r.Domain
		if domain == "" {
			domain = "(none)"
		}
		byDomain[domain] = append(byDomain[domain], Entry{
			ID:         r.ID,
			Title:      parser.Title(r.Body),
			Status:     string(r.Status),
			Version:    r.Version,
			LastEdited: r.LastEdited,
			Path:       r.RelPath(rc),
			rank:       r.Status.SortRank(),
		})
	}

	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	groups := make([]Group, 0, len(domains))
	for _, d := range domains {
		entries := byDomain[d]
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].rank != entries[j].rank {
				return entries[i].rank < entries[j].rank
			}
			return entries[i].ID < entries[j].ID
		})
		groups = append(groups, Group{Domain: d, Entries: entries})
	}
	return groups
}

// Render produces the Markdown index document.
func Render(title string, groups []Group) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("_Generated by drctl. Do not edit by hand._\n")
	if len(groups) == 0 {
		b.WriteString("\nNo decisions yet.\n")
		return b.Bytes()
	}
	for _, g := range groups {
		fmt.Fprintf(&b, "\n## %s\n\n", g.Domain)
		b.WriteString("| ID | Title | Status | Version | Last edited |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, e := range g.Entries {
			fmt.Fprintf(&b, "| [%s](%s) | %s | %s | %s | %s |\n",
				e.ID, e.Path, strings.ReplaceAll(e.Title, "|", `\|`), e.Status, e.Version, e.LastEdited)
		}
	}
	return b.Bytes()
}

// Generate lists the repository and writes index.md at its root.
// It returns the number of records indexed.
func Generate(rc *repo.Context) (int, error) {
	records, err := store.List(rc)
	if err != nil {
		return 0, fmt.Errorf("index: list: %w", err)
	}
	fs, err := storage.NewFS(rc.Root)
	if err != nil {
		return 0, err
	}
	if err := fs.Write(FileName, Render(title(rc), Build(rc, records))); err != nil {
		return 0, fmt.Errorf("index: write: %w", err)
	}
	return len(records), nil
}

func title(rc *repo.Context) string {
	if strings.TrimSpace(rc.Name) != "" {
		return "Decision Index: " + rc.Name
	}
	return "Decision Index"
}

// Package models defines the domain types for drctl.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/drctl/drctl/internal/apperr"
)

// DateLayout is the on-disk format of every date field.
const DateLayout = "2006-01-02"

// IDPrefix starts every decision id.
const IDPrefix = "DR"

// Status is the lifecycle state of a decision record.
type Status string

const (
	StatusNew        Status = "new" // legacy, display ordering only
	StatusDraft      Status = "draft"
	StatusProposed   Status = "proposed"
	StatusAccepted   Status = "accepted"
	StatusDeprecated Status = "deprecated"
	StatusSuperseded Status = "superseded"
	StatusRejected   Status = "rejected"
	StatusRetired    Status = "retired"
	StatusArchived   Status = "archived"
)

// Statuses lists the valid statuses for stored records.
var Statuses = []Status{
	StatusDraft, StatusProposed, StatusAccepted, StatusDeprecated,
	StatusSuperseded, StatusRejected, StatusRetired, StatusArchived,
}

// Valid reports whether s is one of Statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// SortRank orders statuses for display. Unknown statuses sort last.
func (s Status) SortRank() int {
	order := []Status{
		StatusNew, StatusDraft, StatusProposed, StatusAccepted, StatusDeprecated,
		StatusSuperseded, StatusRejected, StatusRetired, StatusArchived,
	}
	for i, v := range order {
		if s == v {
			return i
		}
	}
	return len(order)
}

// ChangeType describes the kind of the most recent mutation.
type ChangeType string

const (
	ChangeCreation     ChangeType = "creation"
	ChangeCorrection   ChangeType = "correction"
	ChangeRevision     ChangeType = "revision"
	ChangeSupersession ChangeType = "supersession"
	ChangeRetirement   ChangeType = "retirement"
)

// ChangeTypes lists the valid change types.
var ChangeTypes = []ChangeType{
	ChangeCreation, ChangeCorrection, ChangeRevision, ChangeSupersession, ChangeRetirement,
}

// Valid reports whether c is one of ChangeTypes.
func (c ChangeType) Valid() bool {
	for _, v := range ChangeTypes {
		if c == v {
			return true
		}
	}
	return false
}

// Review vocabularies accepted in reviewHistory entries.
var (
	ReviewTypes    = []string{"initial", "scheduled", "adhoc"}
	ReviewOutcomes = []string{"keep", "revise", "retire", "supersede"}
)

// CreationCompatible reports whether a record in status s may still carry
// changeType creation.
func CreationCompatible(s Status) bool {
	return s == StatusDraft || s == StatusProposed || s == StatusAccepted
}

// ChangelogEntry is one line of a record's history.
type ChangelogEntry struct {
	Date string `yaml:"date"`
	Note string `yaml:"note"`
}

// ReviewEntry records a single review of a decision.
type ReviewEntry struct {
	Date     string `yaml:"date"`
	Type     string `yaml:"type"`
	Outcome  string `yaml:"outcome"`
	Reviewer string `yaml:"reviewer,omitempty"`
	Reason   string `yaml:"reason,omitempty"`
}

// Decision is the frontmatter of a decision record file.
type Decision struct {
	ID               string           `yaml:"id"`
	DateCreated      string           `yaml:"dateCreated"`
	LastEdited       string           `yaml:"lastEdited"`
	DateAccepted     string           `yaml:"dateAccepted,omitempty"`
	Version          string           `yaml:"version"`
	Status           Status           `yaml:"status"`
	ChangeType       ChangeType       `yaml:"changeType"`
	Domain           string           `yaml:"domain,omitempty"`
	Slug             string           `yaml:"slug,omitempty"`
	Confidence       *float64         `yaml:"confidence,omitempty"`
	TemplateUsed     string           `yaml:"templateUsed,omitempty"`
	Supersedes       *string          `yaml:"supersedes,omitempty"`
	SupersededBy     *string          `yaml:"supersededBy,omitempty"`
	ReviewDate       string           `yaml:"reviewDate,omitempty"`
	LastReviewedAt   string           `yaml:"lastReviewedAt,omitempty"`
	ReviewHistory    []ReviewEntry    `yaml:"reviewHistory,omitempty"`
	Sources          LinkList         `yaml:"sources,omitempty"`
	ImplementedBy    LinkList         `yaml:"implementedBy,omitempty"`
	RelatedArtifacts LinkList         `yaml:"relatedArtifacts,omitempty"`
	Changelog        []ChangelogEntry `yaml:"changelog"`
}

// AppendChangelog adds a history line. Existing entries are never touched.
func (d *Decision) AppendChangelog(date, note string) {
	d.Changelog = append(d.Changelog, ChangelogEntry{Date: date, Note: note})
}

// HasChangelogNote reports whether any entry carries note exactly.
func (d *Decision) HasChangelogNote(note string) bool {
	for _, e := range d.Changelog {
		if e.Note == note {
			return true
		}
	}
	return false
}

// Ref returns a pointer to s, for the nullable cross-reference fields.
func Ref(s string) *string {
	return &s
}

// Deref returns the value of p or "" when nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Today formats t in DateLayout.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}

// BuildID composes DR--YYYYMMDD--<domain>--<slug>.
func BuildID(t time.Time, domain, slug string) string {
	return strings.Join([]string{IDPrefix, t.Format("20060102"), domain, slug}, "--")
}

// ValidateSegment checks a domain or slug before it is encoded into an id
// and used as a path component. kind names the segment in the error.
func ValidateSegment(kind, value string) error {
	switch {
	case value == "":
		return fmt.Errorf("%s is empty: %w", kind, apperr.ErrInvalidName)
	case strings.Contains(value, "--"):
		return fmt.Errorf("%s %q must not contain \"--\": %w", kind, value, apperr.ErrInvalidName)
	case strings.ContainsAny(value, `/\`):
		return fmt.Errorf("%s %q must not contain a path separator: %w", kind, value, apperr.ErrInvalidName)
	case value == "." || strings.Contains(value, ".."):
		return fmt.Errorf("%s %q must not contain \"..\": %w", kind, value, apperr.ErrInvalidName)
	}
	return nil
}

// DomainFromID returns the domain segment encoded in id.
func DomainFromID(id string) (string, error) {
	parts := strings.Split(id, "--")
	if len(parts) < 4 || parts[2] == "" {
		return "", fmt.Errorf("cannot derive domain from id %q", id)
	}
	return parts[2], nil
}

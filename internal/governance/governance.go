// Package governance checks decision records for structural and
// referential defects.
package governance

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/drctl/drctl/internal/models"
	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/store"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes.
const (
	CodeMissingID             = "missing-id"
	CodeInvalidStatus         = "invalid-status"
	CodeInvalidChangeType     = "invalid-change-type"
	CodeMissingSupersedeLink  = "missing-supersede-link"
	CodeDanglingSupersedes    = "dangling-supersedes"
	CodeDuplicateID           = "duplicate-id"
	CodeInvalidReviewEntry    = "invalid-review-entry"
	CodeInvalidLastReviewedAt = "invalid-last-reviewed-at"
	CodeInvalidLinkList       = "invalid-link-list"
)

// Issue is one finding.
type Issue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	ID       string   `json:"id,omitempty"`
	// Path is relative to the repository root.
	Path string `json:"path,omitempty"`
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	statusRule     = validation.In(toAny(models.Statuses)...)
	changeTypeRule = validation.In(toAny(models.ChangeTypes)...)
	dateRule       = validation.Date(models.DateLayout)
)

func toAny[T any](xs []T) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// Validate inspects records. rc may be nil, in which case issue paths are
// left absolute.
func Validate(records []store.Record, rc *repo.Context) []Issue {
	known := make(map[string]bool, len(records))
	for _, r := range records {
		if r.ID != "" {
			known[r.ID] = true
		}
	}

	var issues []Issue
	seen := make(map[string][]string)
	for i := range records {
		r := &records[i]
		path := r.Path
		if rc != nil {
			path = r.RelPath(rc)
		}
		c := checker{id: r.ID, path: path}
		c.record(r, known)
		issues = append(issues, c.issues...)
		if r.ID != "" {
			seen[r.ID] = append(seen[r.ID], path)
		}
	}

	dups := make([]string, 0)
	for id, paths := range seen {
		if len(paths) > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	for _, id := range dups {
		issues = append(issues, Issue{
			Code:     CodeDuplicateID,
			Severity: SeverityError,
			Message:  fmt.Sprintf("id %s is used by %d files: %s", id, len(seen[id]), strings.Join(seen[id], ", ")),
			ID:       id,
			Path:     seen[id][0],
		})
	}
	return issues
}

type checker struct {
	id     string
	path   string
	issues []Issue
}

func (c *checker) add(code string, sev Severity, format string, args ...interface{}) {
	c.issues = append(c.issues, Issue{
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		ID:       c.id,
		Path:     c.path,
	})
}

func (c *checker) record(r *store.Record, known map[string]bool) {
	if strings.TrimSpace(r.ID) == "" {
		c.add(CodeMissingID, SeverityError, "record has no id")
	}

	if err := validation.Validate(r.Status, validation.Required, statusRule); err != nil {
		c.add(CodeInvalidStatus, SeverityError, "status %q is not valid", r.Status)
	}

	if err := validation.Validate(r.ChangeType, validation.Required, changeTypeRule); err != nil {
		c.add(CodeInvalidChangeType, SeverityError, "changeType %q is not valid", r.ChangeType)
	} else if r.ChangeType == models.ChangeCreation && r.Status.Valid() && !models.CreationCompatible(r.Status) {
		c.add(CodeInvalidChangeType, SeverityError, "changeType creation is not valid for status %s", r.Status)
	}

	if r.Status == models.StatusSuperseded && strings.TrimSpace(models.Deref(r.SupersededBy)) == "" {
		c.add(CodeMissingSupersedeLink, SeverityError, "status is superseded but supersededBy is empty")
	}

	if target := models.Deref(r.Supersedes); target != "" && !known[target] {
		c.add(CodeDanglingSupersedes, SeverityWarning, "supersedes %s, which does not exist", target)
	}

	for i := range r.ReviewHistory {
		if msg := reviewProblems(&r.ReviewHistory[i]); msg != "" {
			c.add(CodeInvalidReviewEntry, SeverityWarning, "reviewHistory[%d]: %s", i, msg)
		}
	}

	if err := validation.Validate(r.LastReviewedAt, dateRule); err != nil {
		c.add(CodeInvalidLastReviewedAt, SeverityWarning, "lastReviewedAt %q is not a %s date", r.LastReviewedAt, "YYYY-MM-DD")
	}

	c.links("sources", r.Sources)
	c.links("implementedBy", r.ImplementedBy)
	c.links("relatedArtifacts", r.RelatedArtifacts)
}

func (c *checker) links(field string, l models.LinkList) {
	if !l.IsList() {
		c.add(CodeInvalidLinkList, SeverityWarning, "%s must be a list", field)
		return
	}
	for i, item := range l.Items {
		if strings.TrimSpace(item) == "" {
			c.add(CodeInvalidLinkList, SeverityWarning, "%s[%d] is empty", field, i)
		}
	}
}

// reviewProblems joins every defect of e into one message, or returns "".
func reviewProblems(e *models.ReviewEntry) string {
	err := validation.ValidateStruct(e,
		validation.Field(&e.Date, validation.Required, dateRule),
		validation.Field(&e.Type, validation.Required, validation.In(toAny(models.ReviewTypes)...)),
		validation.Field(&e.Outcome, validation.Required, validation.In(toAny(models.ReviewOutcomes)...)),
	)
	if err == nil {
		return ""
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, strings.ToLower(k)+" "+verrs[k].Error())
	}
	return strings.Join(parts, "; ")
}

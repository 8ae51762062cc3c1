// Package lifecycle implements the decision record state machine.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/drctl/drctl/internal/apperr"
	"github.com/drctl/drctl/internal/gitclient"
	"github.com/drctl/drctl/internal/models"
	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/store"
	"github.com/drctl/drctl/internal/template"
	"github.com/drctl/drctl/internal/version"
)

// Changelog notes written by the transitions.
const (
	NoteCreated    = "Initial creation"
	NoteDraft      = "Marked as draft"
	NoteProposed   = "Marked as proposed"
	NoteAccepted   = "Marked as accepted"
	NoteRejected   = "Marked as rejected"
	NoteDeprecated = "Marked as deprecated"
	NoteRetired    = "Marked as retired"
	NoteCorrection = "Correction applied"
	NoteRevision   = "Revision applied"
)

// reviewInterval is how far ahead the next review is scheduled.
const reviewInterval = 6 // months

var (
	proposable  = statusSet(models.StatusNew, models.StatusDraft)
	acceptable  = statusSet(models.StatusDraft, models.StatusProposed)
	correctable = statusSet(models.StatusDraft, models.StatusProposed, models.StatusAccepted, models.StatusDeprecated)
	revisable   = statusSet(models.StatusDraft, models.StatusProposed, models.StatusAccepted)
)

func statusSet(ss ...models.Status) map[models.Status]bool {
	m := make(map[models.Status]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// Options configure a Service.
type Options struct {
	// Git defaults to the git binary on PATH.
	Git    gitclient.Client
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// TemplateEnv is the DRCTL_TEMPLATE value.
	TemplateEnv string
	// Cwd resolves relative template paths given on the command line.
	Cwd string

	OnTemplateWarning func(message string)
	OnGitDisabled     func(ctx *repo.Context)
}

// Service applies lifecycle operations to records of one repository.
type Service struct {
	repo *repo.Context
	git  gitclient.Client
	log  *slog.Logger
	now  func() time.Time

	templateEnv string
	cwd         string

	onTemplateWarning func(string)
	onGitDisabled     func(*repo.Context)
}

// New creates a Service bound to rc.
func New(rc *repo.Context, opts Options) *Service {
	s := &Service{
		repo:              rc,
		git:               opts.Git,
		log:               opts.Logger,
		now:               opts.Now,
		templateEnv:       opts.TemplateEnv,
		cwd:               opts.Cwd,
		onTemplateWarning: opts.OnTemplateWarning,
		onGitDisabled:     opts.OnGitDisabled,
	}
	if s.git == nil {
		s.git = gitclient.New()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Repo returns the context the service writes to.
func (s *Service) Repo() *repo.Context {
	return s.repo
}

func (s *Service) today() string {
	return models.Today(s.now())
}

// CreateOptions tune Create.
type CreateOptions struct {
	// Template is an explicit template path.
	Template   string
	Title      string
	Confidence *float64
}

// Create writes a new draft record for domain and slug.
func (s *Service) Create(ctx context.Context, domain, slug string, opts CreateOptions) (*store.Record, error) {
	domain, slug = strings.TrimSpace(domain), strings.TrimSpace(slug)
	if domain == "" {
		return nil, fmt.Errorf("create: %w", apperr.ErrDomainRequired)
	}
	if err := models.ValidateSegment("domain", domain); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if err := models.ValidateSegment("slug", slug); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	now := s.now()
	id := models.BuildID(now, domain, slug)
	if store.Exists(s.repo, id, domain) {
		return nil, fmt.Errorf("decision %s %w", id, apperr.ErrAlreadyExists)
	}

	tpl, err := template.Resolve(s.repo, template.Request{
		Explicit: opts.Template,
		Env:      s.templateEnv,
		Cwd:      s.cwd,
	})
	if err != nil {
		return nil, err
	}
	body := template.Render(tpl.Content, template.Values{
		ID:     id,
		Title:  opts.Title,
		Domain: domain,
		Slug:   slug,
		Date:   models.Today(now),
	})

	today := models.Today(now)
	rec := &store.Record{
		Decision: models.Decision{
			ID:           id,
			DateCreated:  today,
			LastEdited:   today,
			Version:      version.Initial,
			Status:       models.StatusDraft,
			ChangeType:   models.ChangeCreation,
			Domain:       domain,
			Slug:         slug,
			Confidence:   opts.Confidence,
			TemplateUsed: tpl.Used,
		},
		Body: body,
	}
	rec.AppendChangelog(today, NoteCreated)

	path, err := store.Save(s.repo, &rec.Decision, &body)
	if err != nil {
		return nil, err
	}
	rec.Path = path

	touched := []string{path}
	if tpl.Path != "" {
		touched = append(touched, tpl.Path)
	}
	if err := s.commit(ctx, "create", id, touched...); err != nil {
		return rec, err
	}
	s.log.Info("lifecycle: created", slog.String("id", id), slog.String("template", string(tpl.Source)))
	return rec, nil
}

// mutator changes rec in place. Returning false leaves the file untouched.
type mutator func(rec *store.Record, today string) (bool, error)

func (s *Service) apply(ctx context.Context, id, verb string, fn mutator) (*store.Record, error) {
	rec, err := store.Load(s.repo, id, "")
	if err != nil {
		return nil, err
	}
	today := s.today()
	changed, err := fn(rec, today)
	if err != nil {
		return nil, err
	}
	if !changed {
		s.log.Debug("lifecycle: no change", slog.String("id", id), slog.String("op", verb))
		return rec, nil
	}
	rec.LastEdited = today
	path, err := store.Save(s.repo, &rec.Decision, nil)
	if err != nil {
		return nil, err
	}
	rec.Path = path
	if err := s.commit(ctx, verb, id, path); err != nil {
		return rec, err
	}
	s.log.Info("lifecycle: "+verb, slog.String("id", id), slog.String("status", string(rec.Status)))
	return rec, nil
}

func transitionError(op, id string, from models.Status) error {
	return fmt.Errorf("Cannot %s decision %s in status %q: %w", op, id, from, apperr.ErrInvalidTransition) //nolint:stylecheck // user-facing message
}

// retag moves a record off changeType creation once it leaves the
// creation-compatible statuses.
func retag(d *models.Decision, ct models.ChangeType) {
	if d.ChangeType == models.ChangeCreation && !models.CreationCompatible(d.Status) {
		d.ChangeType = ct
	}
}

func markDraft(rec *store.Record, today string) {
	rec.Status = models.StatusDraft
	rec.AppendChangelog(today, NoteDraft)
}

// Draft marks id as draft from any status.
func (s *Service) Draft(ctx context.Context, id string) (*store.Record, error) {
	return s.apply(ctx, id, "draft", func(rec *store.Record, today string) (bool, error) {
		markDraft(rec, today)
		return true, nil
	})
}

// Propose moves a draft to proposed, backfilling the draft entry when it
// is missing. Template warnings for the body are reported afterwards.
func (s *Service) Propose(ctx context.Context, id string) (*store.Record, error) {
	rec, err := s.apply(ctx, id, "propose", func(rec *store.Record, today string) (bool, error) {
		if rec.Status == models.StatusProposed {
			return false, nil
		}
		if rec.Status != "" && !proposable[rec.Status] {
			return false, transitionError("propose", id, rec.Status)
		}
		if !rec.HasChangelogNote(NoteDraft) {
			markDraft(rec, today)
		}
		rec.Status = models.StatusProposed
		rec.AppendChangelog(today, NoteProposed)
		return true, nil
	})
	if err != nil {
		return rec, err
	}
	if s.onTemplateWarning != nil {
		for _, w := range template.Hygiene(rec.ID, rec.Body) {
			s.onTemplateWarning(w)
		}
	}
	return rec, nil
}

// Accept marks id accepted. Accepting an accepted record does nothing.
func (s *Service) Accept(ctx context.Context, id string) (*store.Record, error) {
	return s.apply(ctx, id, "accept", func(rec *store.Record, today string) (bool, error) {
		if rec.Status == models.StatusAccepted {
			return false, nil
		}
		if !acceptable[rec.Status] {
			return false, transitionError("accept", id, rec.Status)
		}
		rec.Status = models.StatusAccepted
		rec.DateAccepted = today
		rec.AppendChangelog(today, NoteAccepted)
		return true, nil
	})
}

// Reject marks id rejected.
func (s *Service) Reject(ctx context.Context, id string) (*store.Record, error) {
	return s.apply(ctx, id, "reject", func(rec *store.Record, today string) (bool, error) {
		rec.Status = models.StatusRejected
		retag(&rec.Decision, models.ChangeRetirement)
		rec.AppendChangelog(today, NoteRejected)
		return true, nil
	})
}

// Deprecate marks id deprecated.
func (s *Service) Deprecate(ctx context.Context, id string) (*store.Record, error) {
	return s.apply(ctx, id, "deprecate", func(rec *store.Record, today string) (bool, error) {
		rec.Status = models.StatusDeprecated
		retag(&rec.Decision, models.ChangeRetirement)
		rec.AppendChangelog(today, NoteDeprecated)
		return true, nil
	})
}

// Retire marks id retired. The body is left as it is.
func (s *Service) Retire(ctx context.Context, id string) (*store.Record, error) {
	return s.apply(ctx, id, "retire", func(rec *store.Record, today string) (bool, error) {
		rec.Status = models.StatusRetired
		rec.ChangeType = models.ChangeRetirement
		rec.AppendChangelog(today, NoteRetired)
		return true, nil
	})
}

// Correct applies a patch-level correction.
func (s *Service) Correct(ctx context.Context, id, note string) (*store.Record, error) {
	return s.apply(ctx, id, "correct", func(rec *store.Record, today string) (bool, error) {
		if !correctable[rec.Status] {
			return false, transitionError("correct", id, rec.Status)
		}
		v, err := version.Bump(rec.Version, version.Patch)
		if err != nil {
			return false, fmt.Errorf("correct %s: %w", id, err)
		}
		rec.Version = v
		rec.ChangeType = models.ChangeCorrection
		rec.AppendChangelog(today, orDefault(note, NoteCorrection))
		return true, nil
	})
}

// Revise applies a minor revision, optionally replacing confidence.
func (s *Service) Revise(ctx context.Context, id, note string, confidence *float64) (*store.Record, error) {
	return s.apply(ctx, id, "revise", func(rec *store.Record, today string) (bool, error) {
		if !revisable[rec.Status] {
			return false, transitionError("revise", id, rec.Status)
		}
		v, err := version.Bump(rec.Version, version.Minor)
		if err != nil {
			return false, fmt.Errorf("revise %s: %w", id, err)
		}
		rec.Version = v
		rec.ChangeType = models.ChangeRevision
		if confidence != nil {
			c := *confidence
			rec.Confidence = &c
		}
		rec.AppendChangelog(today, orDefault(note, NoteRevision))
		return true, nil
	})
}

// ReviewOptions describe a review. Empty Type and Outcome default to
// "scheduled" and "keep".
type ReviewOptions struct {
	Type     string
	Outcome  string
	Note     string
	Reviewer string
}

// Review records a review without changing status.
func (s *Service) Review(ctx context.Context, id string, opts ReviewOptions) (*store.Record, error) {
	typ := orDefault(opts.Type, "scheduled")
	outcome := orDefault(opts.Outcome, "keep")
	if !contains(models.ReviewTypes, typ) {
		return nil, fmt.Errorf("review %s: unknown review type %q (want one of %s)", id, typ, strings.Join(models.ReviewTypes, ", "))
	}
	if !contains(models.ReviewOutcomes, outcome) {
		return nil, fmt.Errorf("review %s: unknown outcome %q (want one of %s)", id, outcome, strings.Join(models.ReviewOutcomes, ", "))
	}
	return s.apply(ctx, id, "review", func(rec *store.Record, today string) (bool, error) {
		rec.ReviewHistory = append(rec.ReviewHistory, models.ReviewEntry{
			Date:     today,
			Type:     typ,
			Outcome:  outcome,
			Reviewer: opts.Reviewer,
			Reason:   opts.Note,
		})
		rec.LastReviewedAt = today
		rec.ReviewDate = models.Today(s.now().AddDate(0, reviewInterval, 0))
		note := fmt.Sprintf("Reviewed (%s): %s", typ, outcome)
		if opts.Note != "" {
			note += " - " + opts.Note
		}
		rec.AppendChangelog(today, note)
		return true, nil
	})
}

// Supersede links oldID to newID in both directions and commits both
// files together.
func (s *Service) Supersede(ctx context.Context, oldID, newID string) (oldRec, newRec *store.Record, err error) {
	if oldID == newID {
		return nil, nil, fmt.Errorf("supersede: %s cannot supersede itself: %w", oldID, apperr.ErrInvalidTransition)
	}
	oldRec, err = store.Load(s.repo, oldID, "")
	if err != nil {
		return nil, nil, err
	}
	newRec, err = store.Load(s.repo, newID, "")
	if err != nil {
		return nil, nil, err
	}

	today := s.today()
	oldRec.Status = models.StatusSuperseded
	oldRec.SupersededBy = models.Ref(newID)
	oldRec.ChangeType = models.ChangeSupersession
	oldRec.LastEdited = today
	oldRec.AppendChangelog(today, "Superseded by "+newID)

	newRec.Supersedes = models.Ref(oldID)
	newRec.LastEdited = today
	newRec.AppendChangelog(today, "Supersedes "+oldID)

	oldPath, err := store.Save(s.repo, &oldRec.Decision, nil)
	if err != nil {
		return nil, nil, err
	}
	newPath, err := store.Save(s.repo, &newRec.Decision, nil)
	if err != nil {
		return nil, nil, err
	}
	oldRec.Path, newRec.Path = oldPath, newPath

	if err := s.commit(ctx, "supersede", oldID, oldPath, newPath); err != nil {
		return oldRec, newRec, err
	}
	s.log.Info("lifecycle: superseded", slog.String("old", oldID), slog.String("new", newID))
	return oldRec, newRec, nil
}

// ListAll returns every record in the repository.
func (s *Service) ListAll() ([]store.Record, error) {
	return store.List(s.repo)
}

// Get loads a single record.
func (s *Service) Get(id string) (*store.Record, error) {
	return store.Load(s.repo, id, "")
}

// commit stages paths and commits them when git mode is enabled. Files
// already staged by the user abort the commit before anything is added.
func (s *Service) commit(ctx context.Context, verb, id string, paths ...string) error {
	if !s.repo.GitEnabled() {
		if s.onGitDisabled != nil {
			s.onGitDisabled(s.repo)
		}
		return nil
	}
	dir := s.repo.CommitDir()

	touched := make(map[string]bool, len(paths))
	for _, p := range paths {
		touched[gitclient.Relative(dir, p)] = true
	}
	staged, err := s.git.StagedFiles(ctx, dir)
	if err != nil {
		return s.gitError(dir, err)
	}
	var unrelated []string
	for _, f := range staged {
		if !touched[f] {
			unrelated = append(unrelated, f)
		}
	}
	if len(unrelated) > 0 {
		sort.Strings(unrelated)
		return fmt.Errorf("%w: %s; commit or unstage them before running drctl", apperr.ErrStagedConflict, strings.Join(unrelated, ", "))
	}

	msg := fmt.Sprintf("drctl: %s %s", verb, id)
	if err := s.git.StageAndCommit(ctx, paths, gitclient.CommitOptions{Dir: dir, Message: msg}); err != nil {
		return s.gitError(dir, err)
	}
	s.log.Debug("lifecycle: committed", slog.String("message", msg), slog.String("dir", dir))
	return nil
}

func (s *Service) gitError(dir string, err error) error {
	if gitclient.IsNotRepository(err) {
		return fmt.Errorf("%w: %s (run `drctl repo init --git %s` to initialise it, or set git: disabled)", apperr.ErrNotGitRepo, dir, dir)
	}
	return err
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

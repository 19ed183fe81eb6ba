package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Service handles the business logic for constraints.
type Service struct {
	repo   Repository
	logger *slog.Logger

	mu       sync.RWMutex
	watching bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger used for operation traces.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the underlying storage.
func (s *Service) Repository() Repository {
	return s.repo
}

// IsGlob reports whether a category filter should be treated as a glob pattern.
func IsGlob(filter string) bool {
	return strings.ContainsAny(filter, "*?[{")
}

// AddConstraint builds, validates and stores a new constraint.
func (s *Service) AddConstraint(ctx context.Context, p Params) (Constraint, error) {
	c, err := New(p)
	if err != nil {
		return Constraint{}, err
	}
	if err := s.repo.Write(ctx, c); err != nil {
		return Constraint{}, err
	}
	s.logger.DebugContext(ctx, "constraint added", "id", c.ID, "category", c.Category)
	return c, nil
}

// GetConstraint retrieves a constraint from any category.
func (s *Service) GetConstraint(ctx context.Context, id string) (Constraint, error) {
	return s.repo.ReadByID(ctx, id)
}

// ListConstraints returns every constraint, or only those under categoryFilter.
// The filter may be an exact category name or a glob such as "sec*".
func (s *Service) ListConstraints(ctx context.Context, categoryFilter string) ([]Constraint, error) {
	switch {
	case categoryFilter == "":
		return s.repo.ReadAll(ctx)
	case IsGlob(categoryFilter):
		return s.repo.ReadMatching(ctx, categoryFilter)
	default:
		return s.repo.ReadCategory(ctx, categoryFilter)
	}
}

// SearchConstraints finds constraints whose text, tags, category or references contain query.
func (s *Service) SearchConstraints(ctx context.Context, query, categoryFilter string) ([]Constraint, error) {
	return s.repo.Search(ctx, query, categoryFilter)
}

// PatchConstraint applies u to the stored constraint with the given ID.
//
// The read-modify-write is not locked: two concurrent patches of the same record
// both succeed and the last rename wins.
func (s *Service) PatchConstraint(ctx context.Context, id string, u Update) (Constraint, error) {
	c, err := s.repo.ReadByID(ctx, id)
	if err != nil {
		return Constraint{}, err
	}
	if err := c.Patch(u); err != nil {
		return Constraint{}, err
	}
	if err := s.repo.Write(ctx, c); err != nil {
		return Constraint{}, err
	}
	s.logger.DebugContext(ctx, "constraint patched", "id", c.ID, "category", c.Category)
	return c, nil
}

// DeleteConstraint removes the constraint with the given ID and returns what was removed.
func (s *Service) DeleteConstraint(ctx context.Context, id string) (Constraint, error) {
	c, err := s.repo.ReadByID(ctx, id)
	if err != nil {
		return Constraint{}, err
	}
	if err := s.repo.Delete(ctx, c.Category, c.ID); err != nil {
		return Constraint{}, err
	}
	s.logger.DebugContext(ctx, "constraint deleted", "id", c.ID, "category", c.Category)
	return c, nil
}

// Selection narrows which constraints ValidateConstraints looks at.
// At most one of Category and ID may be set.
type Selection struct {
	Category string
	ID       string
}

// CheckStatus is the outcome of checking one constraint.
type CheckStatus string

const (
	CheckValid   CheckStatus = "VALID"
	CheckInvalid CheckStatus = "INVALID"
	CheckPassed  CheckStatus = "PASSED"
	CheckFailed  CheckStatus = "FAILED"
	CheckSkipped CheckStatus = "SKIPPED"
)

// CheckResult reports the outcome for a single constraint.
type CheckResult struct {
	ID       string        `json:"id" yaml:"id"`
	Text     string        `json:"text" yaml:"text"`
	Status   CheckStatus   `json:"status" yaml:"status"`
	Output   string        `json:"output,omitempty" yaml:"output,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Failed reports whether the result counts as a failure.
func (r CheckResult) Failed() bool {
	return r.Status == CheckFailed || r.Status == CheckInvalid
}

// CheckSummary counts results per status.
type CheckSummary struct {
	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed" yaml:"failed"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Valid   int `json:"valid" yaml:"valid"`
	Invalid int `json:"invalid" yaml:"invalid"`
	Total   int `json:"total" yaml:"total"`
}

// HasFailures reports whether any result failed verification or structural checks.
func (s CheckSummary) HasFailures() bool {
	return s.Failed > 0 || s.Invalid > 0
}

// Summarize tallies results.
func Summarize(results []CheckResult) CheckSummary {
	var sum CheckSummary
	for _, r := range results {
		switch r.Status {
		case CheckPassed:
			sum.Passed++
		case CheckFailed:
			sum.Failed++
		case CheckSkipped:
			sum.Skipped++
		case CheckValid:
			sum.Valid++
		case CheckInvalid:
			sum.Invalid++
		}
	}
	sum.Total = len(results)
	return sum
}

// ValidateConstraints checks the selected constraints.
//
// With a nil Verifier every record is validated structurally and reported as VALID or INVALID.
// Otherwise each record's verification command is executed and reported as PASSED or FAILED,
// or SKIPPED when it has none.
func (s *Service) ValidateConstraints(ctx context.Context, sel Selection, v Verifier) ([]CheckResult, error) {
	targets, err := s.selectTargets(ctx, sel)
	if err != nil {
		return nil, err
	}

	results := make([]CheckResult, 0, len(targets))
	for _, c := range targets {
		results = append(results, s.check(ctx, c, v))
	}
	return results, nil
}

func (s *Service) selectTargets(ctx context.Context, sel Selection) ([]Constraint, error) {
	switch {
	case sel.Category != "" && sel.ID != "":
		return nil, &ValidationError{Reason: "cannot specify both category and id"}
	case sel.ID != "":
		c, err := s.repo.ReadByID(ctx, sel.ID)
		if err != nil {
			return nil, err
		}
		return []Constraint{c}, nil
	default:
		return s.ListConstraints(ctx, sel.Category)
	}
}

func (s *Service) check(ctx context.Context, c Constraint, v Verifier) CheckResult {
	start := time.Now()
	res := CheckResult{ID: c.ID, Text: c.Text}

	switch {
	case v == nil:
		if err := Validate(c); err != nil {
			res.Status = CheckInvalid
			res.Error = fmt.Sprintf("Structural validation failed: %v", err)
		} else {
			res.Status = CheckValid
			res.Output = "Structural validation passed"
		}
	case c.Verification == "":
		res.Status = CheckSkipped
		res.Error = "No verification method specified"
	default:
		passed, out, err := v.Verify(ctx, c.Verification)
		switch {
		case err != nil:
			res.Status = CheckFailed
			res.Error = err.Error()
		case passed:
			res.Status = CheckPassed
			res.Output = out
		default:
			res.Status = CheckFailed
			res.Output = out
		}
		s.logger.DebugContext(ctx, "verification executed", "id", c.ID, "status", res.Status)
	}

	res.Duration = time.Since(start)
	return res
}

// Watch observes changes in the repository if supported.
func (s *Service) Watch(ctx context.Context) (<-chan Event, error) {
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, errors.New("repository does not support watching")
	}
	events, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	s.setWatching(true)

	// Forward until the repository closes its channel; events arriving after
	// ctx ends are dropped so the repository never blocks on a gone reader.
	out := make(chan Event)
	go func() {
		defer close(out)
		defer s.setWatching(false)
		for e := range events {
			select {
			case out <- e:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

func (s *Service) setWatching(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watching = active
}

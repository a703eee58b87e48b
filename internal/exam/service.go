package exam

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/campusbook/examsvc/internal/grading"
	"github.com/campusbook/examsvc/internal/roster"
)

// Audit event types appended to the event log.
const (
	EventTestDeployed       = "TestDeployed"
	EventAttemptSubmitted   = "AttemptSubmitted"
	EventTestRegraded       = "TestRegraded"
	EventAttemptAutoExpired = "AttemptAutoExpired"
)

// EventSink receives audit events. Appends are best-effort; a failing sink
// never fails the operation that produced the event.
type EventSink interface {
	Append(ctx context.Context, typ, key string, data any) error
}

// Staff identifies an authenticated staff caller. ViewAll is set for admins,
// who see and mutate tests regardless of ownership.
type Staff struct {
	Email   string
	ViewAll bool
}

type Service struct {
	store  Store
	roster roster.Service
	grader grading.Grader
	events EventSink
	now    func() time.Time
}

type ServiceOption func(*Service)

func WithGrader(g grading.Grader) ServiceOption { return func(s *Service) { s.grader = g } }
func WithEvents(e EventSink) ServiceOption      { return func(s *Service) { s.events = e } }
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, r roster.Service, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		roster: r,
		grader: grading.NewDefaultGrader(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) logEvent(ctx context.Context, typ, key string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, data); err != nil {
		log.Printf("event log: %s %s: %v", typ, key, err)
	}
}

// --- Staff operations ---

type TestInput struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	Config    TestConfig `json:"config"`
}

func (s *Service) CreateTest(ctx context.Context, staff Staff, in TestInput) (Test, error) {
	if staff.Email == "" {
		return Test{}, ErrUnauthorized
	}
	if in.Title == "" {
		return Test{}, fmt.Errorf("title required: %w", ErrValidation)
	}
	qs, err := normalizeQuestions(in.Questions)
	if err != nil {
		return Test{}, err
	}
	t := Test{
		ID:         uuid.NewString(),
		Title:      in.Title,
		Questions:  qs,
		Config:     in.Config,
		Status:     TestStatusDraft,
		TotalMarks: totalMarks(qs),
		CreatedBy:  staff.Email,
		CreatedAt:  s.now().Unix(),
	}
	if err := s.store.PutTest(ctx, t); err != nil {
		return Test{}, err
	}
	return t, nil
}

type UpdateTestInput struct {
	Title     string      `json:"title,omitempty"`
	Questions []Question  `json:"questions,omitempty"`
	Config    *TestConfig `json:"config,omitempty"`
	// Global grace marks applied across completed attempts on re-grade.
	// Always written as-is: omitting them resets previously awarded grace
	// marks to zero (last write wins).
	GraceMarks  float64 `json:"grace_marks,omitempty"`
	GraceReason string  `json:"grace_reason,omitempty"`
}

// UpdateTest edits a test's definition. When the test is already deployed (or
// completed), every completed attempt is re-graded against the new
// definitions before the call returns.
func (s *Service) UpdateTest(ctx context.Context, staff Staff, testID string, in UpdateTestInput) (Test, RegradeReport, error) {
	t, err := s.getOwned(ctx, staff, testID)
	if err != nil {
		return Test{}, RegradeReport{}, err
	}
	if in.Title != "" {
		t.Title = in.Title
	}
	if in.Config != nil {
		t.Config = *in.Config
	}
	if len(in.Questions) > 0 {
		qs, err := normalizeQuestions(in.Questions)
		if err != nil {
			return Test{}, RegradeReport{}, err
		}
		t.Questions = qs
		t.TotalMarks = totalMarks(qs)
	}
	if err := s.store.PutTest(ctx, t); err != nil {
		return Test{}, RegradeReport{}, err
	}
	var rep RegradeReport
	if t.Status != TestStatusDraft {
		rep = s.regradeAttempts(ctx, t, in.GraceMarks, in.GraceReason)
	}
	return t, rep, nil
}

func (s *Service) Deploy(ctx context.Context, staff Staff, testID string, dep Deployment) (Test, error) {
	t, err := s.getOwned(ctx, staff, testID)
	if err != nil {
		return Test{}, err
	}
	if t.Status != TestStatusDraft {
		return Test{}, fmt.Errorf("test %s is %s: %w", testID, t.Status, ErrConflict)
	}
	if err := validateDeployment(dep); err != nil {
		return Test{}, err
	}
	t.Deployment = dep
	t.Status = TestStatusDeployed
	if err := s.store.PutTest(ctx, t); err != nil {
		return Test{}, err
	}
	s.logEvent(ctx, EventTestDeployed, t.ID, dep)
	return t, nil
}

// Reassign moves an already-deployed (or closed) test back into an open
// window, the one sanctioned path backwards through the status lifecycle.
func (s *Service) Reassign(ctx context.Context, staff Staff, testID string, dep Deployment) (Test, error) {
	t, err := s.getOwned(ctx, staff, testID)
	if err != nil {
		return Test{}, err
	}
	if t.Status == TestStatusDraft {
		return Test{}, fmt.Errorf("test %s not deployed yet: %w", testID, ErrConflict)
	}
	if err := validateDeployment(dep); err != nil {
		return Test{}, err
	}
	t.Deployment = dep
	t.Status = TestStatusDeployed
	if err := s.store.PutTest(ctx, t); err != nil {
		return Test{}, err
	}
	s.logEvent(ctx, EventTestDeployed, t.ID, dep)
	return t, nil
}

func (s *Service) Close(ctx context.Context, staff Staff, testID string) (Test, error) {
	t, err := s.getOwned(ctx, staff, testID)
	if err != nil {
		return Test{}, err
	}
	if t.Status != TestStatusDeployed {
		return Test{}, fmt.Errorf("test %s is %s: %w", testID, t.Status, ErrConflict)
	}
	t.Status = TestStatusCompleted
	if err := s.store.PutTest(ctx, t); err != nil {
		return Test{}, err
	}
	return t, nil
}

func (s *Service) GetTestStaff(ctx context.Context, staff Staff, testID string) (Test, error) {
	return s.getOwned(ctx, staff, testID)
}

func (s *Service) ListTestsStaff(ctx context.Context, staff Staff, status string, limit, offset int) ([]Test, error) {
	opts := TestListOpts{Status: status, Limit: limit, Offset: offset}
	if !staff.ViewAll {
		opts.CreatedBy = staff.Email
	}
	return s.store.ListTests(ctx, opts)
}

func (s *Service) ListAttemptsStaff(ctx context.Context, staff Staff, testID, status string, limit, offset int) ([]Attempt, error) {
	if _, err := s.getOwned(ctx, staff, testID); err != nil {
		return nil, err
	}
	return s.store.ListAttempts(ctx, AttemptListOpts{
		TestID: testID,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

// getOwned fetches a test and enforces ownership. A test owned by someone
// else reads as absent rather than forbidden.
func (s *Service) getOwned(ctx context.Context, staff Staff, testID string) (Test, error) {
	if staff.Email == "" {
		return Test{}, ErrUnauthorized
	}
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return Test{}, err
	}
	if !staff.ViewAll && t.CreatedBy != staff.Email {
		return Test{}, fmt.Errorf("test %s: %w", testID, ErrNotFound)
	}
	return t, nil
}

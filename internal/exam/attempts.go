package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/campusbook/examsvc/internal/roster"
)

// ServedTest is the student-safe view of a test: correctness fields stripped,
// snapshot-aware.
type ServedTest struct {
	TestID          string     `json:"test_id"`
	Title           string     `json:"title"`
	Questions       []Question `json:"questions"`
	StartTime       int64      `json:"start_time"`
	EndTime         int64      `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	AttemptStatus   string     `json:"attempt_status,omitempty"`
	StartedAt       int64      `json:"started_at,omitempty"`
}

// StudentTestView annotates a test summary with the caller's eligibility.
type StudentTestView struct {
	TestID      string `json:"test_id"`
	Title       string `json:"title"`
	StartTime   int64  `json:"start_time"`
	EndTime     int64  `json:"end_time"`
	Duration    int    `json:"duration_minutes"`
	TotalMarks  float64 `json:"total_marks"`
	Eligibility string `json:"eligibility"`
}

// ListStudentTests returns every non-draft test targeting one of the
// student's batches, classified per the eligibility rules.
func (s *Service) ListStudentTests(ctx context.Context, phone string) ([]StudentTestView, error) {
	st, err := s.student(ctx, phone)
	if err != nil {
		return nil, err
	}
	tests, err := s.testsForBatches(ctx, st.Batches)
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	out := make([]StudentTestView, 0, len(tests))
	for _, t := range tests {
		var ap *Attempt
		if a, err := s.store.GetAttempt(ctx, t.ID, phone); err == nil {
			ap = &a
		}
		out = append(out, StudentTestView{
			TestID:      t.ID,
			Title:       t.Title,
			StartTime:   t.Deployment.StartTime,
			EndTime:     t.Deployment.EndTime,
			Duration:    t.Deployment.DurationMinutes,
			TotalMarks:  t.TotalMarks,
			Eligibility: ClassifyEligibility(st.CreatedAt, t.Deployment.StartTime, t.Deployment.EndTime, ap, now),
		})
	}
	return out, nil
}

// ServeTest hands the student their question set for taking. For tests
// configured with a per-student random subset, first serve snapshots the
// subset onto a fresh in-progress attempt so later grading sees exactly what
// was shown.
func (s *Service) ServeTest(ctx context.Context, phone, testID string) (ServedTest, error) {
	t, _, err := s.studentTest(ctx, phone, testID)
	if err != nil {
		return ServedTest{}, err
	}
	now := s.now().Unix()

	a, err := s.store.GetAttempt(ctx, testID, phone)
	have := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return ServedTest{}, err
	}
	if have && a.Status == AttemptCompleted {
		return ServedTest{}, fmt.Errorf("attempt already submitted: %w", ErrConflict)
	}
	if !have {
		if err := checkWindowForStart(t.Deployment, now); err != nil {
			return ServedTest{}, err
		}
		if n := t.Deployment.QuestionCount; n > 0 && n < len(t.Questions) {
			a = s.newAttempt(t, phone, randomSubset(t.Questions, n), now)
			if err := s.createOrReload(ctx, &a); err != nil {
				return ServedTest{}, err
			}
			have = true
		}
	}

	served := t.Questions
	if have {
		served = servedQuestions(a, t)
	}
	view := ServedTest{
		TestID:          t.ID,
		Title:           t.Title,
		Questions:       sanitizeQuestions(served),
		StartTime:       t.Deployment.StartTime,
		EndTime:         t.Deployment.EndTime,
		DurationMinutes: t.Deployment.DurationMinutes,
	}
	if have {
		view.AttemptStatus = a.Status
		view.StartedAt = a.StartedAt
	}
	return view, nil
}

// SaveAnswer stores one answer value, creating the in-progress attempt on the
// first save. An attempt already started may keep saving past the end time;
// new starts are rejected once the window closes.
func (s *Service) SaveAnswer(ctx context.Context, phone, testID, questionID string, value json.RawMessage) (Attempt, error) {
	t, _, err := s.studentTest(ctx, phone, testID)
	if err != nil {
		return Attempt{}, err
	}
	now := s.now().Unix()

	a, err := s.store.GetAttempt(ctx, testID, phone)
	have := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Attempt{}, err
	}
	if have && a.Status == AttemptCompleted {
		return Attempt{}, fmt.Errorf("attempt already submitted: %w", ErrConflict)
	}
	if !have {
		if err := checkWindowForStart(t.Deployment, now); err != nil {
			return Attempt{}, err
		}
		var snapshot []Question
		if n := t.Deployment.QuestionCount; n > 0 && n < len(t.Questions) {
			snapshot = randomSubset(t.Questions, n)
		}
		a = s.newAttempt(t, phone, snapshot, now)
		if err := s.createOrReload(ctx, &a); err != nil {
			return Attempt{}, err
		}
	}

	if !questionExists(servedQuestions(a, t), questionID) {
		return Attempt{}, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	upsertAnswer(&a, questionID, value)
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

// Submit finalizes the attempt: grades every stored answer, computes
// score/percentage against the served set, and marks it completed.
func (s *Service) Submit(ctx context.Context, phone, testID string) (Attempt, error) {
	t, _, err := s.studentTest(ctx, phone, testID)
	if err != nil {
		return Attempt{}, err
	}
	a, err := s.store.GetAttempt(ctx, testID, phone)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status == AttemptCompleted {
		return Attempt{}, fmt.Errorf("attempt already submitted: %w", ErrConflict)
	}

	now := s.now().Unix()
	s.finalize(&a, t)
	a.Status = AttemptCompleted
	a.SubmittedAt = now
	a.TerminationReason = TerminationNormal
	if a.TimeSpentSec == 0 && now > a.StartedAt {
		a.TimeSpentSec = now - a.StartedAt
	}
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	s.logEvent(ctx, EventAttemptSubmitted, a.ID, map[string]any{
		"test_id": testID, "student_phone": phone, "score": a.Score,
	})
	return a, nil
}

// --- helpers ---

func (s *Service) student(ctx context.Context, phone string) (roster.Student, error) {
	if phone == "" {
		return roster.Student{}, ErrUnauthorized
	}
	st, err := s.roster.Student(ctx, phone)
	if err != nil {
		return roster.Student{}, fmt.Errorf("student %s: %w", phone, ErrNotFound)
	}
	return st, nil
}

// studentTest resolves a test the student is allowed to address: deployed (or
// closed, for result access) and targeting one of their batches.
func (s *Service) studentTest(ctx context.Context, phone, testID string) (Test, roster.Student, error) {
	st, err := s.student(ctx, phone)
	if err != nil {
		return Test{}, roster.Student{}, err
	}
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return Test{}, roster.Student{}, err
	}
	// Drafts are invisible to students.
	if t.Status == TestStatusDraft || !st.InAnyBatch(t.Deployment.Batches) {
		return Test{}, roster.Student{}, fmt.Errorf("test %s: %w", testID, ErrNotFound)
	}
	return t, st, nil
}

func checkWindowForStart(dep Deployment, now int64) error {
	if now < dep.StartTime {
		return fmt.Errorf("test not open yet: %w", ErrValidation)
	}
	if dep.EndTime > 0 && now > dep.EndTime {
		return ErrAlreadyExpired
	}
	return nil
}

func (s *Service) newAttempt(t Test, phone string, snapshot []Question, now int64) Attempt {
	return Attempt{
		ID:           uuid.NewString(),
		TestID:       t.ID,
		StudentPhone: phone,
		Status:       AttemptInProgress,
		Questions:    snapshot,
		StartedAt:    now,
	}
}

// createOrReload inserts the attempt; when a concurrent save already inserted
// one for the same (test, student), the unique constraint turns the second
// insert into a clean reload.
func (s *Service) createOrReload(ctx context.Context, a *Attempt) error {
	err := s.store.CreateAttempt(ctx, *a)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) {
		existing, gerr := s.store.GetAttempt(ctx, a.TestID, a.StudentPhone)
		if gerr != nil {
			return gerr
		}
		*a = existing
		return nil
	}
	return err
}

func questionExists(qs []Question, id string) bool {
	for _, q := range leafQuestions(qs) {
		if q.ID == id {
			return true
		}
	}
	return false
}

func upsertAnswer(a *Attempt, questionID string, value json.RawMessage) {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			a.Answers[i].Value = value
			a.Answers[i].IsCorrect = false
			a.Answers[i].MarksAwarded = 0
			return
		}
	}
	a.Answers = append(a.Answers, Answer{QuestionID: questionID, Value: value})
}

// randomSubset picks n top-level questions, keeping the authored order.
func randomSubset(qs []Question, n int) []Question {
	idxs := rand.Perm(len(qs))[:n]
	sort.Ints(idxs)
	out := make([]Question, 0, n)
	for _, i := range idxs {
		out = append(out, qs[i])
	}
	return out
}

// sanitizeQuestions strips everything a student could use to derive the key.
func sanitizeQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.CorrectIndices = nil
		q.FillBlankAnswer = ""
		q.IsGrace = false
		q.CaseSensitive = false
		q.NumberRangeMin = 0
		q.NumberRangeMax = 0
		if len(q.SubQuestions) > 0 {
			q.SubQuestions = sanitizeQuestions(q.SubQuestions)
		}
		out[i] = q
	}
	return out
}

func (s *Service) testsForBatches(ctx context.Context, batches []string) ([]Test, error) {
	seen := map[string]bool{}
	var out []Test
	for _, b := range batches {
		tests, err := s.store.ListTests(ctx, TestListOpts{Batch: b})
		if err != nil {
			return nil, err
		}
		for _, t := range tests {
			if t.Status == TestStatusDraft || seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Deployment.StartTime < out[j].Deployment.StartTime
	})
	return out, nil
}

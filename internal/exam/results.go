package exam

import (
	"context"
	"encoding/json"
	"fmt"
)

// AnswerReview is one graded answer as shown back to the student.
type AnswerReview struct {
	QuestionID      string          `json:"question_id"`
	Value           json.RawMessage `json:"value,omitempty"`
	IsCorrect       bool            `json:"is_correct"`
	MarksAwarded    float64         `json:"marks_awarded"`
	AdjustmentMarks float64         `json:"adjustment_marks,omitempty"`
	IsGraceAwarded  bool            `json:"is_grace_awarded,omitempty"`
}

// ResultView is the graded review. When results are hidden by the test's
// visibility rules, score fields are nulled in the response; everything stays
// stored internally.
type ResultView struct {
	TestID            string  `json:"test_id"`
	Title             string  `json:"title"`
	Status            string  `json:"status"`
	SubmittedAt       int64   `json:"submitted_at,omitempty"`
	TerminationReason string  `json:"termination_reason,omitempty"`
	ResultsVisible    bool    `json:"results_visible"`

	Score       *float64       `json:"score,omitempty"`
	Percentage  *float64       `json:"percentage,omitempty"`
	TotalMarks  *float64       `json:"total_marks,omitempty"`
	Passed      *bool          `json:"passed,omitempty"`
	GraceMarks  *float64       `json:"grace_marks,omitempty"`
	GraceReason string         `json:"grace_reason,omitempty"`
	Answers     []AnswerReview `json:"answers,omitempty"`
}

// GetResult returns the student's graded attempt, redacted per the test's
// result-visibility configuration.
func (s *Service) GetResult(ctx context.Context, phone, testID string) (ResultView, error) {
	t, _, err := s.studentTest(ctx, phone, testID)
	if err != nil {
		return ResultView{}, err
	}
	a, err := s.store.GetAttempt(ctx, testID, phone)
	if err != nil {
		return ResultView{}, err
	}
	if a.Status != AttemptCompleted {
		return ResultView{}, fmt.Errorf("attempt not submitted yet: %w", ErrConflict)
	}

	view := ResultView{
		TestID:            t.ID,
		Title:             t.Title,
		Status:            a.Status,
		SubmittedAt:       a.SubmittedAt,
		TerminationReason: a.TerminationReason,
		ResultsVisible:    resultsVisible(t, s.now().Unix()),
	}
	if !view.ResultsVisible {
		return view, nil
	}

	total := totalMarks(servedQuestions(a, t))
	passed := a.Percentage >= t.Config.PassingPercentage
	view.Score = &a.Score
	view.Percentage = &a.Percentage
	view.TotalMarks = &total
	view.Passed = &passed
	view.GraceMarks = &a.GraceMarks
	view.GraceReason = a.GraceReason
	view.Answers = make([]AnswerReview, len(a.Answers))
	for i, ans := range a.Answers {
		view.Answers[i] = AnswerReview{
			QuestionID:      ans.QuestionID,
			Value:           ans.Value,
			IsCorrect:       ans.IsCorrect,
			MarksAwarded:    ans.MarksAwarded,
			AdjustmentMarks: ans.AdjustmentMarks,
			IsGraceAwarded:  ans.IsGraceAwarded,
		}
	}
	return view, nil
}

func resultsVisible(t Test, now int64) bool {
	if t.Config.ShowResultsImmediately {
		return true
	}
	if !t.Config.ShowResults {
		return false
	}
	end := t.Deployment.EndTime
	return end == 0 || now > end
}

// AdjustMarks applies staff per-question mark adjustments to a completed
// attempt. Each adjustment overwrites the answer's previous one; the score is
// recomputed from its components, never patched directly.
func (s *Service) AdjustMarks(ctx context.Context, staff Staff, testID, phone string, adjustments map[string]float64) (Attempt, error) {
	t, err := s.getOwned(ctx, staff, testID)
	if err != nil {
		return Attempt{}, err
	}
	if len(adjustments) == 0 {
		return Attempt{}, fmt.Errorf("no adjustments given: %w", ErrValidation)
	}
	a, err := s.store.GetAttempt(ctx, testID, phone)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != AttemptCompleted {
		return Attempt{}, fmt.Errorf("attempt not submitted yet: %w", ErrConflict)
	}

	served := servedQuestions(a, t)
	for qid, delta := range adjustments {
		if !questionExists(served, qid) {
			return Attempt{}, fmt.Errorf("question %s: %w", qid, ErrNotFound)
		}
		if _, ok := a.answerFor(qid); !ok {
			// Unanswered question: record the adjustment on a bare answer entry.
			a.Answers = append(a.Answers, Answer{QuestionID: qid, AdjustmentMarks: delta})
			continue
		}
		for i := range a.Answers {
			if a.Answers[i].QuestionID == qid {
				a.Answers[i].AdjustmentMarks = delta
			}
		}
	}
	a.Score = computeScore(a.Answers, a.GraceMarks)
	a.Percentage = computePercentage(a.Score, totalMarks(served))
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

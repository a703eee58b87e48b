package exam

import (
	"encoding/json"

	"github.com/campusbook/examsvc/internal/grading"
)

const (
	QuestionMCQ           = "mcq"
	QuestionMSQ           = "msq"
	QuestionFillBlank     = "fillblank"
	QuestionComprehension = "comprehension"
)

const (
	TestStatusDraft     = "draft"
	TestStatusDeployed  = "deployed"
	TestStatusCompleted = "completed"
)

const (
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
)

const (
	TerminationNormal      = "normal"
	TerminationAutoExpired = "server_auto_expired"
)

type Question struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"` // mcq|msq|fillblank|comprehension
	Prompt        string  `json:"prompt,omitempty"`
	Marks         float64 `json:"marks"`
	NegativeMarks float64 `json:"negative_marks,omitempty"`
	IsGrace       bool    `json:"is_grace,omitempty"`

	Options        []string `json:"options,omitempty"`
	CorrectIndices []int    `json:"correct_indices,omitempty"`

	FillBlankAnswer string  `json:"fill_blank_answer,omitempty"`
	CaseSensitive   bool    `json:"case_sensitive,omitempty"`
	IsNumberRange   bool    `json:"is_number_range,omitempty"`
	NumberRangeMin  float64 `json:"number_range_min,omitempty"`
	NumberRangeMax  float64 `json:"number_range_max,omitempty"`

	// One level of nesting only: a comprehension's sub-questions are leaves.
	// The parent's own marks are never scored; its sub-questions are.
	SubQuestions []Question `json:"sub_questions,omitempty"`
}

func (q Question) gradingQ() grading.Q {
	return grading.Q{
		Type:           q.Type,
		Marks:          q.Marks,
		NegativeMarks:  q.NegativeMarks,
		IsGrace:        q.IsGrace,
		CorrectIndices: q.CorrectIndices,
		FillBlankText:  q.FillBlankAnswer,
		CaseSensitive:  q.CaseSensitive,
		IsNumberRange:  q.IsNumberRange,
		RangeMin:       q.NumberRangeMin,
		RangeMax:       q.NumberRangeMax,
	}
}

type Deployment struct {
	Batches         []string `json:"batches"`
	StartTime       int64    `json:"start_time"` // unix seconds
	EndTime         int64    `json:"end_time"`
	DurationMinutes int      `json:"duration_minutes"`
	// When > 0, each student is served a random subset of this many
	// top-level questions, snapshotted onto the attempt.
	QuestionCount int `json:"question_count,omitempty"`
}

type TestConfig struct {
	PassingPercentage      float64 `json:"passing_percentage,omitempty"`
	ShowResults            bool    `json:"show_results"`
	ShowResultsImmediately bool    `json:"show_results_immediately"`
}

type Test struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Questions  []Question `json:"questions"`
	Deployment Deployment `json:"deployment"`
	Config     TestConfig `json:"config"`
	Status     string     `json:"status"`
	TotalMarks float64    `json:"total_marks"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  int64      `json:"created_at,omitempty"`
}

// Answer holds one submitted value plus its grading outcome. Value stays raw
// JSON; the grading strategy picked by the question's type decodes it.
type Answer struct {
	QuestionID      string          `json:"question_id"`
	Value           json.RawMessage `json:"value,omitempty"`
	IsCorrect       bool            `json:"is_correct"`
	MarksAwarded    float64         `json:"marks_awarded"`
	AdjustmentMarks float64         `json:"adjustment_marks,omitempty"`
	IsGraceAwarded  bool            `json:"is_grace_awarded,omitempty"`
}

type Attempt struct {
	ID           string `json:"id"`
	TestID       string `json:"test_id"`
	StudentPhone string `json:"student_phone"`
	Status       string `json:"status"` // in_progress|completed

	// Snapshot of the questions served to this student. Empty means the live
	// test's questions are the served set.
	Questions []Question `json:"questions,omitempty"`
	Answers   []Answer   `json:"answers"`

	Score      float64 `json:"score"`
	Percentage float64 `json:"percentage"`
	GraceMarks float64 `json:"grace_marks,omitempty"`
	GraceReason string `json:"grace_reason,omitempty"`

	StartedAt         int64  `json:"started_at"`
	SubmittedAt       int64  `json:"submitted_at,omitempty"`
	TimeSpentSec      int64  `json:"time_spent_sec,omitempty"`
	TerminationReason string `json:"termination_reason,omitempty"`
}

func (a Attempt) answerFor(questionID string) (Answer, bool) {
	for _, ans := range a.Answers {
		if ans.QuestionID == questionID {
			return ans, true
		}
	}
	return Answer{}, false
}

package exam

import (
	"math"

	"github.com/campusbook/examsvc/internal/grading"
)

// servedQuestions resolves the question set a student actually saw: the
// attempt's snapshot when one exists, else the live test's questions. All
// grading and total-marks computation goes through here.
func servedQuestions(a Attempt, t Test) []Question {
	if len(a.Questions) > 0 {
		return a.Questions
	}
	return t.Questions
}

// leafQuestions flattens comprehension parents into their sub-questions.
// A parent carries no score of its own.
func leafQuestions(qs []Question) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if q.Type == QuestionComprehension {
			out = append(out, q.SubQuestions...)
			continue
		}
		out = append(out, q)
	}
	return out
}

// totalMarks sums marks over the scored leaves of qs.
func totalMarks(qs []Question) float64 {
	var sum float64
	for _, q := range leafQuestions(qs) {
		sum += q.Marks
	}
	return sum
}

// gradeAnswers re-runs the grader over every stored answer against qs.
// An answer whose question no longer exists degrades to incorrect/zero so the
// attempt as a whole stays gradable. Adjustment marks are preserved.
func gradeAnswers(g grading.Grader, qs []Question, answers []Answer) []Answer {
	byID := make(map[string]Question)
	for _, q := range leafQuestions(qs) {
		byID[q.ID] = q
	}
	out := make([]Answer, len(answers))
	for i, ans := range answers {
		q, ok := byID[ans.QuestionID]
		if !ok {
			ans.IsCorrect = false
			ans.MarksAwarded = 0
			ans.IsGraceAwarded = false
			out[i] = ans
			continue
		}
		res := g.Grade(q.gradingQ(), ans.Value)
		ans.IsCorrect = res.Correct
		ans.MarksAwarded = res.Marks
		ans.IsGraceAwarded = q.IsGrace
		out[i] = ans
	}
	return out
}

// computeScore derives the attempt score from its components: per-answer
// awarded marks plus per-answer adjustments plus the global grace marks,
// floored at zero. Never store a score independent of these.
func computeScore(answers []Answer, graceMarks float64) float64 {
	sum := graceMarks
	for _, a := range answers {
		sum += a.MarksAwarded + a.AdjustmentMarks
	}
	if sum < 0 {
		return 0
	}
	return sum
}

// computePercentage rounds to the nearest whole percent against the served
// total, which for a snapshotted subset differs from the test's TotalMarks.
func computePercentage(score, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(score / total * 100)
}

// finalize grades an attempt in place against its served question set.
func (s *Service) finalize(a *Attempt, t Test) {
	served := servedQuestions(*a, t)
	a.Answers = gradeAnswers(s.grader, served, a.Answers)
	a.Score = computeScore(a.Answers, a.GraceMarks)
	a.Percentage = computePercentage(a.Score, totalMarks(served))
}

package exam

import "fmt"

// normalizeQuestions validates authored questions and applies defaults
// (marks default to 1).
func normalizeQuestions(qs []Question) ([]Question, error) {
	if len(qs) == 0 {
		return nil, fmt.Errorf("at least one question required: %w", ErrValidation)
	}
	out := make([]Question, len(qs))
	seen := map[string]bool{}
	for i, q := range qs {
		nq, err := normalizeQuestion(q, true)
		if err != nil {
			return nil, err
		}
		if seen[nq.ID] {
			return nil, fmt.Errorf("duplicate question id %q: %w", nq.ID, ErrValidation)
		}
		seen[nq.ID] = true
		for _, sq := range nq.SubQuestions {
			if seen[sq.ID] {
				return nil, fmt.Errorf("duplicate question id %q: %w", sq.ID, ErrValidation)
			}
			seen[sq.ID] = true
		}
		out[i] = nq
	}
	return out, nil
}

func normalizeQuestion(q Question, allowNested bool) (Question, error) {
	if q.ID == "" {
		return Question{}, fmt.Errorf("question id required: %w", ErrValidation)
	}
	if q.Marks == 0 {
		q.Marks = 1
	}
	if q.Marks < 0 || q.NegativeMarks < 0 {
		return Question{}, fmt.Errorf("question %s: marks must be >= 0: %w", q.ID, ErrValidation)
	}
	switch q.Type {
	case QuestionMCQ:
		if len(q.CorrectIndices) != 1 {
			return Question{}, fmt.Errorf("question %s: mcq needs exactly one correct index: %w", q.ID, ErrValidation)
		}
	case QuestionMSQ:
		if len(q.CorrectIndices) == 0 {
			return Question{}, fmt.Errorf("question %s: msq needs correct indices: %w", q.ID, ErrValidation)
		}
	case QuestionFillBlank:
		if q.IsNumberRange {
			if q.NumberRangeMax < q.NumberRangeMin {
				return Question{}, fmt.Errorf("question %s: range max < min: %w", q.ID, ErrValidation)
			}
		} else if q.FillBlankAnswer == "" && !q.IsGrace {
			return Question{}, fmt.Errorf("question %s: fillblank answer required: %w", q.ID, ErrValidation)
		}
	case QuestionComprehension:
		if !allowNested {
			return Question{}, fmt.Errorf("question %s: comprehension cannot nest: %w", q.ID, ErrValidation)
		}
		if len(q.SubQuestions) == 0 {
			return Question{}, fmt.Errorf("question %s: comprehension needs sub-questions: %w", q.ID, ErrValidation)
		}
		for i, sq := range q.SubQuestions {
			nsq, err := normalizeQuestion(sq, false)
			if err != nil {
				return Question{}, err
			}
			q.SubQuestions[i] = nsq
		}
	default:
		return Question{}, fmt.Errorf("question %s: unknown type %q: %w", q.ID, q.Type, ErrValidation)
	}
	return q, nil
}

func validateDeployment(dep Deployment) error {
	if len(dep.Batches) == 0 {
		return fmt.Errorf("at least one batch required: %w", ErrValidation)
	}
	if dep.StartTime <= 0 || dep.EndTime <= 0 {
		return fmt.Errorf("start and end time required: %w", ErrValidation)
	}
	if dep.EndTime <= dep.StartTime {
		return fmt.Errorf("end time must be after start time: %w", ErrValidation)
	}
	if dep.DurationMinutes <= 0 {
		return fmt.Errorf("duration must be positive: %w", ErrValidation)
	}
	if dep.QuestionCount < 0 {
		return fmt.Errorf("question count must be >= 0: %w", ErrValidation)
	}
	return nil
}

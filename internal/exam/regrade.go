package exam

import (
	"context"
	"log"
)

// RegradeReport counts the outcome of a bulk re-grade. Best effort: one
// failing attempt save never blocks the rest.
type RegradeReport struct {
	Attempts int `json:"attempts"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// regradeAttempts re-applies the grading engine to every completed attempt of
// t after its question definitions changed.
//
// Snapshot refresh replaces each matching question definition wholesale, so
// an edit that clears is_grace overwrites a previous true instead of being
// skipped as a falsy field. Grace marks are a full overwrite: re-grading
// without new grace marks resets previously awarded ones to zero.
func (s *Service) regradeAttempts(ctx context.Context, t Test, graceMarks float64, graceReason string) RegradeReport {
	var rep RegradeReport
	attempts, err := s.store.ListAttempts(ctx, AttemptListOpts{
		TestID: t.ID,
		Status: AttemptCompleted,
	})
	if err != nil {
		log.Printf("regrade %s: list attempts: %v", t.ID, err)
		return rep
	}

	byID := make(map[string]Question, len(t.Questions))
	for _, q := range t.Questions {
		byID[q.ID] = q
	}

	for _, a := range attempts {
		rep.Attempts++
		for i, q := range a.Questions {
			if upd, ok := byID[q.ID]; ok {
				a.Questions[i] = upd
			}
		}
		a.GraceMarks = graceMarks
		a.GraceReason = graceReason
		s.finalize(&a, t)
		if err := s.store.UpdateAttempt(ctx, a); err != nil {
			rep.Failed++
			log.Printf("regrade %s: attempt %s: %v", t.ID, a.ID, err)
			continue
		}
		rep.Updated++
	}
	s.logEvent(ctx, EventTestRegraded, t.ID, rep)
	return rep
}

package exam

import (
	"context"
	"log"
)

// Sweep force-completes attempts stuck in progress past their allowed
// duration or the test's end time, grading whatever answers exist. No answers
// are fabricated. Idempotent: a second sweep finds nothing in progress and
// completes zero.
func (s *Service) Sweep(ctx context.Context, staff Staff, testID string) (int, error) {
	t, err := s.getOwned(ctx, staff, testID)
	if err != nil {
		return 0, err
	}
	attempts, err := s.store.ListAttempts(ctx, AttemptListOpts{
		TestID: testID,
		Status: AttemptInProgress,
	})
	if err != nil {
		return 0, err
	}

	now := s.now().Unix()
	completed := 0
	for _, a := range attempts {
		elapsed := now - a.StartedAt
		expiredByDuration := t.Deployment.DurationMinutes > 0 &&
			elapsed > int64(t.Deployment.DurationMinutes)*60
		expiredByEndTime := t.Deployment.EndTime > 0 && now > t.Deployment.EndTime
		if !expiredByDuration && !expiredByEndTime {
			continue
		}

		s.finalize(&a, t)
		a.Status = AttemptCompleted
		a.SubmittedAt = now
		a.TerminationReason = TerminationAutoExpired
		if a.TimeSpentSec == 0 {
			a.TimeSpentSec = elapsed
		}
		if err := s.store.UpdateAttempt(ctx, a); err != nil {
			// Per-attempt persistence, no transaction: log and keep sweeping.
			// The next sweep retries anything left in progress.
			log.Printf("sweep %s: attempt %s: %v", testID, a.ID, err)
			continue
		}
		completed++
		s.logEvent(ctx, EventAttemptAutoExpired, a.ID, map[string]any{
			"test_id": testID, "student_phone": a.StudentPhone, "elapsed_sec": elapsed,
		})
	}
	return completed, nil
}

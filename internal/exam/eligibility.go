package exam

const (
	EligibilityUpcoming    = "upcoming"
	EligibilityAvailable   = "available"
	EligibilityCompleted   = "completed"
	EligibilityMissed      = "missed"
	EligibilityNotEnrolled = "not_enrolled"
)

// ClassifyEligibility places a (student, test) pair into exactly one bucket.
//
// Checks run in a fixed order: attempt state first (a started attempt stays
// addressable for submission even past the end time; new starts are blocked),
// then the window, and not_enrolled before missed so a student who joined
// after the window opened is never counted as absent.
func ClassifyEligibility(studentJoinedAt, startTime, endTime int64, attempt *Attempt, now int64) string {
	if attempt != nil {
		if attempt.Status == AttemptCompleted {
			return EligibilityCompleted
		}
		return EligibilityAvailable
	}
	if now < startTime {
		return EligibilityUpcoming
	}
	if endTime > 0 && now > endTime {
		if studentJoinedAt > startTime {
			return EligibilityNotEnrolled
		}
		return EligibilityMissed
	}
	return EligibilityAvailable
}

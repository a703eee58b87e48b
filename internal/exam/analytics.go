package exam

import (
	"context"
	"sort"
)

type QuestionStat struct {
	QuestionID string  `json:"question_id"`
	Attempts   int     `json:"attempts"`
	Correct    int     `json:"correct"`
	Accuracy   float64 `json:"accuracy"` // correct/attempts, 0 when unattempted
}

type LeaderboardEntry struct {
	StudentPhone string  `json:"student_phone"`
	Name         string  `json:"name,omitempty"`
	Score        float64 `json:"score"`
	Percentage   float64 `json:"percentage"`
	Rank         int     `json:"rank"`
}

type TestAnalytics struct {
	TestID            string         `json:"test_id"`
	TotalAttempts     int            `json:"total_attempts"`
	CompletedAttempts int            `json:"completed_attempts"`
	Highest           float64        `json:"highest"`
	Average           float64        `json:"average"`
	// Percentage histogram in fixed 10-point buckets: [0-9], [10-19], ... [90-99+].
	Buckets   [10]int        `json:"buckets"`
	Questions []QuestionStat `json:"questions"`
	// Top 10 by score.
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

const leaderboardCap = 10

// TestAnalytics aggregates one pass over the test's attempts: highest and a
// running average (no materialized score list), decile buckets, per-question
// accuracy, and a capped leaderboard.
func (s *Service) TestAnalytics(ctx context.Context, staff Staff, testID string) (TestAnalytics, error) {
	t, err := s.getOwned(ctx, staff, testID)
	if err != nil {
		return TestAnalytics{}, err
	}
	attempts, err := s.store.ListAttempts(ctx, AttemptListOpts{TestID: testID})
	if err != nil {
		return TestAnalytics{}, err
	}

	out := TestAnalytics{TestID: testID, TotalAttempts: len(attempts)}
	qstats := map[string]*QuestionStat{}
	var sum float64
	var entries []LeaderboardEntry

	for _, a := range attempts {
		if a.Status != AttemptCompleted {
			continue
		}
		out.CompletedAttempts++
		sum += a.Score
		if a.Score > out.Highest {
			out.Highest = a.Score
		}
		out.Buckets[bucketFor(a.Percentage)]++
		for _, ans := range a.Answers {
			st := qstats[ans.QuestionID]
			if st == nil {
				st = &QuestionStat{QuestionID: ans.QuestionID}
				qstats[ans.QuestionID] = st
			}
			st.Attempts++
			if ans.IsCorrect {
				st.Correct++
			}
		}
		entries = append(entries, LeaderboardEntry{
			StudentPhone: a.StudentPhone,
			Score:        a.Score,
			Percentage:   a.Percentage,
		})
	}
	if out.CompletedAttempts > 0 {
		out.Average = sum / float64(out.CompletedAttempts)
	}

	// Question order follows the live test; stats may include answers to
	// questions since removed from the bank.
	for _, q := range leafQuestions(t.Questions) {
		if st, ok := qstats[q.ID]; ok {
			finishStat(st)
			out.Questions = append(out.Questions, *st)
			delete(qstats, q.ID)
		} else {
			out.Questions = append(out.Questions, QuestionStat{QuestionID: q.ID})
		}
	}
	extra := make([]QuestionStat, 0, len(qstats))
	for _, st := range qstats {
		finishStat(st)
		extra = append(extra, *st)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].QuestionID < extra[j].QuestionID })
	out.Questions = append(out.Questions, extra...)

	out.Leaderboard = rankAndCap(entries)
	s.fillNames(ctx, out.Leaderboard)
	return out, nil
}

// BatchComparison relates one student's completed attempt to their batch.
type BatchComparison struct {
	TestID       string  `json:"test_id"`
	Title        string  `json:"title"`
	MyScore      float64 `json:"my_score"`
	MyPercentage float64 `json:"my_percentage"`
	BatchHighest float64 `json:"batch_highest"`
	BatchAverage float64 `json:"batch_average"`
	Rank         int     `json:"rank"`
	Completed    int     `json:"completed"`
}

type StudentAnalytics struct {
	StudentPhone string            `json:"student_phone"`
	Name         string            `json:"name,omitempty"`
	Tests        []BatchComparison `json:"tests"`
	// Top 10 by total score across the same set of tests.
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// StudentAnalytics compares the student against their batch across every
// non-draft test targeting their batches.
func (s *Service) StudentAnalytics(ctx context.Context, phone string) (StudentAnalytics, error) {
	st, err := s.student(ctx, phone)
	if err != nil {
		return StudentAnalytics{}, err
	}
	tests, err := s.testsForBatches(ctx, st.Batches)
	if err != nil {
		return StudentAnalytics{}, err
	}

	out := StudentAnalytics{StudentPhone: phone, Name: st.Name}
	totalScore := map[string]float64{}
	pctSum := map[string]float64{}
	pctN := map[string]int{}

	for _, t := range tests {
		attempts, err := s.store.ListAttempts(ctx, AttemptListOpts{
			TestID: t.ID,
			Status: AttemptCompleted,
		})
		if err != nil {
			return StudentAnalytics{}, err
		}
		var mine *Attempt
		var highest, sum float64
		higher := 0
		for i, a := range attempts {
			sum += a.Score
			if a.Score > highest {
				highest = a.Score
			}
			totalScore[a.StudentPhone] += a.Score
			pctSum[a.StudentPhone] += a.Percentage
			pctN[a.StudentPhone]++
			if a.StudentPhone == phone {
				mine = &attempts[i]
			}
		}
		if mine == nil {
			continue
		}
		for _, a := range attempts {
			if a.Score > mine.Score {
				higher++
			}
		}
		avg := 0.0
		if len(attempts) > 0 {
			avg = sum / float64(len(attempts))
		}
		out.Tests = append(out.Tests, BatchComparison{
			TestID:       t.ID,
			Title:        t.Title,
			MyScore:      mine.Score,
			MyPercentage: mine.Percentage,
			BatchHighest: highest,
			BatchAverage: avg,
			Rank:         higher + 1,
			Completed:    len(attempts),
		})
	}

	entries := make([]LeaderboardEntry, 0, len(totalScore))
	for p, score := range totalScore {
		e := LeaderboardEntry{StudentPhone: p, Score: score}
		if n := pctN[p]; n > 0 {
			e.Percentage = pctSum[p] / float64(n)
		}
		entries = append(entries, e)
	}
	out.Leaderboard = rankAndCap(entries)
	s.fillNames(ctx, out.Leaderboard)
	return out, nil
}

// bucketFor clamps a percentage into its decile: min(floor(p/10), 9),
// negatives into bucket 0.
func bucketFor(p float64) int {
	b := int(p / 10)
	if b < 0 {
		return 0
	}
	if b > 9 {
		return 9
	}
	return b
}

func finishStat(st *QuestionStat) {
	if st.Attempts > 0 {
		st.Accuracy = float64(st.Correct) / float64(st.Attempts)
	}
}

// rankAndCap sorts by score descending and assigns competition ranks: ties
// share a rank, and the next distinct score ranks below all of them.
func rankAndCap(entries []LeaderboardEntry) []LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	if len(entries) > leaderboardCap {
		entries = entries[:leaderboardCap]
	}
	return entries
}

// fillNames resolves display names best-effort; a roster miss leaves the
// entry unnamed.
func (s *Service) fillNames(ctx context.Context, entries []LeaderboardEntry) {
	for i := range entries {
		if st, err := s.roster.Student(ctx, entries[i].StudentPhone); err == nil {
			entries[i].Name = st.Name
		}
	}
}

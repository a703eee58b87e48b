package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SQLStore persists tests and attempts. Question and answer documents live in
// JSON text columns; works against both the sqlite and postgres drivers.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	qj, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}
	bj, err := json.Marshal(t.Deployment.Batches)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tests
		(id, title, questions_json, batches_json, start_time, end_time, duration_minutes,
		 question_count, passing_percentage, show_results, show_results_immediately,
		 status, total_marks, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
		 title=EXCLUDED.title, questions_json=EXCLUDED.questions_json,
		 batches_json=EXCLUDED.batches_json, start_time=EXCLUDED.start_time,
		 end_time=EXCLUDED.end_time, duration_minutes=EXCLUDED.duration_minutes,
		 question_count=EXCLUDED.question_count,
		 passing_percentage=EXCLUDED.passing_percentage,
		 show_results=EXCLUDED.show_results,
		 show_results_immediately=EXCLUDED.show_results_immediately,
		 status=EXCLUDED.status, total_marks=EXCLUDED.total_marks`,
		t.ID, t.Title, string(qj), string(bj),
		t.Deployment.StartTime, t.Deployment.EndTime, t.Deployment.DurationMinutes,
		t.Deployment.QuestionCount, t.Config.PassingPercentage,
		t.Config.ShowResults, t.Config.ShowResultsImmediately,
		t.Status, t.TotalMarks, t.CreatedBy, t.CreatedAt)
	return err
}

const testColumns = `id, title, questions_json, batches_json, start_time, end_time,
	duration_minutes, question_count, passing_percentage, show_results,
	show_results_immediately, status, total_marks, created_by, created_at`

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id=$1`, id)
	t, err := scanTest(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Test{}, fmt.Errorf("test %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *SQLStore) ListTests(ctx context.Context, opts TestListOpts) ([]Test, error) {
	q := `SELECT ` + testColumns + ` FROM tests`
	var conds []string
	var args []any
	if opts.CreatedBy != "" {
		args = append(args, opts.CreatedBy)
		conds = append(conds, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	// Batch membership lives inside batches_json, so that filter (and paging
	// with it) is applied after the scan.
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Test
	for rows.Next() {
		t, err := scanTest(rows.Scan)
		if err != nil {
			return nil, err
		}
		if opts.Batch != "" && !containsString(t.Deployment.Batches, opts.Batch) {
			continue
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return paginate(out, opts.Limit, opts.Offset), nil
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) error {
	qj, aj, err := marshalAttemptDocs(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts
		(id, test_id, student_phone, status, questions_json, answers_json,
		 score, percentage, grace_marks, grace_reason, started_at, submitted_at,
		 time_spent_sec, termination_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.TestID, a.StudentPhone, a.Status, qj, aj,
		a.Score, a.Percentage, a.GraceMarks, a.GraceReason,
		a.StartedAt, nullableUnix(a.SubmittedAt), a.TimeSpentSec, a.TerminationReason)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("attempt for %s/%s exists: %w", a.TestID, a.StudentPhone, ErrConflict)
	}
	return err
}

func (s *SQLStore) UpdateAttempt(ctx context.Context, a Attempt) error {
	qj, aj, err := marshalAttemptDocs(a)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE attempts SET
		 status=$1, questions_json=$2, answers_json=$3, score=$4, percentage=$5,
		 grace_marks=$6, grace_reason=$7, submitted_at=$8, time_spent_sec=$9,
		 termination_reason=$10
		WHERE test_id=$11 AND student_phone=$12`,
		a.Status, qj, aj, a.Score, a.Percentage,
		a.GraceMarks, a.GraceReason, nullableUnix(a.SubmittedAt),
		a.TimeSpentSec, a.TerminationReason, a.TestID, a.StudentPhone)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("attempt for %s/%s: %w", a.TestID, a.StudentPhone, ErrNotFound)
	}
	return nil
}

const attemptColumns = `id, test_id, student_phone, status, questions_json,
	answers_json, score, percentage, grace_marks, grace_reason, started_at,
	submitted_at, time_spent_sec, termination_reason`

func (s *SQLStore) GetAttempt(ctx context.Context, testID, phone string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE test_id=$1 AND student_phone=$2`,
		testID, phone)
	a, err := scanAttempt(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, fmt.Errorf("attempt for %s/%s: %w", testID, phone, ErrNotFound)
	}
	return a, err
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := `SELECT ` + attemptColumns + ` FROM attempts`
	var conds []string
	var args []any
	if opts.TestID != "" {
		args = append(args, opts.TestID)
		conds = append(conds, fmt.Sprintf("test_id=$%d", len(args)))
	}
	if opts.StudentPhone != "" {
		args = append(args, opts.StudentPhone)
		conds = append(conds, fmt.Sprintf("student_phone=$%d", len(args)))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", opts.Limit)
	} else if opts.Offset > 0 {
		// sqlite refuses OFFSET without LIMIT.
		q += " LIMIT -1"
	}
	if opts.Offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- scan/marshal helpers ---

func scanTest(scan func(...any) error) (Test, error) {
	var t Test
	var qjson, bjson string
	if err := scan(&t.ID, &t.Title, &qjson, &bjson,
		&t.Deployment.StartTime, &t.Deployment.EndTime, &t.Deployment.DurationMinutes,
		&t.Deployment.QuestionCount, &t.Config.PassingPercentage,
		&t.Config.ShowResults, &t.Config.ShowResultsImmediately,
		&t.Status, &t.TotalMarks, &t.CreatedBy, &t.CreatedAt); err != nil {
		return Test{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &t.Questions); err != nil {
		return Test{}, err
	}
	if err := json.Unmarshal([]byte(bjson), &t.Deployment.Batches); err != nil {
		return Test{}, err
	}
	return t, nil
}

func scanAttempt(scan func(...any) error) (Attempt, error) {
	var a Attempt
	var qjson, ajson string
	var submitted sql.NullInt64
	if err := scan(&a.ID, &a.TestID, &a.StudentPhone, &a.Status, &qjson, &ajson,
		&a.Score, &a.Percentage, &a.GraceMarks, &a.GraceReason, &a.StartedAt,
		&submitted, &a.TimeSpentSec, &a.TerminationReason); err != nil {
		return Attempt{}, err
	}
	if submitted.Valid {
		a.SubmittedAt = submitted.Int64
	}
	if qjson != "" {
		if err := json.Unmarshal([]byte(qjson), &a.Questions); err != nil {
			return Attempt{}, err
		}
	}
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		a.Answers = nil
	}
	return a, nil
}

func marshalAttemptDocs(a Attempt) (questionsJSON, answersJSON string, err error) {
	qj := []byte("")
	if len(a.Questions) > 0 {
		if qj, err = json.Marshal(a.Questions); err != nil {
			return "", "", err
		}
	}
	if a.Answers == nil {
		a.Answers = []Answer{}
	}
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return "", "", err
	}
	return string(qj), string(aj), nil
}

func nullableUnix(ts int64) any {
	if ts == 0 {
		return nil
	}
	return ts
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}

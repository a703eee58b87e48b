package roster

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrStudentNotFound = errors.New("student not found")

// SQLStore serves roster lookups from the students table. Batches are stored
// as a JSON array column, same convention as the exam document columns.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Student(ctx context.Context, phone string) (Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT phone, name, batches_json, created_at FROM students WHERE phone=$1`, phone)
	st, err := scanStudent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrStudentNotFound
	}
	return st, err
}

func (s *SQLStore) StudentsInBatch(ctx context.Context, batch string) ([]Student, error) {
	// Batch membership lives inside the JSON column, so filter after the scan.
	rows, err := s.db.QueryContext(ctx,
		`SELECT phone, name, batches_json, created_at FROM students ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows.Scan)
		if err != nil {
			return nil, err
		}
		if st.InBatch(batch) {
			out = append(out, st)
		}
	}
	return out, rows.Err()
}

// UpsertStudent seeds or refreshes a roster row (e.g. from the membership sync job).
func (s *SQLStore) UpsertStudent(ctx context.Context, st Student) error {
	bj, err := json.Marshal(st.Batches)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO students (phone, name, batches_json, created_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (phone) DO UPDATE SET name=EXCLUDED.name, batches_json=EXCLUDED.batches_json`,
		st.Phone, st.Name, string(bj), st.CreatedAt)
	return err
}

// AccessHash returns the bcrypt hash a student logs in with.
func (s *SQLStore) AccessHash(ctx context.Context, phone string) (string, error) {
	var h sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT access_hash FROM students WHERE phone=$1`, phone).Scan(&h)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrStudentNotFound
	}
	if err != nil {
		return "", err
	}
	if !h.Valid || h.String == "" {
		return "", fmt.Errorf("student %s: %w", phone, ErrStudentNotFound)
	}
	return h.String, nil
}

func scanStudent(scan func(...any) error) (Student, error) {
	var st Student
	var bj string
	if err := scan(&st.Phone, &st.Name, &bj, &st.CreatedAt); err != nil {
		return Student{}, err
	}
	if err := json.Unmarshal([]byte(bj), &st.Batches); err != nil {
		st.Batches = nil
	}
	return st, nil
}

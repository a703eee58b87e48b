package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmw "github.com/campusbook/examsvc/internal/auth/middleware"
	"github.com/campusbook/examsvc/internal/exam"
	"github.com/campusbook/examsvc/internal/rbac"
	"github.com/campusbook/examsvc/internal/roster"
)

const testNow = int64(1_700_000_000)

// identityFromHeaders replaces the JWT middleware in tests: the caller states
// who they are via headers.
func identityFromHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authmw.WithSubject(r.Context(), r.Header.Get("X-Test-Sub"))
		ctx = rbac.WithRole(ctx, r.Header.Get("X-Test-Role"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestRouter(t *testing.T) (*chi.Mux, *roster.MemoryStore) {
	t.Helper()
	store := exam.NewMemoryStore()
	ros := roster.NewMemoryStore()
	svc := exam.NewService(store, ros, exam.WithClock(func() time.Time {
		return time.Unix(testNow, 0)
	}))

	r := chi.NewRouter()
	r.Use(identityFromHeaders)
	r.Route("/tests", func(r chi.Router) {
		r.Post("/", CreateTestHandler(svc))
		r.Get("/", ListTestsHandler(svc))
		r.Get("/{testID}", GetTestHandler(svc))
		r.Post("/{testID}/deploy", DeployTestHandler(svc))
		r.Post("/{testID}/sweep", SweepHandler(svc))
		r.Get("/{testID}/analytics", TestAnalyticsHandler(svc))
	})
	r.Route("/student", func(r chi.Router) {
		r.Get("/tests", ListStudentTestsHandler(svc))
		r.Get("/tests/{testID}", ServeTestHandler(svc))
		r.Post("/tests/{testID}/answers", SaveAnswerHandler(svc))
		r.Post("/tests/{testID}/submit", SubmitAttemptHandler(svc))
		r.Get("/tests/{testID}/result", GetResultHandler(svc))
	})
	return r, ros
}

func do(t *testing.T, r http.Handler, method, path, sub, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Test-Sub", sub)
	req.Header.Set("X-Test-Role", role)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTestAndAttemptFlowOverHTTP(t *testing.T) {
	r, ros := newTestRouter(t)
	ros.Put(roster.Student{Phone: "9000000001", Name: "Asha",
		Batches: []string{"batch-a"}, CreatedAt: testNow - 86400})

	// Faculty creates a test.
	rec := do(t, r, http.MethodPost, "/tests", "faculty@school.test", "faculty", map[string]any{
		"title": "HTTP Flow",
		"questions": []map[string]any{
			{"id": "q1", "type": "mcq", "marks": 4, "options": []string{"a", "b", "c"},
				"correct_indices": []int{2}},
		},
		"config": map[string]any{"show_results_immediately": true},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created exam.Test
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Deploy it into an open window.
	rec = do(t, r, http.MethodPost, "/tests/"+created.ID+"/deploy", "faculty@school.test", "faculty",
		map[string]any{
			"batches": []string{"batch-a"}, "start_time": testNow - 60,
			"end_time": testNow + 3600, "duration_minutes": 30,
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Another faculty member sees 404, not 403.
	rec = do(t, r, http.MethodGet, "/tests/"+created.ID, "other@school.test", "faculty", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The student takes it.
	rec = do(t, r, http.MethodGet, "/student/tests/"+created.ID, "9000000001", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var served exam.ServedTest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &served))
	require.Len(t, served.Questions, 1)
	assert.Empty(t, served.Questions[0].CorrectIndices)

	rec = do(t, r, http.MethodPost, "/student/tests/"+created.ID+"/answers", "9000000001", "student",
		map[string]any{"question_id": "q1", "value": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/student/tests/"+created.ID+"/submit", "9000000001", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var attempt exam.Attempt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attempt))
	assert.Equal(t, 4.0, attempt.Score)

	// Double submit maps to 409.
	rec = do(t, r, http.MethodPost, "/student/tests/"+created.ID+"/submit", "9000000001", "student", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodGet, "/student/tests/"+created.ID+"/result", "9000000001", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res exam.ResultView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.ResultsVisible)
	assert.Equal(t, 4.0, *res.Score)

	// Analytics over the single completed attempt.
	rec = do(t, r, http.MethodGet, "/tests/"+created.ID+"/analytics", "faculty@school.test", "faculty", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var an exam.TestAnalytics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &an))
	assert.Equal(t, 1, an.CompletedAttempts)
	assert.Equal(t, 4.0, an.Highest)
}

func TestErrorMapping(t *testing.T) {
	r, ros := newTestRouter(t)
	ros.Put(roster.Student{Phone: "9000000001", Batches: []string{"batch-a"}})

	// Unknown test -> 404.
	rec := do(t, r, http.MethodGet, "/student/tests/nope", "9000000001", "student", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed JSON -> 400.
	req := httptest.NewRequest(http.MethodPost, "/tests", bytes.NewBufferString("{"))
	req.Header.Set("X-Test-Sub", "faculty@school.test")
	req.Header.Set("X-Test-Role", "faculty")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing question_id -> 400 before hitting the service.
	rec = do(t, r, http.MethodPost, "/student/tests/x/answers", "9000000001", "student",
		map[string]any{"value": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Validation failure -> 400.
	rec = do(t, r, http.MethodPost, "/tests", "faculty@school.test", "faculty", map[string]any{
		"title": "Broken", "questions": []map[string]any{{"id": "q1", "type": "mcq"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpiredWindowMapsToGone(t *testing.T) {
	r, ros := newTestRouter(t)
	ros.Put(roster.Student{Phone: "9000000001", Batches: []string{"batch-a"},
		CreatedAt: testNow - 86400})

	rec := do(t, r, http.MethodPost, "/tests", "faculty@school.test", "faculty", map[string]any{
		"title": "Closed",
		"questions": []map[string]any{
			{"id": "q1", "type": "mcq", "correct_indices": []int{0}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created exam.Test
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, r, http.MethodPost, "/tests/"+created.ID+"/deploy", "faculty@school.test", "faculty",
		map[string]any{
			"batches": []string{"batch-a"}, "start_time": testNow - 7200,
			"end_time": testNow - 3600, "duration_minutes": 30,
		})
	require.Equal(t, http.StatusOK, rec.Code)

	// Starting an attempt after the window closed.
	rec = do(t, r, http.MethodPost, "/student/tests/"+created.ID+"/answers", "9000000001", "student",
		map[string]any{"question_id": "q1", "value": 0})
	assert.Equal(t, http.StatusGone, rec.Code)
}

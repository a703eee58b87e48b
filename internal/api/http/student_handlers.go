package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusbook/examsvc/internal/exam"
)

// GET /student/tests
func ListStudentTestsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListStudentTests(r.Context(), studentPhone(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		if list == nil {
			list = []exam.StudentTestView{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /student/tests/{testID}
func ServeTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.ServeTest(r.Context(), studentPhone(r), chi.URLParam(r, "testID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// POST /student/tests/{testID}/answers  { "question_id": "...", "value": ... }
func SaveAnswerHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID string          `json:"question_id"`
			Value      json.RawMessage `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.QuestionID == "" {
			http.Error(w, "question_id required", http.StatusBadRequest)
			return
		}
		a, err := svc.SaveAnswer(r.Context(), studentPhone(r), chi.URLParam(r, "testID"),
			req.QuestionID, req.Value)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /student/tests/{testID}/submit
func SubmitAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Submit(r.Context(), studentPhone(r), chi.URLParam(r, "testID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /student/tests/{testID}/result
func GetResultHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.GetResult(r.Context(), studentPhone(r), chi.URLParam(r, "testID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GET /student/analytics
func StudentAnalyticsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.StudentAnalytics(r.Context(), studentPhone(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campusbook/examsvc/internal/exam"
)

// POST /tests
func CreateTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.TestInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		t, err := svc.CreateTest(r.Context(), staffFromRequest(r), in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

// PUT /tests/{testID} — editing a deployed test re-grades its completed attempts.
func UpdateTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.UpdateTestInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		t, rep, err := svc.UpdateTest(r.Context(), staffFromRequest(r), chi.URLParam(r, "testID"), in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"test": t, "regrade": rep})
	}
}

// POST /tests/{testID}/deploy
func DeployTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dep exam.Deployment
		if err := json.NewDecoder(r.Body).Decode(&dep); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		t, err := svc.Deploy(r.Context(), staffFromRequest(r), chi.URLParam(r, "testID"), dep)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// POST /tests/{testID}/reassign
func ReassignTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dep exam.Deployment
		if err := json.NewDecoder(r.Body).Decode(&dep); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		t, err := svc.Reassign(r.Context(), staffFromRequest(r), chi.URLParam(r, "testID"), dep)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// POST /tests/{testID}/close
func CloseTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.Close(r.Context(), staffFromRequest(r), chi.URLParam(r, "testID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// GET /tests/{testID}
func GetTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTestStaff(r.Context(), staffFromRequest(r), chi.URLParam(r, "testID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// GET /tests?status=deployed&limit=50&offset=0
func ListTestsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
		list, err := svc.ListTestsStaff(r.Context(), staffFromRequest(r), status, limit, offset)
		if err != nil {
			writeErr(w, err)
			return
		}
		if list == nil {
			list = []exam.Test{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /tests/{testID}/attempts?status=completed&limit=50&offset=0
func ListAttemptsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
		list, err := svc.ListAttemptsStaff(r.Context(), staffFromRequest(r),
			chi.URLParam(r, "testID"), status, limit, offset)
		if err != nil {
			writeErr(w, err)
			return
		}
		if list == nil {
			list = []exam.Attempt{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

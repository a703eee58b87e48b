package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusbook/examsvc/internal/exam"
)

// POST /tests/{testID}/attempts/{phone}/adjust  { "adjustments": {"q1": 2, "q3": -1} }
func AdjustMarksHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Adjustments map[string]float64 `json:"adjustments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		a, err := svc.AdjustMarks(r.Context(), staffFromRequest(r),
			chi.URLParam(r, "testID"), chi.URLParam(r, "phone"), req.Adjustments)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /tests/{testID}/sweep — force-complete attempts stuck past their time.
// Safe to invoke from a cron; repeated calls complete nothing further.
func SweepHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.Sweep(r.Context(), staffFromRequest(r), chi.URLParam(r, "testID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"completed": n})
	}
}

// GET /tests/{testID}/analytics
func TestAnalyticsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.TestAnalytics(r.Context(), staffFromRequest(r), chi.URLParam(r, "testID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

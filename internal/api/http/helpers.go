package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	authmw "github.com/campusbook/examsvc/internal/auth/middleware"
	"github.com/campusbook/examsvc/internal/exam"
	"github.com/campusbook/examsvc/internal/rbac"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain sentinels to HTTP status codes.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, exam.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, exam.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, exam.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, exam.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, exam.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, exam.ErrAlreadyExpired):
		status = http.StatusGone
	}
	http.Error(w, err.Error(), status)
}

func staffFromRequest(r *http.Request) exam.Staff {
	return exam.Staff{
		Email:   authmw.SubjectFromContext(r.Context()),
		ViewAll: rbac.RoleFromContext(r.Context()) == "admin",
	}
}

func studentPhone(r *http.Request) string {
	return authmw.SubjectFromContext(r.Context())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

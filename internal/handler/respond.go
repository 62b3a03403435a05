package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/homeledger/internal/apperr"
	"github.com/dukerupert/homeledger/internal/auth"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps err to a status by its kind. Unclassified errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	}
	if status == http.StatusInternalServerError {
		writeMessage(w, status, "internal error")
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": kindOf(err)})
}

func kindOf(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Kind.String()
	}
	return apperr.KindUnknown.String()
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// scope returns the group and actor of the request.
func scope(r *http.Request) (group, actor string) {
	return r.PathValue("group"), auth.Actor(r.Context())
}

// parseDay parses a YYYY-MM-DD query value in loc.
func parseDay(r *http.Request, key string, loc *time.Location) (time.Time, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

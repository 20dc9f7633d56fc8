package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// jsonMessage writes a 200 response carrying only a message.
func jsonMessage(w http.ResponseWriter, message string) {
	jsonResponse(w, http.StatusOK, map[string]string{"message": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

var kindStatus = map[model.ErrorKind]int{
	model.KindNotFound:         http.StatusNotFound,
	model.KindForbidden:        http.StatusForbidden,
	model.KindInvalidOperation: http.StatusBadRequest,
	model.KindConflict:         http.StatusBadRequest,
	model.KindUnauthenticated:  http.StatusUnauthorized,
}

// writeError maps a classified error to its status and message. Anything
// else is logged and reported as a generic internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *model.Error
	if errors.As(err, &e) {
		if status, ok := kindStatus[e.Kind]; ok {
			jsonError(w, status, e.Message)
			return
		}
	}
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	jsonError(w, http.StatusInternalServerError, "internal error")
}

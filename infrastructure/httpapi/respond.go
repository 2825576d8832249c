package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/milordsutrix/tool-tubecutter/domain/distribution"
	"github.com/milordsutrix/tool-tubecutter/domain/media"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMessage writes the standard {message} error body
func writeMessage(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"message": message})
}

// writeError maps domain errors onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, media.ErrInvalidRequest):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrActiveJob):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, distribution.ErrInvalidState):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, err.Error())
	}
}

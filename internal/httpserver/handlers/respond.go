package handlers

import (
	"encoding/json"
	"net/http"

	"docvault/internal/apperr"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func respondStatusJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// respondErr maps an error to its stable kind's status with the
// caller-facing message only; wrapped causes never cross the boundary.
func respondErr(w http.ResponseWriter, err error) {
	respondStatusJSON(w, apperr.HTTPStatus(err), map[string]string{"message": apperr.Message(err)})
}

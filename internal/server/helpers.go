package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail emits the {"detail": ...} error shape every endpoint uses.
func writeDetail(w http.ResponseWriter, code int, msg string) {
	writeJSONStatus(w, code, map[string]string{"detail": msg})
}

func tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "60")
	writeDetail(w, http.StatusTooManyRequests, "Too many requests")
}

// RandomRegToken mints a registration token for operators who start the
// daemon without supplying one.
func RandomRegToken() string {
	return uuid.NewString()
}

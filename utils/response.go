package utils

import (
	"encoding/json"
	"net/http"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteJSON writes the standard envelope used by the admin and cron endpoints.
func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteData writes an arbitrary JSON payload. The public faucet endpoints use
// this because their field names are fixed by the front-end contract.
func WriteData(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the {"error": ...} body the faucet front-end expects on
// rejected requests.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteData(w, status, map[string]string{"error": message})
}

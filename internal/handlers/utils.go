package handlers

import (
	"encoding/json"
	"net/http"

	"model-library/internal/logging"
)

// writeJSON encodes v as JSON to the response writer. Encoding failures
// are logged; by the time they surface there is nothing left to send the
// client.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

package apiserver

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body sent for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONResponse sends data as a JSON response with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already written, nothing more we can do here.
			return
		}
	}
}

// writeJSONError sends a JSON error body with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

package common

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Success: false, Error: message})
}

// RespondWithDomainError picks the status and the client message from err.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	RespondWithError(w, HTTPStatusFromError(err), Message(err))
}

// RespondWithSuccess writes {"success": true} merged with the top-level
// fields of payload, which must marshal to a JSON object.
func RespondWithSuccess(w http.ResponseWriter, code int, payload interface{}) {
	fields := map[string]json.RawMessage{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			RespondWithError(w, http.StatusInternalServerError, "Failed to marshal JSON response")
			return
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			RespondWithError(w, http.StatusInternalServerError, "Response payload is not an object")
			return
		}
	}
	fields["success"] = json.RawMessage("true")
	RespondWithJSON(w, code, fields)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

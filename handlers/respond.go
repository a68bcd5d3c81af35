package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/logging"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
)

// apiResponse is the envelope every endpoint answers with. Error carries
// the machine-readable kind on failures.
type apiResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Error   models.ErrorKind `json:"error,omitempty"`
	Data    interface{}      `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Logger.Warnf("Event ID: RESPONSE_ENCODE_FAILED, Description: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, apiResponse{Success: true, Message: message, Data: data})
}

// writeError maps the error taxonomy onto HTTP statuses. Anything that is
// not a typed *models.Error is an unexpected persistence or broadcast
// failure and surfaces as ServerError.
func writeError(w http.ResponseWriter, err error) {
	var appErr *models.Error
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.StatusCode(), apiResponse{Success: false, Message: appErr.Message, Error: appErr.Kind})
		return
	}
	logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: %v", err)
	writeJSON(w, http.StatusInternalServerError, apiResponse{
		Success: false,
		Message: "internal server error",
		Error:   models.KindServer,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kindredhq/kindred/pkg/validator"
)

// All responses share one envelope: {success, message, data}.
type envelope struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
	Data    any     `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Message: &message})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	message := "Validation failed"
	json.NewEncoder(w).Encode(envelope{Success: false, Message: &message, Data: errs})
}

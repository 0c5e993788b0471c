// Package handlers provides HTTP handlers for the assistant API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Disclaimer accompanies every triage and medication answer.
const Disclaimer = "This tool is for educational purposes only and not medical advice. " +
	"If you have emergency symptoms (e.g., chest pain, trouble breathing, one-sided weakness), call emergency services."

// User-facing input errors.
const (
	msgEmptyDescription = "Please enter a description."
	msgEmptyMedications = "Please enter at least one medication name."
	msgEmptyReminder    = "Enter a medication name."
	msgInvalidBody      = "invalid request body"
)

var validate = validator.New()

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads a single JSON object into v. Oversized bodies report 413.
func decodeJSON(r *http.Request, v any) (int, error) {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, errors.New("request body too large")
		}
		return http.StatusBadRequest, errors.New(msgInvalidBody)
	}
	return 0, nil
}

// validationMessage turns validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return strings.Join(msgs, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must have at most %s entries", field, e.Param())
	case "datetime":
		return fmt.Sprintf("%s must be HH:MM", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/internal/calendar"
)

// DefaultReminderTime is used when a request names no time.
const DefaultReminderTime = "09:00"

// ReminderHandler renders medication reminders as iCalendar files.
type ReminderHandler struct {
	emitter *calendar.Emitter
	logger  *zap.Logger
}

// NewReminderHandler creates a new handler
func NewReminderHandler(e *calendar.Emitter, logger *zap.Logger) *ReminderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderHandler{emitter: e, logger: logger}
}

// Routes returns the handler routes
func (h *ReminderHandler) Routes(r chi.Router) {
	r.Post("/reminders", h.Create)
}

// ReminderRequest is the request body for a reminder
type ReminderRequest struct {
	Medication string   `json:"medication"`
	Dose       string   `json:"dose"`
	Time       string   `json:"time"`
	Days       []string `json:"days" validate:"max=7,dive,required"`
}

// Create handles POST /reminders
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ReminderRequest
	if status, err := decodeJSON(r, &req); err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	if strings.TrimSpace(req.Medication) == "" {
		jsonError(w, msgEmptyReminder, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		jsonError(w, validationMessage(err), http.StatusUnprocessableEntity)
		return
	}
	if strings.TrimSpace(req.Time) == "" {
		req.Time = DefaultReminderTime
	}

	spec, err := calendar.NewMedicationReminder(req.Medication, req.Dose, req.Time, req.Days)
	if err != nil {
		jsonError(w, msgEmptyReminder, http.StatusBadRequest)
		return
	}
	doc, err := h.emitter.Emit(spec)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidTime) || errors.Is(err, calendar.ErrInvalidDay) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("render reminder failed", zap.Error(err))
		jsonError(w, "failed to render reminder", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", calendar.FileName(req.Medication)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-reminders/internal/db"
	"github.com/ukydev/fleet-reminders/internal/middleware"
	"github.com/ukydev/fleet-reminders/internal/models"
)

// StatusUpdateRequest changes the status of a reminder.
type StatusUpdateRequest struct {
	Status       models.ReminderStatus `json:"status"`
	SnoozedUntil *time.Time            `json:"snoozed_until,omitempty"`
}

// ReminderHandler serves reminders to fleet users.
type ReminderHandler struct {
	reminders db.ReminderCollection
	logger    log.FieldLogger
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(reminders db.ReminderCollection, logger log.FieldLogger) *ReminderHandler {
	return &ReminderHandler{
		reminders: reminders,
		logger:    logger,
	}
}

// companyScope returns the company a request may act on. Users bound to a
// company only see their own; admins without a company name it in
// ?company_id.
func companyScope(r *http.Request) (string, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return "", false
	}
	if claims.CompanyID != "" {
		return claims.CompanyID, true
	}
	if claims.Role != models.RoleAdmin {
		return "", false
	}
	companyID := r.URL.Query().Get("company_id")
	return companyID, companyID != ""
}

// mutationScope returns the company a reminder change is restricted to. An
// empty company with ok set means an unbound admin acting across companies.
func mutationScope(r *http.Request) (companyID string, ok bool) {
	claims, found := middleware.GetUserFromContext(r.Context())
	if !found {
		return "", false
	}
	if claims.CompanyID != "" {
		return claims.CompanyID, true
	}
	return "", claims.Role == models.RoleAdmin
}

// List handles GET /api/reminders
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := companyScope(r)
	if !ok {
		http.Error(w, "company_id is required", http.StatusBadRequest)
		return
	}

	list, err := h.reminders.ListOutstanding(r.Context(), companyID)
	if err != nil {
		h.logger.WithError(err).WithField("company_id", companyID).Error("Failed to list reminders")
		http.Error(w, "Failed to list reminders", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.ActiveReminder{}
	}
	writeJSON(w, http.StatusOK, list)
}

// UpdateStatus handles PATCH /api/reminders/{id}/status
func (h *ReminderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Reminder id is required", http.StatusBadRequest)
		return
	}
	companyID, ok := mutationScope(r)
	if !ok {
		http.Error(w, "Access denied: no company assigned", http.StatusForbidden)
		return
	}

	var req StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case models.ReminderSnoozed:
		if req.SnoozedUntil == nil || req.SnoozedUntil.IsZero() {
			http.Error(w, "snoozed_until is required when snoozing", http.StatusBadRequest)
			return
		}
	case models.ReminderActive, models.ReminderDismissed, models.ReminderCompleted:
		req.SnoozedUntil = nil
	default:
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	// A reminder of another company is reported as not found.
	updated, err := h.reminders.UpdateStatus(r.Context(), companyID, id, req.Status, req.SnoozedUntil)
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "Reminder not found", http.StatusNotFound)
		return
	case errors.Is(err, db.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.logger.WithError(err).WithFields(log.Fields{
			"reminder_id": id,
			"company_id":  companyID,
		}).Error("Failed to update reminder status")
		http.Error(w, "Failed to update reminder", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

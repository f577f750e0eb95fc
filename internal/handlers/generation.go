package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-reminders/internal/middleware"
	"github.com/ukydev/fleet-reminders/internal/reminders"
	"github.com/ukydev/fleet-reminders/internal/scheduler"
)

// PassExecutor runs a generation pass on behalf of a caller.
type PassExecutor interface {
	Execute(ctx context.Context, source string) (*reminders.RunResult, error)
}

// GenerateRequest is the optional body of the generate endpoint.
type GenerateRequest struct {
	Manual bool `json:"manual"`
}

// GenerateResponse is returned by the generate endpoint.
type GenerateResponse struct {
	Success        bool      `json:"success"`
	GeneratedCount int       `json:"generated_count"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
	RunID          string    `json:"run_id,omitempty"`
	RulesEvaluated int       `json:"rules_evaluated"`
	RulesFailed    int       `json:"rules_failed"`
}

// GenerationHandler exposes the generation pass over HTTP.
type GenerationHandler struct {
	executor PassExecutor
	logger   log.FieldLogger
	now      func() time.Time
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(executor PassExecutor, logger log.FieldLogger) *GenerationHandler {
	return &GenerationHandler{
		executor: executor,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate handles POST /api/reminders/generate
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GenerateRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}

	source := scheduler.SourceAPI
	if req.Manual {
		source = scheduler.SourceManual
	}
	logger := h.logger.WithField("source", source)
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		logger = logger.WithField("user", claims.Username)
	}

	result, err := h.executor.Execute(r.Context(), source)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Failed to generate maintenance reminders"
		if errors.Is(err, reminders.ErrRunInProgress) {
			status = http.StatusConflict
			message = "Reminder generation already in progress"
		}
		logger.WithError(err).Warn("Reminder generation request failed")
		writeJSON(w, status, GenerateResponse{
			Success:   false,
			Message:   message,
			Timestamp: h.now().UTC(),
		})
		return
	}

	logger.WithField("generated_count", result.GeneratedCount).Info("Reminder generation request completed")
	writeJSON(w, http.StatusOK, GenerateResponse{
		Success:        true,
		GeneratedCount: result.GeneratedCount,
		Message:        fmt.Sprintf("Generated %d maintenance reminders", result.GeneratedCount),
		Timestamp:      h.now().UTC(),
		RunID:          result.RunID,
		RulesEvaluated: result.RulesEvaluated,
		RulesFailed:    result.RulesFailed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

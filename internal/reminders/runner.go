package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-reminders/internal/db"
	"github.com/ukydev/fleet-reminders/internal/lock"
	"github.com/ukydev/fleet-reminders/internal/metrics"
	"github.com/ukydev/fleet-reminders/internal/models"
)

var (
	// ErrRunInProgress is returned when another generation pass holds the lock.
	ErrRunInProgress = errors.New("reminder generation already in progress")
	// ErrRulesUnavailable is returned when the active rules cannot be loaded.
	ErrRulesUnavailable = errors.New("reminder rules unavailable")
)

// LockKey is the lock taken for the duration of a pass.
const LockKey = "reminder-generation"

// RuleGenerator is the per-rule step of a pass.
type RuleGenerator interface {
	GenerateForRule(ctx context.Context, rule models.ReminderRule, now time.Time) ([]models.ActiveReminder, error)
}

// RunResult summarizes a generation pass.
type RunResult struct {
	RunID          string                  `json:"run_id"`
	GeneratedCount int                     `json:"generated_count"`
	RanAt          time.Time               `json:"ran_at"`
	RulesEvaluated int                     `json:"rules_evaluated"`
	RulesFailed    int                     `json:"rules_failed"`
	Duration       time.Duration           `json:"duration"`
	Reminders      []models.ActiveReminder `json:"reminders,omitempty"`
}

// Runner runs a generation pass across every active rule.
type Runner struct {
	rules     db.RuleCollection
	generator RuleGenerator
	locker    lock.Locker
	lockTTL   time.Duration
	now       func() time.Time
	logger    log.FieldLogger
	metrics   *metrics.Recorder
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock overrides the source of "now".
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithLocker sets the lock guarding against overlapping passes.
func WithLocker(l lock.Locker, ttl time.Duration) RunnerOption {
	return func(r *Runner) {
		r.locker = l
		r.lockTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a runner. Without WithLocker an in-process lock is used.
func NewRunner(rules db.RuleCollection, generator RuleGenerator, opts ...RunnerOption) *Runner {
	r := &Runner{
		rules:     rules,
		generator: generator,
		locker:    lock.NewLocalLocker(),
		lockTTL:   10 * time.Minute,
		now:       time.Now,
		logger:    log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one best-effort pass. A failing rule is logged and the pass
// moves on; the result counts only reminders actually created. An error is
// returned when the pass could not start (lock held, rules unavailable).
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID: uuid.NewString(),
		RanAt: r.now(),
	}
	logger := r.logger.WithField("run_id", result.RunID)
	started := time.Now()

	release, err := r.locker.Acquire(ctx, LockKey, r.lockTTL)
	if err != nil {
		r.metrics.RunFinished("locked", time.Since(started))
		if errors.Is(err, lock.ErrLocked) {
			logger.Warn("Reminder generation already running, skipping")
			return result, ErrRunInProgress
		}
		return result, fmt.Errorf("acquire generation lock: %w", err)
	}
	defer release()

	rules, err := r.rules.ListActiveRules(ctx)
	if err != nil {
		r.metrics.RunFinished("error", time.Since(started))
		logger.WithError(err).Error("Failed to load active reminder rules")
		return result, fmt.Errorf("%w: %v", ErrRulesUnavailable, err)
	}

	for _, rule := range rules {
		if ctx.Err() != nil {
			logger.WithError(ctx.Err()).Warn("Generation pass cancelled, stopping early")
			break
		}
		created, err := r.runRule(ctx, rule, result.RanAt)
		result.RulesEvaluated++
		result.GeneratedCount += len(created)
		result.Reminders = append(result.Reminders, created...)
		if err != nil {
			result.RulesFailed++
			r.metrics.RuleFailed()
			logger.WithError(err).WithFields(log.Fields{
				"rule_id":    rule.ID.Hex(),
				"company_id": rule.CompanyID,
			}).Error("Failed to process reminder rule")
		}
	}

	result.Duration = time.Since(started)
	outcome := "ok"
	if result.RulesFailed > 0 {
		outcome = "partial"
	}
	r.metrics.RunFinished(outcome, result.Duration)

	logger.WithFields(log.Fields{
		"rules":        len(rules),
		"rules_failed": result.RulesFailed,
		"generated":    result.GeneratedCount,
		"duration":     result.Duration,
	}).Info("Reminder generation completed")
	return result, nil
}

// runRule turns a panic inside one rule into an error so the pass continues.
func (r *Runner) runRule(ctx context.Context, rule models.ReminderRule, now time.Time) (created []models.ActiveReminder, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while generating reminders: %v", p)
		}
	}()
	return r.generator.GenerateForRule(ctx, rule, now)
}

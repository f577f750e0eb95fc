// Package scheduler triggers reminder generation passes, either on a cron
// schedule or on demand, and announces the reminders each pass creates.
package scheduler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-reminders/internal/notify"
	"github.com/ukydev/fleet-reminders/internal/reminders"
)

// Sources of a pass, recorded in logs.
const (
	SourceSchedule = "schedule"
	SourceManual   = "manual"
	SourceAPI      = "api"
	SourceCLI      = "cli"
)

// GenerationRunner runs one generation pass.
type GenerationRunner interface {
	Run(ctx context.Context) (*reminders.RunResult, error)
}

// Job runs a pass bounded by a timeout and publishes an event for each
// reminder it created.
type Job struct {
	runner    GenerationRunner
	publisher notify.Publisher
	timeout   time.Duration
	logger    log.FieldLogger
}

// NewJob creates a job. A nil publisher disables events.
func NewJob(runner GenerationRunner, publisher notify.Publisher, timeout time.Duration, logger log.FieldLogger) *Job {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &Job{
		runner:    runner,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
	}
}

// Execute runs one pass. Events are published with ctx rather than the
// pass deadline so a pass that used its whole budget is still announced.
func (j *Job) Execute(ctx context.Context, source string) (*reminders.RunResult, error) {
	runCtx := ctx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	logger := j.logger.WithField("source", source)
	logger.Debug("Starting reminder generation")

	result, err := j.runner.Run(runCtx)
	if err != nil {
		return result, err
	}

	if len(result.Reminders) > 0 {
		sent := notify.Dispatch(ctx, j.publisher, result.RunID, result.Reminders, logger)
		logger.WithFields(log.Fields{
			"run_id": result.RunID,
			"sent":   sent,
		}).Debug("Published reminder events")
	}
	return result, nil
}

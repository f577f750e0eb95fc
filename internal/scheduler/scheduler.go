package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-reminders/internal/reminders"
)

// Scheduler runs a Job on a standard five-field cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	job    *Job
	logger log.FieldLogger
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates spec and registers the job. The scheduler does not start
// until Start is called.
func New(spec string, job *Job, logger log.FieldLogger) (*Scheduler, error) {
	if spec == "" {
		return nil, errors.New("empty generation schedule")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(logger)),
			cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
		)),
		job:    job,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid generation schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	result, err := s.job.Execute(s.ctx, SourceSchedule)
	if err != nil {
		if errors.Is(err, reminders.ErrRunInProgress) {
			s.logger.Info("Scheduled generation skipped, another pass is running")
			return
		}
		s.logger.WithError(err).Error("Scheduled reminder generation failed")
		return
	}
	s.logger.WithFields(log.Fields{
		"run_id":          result.RunID,
		"generated_count": result.GeneratedCount,
	}).Info("Scheduled reminder generation finished")
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("entries", len(s.cron.Entries())).Info("Reminder generation scheduler started")
}

// Stop cancels a running pass and waits for it to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

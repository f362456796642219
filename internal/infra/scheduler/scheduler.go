package scheduler

import (
	"context"
	"fmt"
	"time"

	"sacco_backoffice/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const defaultRunTimeout = 10 * time.Minute

// StatusUpdater runs one member status reconciliation pass.
type StatusUpdater interface {
	RunStatusUpdate(ctx context.Context) (*app.BatchResult, error)
}

// StatusScheduler triggers the member status pass on a cron schedule.
type StatusScheduler struct {
	cronEngine *cron.Cron
	updater    StatusUpdater
	logger     *logrus.Entry
	cronSpec   string
	runTimeout time.Duration
}

func NewStatusScheduler(
	updater StatusUpdater,
	logger *logrus.Entry,
	cronSpec string, // e.g. "0 1 * * *" (01:00 daily)
	location *time.Location,
) *StatusScheduler {
	if location == nil {
		location = time.Local
	}
	return &StatusScheduler{
		cronEngine: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		updater:    updater,
		logger:     logger,
		cronSpec:   cronSpec,
		runTimeout: defaultRunTimeout,
	}
}

// Start registers the job and starts the cron engine. An invalid spec is returned as an error.
func (s *StatusScheduler) Start() error {
	s.logger.WithField("cron_spec", s.cronSpec).Info("Starting member status scheduler")

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.runOnce); err != nil {
		return fmt.Errorf("could not add member status cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.Info("Member status scheduler started")
	return nil
}

// runOnce is the cron job body.
func (s *StatusScheduler) runOnce() {
	s.logger.Info("Cron job triggered for member status update")
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	result, err := s.updater.RunStatusUpdate(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during scheduled member status update")
		return
	}
	s.logger.WithField("updated", result.Updated).Info("Scheduled member status update completed")
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *StatusScheduler) Stop() {
	s.logger.Info("Stopping member status scheduler")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Member status scheduler gracefully stopped")
}

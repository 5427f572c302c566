// Package scheduler runs the periodic housekeeping jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tom2tomtomtom/refer-ify-sub003/metrics"
)

// PendingTTL is how long a checkout may stay pending before it is expired.
const PendingTTL = 24 * time.Hour

type Store interface {
	ArchiveExpiredJobs(ctx context.Context, now time.Time) (int64, error)
	ExpireStaleTransactions(ctx context.Context, cutoff time.Time) (int64, error)
}

type Scheduler struct {
	cron  *cron.Cron
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func New(store Store, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 1h", func() { s.run("archive_expired_jobs", s.ArchiveExpiredJobs) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 1h", func() { s.run("expire_pending_transactions", s.ExpirePendingTransactions) }); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to complete or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run(name string, job func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	n, err := job(ctx)
	metrics.RecordJobRun(name, time.Since(start), err == nil)

	log := s.log.WithField("job", name)
	if err != nil {
		log.WithError(err).Error("Scheduled job failed")
		return
	}
	log.WithField("rows", n).Info("Scheduled job completed")
}

func (s *Scheduler) ArchiveExpiredJobs(ctx context.Context) (int64, error) {
	return s.store.ArchiveExpiredJobs(ctx, s.now())
}

func (s *Scheduler) ExpirePendingTransactions(ctx context.Context) (int64, error) {
	return s.store.ExpireStaleTransactions(ctx, s.now().Add(-PendingTTL))
}

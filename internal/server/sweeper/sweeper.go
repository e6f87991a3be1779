// Package sweeper periodically purges expired refresh token records. The
// registry never depends on it: expired records are rejected on use anyway.
package sweeper

import (
	"context"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/logging"
	"github.com/dmitrijs2005/hobbyvault/internal/server/metrics"
	"github.com/robfig/cron/v3"
)

// Purger is the slice of registry.Registry the sweeper needs.
type Purger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Sweeper struct {
	cron    *cron.Cron
	purger  Purger
	metrics *metrics.Metrics
	logger  logging.Logger
	timeout time.Duration
	now     func() time.Time
}

// New schedules a sweep on the standard five-field cron spec.
func New(p Purger, schedule string, m *metrics.Metrics, logger logging.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		purger:  p,
		metrics: m,
		logger:  logger.With("module", "sweeper"),
		timeout: time.Minute,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error(ctx, "sweep failed", "error", err)
		return
	}
	s.logger.Info(ctx, "sweep finished", "removed", n)
}

// Sweep runs one purge immediately.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.purger.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.Swept(n)
	return n, nil
}

// Run starts the schedule and blocks until ctx is done. A running sweep is
// allowed to finish.
func (s *Sweeper) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

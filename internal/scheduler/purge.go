// Package scheduler runs periodic cache maintenance.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var purgeRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vocab_purge_runs_total",
	Help: "Total scheduled cache purges by result (success, error, skipped)",
}, []string{"result"})

// Purger removes expired cache entries.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// PurgeScheduler runs Purger.PurgeExpired on a cron schedule.
type PurgeScheduler struct {
	purger   Purger
	schedule string
	timeout  time.Duration
	logger   zerolog.Logger

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.Mutex
	isRunning bool
	isPurging bool
}

// NewPurgeScheduler creates a scheduler for the given standard cron
// expression or descriptor (e.g. "@daily", "0 3 * * *").
func NewPurgeScheduler(purger Purger, schedule string, logger zerolog.Logger) *PurgeScheduler {
	if purger == nil {
		panic("purger cannot be nil")
	}
	return &PurgeScheduler{
		purger:   purger,
		schedule: schedule,
		timeout:  5 * time.Minute,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the purge job. An empty schedule disables it.
func (s *PurgeScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.schedule == "" {
		s.logger.Info().Msg("Cache purge scheduler disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.RunNow(ctx) })
	if err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", s.schedule, err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Time("next_run", s.cron.Entry(entryID).Next).
		Msg("Cache purge scheduler started")
	return nil
}

// Stop stops scheduling and waits for a running purge to finish.
func (s *PurgeScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.cron.Remove(s.entryID)
	s.entryID = 0
	s.isRunning = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()

	s.logger.Info().Msg("Cache purge scheduler stopped")
}

// IsRunning reports whether the job is scheduled.
func (s *PurgeScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// NextRun returns the next scheduled purge, or the zero time when stopped.
func (s *PurgeScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// RunNow purges immediately. Overlapping runs are skipped.
func (s *PurgeScheduler) RunNow(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.isPurging {
		s.mu.Unlock()
		purgeRunsTotal.WithLabelValues("skipped").Inc()
		s.logger.Debug().Msg("Cache purge skipped, already running")
		return 0, nil
	}
	s.isPurging = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isPurging = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		purgeRunsTotal.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Msg("Cache purge failed")
		return 0, err
	}

	purgeRunsTotal.WithLabelValues("success").Inc()
	s.logger.Info().
		Int("purged", n).
		Dur("duration", time.Since(start)).
		Msg("Cache purge completed")
	return n, nil
}

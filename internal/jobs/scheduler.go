package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"lumenstage/api/internal/repository"
	"lumenstage/api/internal/service"
)

// Scheduler runs the recurring maintenance work: purging expired reset
// tokens, deleting long-dead sessions, and flushing view counters into the
// daily rollup.
type Scheduler struct {
	cron      *cron.Cron
	sessions  *repository.SessionRepository
	resets    *repository.PasswordResetRepository
	analytics *service.AnalyticsService
	log       zerolog.Logger
}

func NewScheduler(
	sessions *repository.SessionRepository,
	resets *repository.PasswordResetRepository,
	analytics *service.AnalyticsService,
	log zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		sessions:  sessions,
		resets:    resets,
		analytics: analytics,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 15 * * * *", s.purgeResets); err != nil { // hourly
		return err
	}
	if _, err := s.cron.AddFunc("0 30 3 * * *", s.purgeSessions); err != nil { // daily
		return err
	}
	if _, err := s.cron.AddFunc("0 5 0 * * *", s.flushAnalytics); err != nil { // just past midnight
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits up to five seconds for in-flight jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler jobs still running at shutdown")
	}
}

func (s *Scheduler) purgeResets() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.resets.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Msg("purge reset tokens failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("expired reset tokens purged")
	}
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Revoked and expired sessions stay queryable for thirty days before the
	// rows are dropped.
	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	n, err := s.sessions.PurgeStale(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("purge sessions failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("stale sessions purged")
	}
}

func (s *Scheduler) flushAnalytics() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.analytics.FlushCounters(ctx); err != nil {
		s.log.Error().Err(err).Msg("analytics flush failed")
		return
	}

	// Raw events are kept ninety days; the rollup carries the history.
	cutoff := time.Now().UTC().AddDate(0, 0, -90)
	n, err := s.analytics.PurgeRawViews(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("purge raw page views failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("raw page views purged")
	}
}

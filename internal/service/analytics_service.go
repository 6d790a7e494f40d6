package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lumenstage/api/internal/ids"
	"lumenstage/api/internal/models"
	"lumenstage/api/internal/repository"
)

const viewCounterPrefix = "views:"

type AnalyticsService struct {
	repo  *repository.AnalyticsRepository
	cache *redis.Client
	log   zerolog.Logger
}

func NewAnalyticsService(repo *repository.AnalyticsRepository, cache *redis.Client, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Record stores the raw event and bumps the Redis counter for the day. The
// counter increment is best effort; the row is the source of truth.
func (s *AnalyticsService) Record(ctx context.Context, path, referrer, userAgent, ip string) error {
	view := models.PageView{
		ID:        ids.New(),
		Path:      path,
		Referrer:  referrer,
		UserAgent: userAgent,
		IPAddress: ip,
	}
	if err := s.repo.RecordView(ctx, view); err != nil {
		return err
	}

	key := viewCounterKey(time.Now().UTC(), path)
	if err := s.cache.Incr(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("view counter incr failed")
	}
	return nil
}

// FlushCounters drains Redis view counters into the daily rollup table. The
// cleanup job runs this nightly.
func (s *AnalyticsService) FlushCounters(ctx context.Context) error {
	iter := s.cache.Scan(ctx, 0, viewCounterPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		val, err := s.cache.GetDel(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return fmt.Errorf("drain counter %s: %w", key, err)
		}

		views, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			s.log.Warn().Str("key", key).Str("value", val).Msg("bad view counter value")
			continue
		}

		day, path, ok := parseViewCounterKey(key)
		if !ok {
			s.log.Warn().Str("key", key).Msg("bad view counter key")
			continue
		}

		if err := s.repo.UpsertDaily(ctx, day, path, views); err != nil {
			return fmt.Errorf("rollup %s: %w", key, err)
		}
	}
	return iter.Err()
}

// PurgeRawViews drops event rows older than the cutoff. The daily rollup
// keeps the aggregates, so raw rows only matter while they are recent.
func (s *AnalyticsService) PurgeRawViews(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.PurgeViews(ctx, cutoff)
}

func (s *AnalyticsService) Summary(ctx context.Context, from, to time.Time) ([]models.DailyPageViews, error) {
	return s.repo.DailySummary(ctx, from, to)
}

func viewCounterKey(t time.Time, path string) string {
	return viewCounterPrefix + t.Format("2006-01-02") + ":" + path
}

func parseViewCounterKey(key string) (time.Time, string, bool) {
	rest := strings.TrimPrefix(key, viewCounterPrefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, "", false
	}
	day, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return time.Time{}, "", false
	}
	return day, parts[1], true
}

package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lumenstage/api/internal/models"
)

type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

func (r *AnalyticsRepository) RecordView(ctx context.Context, view models.PageView) error {
	const query = `
		INSERT INTO page_views (id, path, referrer, user_agent, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.pool.Exec(ctx, query, view.ID, view.Path, view.Referrer, view.UserAgent, view.IPAddress)
	return err
}

// UpsertDaily adds views to the rollup row for one path and day. The flush
// job calls this with counter deltas drained from Redis.
func (r *AnalyticsRepository) UpsertDaily(ctx context.Context, day time.Time, path string, views int64) error {
	const query = `
		INSERT INTO analytics_daily (day, path, views)
		VALUES ($1, $2, $3)
		ON CONFLICT (day, path)
		DO UPDATE SET views = analytics_daily.views + EXCLUDED.views
	`
	_, err := r.pool.Exec(ctx, query, day, path, views)
	return err
}

func (r *AnalyticsRepository) DailySummary(ctx context.Context, from, to time.Time) ([]models.DailyPageViews, error) {
	const query = `
		SELECT day, path, views
		FROM analytics_daily
		WHERE day >= $1 AND day <= $2
		ORDER BY day DESC, views DESC
	`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summary []models.DailyPageViews
	for rows.Next() {
		var d models.DailyPageViews
		if err := rows.Scan(&d.Day, &d.Path, &d.Views); err != nil {
			return nil, err
		}
		summary = append(summary, d)
	}
	return summary, rows.Err()
}

// PurgeViews deletes raw page-view rows older than the cutoff once they are
// represented in the daily rollup.
func (r *AnalyticsRepository) PurgeViews(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM page_views WHERE created_at < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

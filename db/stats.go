package db

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/zombar/collector/models"
)

// IncrementDailyStat bumps the capture counter for a calendar day.
// date is formatted YYYY-MM-DD.
func (db *DB) IncrementDailyStat(date string) error {
	_, err := db.conn.Exec(`
		INSERT INTO daily_stats (date, new_contents)
		VALUES ($1, 1)
		ON CONFLICT(date) DO UPDATE SET
			new_contents = daily_stats.new_contents + 1,
			updated_at = NOW()
	`, date)
	if err != nil {
		return fmt.Errorf("failed to increment daily stat: %w", err)
	}
	return nil
}

// Stats aggregates the dashboard counters
type Stats struct {
	TotalContents int                 `json:"totalContents"`
	TodayContents int                 `json:"todayContents"`
	TotalTags     int                 `json:"totalTags"`
	AvgSentiment  float64             `json:"avgSentiment"`
	RecentDays    []*models.DailyStat `json:"recentDays"`
}

// recentStatDays bounds the per-day activity window returned with the
// aggregates.
const recentStatDays = 7

// GetStats runs the aggregate queries concurrently. They are independent
// read-only counters, so a consistent snapshot across them is not
// required.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM contents").Scan(&stats.TotalContents)
	})
	g.Go(func() error {
		return db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM contents WHERE created_at::date = CURRENT_DATE").Scan(&stats.TodayContents)
	})
	g.Go(func() error {
		return db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags").Scan(&stats.TotalTags)
	})
	g.Go(func() error {
		return db.conn.QueryRowContext(ctx, "SELECT COALESCE(AVG(sentiment), 0) FROM contents").Scan(&stats.AvgSentiment)
	})
	g.Go(func() error {
		days, err := db.recentDailyStats(ctx, recentStatDays)
		if err != nil {
			return err
		}
		stats.RecentDays = days
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to gather stats: %w", err)
	}
	if stats.RecentDays == nil {
		stats.RecentDays = []*models.DailyStat{}
	}
	return stats, nil
}

// recentDailyStats returns the newest capture counters, one row per
// calendar day with activity.
func (db *DB) recentDailyStats(ctx context.Context, limit int) ([]*models.DailyStat, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT date, new_contents, updated_at
		FROM daily_stats
		ORDER BY date DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []*models.DailyStat
	for rows.Next() {
		var d models.DailyStat
		if err := rows.Scan(&d.Date, &d.NewContents, &d.UpdatedAt); err != nil {
			return nil, err
		}
		days = append(days, &d)
	}
	return days, rows.Err()
}

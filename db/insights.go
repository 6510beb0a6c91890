package db

import (
	"fmt"
	"time"

	"github.com/zombar/collector/models"
)

// SaveInsight stores a generated insight
func (db *DB) SaveInsight(insight *models.Insight) error {
	_, err := db.conn.Exec(`
		INSERT INTO insights (id, insight_text, period_start, created_at)
		VALUES ($1, $2, $3, $4)
	`, insight.ID, insight.InsightText, insight.PeriodStart, insight.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save insight: %w", err)
	}
	return nil
}

// ListInsights returns the most recent insights, newest first
func (db *DB) ListInsights(limit int) ([]*models.Insight, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := db.conn.Query(`
		SELECT id, insight_text, period_start, created_at
		FROM insights
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	var insights []*models.Insight
	for rows.Next() {
		var insight models.Insight
		if err := rows.Scan(&insight.ID, &insight.InsightText, &insight.PeriodStart, &insight.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, &insight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate insights: %w", err)
	}
	return insights, nil
}

// RecentSummaries returns the non-empty summaries of content captured since
// the given time, newest first, capped at limit.
func (db *DB) RecentSummaries(since time.Time, limit int) ([]string, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := db.conn.Query(`
		SELECT summary FROM contents
		WHERE created_at >= $1 AND summary <> ''
		ORDER BY created_at DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []string
	for rows.Next() {
		var summary string
		if err := rows.Scan(&summary); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summaries: %w", err)
	}
	return summaries, nil
}

package database

import (
	"context"

	"teledash/internal/models"
)

// History returns the most recent limit samples of one metric for one host,
// newest first (the caller reverses for chronological plotting). An unknown
// host yields an empty result, not an error.
func (db *DB) History(ctx context.Context, host, metric string, limit int) ([]models.HistoryRow, error) {
	var query string
	switch metric {
	case "memory":
		query = `
			SELECT time, used_percent
			FROM mem
			WHERE host = $1
			ORDER BY time DESC
			LIMIT $2`
	default: // cpu
		query = `
			SELECT time, COALESCE(100 - usage_idle, usage_active)
			FROM cpu
			WHERE host = $1
			ORDER BY time DESC
			LIMIT $2`
	}

	rows, err := db.pool.Query(ctx, query, host, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.HistoryRow
	for rows.Next() {
		var p models.HistoryRow
		if err := rows.Scan(&p.Time, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

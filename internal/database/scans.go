package database

import (
	"context"
	"fmt"
	"time"
)

// ScanRecord is one row of scan history.
type ScanRecord struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	Duration   Duration  `json:"durationMs"`
	Trigger    string    `json:"trigger"`
	Generation uint64    `json:"generation"`
	Categories int       `json:"categories"`
	Images     int       `json:"images"`
	Error      string    `json:"error,omitempty"`
}

// Succeeded reports whether the scan published a snapshot.
func (r ScanRecord) Succeeded() bool {
	return r.Error == ""
}

// Duration marshals as whole milliseconds.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", time.Duration(d).Milliseconds())), nil
}

// RecordScan appends a scan to the history.
func (d *Database) RecordScan(ctx context.Context, rec ScanRecord) (err error) {
	start := time.Now()
	defer func() { recordQuery("insert_scan", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO scans (started_at, duration_ms, reason, generation, categories, images, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.UnixMilli(),
		time.Duration(rec.Duration).Milliseconds(),
		rec.Trigger,
		int64(rec.Generation),
		rec.Categories,
		rec.Images,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// RecentScans returns up to limit scans, newest first.
func (d *Database) RecentScans(ctx context.Context, limit int) (records []ScanRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("recent_scans", start, err) }()

	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, reason, generation, categories, images, error
		FROM scans
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	records = make([]ScanRecord, 0, limit)
	for rows.Next() {
		var (
			rec        ScanRecord
			startedMs  int64
			durationMs int64
			generation int64
		)
		if err := rows.Scan(&rec.ID, &startedMs, &durationMs, &rec.Trigger, &generation,
			&rec.Categories, &rec.Images, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.StartedAt = time.UnixMilli(startedMs)
		rec.Duration = Duration(time.Duration(durationMs) * time.Millisecond)
		rec.Generation = uint64(generation)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scans: %w", err)
	}
	return records, nil
}

// PruneScans keeps only the newest keep scans and returns how many were
// removed. The scheduler records a scan every few seconds, so history is
// bounded.
func (d *Database) PruneScans(ctx context.Context, keep int) (removed int64, err error) {
	start := time.Now()
	defer func() { recordQuery("prune_scans", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		DELETE FROM scans
		WHERE id NOT IN (SELECT id FROM scans ORDER BY started_at DESC, id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune scans: %w", err)
	}
	return result.RowsAffected()
}

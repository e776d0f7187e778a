package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const metadataColumns = "id, session_id, site_id, site_name, site_address, job_type, summary, tags, destinations, outcomes, duration_seconds, captured_at, created_at"

// LogMetadata is the durable record of a submitted log. It deliberately
// excludes the log body: summary, tags, and site identity are enough to find
// the log again at its destinations.
type LogMetadata struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	SiteID       int64     `json:"site_id"`
	SiteName     string    `json:"site_name"`
	SiteAddress  string    `json:"site_address"`
	JobType      string    `json:"job_type"`
	Summary      string    `json:"summary"`
	Tags         []string  `json:"tags"`
	Destinations []string  `json:"destinations"`
	Outcomes     string    `json:"outcomes"`
	DurationSecs int64     `json:"duration_seconds"`
	CapturedAt   time.Time `json:"captured_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// SaveMetadata records the metadata row for a submitted log. Each session
// produces at most one row; a second save for the same session reports
// ErrDuplicateMetadata.
func (s *Store) SaveMetadata(ctx context.Context, meta LogMetadata) (int64, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	capturedAt := meta.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	res, err := s.execWithRetry(ctx, `
		INSERT INTO log_metadata (session_id, site_id, site_name, site_address, job_type, summary, tags, destinations, outcomes, duration_seconds, captured_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.SessionID,
		meta.SiteID,
		meta.SiteName,
		meta.SiteAddress,
		meta.JobType,
		meta.Summary,
		joinList(meta.Tags),
		joinList(meta.Destinations),
		meta.Outcomes,
		meta.DurationSecs,
		capturedAt.UTC().Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: session %s", ErrDuplicateMetadata, meta.SessionID)
		}
		return 0, fmt.Errorf("insert log metadata: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read metadata id: %w", err)
	}
	return id, nil
}

// SetMetadataOutcomes records the per-destination sync verdicts on an
// existing metadata row once the fan-out has finished.
func (s *Store) SetMetadataOutcomes(ctx context.Context, id int64, outcomes string) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx,
		"UPDATE log_metadata SET outcomes = ? WHERE id = ?", outcomes, id)
	if err != nil {
		return fmt.Errorf("update metadata outcomes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update metadata outcomes: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: metadata row %d", ErrNotFound, id)
	}
	return nil
}

// ListMetadata returns metadata rows newest first. A zero siteID lists all
// sites; limit <= 0 means no limit.
func (s *Store) ListMetadata(ctx context.Context, siteID int64, limit int) ([]*LogMetadata, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + metadataColumns + " FROM log_metadata"
	var args []any
	if siteID > 0 {
		query += " WHERE site_id = ?"
		args = append(args, siteID)
	}
	query += " ORDER BY captured_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list log metadata: %w", err)
	}
	defer rows.Close()

	var records []*LogMetadata
	for rows.Next() {
		record, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log metadata: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ClearMetadata deletes metadata rows and reports how many were removed. A
// zero siteID clears the whole history.
func (s *Store) ClearMetadata(ctx context.Context, siteID int64) (int64, error) {
	ctx = ensureContext(ctx)
	query := "DELETE FROM log_metadata"
	var args []any
	if siteID > 0 {
		query += " WHERE site_id = ?"
		args = append(args, siteID)
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear log metadata: %w", err)
	}
	return res.RowsAffected()
}

func scanMetadata(scanner interface{ Scan(dest ...any) error }) (*LogMetadata, error) {
	var (
		id           int64
		sessionID    string
		siteID       int64
		siteName     string
		siteAddress  string
		jobType      string
		summary      string
		tags         sql.NullString
		destinations sql.NullString
		outcomes     string
		durationSecs int64
		capturedRaw  sql.NullString
		createdRaw   sql.NullString
	)
	if err := scanner.Scan(&id, &sessionID, &siteID, &siteName, &siteAddress, &jobType, &summary, &tags, &destinations, &outcomes, &durationSecs, &capturedRaw, &createdRaw); err != nil {
		return nil, err
	}

	record := &LogMetadata{
		ID:           id,
		SessionID:    sessionID,
		SiteID:       siteID,
		SiteName:     siteName,
		SiteAddress:  siteAddress,
		JobType:      jobType,
		Summary:      summary,
		Tags:         splitList(tags.String),
		Destinations: splitList(destinations.String),
		Outcomes:     outcomes,
		DurationSecs: durationSecs,
	}
	if captured, err := parseTimeString(capturedRaw.String); err == nil {
		record.CapturedAt = captured
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	return record, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sitelog/internal/sites"
)

const siteColumns = "id, name, address, permit_id, portal_url, archived, created_at, updated_at"

// SiteRecord is a persisted job site plus bookkeeping columns.
type SiteRecord struct {
	sites.SiteContext
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateSite inserts a new job site and returns it with its assigned ID.
func (s *Store) CreateSite(ctx context.Context, site sites.SiteContext) (*SiteRecord, error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx, `
		INSERT INTO sites (name, address, permit_id, portal_url, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		strings.TrimSpace(site.Name),
		strings.TrimSpace(site.Address),
		nullableString(site.PermitID),
		nullableString(site.PortalURL),
		now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSite, site.Label())
		}
		return nil, fmt.Errorf("insert site: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read site id: %w", err)
	}
	return s.GetSite(ctx, id)
}

// GetSite returns a site by ID.
func (s *Store) GetSite(ctx context.Context, id int64) (*SiteRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+siteColumns+" FROM sites WHERE id = ?", id)
	record, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: site %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get site: %w", err)
	}
	return record, nil
}

// ListSites returns all sites, active first, newest first within each group.
// Archived sites are included only when includeArchived is set.
func (s *Store) ListSites(ctx context.Context, includeArchived bool) ([]*SiteRecord, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + siteColumns + " FROM sites"
	if !includeArchived {
		query += " WHERE archived = 0"
	}
	query += " ORDER BY archived ASC, created_at DESC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var records []*SiteRecord
	for rows.Next() {
		record, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// UpdateSite overwrites a site's editable fields.
func (s *Store) UpdateSite(ctx context.Context, site sites.SiteContext) error {
	if err := site.Validate(); err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx, `
		UPDATE sites SET name = ?, address = ?, permit_id = ?, portal_url = ?, updated_at = ?
		WHERE id = ?`,
		strings.TrimSpace(site.Name),
		strings.TrimSpace(site.Address),
		nullableString(site.PermitID),
		nullableString(site.PortalURL),
		now,
		site.ID,
	)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: site %d", ErrNotFound, site.ID)
	}
	return nil
}

// ArchiveSite hides a site from selection without losing its log history.
func (s *Store) ArchiveSite(ctx context.Context, id int64) error {
	return s.setSiteArchived(ctx, id, true)
}

// UnarchiveSite returns an archived site to the selection list.
func (s *Store) UnarchiveSite(ctx context.Context, id int64) error {
	return s.setSiteArchived(ctx, id, false)
}

func (s *Store) setSiteArchived(ctx context.Context, id int64, archived bool) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		"UPDATE sites SET archived = ?, updated_at = ? WHERE id = ?",
		boolToInt(archived), now, id,
	)
	if err != nil {
		return fmt.Errorf("archive site: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive site: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: site %d", ErrNotFound, id)
	}
	return nil
}

func scanSite(scanner interface{ Scan(dest ...any) error }) (*SiteRecord, error) {
	var (
		id         int64
		name       string
		address    string
		permitID   sql.NullString
		portalURL  sql.NullString
		archived   sql.NullInt64
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &address, &permitID, &portalURL, &archived, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	record := &SiteRecord{
		SiteContext: sites.SiteContext{
			ID:        id,
			Name:      name,
			Address:   address,
			PermitID:  permitID.String,
			PortalURL: portalURL.String,
		},
	}
	if archived.Valid {
		record.Archived = archived.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AccountRecord is the locally cached account snapshot the entitlement gate
// reads. A single row holds it; there is exactly one account per install.
type AccountRecord struct {
	Tier           string
	TrialExpiresAt *time.Time
	BetaTester     bool
	UpdatedAt      time.Time
}

// GetAccount returns the cached account snapshot, or ErrNotFound when no
// account has been recorded yet.
func (s *Store) GetAccount(ctx context.Context) (*AccountRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT tier, trial_expires_at, beta_tester, updated_at FROM accounts WHERE id = 1")

	var (
		tier       string
		expiresRaw sql.NullString
		beta       sql.NullInt64
		updatedRaw sql.NullString
	)
	err := row.Scan(&tier, &expiresRaw, &beta, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	record := &AccountRecord{Tier: tier}
	if beta.Valid {
		record.BetaTester = beta.Int64 != 0
	}
	if expiresRaw.Valid {
		if expires, perr := parseTimeString(expiresRaw.String); perr == nil {
			record.TrialExpiresAt = &expires
		}
	}
	if updated, perr := parseTimeString(updatedRaw.String); perr == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

// PutAccount replaces the cached account snapshot.
func (s *Store) PutAccount(ctx context.Context, record AccountRecord) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx, `
		INSERT INTO accounts (id, tier, trial_expires_at, beta_tester, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tier = excluded.tier,
			trial_expires_at = excluded.trial_expires_at,
			beta_tester = excluded.beta_tester,
			updated_at = excluded.updated_at`,
		record.Tier,
		nullableTime(record.TrialExpiresAt),
		boolToInt(record.BetaTester),
		now,
	)
	if err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

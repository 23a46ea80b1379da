// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/palladiumhq/identity/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
// The UNIQUE (account_id, ip_address, user_agent) constraint keeps at most
// one row per device tuple.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetByAccount retrieves the most recently touched refresh record for an
// account.
func (r *SessionRepository) GetByAccount(ctx context.Context, accountID int64) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_id, refresh_token_hash, ip_address, user_agent, created_at, updated_at
		FROM sessions
		WHERE account_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, accountID)

	var session auth.Session
	err := row.Scan(
		&session.ID,
		&session.AccountID,
		&session.RefreshTokenHash,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("account_id", accountID).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("account_id", accountID).
			Wrap(err)
	}
	return &session, nil
}

// SetRefreshHash stores hash for the device tuple. The upsert is a single
// atomic statement, so concurrent logins on the same tuple race
// last-writer-wins without partial rows. A nil hash only updates an
// existing row; logout on a device that never logged in is a no-op.
func (r *SessionRepository) SetRefreshHash(ctx context.Context, key auth.DeviceKey, hash *string) error {
	if hash == nil {
		_, err := r.db.Exec(ctx, `
			UPDATE sessions SET refresh_token_hash = NULL, updated_at = NOW()
			WHERE account_id = $1 AND ip_address = $2 AND user_agent = $3
		`, key.AccountID, key.IPAddress, key.UserAgent)
		if err != nil {
			return oops.Code("SESSION_CLEAR_FAILED").
				With("account_id", key.AccountID).
				Wrap(err)
		}
		return nil
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (account_id, refresh_token_hash, ip_address, user_agent)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, ip_address, user_agent)
		DO UPDATE SET refresh_token_hash = EXCLUDED.refresh_token_hash, updated_at = NOW()
	`, key.AccountID, *hash, key.IPAddress, key.UserAgent)
	if err != nil {
		return oops.Code("SESSION_UPSERT_FAILED").
			With("account_id", key.AccountID).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)

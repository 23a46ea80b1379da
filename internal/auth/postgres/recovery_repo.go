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

// RecoveryCodeRepository implements auth.RecoveryCodeRepository using
// PostgreSQL. UNIQUE (account_id) enforces at most one live code per
// account; racing creates surface as auth.ErrConflict.
type RecoveryCodeRepository struct {
	db DB
}

// NewRecoveryCodeRepository creates a RecoveryCodeRepository.
func NewRecoveryCodeRepository(db DB) *RecoveryCodeRepository {
	return &RecoveryCodeRepository{db: db}
}

// GetByAccount retrieves the account's recovery record. Inside a
// transaction the FOR UPDATE lock serializes concurrent requests touching
// the same row.
func (r *RecoveryCodeRepository) GetByAccount(ctx context.Context, accountID int64) (*auth.RecoveryCode, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_id, code, expires_at, created_at, updated_at
		FROM recovery_codes
		WHERE account_id = $1
		FOR UPDATE
	`, accountID)

	var code auth.RecoveryCode
	err := row.Scan(
		&code.ID,
		&code.AccountID,
		&code.Code,
		&code.ExpiresAt,
		&code.CreatedAt,
		&code.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RECOVERY_NOT_FOUND").
			With("account_id", accountID).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RECOVERY_GET_FAILED").
			With("account_id", accountID).
			Wrap(err)
	}
	return &code, nil
}

// Create stores a new recovery record for the account.
func (r *RecoveryCodeRepository) Create(ctx context.Context, code *auth.RecoveryCode) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO recovery_codes (account_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, code.AccountID, code.Code, code.ExpiresAt)

	err := row.Scan(&code.ID, &code.CreatedAt, &code.UpdatedAt)
	if isUniqueViolation(err) {
		return oops.Code("RECOVERY_EXISTS").
			With("account_id", code.AccountID).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("RECOVERY_CREATE_FAILED").
			With("account_id", code.AccountID).
			Wrap(err)
	}
	return nil
}

// Update replaces the code and expiry of an existing record in place.
func (r *RecoveryCodeRepository) Update(ctx context.Context, id int64, code string, expiresAt int64) error {
	result, err := r.db.Exec(ctx, `
		UPDATE recovery_codes SET code = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`, id, code, expiresAt)
	if err != nil {
		return oops.Code("RECOVERY_UPDATE_FAILED").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("RECOVERY_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByAccount destroys the account's recovery record. Deleting an
// absent record is not an error; the state machine treats it as NONE.
func (r *RecoveryCodeRepository) DeleteByAccount(ctx context.Context, accountID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM recovery_codes WHERE account_id = $1
	`, accountID)
	if err != nil {
		return oops.Code("RECOVERY_DELETE_FAILED").
			With("account_id", accountID).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.RecoveryCodeRepository = (*RecoveryCodeRepository)(nil)

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

const accountColumns = `id, email, username, password_hash, role, avatar_url, is_activated, created_at, updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates an AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores a new account and populates its ID and timestamps.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO accounts (email, username, password_hash, role, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`,
		account.Email,
		account.Username,
		account.PasswordHash,
		string(account.Role),
		account.AvatarURL,
	)

	err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_EXISTS").
			With("email", account.Email).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by id.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("id", id).
			Wrap(err)
	}
	return account, nil
}

// GetByEmail retrieves an account by email, case-sensitive as stored.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = $1
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").Wrap(err)
	}
	return account, nil
}

// GetByUsername retrieves an account by username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE username = $1
	`, username)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_USERNAME_FAILED").Wrap(err)
	}
	return account, nil
}

// UpdateEmail replaces the account's email.
func (r *AccountRepository) UpdateEmail(ctx context.Context, id int64, email string) error {
	return r.update(ctx, id, `UPDATE accounts SET email = $2, updated_at = NOW() WHERE id = $1`, email)
}

// UpdatePassword replaces the stored password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.update(ctx, id, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, passwordHash)
}

// UpdateUsername replaces the account's username.
func (r *AccountRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	return r.update(ctx, id, `UPDATE accounts SET username = $2, updated_at = NOW() WHERE id = $1`, username)
}

func (r *AccountRepository) update(ctx context.Context, id int64, sql string, value any) error {
	result, err := r.db.Exec(ctx, sql, id, value)
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_FIELD_TAKEN").
			With("id", id).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		account auth.Account
		role    string
	)
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&role,
		&account.AvatarURL,
		&account.Activated,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").Wrap(err)
	}
	account.Role = auth.Role(role)
	return &account, nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)

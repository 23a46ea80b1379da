// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Role is an account's authorization role.
type Role string

// Account roles. Every new account defaults to RoleUser.
const (
	RoleAdmin  Role = "ADMIN"
	RoleUser   Role = "USER"
	RoleEditor Role = "EDITOR"
)

// Password policy bounds.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 20
)

const passwordSpecials = `!@#$%^&*()_+-=[]{};':"\|,.<>/?#`

// Account is a user's identity record. PasswordHash is an argon2id PHC
// string; an empty hash marks an OAuth-only account that cannot log in
// with a password until one is set.
type Account struct {
	ID           int64
	Email        string
	Username     *string
	PasswordHash string
	Role         Role
	AvatarURL    *string
	Activated    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasUsablePassword reports whether password login is possible at all.
func (a *Account) HasUsablePassword() bool {
	return a.PasswordHash != ""
}

// ValidatePassword checks the password policy: 8-20 characters with at
// least one lowercase letter, one uppercase letter, one digit and one
// special character. Violations are rejected before any store access.
func ValidatePassword(password string) error {
	ok := len(password) >= MinPasswordLength && len(password) <= MaxPasswordLength &&
		strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz") &&
		strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") &&
		strings.ContainsAny(password, "0123456789") &&
		strings.ContainsAny(password, passwordSpecials)
	if !ok {
		return oops.Code("AUTH_WEAK_PASSWORD").
			Public("Password must be 8-20 characters, include one uppercase letter, one number, and one special character.").
			Wrapf(ErrBadRequest, "password fails policy")
	}
	return nil
}

// AccountRepository manages account persistence. Implementations must
// surface uniqueness violations on email and username as ErrConflict and
// absent rows as ErrNotFound.
type AccountRepository interface {
	// Create stores a new account and populates its ID.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by id.
	GetByID(ctx context.Context, id int64) (*Account, error)

	// GetByEmail retrieves an account by email (case-sensitive, as stored).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByUsername retrieves an account by username.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// UpdateEmail replaces the account's email.
	UpdateEmail(ctx context.Context, id int64, email string) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// UpdateUsername replaces the account's username.
	UpdateUsername(ctx context.Context, id int64, username string) error
}

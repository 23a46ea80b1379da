// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/samber/oops"
)

// Recovery code configuration.
const (
	RecoveryCodeDigits = 6
	RecoveryCodeExpiry = 15 * time.Minute
)

// RecoveryState classifies an account's recovery record at a point in time.
type RecoveryState int

// Recovery states. NONE means no row exists for the account.
const (
	RecoveryNone RecoveryState = iota
	RecoveryActive
	RecoveryExpired
)

// RecoveryCode is an account's password-recovery record. At most one row
// exists per account; the manager updates it in place rather than
// inserting a second one. ExpiresAt is epoch milliseconds.
type RecoveryCode struct {
	ID        int64
	AccountID int64
	Code      string
	ExpiresAt int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// State returns the record's state at the given instant.
func (c *RecoveryCode) State(now time.Time) RecoveryState {
	if now.UnixMilli() < c.ExpiresAt {
		return RecoveryActive
	}
	return RecoveryExpired
}

// GenerateRecoveryCode returns exactly RecoveryCodeDigits uniformly random
// decimal digits, zero-padded on the left.
func GenerateRecoveryCode() (string, error) {
	limit := big.NewInt(1)
	for range RecoveryCodeDigits {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", oops.Code("RECOVERY_CODE_GENERATE_FAILED").Wrap(err)
	}
	return fmt.Sprintf("%0*d", RecoveryCodeDigits, n), nil
}

// RecoveryCodeRepository manages recovery-code persistence. Implementations
// must enforce at most one row per account and surface the constraint
// violation as ErrConflict so concurrent requests serialize cleanly.
type RecoveryCodeRepository interface {
	// GetByAccount retrieves the account's recovery record, locking it for
	// the remainder of the enclosing transaction when the store supports
	// row locks. Returns ErrNotFound if no row exists.
	GetByAccount(ctx context.Context, accountID int64) (*RecoveryCode, error)

	// Create stores a new recovery record for the account.
	Create(ctx context.Context, code *RecoveryCode) error

	// Update replaces the code and expiry of an existing record in place.
	Update(ctx context.Context, id int64, code string, expiresAt int64) error

	// DeleteByAccount destroys the account's recovery record.
	DeleteByAccount(ctx context.Context, accountID int64) error
}

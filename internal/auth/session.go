// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import (
	"context"
	"time"
)

// DeviceKey identifies one device of one account. The same account on two
// browsers yields two independent sessions, each independently revocable.
type DeviceKey struct {
	AccountID int64
	IPAddress string
	UserAgent string
}

// Session binds an account to one device fingerprint and the hash of the
// refresh token currently valid for it. A nil RefreshTokenHash is a valid
// terminal state meaning "logged out on this device", not an absent row.
type Session struct {
	ID               int64
	AccountID        int64
	RefreshTokenHash *string
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SessionRepository manages per-device refresh records. At most one row
// exists per (account, ip, user agent) tuple.
type SessionRepository interface {
	// GetByAccount retrieves the refresh record for an account.
	// Returns ErrNotFound if the account never logged in on any device.
	GetByAccount(ctx context.Context, accountID int64) (*Session, error)

	// SetRefreshHash stores hash for the device tuple: the existing row is
	// updated in place, or a new row inserted when none exists. The write
	// is atomic; concurrent callers race last-writer-wins. A nil hash
	// clears the stored token; when no row exists a nil hash is a no-op so
	// logout never materializes an empty session.
	SetRefreshHash(ctx context.Context, key DeviceKey, hash *string) error
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// SessionTokens is the result of starting or refreshing a session. The
// refresh token is handed to the transport for cookie storage; this
// package is agnostic to how it travels.
type SessionTokens struct {
	AccountID    int64
	AccessToken  string
	RefreshToken string
}

// SessionManager orchestrates login, refresh and logout for per-device
// sessions.
type SessionManager struct {
	store  Store
	issuer *TokenIssuer
	hasher PasswordHasher
	logger *slog.Logger
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(store Store, issuer *TokenIssuer, hasher PasswordHasher, logger *slog.Logger) (*SessionManager, error) {
	if store == nil {
		return nil, oops.Errorf("store is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{store: store, issuer: issuer, hasher: hasher, logger: logger}, nil
}

// StartSession issues a fresh token pair and upserts the session row for
// the device tuple, replacing any previously stored refresh hash. Login
// and refresh are the same operation here; the admitting guard (verified
// password vs. verified refresh token) is a transport concern.
func (m *SessionManager) StartSession(ctx context.Context, accountID int64, ipAddress, userAgent string) (*SessionTokens, error) {
	pair, err := m.issuer.Issue(accountID)
	if err != nil {
		return nil, oops.Code("SESSION_START_FAILED").
			With("operation", "issue tokens").
			With("account_id", accountID).
			Wrap(err)
	}

	hash, err := m.hasher.Hash(pair.RefreshToken)
	if err != nil {
		return nil, oops.Code("SESSION_START_FAILED").
			With("operation", "hash refresh token").
			With("account_id", accountID).
			Wrap(err)
	}

	key := DeviceKey{AccountID: accountID, IPAddress: ipAddress, UserAgent: userAgent}
	if err := m.store.Sessions().SetRefreshHash(ctx, key, &hash); err != nil {
		return nil, oops.Code("SESSION_START_FAILED").
			With("operation", "upsert session").
			With("account_id", accountID).
			Wrap(err)
	}

	return &SessionTokens{
		AccountID:    accountID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// ValidateRefresh checks a presented refresh token against the stored hash
// for the account. A missing session row fails with ErrNotFound; a cleared
// or mismatched hash fails with ErrUnauthorized. The mismatch case is
// logged distinctly for audit.
func (m *SessionManager) ValidateRefresh(ctx context.Context, accountID int64, refreshToken string) (int64, error) {
	session, err := m.store.Sessions().GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, oops.Code("SESSION_NOT_FOUND").
				With("account_id", accountID).
				Wrap(err)
		}
		return 0, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by account").
			With("account_id", accountID).
			Wrap(err)
	}

	if session.RefreshTokenHash == nil {
		return 0, oops.Code("SESSION_LOGGED_OUT").Wrapf(ErrUnauthorized, "invalid refresh token")
	}

	matches, err := m.hasher.Verify(refreshToken, *session.RefreshTokenHash)
	if err != nil {
		return 0, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "verify refresh token").
			With("account_id", accountID).
			Wrap(err)
	}
	if !matches {
		m.logger.Error("refresh token mismatch",
			"account_id", accountID,
			"ip_address", session.IPAddress,
			"user_agent", session.UserAgent,
		)
		return 0, oops.Code("SESSION_TOKEN_MISMATCH").Wrapf(ErrUnauthorized, "invalid refresh token")
	}

	return accountID, nil
}

// Logout clears the stored refresh hash for the device tuple. Calling it
// twice, or with no session at all, is not an error.
func (m *SessionManager) Logout(ctx context.Context, accountID int64, ipAddress, userAgent string) error {
	key := DeviceKey{AccountID: accountID, IPAddress: ipAddress, UserAgent: userAgent}
	if err := m.store.Sessions().SetRefreshHash(ctx, key, nil); err != nil {
		return oops.Code("SESSION_LOGOUT_FAILED").
			With("account_id", accountID).
			Wrap(err)
	}
	return nil
}

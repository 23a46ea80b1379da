// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenKind selects which of the paired tokens to verify against.
type TokenKind int

// Token kinds.
const (
	AccessToken TokenKind = iota
	RefreshToken
)

// TokenConfig carries the independent secrets and expiry windows for the
// access/refresh pair. It is read once at startup and injected by
// constructor; business logic never does ambient lookups.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// TokenPair holds a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenIssuer mints and verifies the signed token pair. Issuance is a pure
// function of the account id and current time; there are no side effects.
type TokenIssuer struct {
	cfg TokenConfig
}

// NewTokenIssuer creates a TokenIssuer from the given config.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("token secrets are required")
	}
	if cfg.AccessExpiry <= 0 || cfg.RefreshExpiry <= 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("token expiries must be positive")
	}
	return &TokenIssuer{cfg: cfg}, nil
}

// Issue mints an access and a refresh token for the account, each signed
// with its own secret and expiry window. The subject claim is the account
// id in both.
func (i *TokenIssuer) Issue(accountID int64) (TokenPair, error) {
	now := time.Now()

	access, err := i.sign(accountID, now, i.cfg.AccessSecret, i.cfg.AccessExpiry)
	if err != nil {
		return TokenPair{}, oops.Code("TOKEN_SIGN_FAILED").With("kind", "access").Wrap(err)
	}

	refresh, err := i.sign(accountID, now, i.cfg.RefreshSecret, i.cfg.RefreshExpiry)
	if err != nil {
		return TokenPair{}, oops.Code("TOKEN_SIGN_FAILED").With("kind", "refresh").Wrap(err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *TokenIssuer) sign(accountID int64, now time.Time, secret []byte, expiry time.Duration) (string, error) {
	// The jti claim makes every issuance distinct even within the same
	// second, so rotating a refresh token always invalidates its
	// predecessor.
	claims := jwt.RegisteredClaims{
		ID:        ulid.Make().String(),
		Subject:   strconv.FormatInt(accountID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify decodes the token against the secret for the given kind and
// returns the subject account id. Bad signatures, wrong signing methods
// and expired tokens all surface as ErrUnauthorized.
func (i *TokenIssuer) Verify(token string, kind TokenKind) (int64, error) {
	secret := i.cfg.AccessSecret
	if kind == RefreshToken {
		secret = i.cfg.RefreshSecret
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return 0, oops.Code("TOKEN_INVALID").Wrapf(ErrUnauthorized, "invalid token")
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, oops.Code("TOKEN_INVALID").Wrapf(ErrUnauthorized, "malformed subject claim")
	}

	return accountID, nil
}

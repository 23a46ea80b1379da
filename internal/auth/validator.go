// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when the email has no account, so
// lookups take the same time whether or not the account exists. It is not
// a real credential and never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing-attack prevention.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// CredentialValidator authenticates email/password pairs against the
// account store.
type CredentialValidator struct {
	store  Store
	hasher PasswordHasher
}

// NewCredentialValidator creates a CredentialValidator.
func NewCredentialValidator(store Store, hasher PasswordHasher) (*CredentialValidator, error) {
	if store == nil {
		return nil, oops.Errorf("store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &CredentialValidator{store: store, hasher: hasher}, nil
}

// Validate authenticates the pair and returns the account id only; the
// password and hash never leave this function. An unknown email fails with
// ErrNotFound and a mismatch with ErrUnauthorized; the transport surfaces
// both as a single vague "unauthorized" so emails cannot be enumerated.
func (v *CredentialValidator) Validate(ctx context.Context, email, password string) (int64, error) {
	account, lookupErr := v.store.Accounts().GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	exists := false
	switch {
	case lookupErr == nil:
		exists = true
		if account.HasUsablePassword() {
			targetHash = account.PasswordHash
		}
	case errors.Is(lookupErr, ErrNotFound):
		// Keep verifying against the dummy hash below.
	default:
		return 0, oops.Code("AUTH_VALIDATE_FAILED").
			With("operation", "get account by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := v.hasher.Verify(password, targetHash)
	if verifyErr != nil && exists {
		return 0, oops.Code("AUTH_VALIDATE_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !exists {
		return 0, oops.Code("AUTH_UNKNOWN_EMAIL").Wrapf(ErrNotFound, "account not found")
	}
	if !valid {
		return 0, oops.Code("AUTH_INVALID_CREDENTIALS").Wrapf(ErrUnauthorized, "password does not match")
	}

	return account.ID, nil
}

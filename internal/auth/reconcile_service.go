// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// ReconcileMode declares the caller's intent for identity reconciliation,
// constraining whether an account may be created or must already exist.
type ReconcileMode string

// Reconciliation modes, matching the provider redirect's state parameter.
const (
	ModeLogin  ReconcileMode = "login"
	ModeSignup ReconcileMode = "signup"
)

// Valid reports whether the mode is one of the two known values.
func (m ReconcileMode) Valid() bool {
	return m == ModeLogin || m == ModeSignup
}

// IdentityAssertion is the transient identity claim produced by a
// third-party provider. It is consumed once and discarded, never persisted.
type IdentityAssertion struct {
	Email     string
	Username  string
	AvatarURL string
}

// IdentityReconciler resolves third-party identities to local accounts.
type IdentityReconciler struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

// NewIdentityReconciler creates an IdentityReconciler.
func NewIdentityReconciler(store Store, notifier Notifier, logger *slog.Logger) (*IdentityReconciler, error) {
	if store == nil {
		return nil, oops.Errorf("store is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityReconciler{store: store, notifier: notifier, logger: logger}, nil
}

// Reconcile resolves the assertion to a local account under the mode.
//
// ModeLogin requires an existing account for the assertion's email and
// never creates one; an absent account fails with ErrNotFound. ModeSignup
// requires the email to be free (ErrConflict otherwise), creates an
// OAuth-only account with no usable password, publishes a welcome
// notification and returns the populated record.
func (r *IdentityReconciler) Reconcile(ctx context.Context, assertion IdentityAssertion, mode ReconcileMode) (*Account, error) {
	if !mode.Valid() {
		return nil, oops.Code("RECONCILE_INVALID_MODE").
			With("mode", string(mode)).
			Public("Invalid mode").
			Wrapf(ErrBadRequest, "unknown reconcile mode")
	}

	existing, err := r.store.Accounts().GetByEmail(ctx, assertion.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("RECONCILE_LOOKUP_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	if mode == ModeLogin {
		if existing == nil {
			return nil, oops.Code("RECONCILE_NOT_FOUND").
				Public("An account with this email address was not found.").
				Wrapf(ErrNotFound, "no account for asserted email")
		}
		return existing, nil
	}

	if existing != nil {
		return nil, oops.Code("RECONCILE_EXISTS").
			Public("User with this email already exists!").
			Wrapf(ErrConflict, "asserted email already registered")
	}

	account := &Account{
		Email: assertion.Email,
		Role:  RoleUser,
	}
	if assertion.Username != "" {
		account.Username = &assertion.Username
	}
	if assertion.AvatarURL != "" {
		account.AvatarURL = &assertion.AvatarURL
	}

	if err := r.store.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code("RECONCILE_EXISTS").
				Public("User with this email already exists!").
				Wrapf(ErrConflict, "asserted email already registered")
		}
		return nil, oops.Code("RECONCILE_CREATE_FAILED").Wrap(err)
	}

	// Callers depend on a populated id; re-fetch if the store did not fill
	// it in on create.
	if account.ID == 0 {
		account, err = r.store.Accounts().GetByEmail(ctx, assertion.Email)
		if err != nil {
			return nil, oops.Code("RECONCILE_REFETCH_FAILED").Wrap(err)
		}
	}

	username := ""
	if account.Username != nil {
		username = *account.Username
	}
	if err := r.notifier.PublishWelcome(ctx, account.Email, username); err != nil {
		r.logger.Error("welcome notification failed", "account_id", account.ID, "error", err)
		return nil, oops.Code("RECONCILE_NOTIFY_FAILED").Wrapf(ErrInternal, "welcome notification failed")
	}

	return account, nil
}

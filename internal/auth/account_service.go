// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// AccountService handles registration and profile mutations.
type AccountService struct {
	store    Store
	hasher   PasswordHasher
	notifier Notifier
	logger   *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(store Store, hasher PasswordHasher, notifier Notifier, logger *slog.Logger) (*AccountService, error) {
	if store == nil {
		return nil, oops.Errorf("store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{store: store, hasher: hasher, notifier: notifier, logger: logger}, nil
}

// Register creates a password-backed account. The email must be free
// (ErrConflict otherwise) and the password must satisfy the policy; the
// hash is computed here so plaintext never reaches the store. A welcome
// notification is published once the account exists.
func (s *AccountService) Register(ctx context.Context, email, username, password string) (*Account, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.store.Accounts().GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("REGISTER_LOOKUP_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	if existing != nil {
		return nil, oops.Code("REGISTER_EMAIL_TAKEN").
			Public("User with this email already exist").
			Wrapf(ErrConflict, "email already registered")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("REGISTER_HASH_FAILED").Wrap(err)
	}

	account := &Account{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	}
	if username != "" {
		account.Username = &username
	}

	if err := s.store.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code("REGISTER_EMAIL_TAKEN").
				Public("User with this email already exist").
				Wrapf(ErrConflict, "email already registered")
		}
		return nil, oops.Code("REGISTER_CREATE_FAILED").Wrap(err)
	}

	if err := s.notifier.PublishWelcome(ctx, account.Email, username); err != nil {
		// The account exists either way; surface the failure but keep it.
		s.logger.Error("welcome notification failed", "account_id", account.ID, "error", err)
		return nil, oops.Code("REGISTER_NOTIFY_FAILED").Wrapf(ErrInternal, "welcome notification failed")
	}

	return account, nil
}

// GetByID retrieves an account for profile display. The caller must not
// serialize the password hash.
func (s *AccountService) GetByID(ctx context.Context, id int64) (*Account, error) {
	account, err := s.store.Accounts().GetByID(ctx, id)
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("account_id", id).Wrap(err)
	}
	return account, nil
}

// ChangeEmail replaces the account's email. The new address must differ
// from the current one (ErrBadRequest) and must not belong to another
// account (ErrConflict).
func (s *AccountService) ChangeEmail(ctx context.Context, accountID int64, newEmail string) (string, error) {
	holder, err := s.store.Accounts().GetByEmail(ctx, newEmail)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", oops.Code("EMAIL_CHANGE_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	if holder != nil && holder.ID != accountID {
		return "", oops.Code("EMAIL_IN_USE").
			Public("This email is already in use.").
			Wrapf(ErrConflict, "email held by another account")
	}

	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("ACCOUNT_NOT_FOUND").
				Public("User with this id not found").
				Wrapf(ErrNotFound, "no such account")
		}
		return "", oops.Code("EMAIL_CHANGE_FAILED").Wrap(err)
	}
	if account.Email == newEmail {
		return "", oops.Code("EMAIL_UNCHANGED").
			Public("This is already your current email.").
			Wrapf(ErrBadRequest, "email unchanged")
	}

	if err := s.store.Accounts().UpdateEmail(ctx, accountID, newEmail); err != nil {
		if errors.Is(err, ErrConflict) {
			return "", oops.Code("EMAIL_IN_USE").
				Public("This email is already in use.").
				Wrapf(ErrConflict, "email held by another account")
		}
		return "", oops.Code("EMAIL_CHANGE_FAILED").Wrap(err)
	}

	return "User email updated successfully", nil
}

// ChangePassword replaces the account's password. The new password must
// satisfy the policy and differ from the current one.
func (s *AccountService) ChangePassword(ctx context.Context, accountID int64, newPassword string) (string, error) {
	if err := ValidatePassword(newPassword); err != nil {
		return "", err
	}

	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("ACCOUNT_NOT_FOUND").
				Public("User with this id not found").
				Wrapf(ErrNotFound, "no such account")
		}
		return "", oops.Code("PASSWORD_CHANGE_FAILED").Wrap(err)
	}

	if account.HasUsablePassword() {
		same, err := s.hasher.Verify(newPassword, account.PasswordHash)
		if err != nil {
			return "", oops.Code("PASSWORD_CHANGE_FAILED").
				With("operation", "verify current password").
				Wrap(err)
		}
		if same {
			return "", oops.Code("PASSWORD_UNCHANGED").
				Public("New password must differ from the current one.").
				Wrapf(ErrBadRequest, "password unchanged")
		}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", oops.Code("PASSWORD_CHANGE_FAILED").Wrap(err)
	}
	if err := s.store.Accounts().UpdatePassword(ctx, accountID, hash); err != nil {
		return "", oops.Code("PASSWORD_CHANGE_FAILED").Wrap(err)
	}

	return "User password updated successfully", nil
}

// ChangeUsername replaces the account's username. Re-asserting the current
// username and taking another account's username both fail with
// ErrConflict, with distinct messages.
func (s *AccountService) ChangeUsername(ctx context.Context, accountID int64, newUsername string) (string, error) {
	holder, err := s.store.Accounts().GetByUsername(ctx, newUsername)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", oops.Code("USERNAME_CHANGE_FAILED").
			With("operation", "get account by username").
			Wrap(err)
	}
	if holder != nil {
		if holder.ID == accountID {
			return "", oops.Code("USERNAME_UNCHANGED").
				Public("You already have this username.").
				Wrapf(ErrConflict, "username unchanged")
		}
		return "", oops.Code("USERNAME_TAKEN").
			Public("Username is already taken.").
			Wrapf(ErrConflict, "username held by another account")
	}

	if err := s.store.Accounts().UpdateUsername(ctx, accountID, newUsername); err != nil {
		if errors.Is(err, ErrConflict) {
			return "", oops.Code("USERNAME_TAKEN").
				Public("Username is already taken.").
				Wrapf(ErrConflict, "username held by another account")
		}
		return "", oops.Code("USERNAME_CHANGE_FAILED").Wrap(err)
	}

	return "Username updated successfully", nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// RecoveryOutcome reports which transition a recovery request took.
type RecoveryOutcome int

// Recovery request outcomes.
const (
	// RecoveryCodeSent means a code was created or refreshed and the
	// notification event was accepted.
	RecoveryCodeSent RecoveryOutcome = iota

	// RecoveryAlreadyActive means an unexpired code already exists; no new
	// code was generated and nothing was sent.
	RecoveryAlreadyActive
)

// errRecoveryActive aborts the request transaction when an unexpired code
// already exists, forcing a rollback instead of an empty commit.
var errRecoveryActive = errors.New("recovery code still active")

// RecoveryManager implements the password-recovery state machine. Each
// account's record moves between NONE (no row), ACTIVE (now < expiry) and
// EXPIRED (now >= expiry); every transition runs inside a single store
// transaction that commits only on full success, including acceptance of
// the notification event.
type RecoveryManager struct {
	store    Store
	hasher   PasswordHasher
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// RecoveryOption configures a RecoveryManager.
type RecoveryOption func(*RecoveryManager)

// RecoveryClock overrides the manager's time source. Used by tests to
// force the EXPIRED state deterministically.
func RecoveryClock(now func() time.Time) RecoveryOption {
	return func(m *RecoveryManager) { m.now = now }
}

// NewRecoveryManager creates a RecoveryManager.
func NewRecoveryManager(store Store, hasher PasswordHasher, notifier Notifier, logger *slog.Logger, opts ...RecoveryOption) (*RecoveryManager, error) {
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
	m := &RecoveryManager{store: store, hasher: hasher, notifier: notifier, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// RequestRecovery handles a forgot-password request for the email.
//
//   - unknown email: ErrNotFound, nothing sent
//   - NONE: create a code expiring in 15 minutes, publish the event, commit
//   - ACTIVE: leave the record alone, report RecoveryAlreadyActive
//   - EXPIRED: replace code and expiry in place, publish the event, commit
//
// Two concurrent requests racing NONE->ACTIVE serialize on the store's
// unique constraint per account: the loser observes the conflict and
// reports RecoveryAlreadyActive, so at most one notification is ever sent.
func (m *RecoveryManager) RequestRecovery(ctx context.Context, email string) (RecoveryOutcome, error) {
	err := m.store.InTx(ctx, func(ctx context.Context, s Store) error {
		account, err := s.Accounts().GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		now := m.now()
		existing, err := s.RecoveryCodes().GetByAccount(ctx, account.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		if existing != nil && existing.State(now) == RecoveryActive {
			return errRecoveryActive
		}

		code, err := GenerateRecoveryCode()
		if err != nil {
			return err
		}
		expiresAt := now.Add(RecoveryCodeExpiry).UnixMilli()

		if existing != nil {
			if err := s.RecoveryCodes().Update(ctx, existing.ID, code, expiresAt); err != nil {
				return err
			}
		} else {
			err := s.RecoveryCodes().Create(ctx, &RecoveryCode{
				AccountID: account.ID,
				Code:      code,
				ExpiresAt: expiresAt,
			})
			if errors.Is(err, ErrConflict) {
				// Lost the NONE->ACTIVE race; the winner's code stands.
				return errRecoveryActive
			}
			if err != nil {
				return err
			}
		}

		username := ""
		if account.Username != nil {
			username = *account.Username
		}
		return m.notifier.PublishRecoveryCode(ctx, account.Email, code, username)
	})
	if errors.Is(err, errRecoveryActive) {
		return RecoveryAlreadyActive, nil
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, oops.Code("RECOVERY_UNKNOWN_EMAIL").
				Public("User with this email does not exist.").
				Wrapf(ErrNotFound, "no account for email")
		}
		m.logger.Error("recovery request failed", "error", err)
		return 0, oops.Code("RECOVERY_REQUEST_FAILED").Wrap(err)
	}

	return RecoveryCodeSent, nil
}

// ResetPassword consumes a recovery code and replaces the account
// password. The code check precedes the expiry check, and the password
// write and code destruction are atomic with each other.
//
//   - unknown email or no code row: ErrNotFound
//   - presented code differs from stored: ErrConflict
//   - stored code expired: ErrGone
func (m *RecoveryManager) ResetPassword(ctx context.Context, email, presentedCode, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	err := m.store.InTx(ctx, func(ctx context.Context, s Store) error {
		account, err := s.Accounts().GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("RECOVERY_UNKNOWN_EMAIL").
					Public("User with this email does not exist.").
					Wrapf(ErrNotFound, "no account for email")
			}
			return err
		}

		stored, err := s.RecoveryCodes().GetByAccount(ctx, account.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("RECOVERY_NO_CODE").
					Public("No reset code found.").
					Wrapf(ErrNotFound, "no recovery code for account")
			}
			return err
		}

		if stored.Code != presentedCode {
			return oops.Code("RECOVERY_CODE_MISMATCH").
				Public("The code is incorrect.").
				Wrapf(ErrConflict, "presented code does not match")
		}
		if stored.State(m.now()) == RecoveryExpired {
			return oops.Code("RECOVERY_CODE_EXPIRED").
				Public("Reset code has expired.").
				Wrapf(ErrGone, "code past expiry")
		}

		hash, err := m.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		if err := s.Accounts().UpdatePassword(ctx, account.ID, hash); err != nil {
			return err
		}
		return s.RecoveryCodes().DeleteByAccount(ctx, account.ID)
	})
	if err != nil {
		m.logger.Error("password reset failed", "error", err)
		return err
	}

	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth_test

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/palladiumhq/identity/internal/auth"
)

// fakeStore is an in-memory auth.Store. InTx snapshots all state before
// running fn and restores it when fn fails, mirroring a real rollback.
type fakeStore struct {
	accounts *fakeAccountRepo
	sessions *fakeSessionRepo
	codes    *fakeRecoveryRepo
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: &fakeAccountRepo{byID: make(map[int64]*auth.Account)},
		sessions: &fakeSessionRepo{byKey: make(map[auth.DeviceKey]*auth.Session)},
		codes:    &fakeRecoveryRepo{byAccount: make(map[int64]*auth.RecoveryCode)},
	}
}

func (s *fakeStore) Accounts() auth.AccountRepository           { return s.accounts }
func (s *fakeStore) Sessions() auth.SessionRepository           { return s.sessions }
func (s *fakeStore) RecoveryCodes() auth.RecoveryCodeRepository { return s.codes }

func (s *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, s auth.Store) error) error {
	accountsSnap := s.accounts.snapshot()
	sessionsSnap := s.sessions.snapshot()
	codesSnap := s.codes.snapshot()

	if err := fn(ctx, s); err != nil {
		s.accounts.restore(accountsSnap)
		s.sessions.restore(sessionsSnap)
		s.codes.restore(codesSnap)
		return err
	}
	return nil
}

// addAccount seeds an account directly, bypassing Create's conflict checks.
func (s *fakeStore) addAccount(account *auth.Account) *auth.Account {
	if account.ID == 0 {
		s.accounts.nextID++
		account.ID = s.accounts.nextID
	} else if account.ID > s.accounts.nextID {
		s.accounts.nextID = account.ID
	}
	s.accounts.byID[account.ID] = account
	return account
}

type fakeAccountRepo struct {
	byID   map[int64]*auth.Account
	nextID int64
}

func (r *fakeAccountRepo) snapshot() map[int64]*auth.Account {
	snap := make(map[int64]*auth.Account, len(r.byID))
	for id, a := range r.byID {
		copied := *a
		snap[id] = &copied
	}
	return snap
}

func (r *fakeAccountRepo) restore(snap map[int64]*auth.Account) { r.byID = snap }

func (r *fakeAccountRepo) Create(_ context.Context, account *auth.Account) error {
	for _, existing := range r.byID {
		if existing.Email == account.Email {
			return oops.Wrap(auth.ErrConflict)
		}
		if account.Username != nil && existing.Username != nil && *existing.Username == *account.Username {
			return oops.Wrap(auth.ErrConflict)
		}
	}
	r.nextID++
	account.ID = r.nextID
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	copied := *account
	r.byID[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id int64) (*auth.Account, error) {
	account, ok := r.byID[id]
	if !ok {
		return nil, oops.Wrap(auth.ErrNotFound)
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	for _, account := range r.byID {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, oops.Wrap(auth.ErrNotFound)
}

func (r *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	for _, account := range r.byID {
		if account.Username != nil && *account.Username == username {
			copied := *account
			return &copied, nil
		}
	}
	return nil, oops.Wrap(auth.ErrNotFound)
}

func (r *fakeAccountRepo) UpdateEmail(_ context.Context, id int64, email string) error {
	for otherID, other := range r.byID {
		if otherID != id && other.Email == email {
			return oops.Wrap(auth.ErrConflict)
		}
	}
	account, ok := r.byID[id]
	if !ok {
		return oops.Wrap(auth.ErrNotFound)
	}
	account.Email = email
	account.UpdatedAt = time.Now()
	return nil
}

func (r *fakeAccountRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	account, ok := r.byID[id]
	if !ok {
		return oops.Wrap(auth.ErrNotFound)
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = time.Now()
	return nil
}

func (r *fakeAccountRepo) UpdateUsername(_ context.Context, id int64, username string) error {
	for otherID, other := range r.byID {
		if otherID != id && other.Username != nil && *other.Username == username {
			return oops.Wrap(auth.ErrConflict)
		}
	}
	account, ok := r.byID[id]
	if !ok {
		return oops.Wrap(auth.ErrNotFound)
	}
	account.Username = &username
	account.UpdatedAt = time.Now()
	return nil
}

type fakeSessionRepo struct {
	byKey  map[auth.DeviceKey]*auth.Session
	nextID int64
}

func (r *fakeSessionRepo) snapshot() map[auth.DeviceKey]*auth.Session {
	snap := make(map[auth.DeviceKey]*auth.Session, len(r.byKey))
	for key, s := range r.byKey {
		copied := *s
		snap[key] = &copied
	}
	return snap
}

func (r *fakeSessionRepo) restore(snap map[auth.DeviceKey]*auth.Session) { r.byKey = snap }

func (r *fakeSessionRepo) GetByAccount(_ context.Context, accountID int64) (*auth.Session, error) {
	var latest *auth.Session
	for _, session := range r.byKey {
		if session.AccountID != accountID {
			continue
		}
		if latest == nil || session.UpdatedAt.After(latest.UpdatedAt) {
			latest = session
		}
	}
	if latest == nil {
		return nil, oops.Wrap(auth.ErrNotFound)
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeSessionRepo) SetRefreshHash(_ context.Context, key auth.DeviceKey, hash *string) error {
	session, ok := r.byKey[key]
	if !ok {
		if hash == nil {
			// Logout on a device that never logged in is a no-op.
			return nil
		}
		r.nextID++
		session = &auth.Session{
			ID:        r.nextID,
			AccountID: key.AccountID,
			IPAddress: key.IPAddress,
			UserAgent: key.UserAgent,
			CreatedAt: time.Now(),
		}
		r.byKey[key] = session
	}
	session.RefreshTokenHash = hash
	session.UpdatedAt = time.Now()
	return nil
}

type fakeRecoveryRepo struct {
	byAccount map[int64]*auth.RecoveryCode
	nextID    int64

	// createErr is returned by the next Create call when set, simulating
	// the loser of a concurrent insert race.
	createErr error
}

func (r *fakeRecoveryRepo) snapshot() map[int64]*auth.RecoveryCode {
	snap := make(map[int64]*auth.RecoveryCode, len(r.byAccount))
	for id, c := range r.byAccount {
		copied := *c
		snap[id] = &copied
	}
	return snap
}

func (r *fakeRecoveryRepo) restore(snap map[int64]*auth.RecoveryCode) { r.byAccount = snap }

func (r *fakeRecoveryRepo) GetByAccount(_ context.Context, accountID int64) (*auth.RecoveryCode, error) {
	code, ok := r.byAccount[accountID]
	if !ok {
		return nil, oops.Wrap(auth.ErrNotFound)
	}
	copied := *code
	return &copied, nil
}

func (r *fakeRecoveryRepo) Create(_ context.Context, code *auth.RecoveryCode) error {
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return err
	}
	if _, exists := r.byAccount[code.AccountID]; exists {
		return oops.Wrap(auth.ErrConflict)
	}
	r.nextID++
	code.ID = r.nextID
	code.CreatedAt = time.Now()
	code.UpdatedAt = code.CreatedAt
	copied := *code
	r.byAccount[code.AccountID] = &copied
	return nil
}

func (r *fakeRecoveryRepo) Update(_ context.Context, id int64, newCode string, expiresAt int64) error {
	for _, code := range r.byAccount {
		if code.ID == id {
			code.Code = newCode
			code.ExpiresAt = expiresAt
			code.UpdatedAt = time.Now()
			return nil
		}
	}
	return oops.Wrap(auth.ErrNotFound)
}

func (r *fakeRecoveryRepo) DeleteByAccount(_ context.Context, accountID int64) error {
	delete(r.byAccount, accountID)
	return nil
}

type publishedEvent struct {
	event    string
	email    string
	code     string
	username string
}

// fakeNotifier records published notification events.
type fakeNotifier struct {
	events  []publishedEvent
	failErr error
}

func (n *fakeNotifier) PublishWelcome(_ context.Context, email, username string) error {
	if n.failErr != nil {
		return n.failErr
	}
	n.events = append(n.events, publishedEvent{event: "send-welcome-message", email: email, username: username})
	return nil
}

func (n *fakeNotifier) PublishRecoveryCode(_ context.Context, email, code, username string) error {
	if n.failErr != nil {
		return n.failErr
	}
	n.events = append(n.events, publishedEvent{event: "send-password-recovery-code", email: email, code: code, username: username})
	return nil
}

var (
	_ auth.Store    = (*fakeStore)(nil)
	_ auth.Notifier = (*fakeNotifier)(nil)
)

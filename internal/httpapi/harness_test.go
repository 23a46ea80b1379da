// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/palladiumhq/identity/internal/auth"
	"github.com/palladiumhq/identity/internal/httpapi"
)

// memStore is an in-memory auth.Store for exercising handlers end to end
// without a database.
type memStore struct {
	accounts *memAccountRepo
	sessions *memSessionRepo
	codes    *memRecoveryRepo
}

func newMemStore() *memStore {
	return &memStore{
		accounts: &memAccountRepo{byID: map[int64]*auth.Account{}},
		sessions: &memSessionRepo{rows: map[auth.DeviceKey]*auth.Session{}},
		codes:    &memRecoveryRepo{byAccount: map[int64]*auth.RecoveryCode{}},
	}
}

func (s *memStore) Accounts() auth.AccountRepository           { return s.accounts }
func (s *memStore) Sessions() auth.SessionRepository           { return s.sessions }
func (s *memStore) RecoveryCodes() auth.RecoveryCodeRepository { return s.codes }

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, st auth.Store) error) error {
	return fn(ctx, s)
}

type memAccountRepo struct {
	byID   map[int64]*auth.Account
	nextID int64
}

func (r *memAccountRepo) Create(_ context.Context, account *auth.Account) error {
	for _, existing := range r.byID {
		if existing.Email == account.Email {
			return auth.ErrConflict
		}
		if account.Username != nil && existing.Username != nil && *existing.Username == *account.Username {
			return auth.ErrConflict
		}
	}
	r.nextID++
	account.ID = r.nextID
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	clone := *account
	r.byID[account.ID] = &clone
	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id int64) (*auth.Account, error) {
	account, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	for _, account := range r.byID {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memAccountRepo) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	for _, account := range r.byID {
		if account.Username != nil && *account.Username == username {
			clone := *account
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memAccountRepo) UpdateEmail(_ context.Context, id int64, email string) error {
	account, ok := r.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	account.Email = email
	return nil
}

func (r *memAccountRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	account, ok := r.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	account.PasswordHash = passwordHash
	return nil
}

func (r *memAccountRepo) UpdateUsername(_ context.Context, id int64, username string) error {
	account, ok := r.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	for _, other := range r.byID {
		if other.ID != id && other.Username != nil && *other.Username == username {
			return auth.ErrConflict
		}
	}
	account.Username = &username
	return nil
}

type memSessionRepo struct {
	rows   map[auth.DeviceKey]*auth.Session
	nextID int64
}

func (r *memSessionRepo) GetByAccount(_ context.Context, accountID int64) (*auth.Session, error) {
	var latest *auth.Session
	for _, session := range r.rows {
		if session.AccountID != accountID {
			continue
		}
		if latest == nil || session.UpdatedAt.After(latest.UpdatedAt) {
			latest = session
		}
	}
	if latest == nil {
		return nil, auth.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

func (r *memSessionRepo) SetRefreshHash(_ context.Context, key auth.DeviceKey, hash *string) error {
	session, ok := r.rows[key]
	if !ok {
		if hash == nil {
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
		r.rows[key] = session
	}
	session.RefreshTokenHash = hash
	session.UpdatedAt = time.Now()
	return nil
}

type memRecoveryRepo struct {
	byAccount map[int64]*auth.RecoveryCode
	nextID    int64
}

func (r *memRecoveryRepo) GetByAccount(_ context.Context, accountID int64) (*auth.RecoveryCode, error) {
	code, ok := r.byAccount[accountID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	clone := *code
	return &clone, nil
}

func (r *memRecoveryRepo) Create(_ context.Context, code *auth.RecoveryCode) error {
	if _, ok := r.byAccount[code.AccountID]; ok {
		return auth.ErrConflict
	}
	r.nextID++
	code.ID = r.nextID
	clone := *code
	r.byAccount[code.AccountID] = &clone
	return nil
}

func (r *memRecoveryRepo) Update(_ context.Context, id int64, code string, expiresAt int64) error {
	for _, row := range r.byAccount {
		if row.ID == id {
			row.Code = code
			row.ExpiresAt = expiresAt
			return nil
		}
	}
	return auth.ErrNotFound
}

func (r *memRecoveryRepo) DeleteByAccount(_ context.Context, accountID int64) error {
	delete(r.byAccount, accountID)
	return nil
}

// memNotifier records published events instead of touching a broker.
type memNotifier struct {
	welcomes []string
	codes    map[string]string
}

func (n *memNotifier) PublishWelcome(_ context.Context, email, _ string) error {
	n.welcomes = append(n.welcomes, email)
	return nil
}

func (n *memNotifier) PublishRecoveryCode(_ context.Context, email, code, _ string) error {
	if n.codes == nil {
		n.codes = map[string]string{}
	}
	n.codes[email] = code
	return nil
}

var (
	_ auth.Store    = (*memStore)(nil)
	_ auth.Notifier = (*memNotifier)(nil)
)

// env bundles a fully wired Server over in-memory storage.
type env struct {
	store    *memStore
	notifier *memNotifier
	issuer   *auth.TokenIssuer
	accounts *auth.AccountService
	handler  http.Handler
}

func newEnv(t *testing.T, provider httpapi.IdentityProvider, cfg httpapi.Config) *env {
	t.Helper()

	store := newMemStore()
	notifier := &memNotifier{}
	hasher := auth.NewArgon2idHasher()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	})
	require.NoError(t, err)

	validator, err := auth.NewCredentialValidator(store, hasher)
	require.NoError(t, err)
	sessions, err := auth.NewSessionManager(store, issuer, hasher, logger)
	require.NoError(t, err)
	recovery, err := auth.NewRecoveryManager(store, hasher, notifier, logger)
	require.NoError(t, err)
	reconciler, err := auth.NewIdentityReconciler(store, notifier, logger)
	require.NoError(t, err)
	accounts, err := auth.NewAccountService(store, hasher, notifier, logger)
	require.NoError(t, err)

	server, err := httpapi.NewServer(validator, sessions, recovery, reconciler, accounts, issuer, provider, nil, logger, cfg)
	require.NoError(t, err)

	return &env{
		store:    store,
		notifier: notifier,
		issuer:   issuer,
		accounts: accounts,
		handler:  server.Routes(),
	}
}

// register seeds an account through the real service and returns its id.
func (e *env) register(t *testing.T, email, username, password string) int64 {
	t.Helper()
	account, err := e.accounts.Register(context.Background(), email, username, password)
	require.NoError(t, err)
	return account.ID
}

// accessToken mints a valid bearer token for the account.
func (e *env) accessToken(t *testing.T, accountID int64) string {
	t.Helper()
	pair, err := e.issuer.Issue(accountID)
	require.NoError(t, err)
	return pair.AccessToken
}

type requestOpt func(*http.Request)

func withBearer(token string) requestOpt {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCookie(c *http.Cookie) requestOpt {
	return func(r *http.Request) {
		r.AddCookie(c)
	}
}

func (e *env) do(t *testing.T, method, path string, body any, opts ...requestOpt) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("User-Agent", "go-test")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// refreshCookie extracts the refresh-token cookie from a response.
func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	t.Fatal("refreshToken cookie not set")
	return nil
}

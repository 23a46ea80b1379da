// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

// Package postgres provides PostgreSQL implementations of the auth
// repositories and the transactional store.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/palladiumhq/identity/internal/auth"
)

// DB is the subset of pgxpool.Pool the store needs. pgx.Tx satisfies it
// too, which is how transaction-scoped stores share one connection, and
// pgxmock stands in for it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements auth.Store over a pgx connection pool.
type Store struct {
	db DB
}

// NewStore creates a Store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Accounts returns the account repository bound to this store's executor.
func (s *Store) Accounts() auth.AccountRepository {
	return &AccountRepository{db: s.db}
}

// Sessions returns the session repository bound to this store's executor.
func (s *Store) Sessions() auth.SessionRepository {
	return &SessionRepository{db: s.db}
}

// RecoveryCodes returns the recovery-code repository bound to this store's
// executor.
func (s *Store) RecoveryCodes() auth.RecoveryCodeRepository {
	return &RecoveryCodeRepository{db: s.db}
}

// InTx runs fn against a store whose repositories share one transaction.
// The transaction commits only when fn returns nil; any error, including
// caller cancellation, rolls it back so partial state is never observable.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, s auth.Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return oops.Code("STORE_TX_BEGIN_FAILED").Wrap(err)
	}

	if err := fn(ctx, &Store{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return oops.Code("STORE_TX_ROLLBACK_FAILED").Wrap(errors.Join(err, rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("STORE_TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation. The store relies on these surfacing as auth.ErrConflict
// rather than crashing, both for duplicate emails and for the
// single-recovery-code-per-account invariant.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Compile-time interface check.
var _ auth.Store = (*Store)(nil)

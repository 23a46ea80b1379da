// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palladiumhq/identity/internal/auth"
	"github.com/palladiumhq/identity/internal/auth/postgres"
)

var sessionCols = []string{
	"id", "account_id", "refresh_token_hash", "ip_address", "user_agent", "created_at", "updated_at",
}

func TestSessionRepository_GetByAccount(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("returns the stored session", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		hash := "$argon2id$refresh-hash"
		mock.ExpectQuery(`SELECT .+ FROM sessions`).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows(sessionCols).
				AddRow(int64(10), int64(1), &hash, "203.0.113.5", "firefox", now, now))

		repo := postgres.NewSessionRepository(mock)
		session, err := repo.GetByAccount(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, session.RefreshTokenHash)
		assert.Equal(t, hash, *session.RefreshTokenHash)
		assert.Equal(t, "firefox", session.UserAgent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("logged-out session scans a nil hash", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .+ FROM sessions`).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows(sessionCols).
				AddRow(int64(10), int64(1), (*string)(nil), "203.0.113.5", "firefox", now, now))

		repo := postgres.NewSessionRepository(mock)
		session, err := repo.GetByAccount(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, session.RefreshTokenHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row is not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .+ FROM sessions`).
			WithArgs(int64(99)).
			WillReturnError(pgx.ErrNoRows)

		repo := postgres.NewSessionRepository(mock)
		_, err = repo.GetByAccount(ctx, 99)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSessionRepository_SetRefreshHash(t *testing.T) {
	ctx := context.Background()
	key := auth.DeviceKey{AccountID: 1, IPAddress: "203.0.113.5", UserAgent: "firefox"}

	t.Run("stores a hash with a single upsert", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		hash := "$argon2id$refresh-hash"
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(int64(1), hash, "203.0.113.5", "firefox").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := postgres.NewSessionRepository(mock)
		require.NoError(t, repo.SetRefreshHash(ctx, key, &hash))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil hash clears an existing row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE sessions SET refresh_token_hash = NULL`).
			WithArgs(int64(1), "203.0.113.5", "firefox").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewSessionRepository(mock)
		require.NoError(t, repo.SetRefreshHash(ctx, key, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil hash with no row is a no-op", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE sessions SET refresh_token_hash = NULL`).
			WithArgs(int64(1), "203.0.113.5", "firefox").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := postgres.NewSessionRepository(mock)
		require.NoError(t, repo.SetRefreshHash(ctx, key, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

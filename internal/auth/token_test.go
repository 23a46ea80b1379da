// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palladiumhq/identity/internal/auth"
)

func testTokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	}
}

func TestNewTokenIssuer(t *testing.T) {
	t.Run("rejects missing secrets", func(t *testing.T) {
		cfg := testTokenConfig()
		cfg.AccessSecret = nil
		_, err := auth.NewTokenIssuer(cfg)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive expiry", func(t *testing.T) {
		cfg := testTokenConfig()
		cfg.RefreshExpiry = 0
		_, err := auth.NewTokenIssuer(cfg)
		assert.Error(t, err)
	})
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(testTokenConfig())
	require.NoError(t, err)

	t.Run("round trip preserves account id", func(t *testing.T) {
		pair, err := issuer.Issue(42)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

		id, err := issuer.Verify(pair.AccessToken, auth.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)

		id, err = issuer.Verify(pair.RefreshToken, auth.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	})

	t.Run("tokens are not interchangeable across kinds", func(t *testing.T) {
		pair, err := issuer.Issue(7)
		require.NoError(t, err)

		_, err = issuer.Verify(pair.AccessToken, auth.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)

		_, err = issuer.Verify(pair.RefreshToken, auth.AccessToken)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		_, err := issuer.Verify("not.a.jwt", auth.AccessToken)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("token signed with another secret is unauthorized", func(t *testing.T) {
		other, err := auth.NewTokenIssuer(auth.TokenConfig{
			AccessSecret:  []byte("some-other-secret"),
			RefreshSecret: []byte("yet-another-secret"),
			AccessExpiry:  time.Minute,
			RefreshExpiry: time.Minute,
		})
		require.NoError(t, err)

		pair, err := other.Issue(7)
		require.NoError(t, err)

		_, err = issuer.Verify(pair.AccessToken, auth.AccessToken)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		shortLived, err := auth.NewTokenIssuer(auth.TokenConfig{
			AccessSecret:  []byte("access-secret-for-tests"),
			RefreshSecret: []byte("refresh-secret-for-tests"),
			AccessExpiry:  time.Nanosecond,
			RefreshExpiry: time.Nanosecond,
		})
		require.NoError(t, err)

		pair, err := shortLived.Issue(9)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		_, err = shortLived.Verify(pair.AccessToken, auth.AccessToken)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})
}

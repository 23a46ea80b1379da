// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import "errors"

// Sentinel errors classifying every failure the package can surface.
// Callers branch with errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on uniqueness or state violations: duplicate
	// email or username, a wrong recovery code, or a signup for an email
	// that already has an account.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned on bad credentials or a missing or
	// mismatched refresh token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrGone is returned when a recovery code exists but has expired.
	ErrGone = errors.New("gone")

	// ErrBadRequest is returned when input is rejected before any store or
	// transport call.
	ErrBadRequest = errors.New("bad request")

	// ErrInternal is returned on unexpected store or transport failure.
	ErrInternal = errors.New("internal error")
)

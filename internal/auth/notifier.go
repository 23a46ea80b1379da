// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import "context"

// Notifier accepts a named event and payload for asynchronous delivery.
// Delivery is fire-and-forget: a nil return means "accepted", not
// "delivered". Implementations reject incomplete payloads locally with an
// ErrBadRequest-class error before anything reaches the transport.
type Notifier interface {
	// PublishWelcome emits the send-welcome-message event.
	PublishWelcome(ctx context.Context, email, username string) error

	// PublishRecoveryCode emits the send-password-recovery-code event.
	PublishRecoveryCode(ctx context.Context, email, code, username string) error
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package auth

import "context"

// Store bundles the repositories behind one transactional boundary.
//
// InTx runs fn against a store whose repositories share a single ACID
// transaction: the transaction commits only when fn returns nil and is
// rolled back on any error, so partial application (a code updated but the
// notification failed, say) is never observable. Caller-driven
// cancellation aborts the transaction rather than leaving it open.
type Store interface {
	Accounts() AccountRepository
	Sessions() SessionRepository
	RecoveryCodes() RecoveryCodeRepository

	InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

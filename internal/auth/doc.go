// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

// Package auth implements the credential and session lifecycle.
//
// # Domain Types
//
// Account, Session and RecoveryCode are plain records owned by the
// repositories in this package. A Session binds an account to one device
// fingerprint (ip address + user agent) and carries the hash of the
// currently valid refresh token; a nil hash means "logged out on this
// device". A RecoveryCode is a short-lived 6-digit code proving control of
// an account's email.
//
// # Services
//
// Service types coordinate domain operations:
//   - CredentialValidator - email/password authentication
//   - SessionManager - token issuance, rotation and logout per device
//   - RecoveryManager - the forgot/reset password state machine
//   - IdentityReconciler - OAuth identity to local account resolution
//   - AccountService - registration and profile mutations
//
// SessionManager and RecoveryManager are the only components that open
// transactions against the Store.
package auth

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

// Package auth provides account creation and session authentication for
// StockCtrl.
//
// # Policies
//
// ValidateUsername and ValidatePassword are pure functions. A failure
// matches ErrPolicyViolation and carries a *PolicyError whose Reason is
// safe to return to the end user.
//
// # Services
//
//   - Directory - account creation with uniqueness checks
//   - Authenticator - login, token authentication, revocation
//   - Sweeper - scheduled deletion of dead session records
//
// Services are created with New* constructors that validate dependencies.
// Errors are oops errors wrapping one of the outcome sentinels in errors.go;
// OutcomeOf maps an error to the outcome a transport reports.
//
// # Session models
//
// Logins create a standalone, expiring SessionToken record by default. For
// profile accounts the embedded model stores token digests in the account's
// sessions set instead; those sessions never expire and exist only to serve
// deployments that already rely on that layout.
package auth

// Package middleware exposes an HTTP adapter for admin session
// enforcement built on top of adminauth.Engine validation.
//
// [RequireAdmin] reads the session token from the Authorization header
// (falling back to the admin_session cookie), calls
// Engine.ValidateSession, and injects the validated credential into the
// request context for handlers to read via [CredentialFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.ValidateSession.
//
// # What this package must NOT do
//
//   - Inspect or decode session tokens (they are opaque).
//   - Access the credential store (Engine handles I/O).
//   - Distinguish rejection reasons in responses; every failure is 401.
package middleware

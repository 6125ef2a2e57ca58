// Package adminauth implements administrator authentication and session
// security: credential verification, TOTP plus one-time backup codes,
// brute-force lockout, opaque session tokens, and a tamper-evident audit
// trail of privileged actions.
//
// The package is designed for concurrent request-serving workloads: Engine
// methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// adminauth is the public surface. It exposes [Engine], [Builder],
// [Config], the [CredentialStore] contract, and value types
// (AdminCredential, AdminSession, AuditEvent). Persistence lives behind
// [CredentialStore]; the store sub-packages ship Redis, SQLite, and
// in-memory implementations, and callers may bring their own.
//
// # What this package must NOT do
//
//   - Encode roles, flags, or any session state into the session token.
//     Tokens are opaque; every validation re-reads authoritative state
//     from the store, so privilege changes take effect on the next
//     request rather than at next login.
//   - Extend session expiry on validation. Session lifetime is bounded
//     and auditable regardless of activity.
//   - Let audit unavailability fail or block the operation it records.
//
// # Concurrency contract
//
// The failed-attempt counter, the lockout timestamp, and backup-code
// consumption are linearizable per account. The store contract makes the
// critical mutations single atomic writes, so a cancelled Authenticate
// call either fully recorded its side effects or did not happen at all.
package adminauth

package adminauth

import (
	"context"
	"time"
)

// AdminCredential is the authoritative account record for one
// administrator. It is owned by the [CredentialStore]; the engine reads
// it during authentication and session validation and mutates only the
// lockout fields, through the store's atomic operations.
type AdminCredential struct {
	UserID         string
	Email          string
	PasswordHash   string
	IsAdmin        bool
	IsSuperAdmin   bool
	FailedAttempts uint32
	LockedUntil    *time.Time
}

// HasAdminPrivilege reports whether the account may authenticate against
// this subsystem at all. Non-admin accounts are rejected with the same
// generic error as unknown accounts.
func (c *AdminCredential) HasAdminPrivilege() bool {
	return c != nil && (c.IsAdmin || c.IsSuperAdmin)
}

// TwoFactorRecord carries a user's TOTP secret and backup-code state.
// A record is created disabled by SetupTwoFactor and flipped to enabled
// only by a successful confirmation code. BackupCodeHashes only shrinks:
// consumption is one-way and exactly-once.
type TwoFactorRecord struct {
	UserID           string
	Secret           string // base32, no padding
	Enabled          bool
	BackupCodeHashes [][32]byte
	LastUsedAt       *time.Time
}

// TwoFactorSetup is returned by [Engine.SetupTwoFactor]. The plaintext
// backup codes appear here exactly once; only their hashes are persisted.
type TwoFactorSetup struct {
	Secret      string
	QRPayload   string
	BackupCodes []string
}

// AdminSession is an issued session row. Token is opaque: 64 random
// bytes rendered as 128 hex characters, cryptographically unrelated to
// the user's password. A session is valid while IsActive is set and the
// current time is before ExpiresAt.
type AdminSession struct {
	Token     string
	UserID    string
	IPAddress string
	UserAgent string
	IssuedAt  time.Time
	ExpiresAt time.Time
	IsActive  bool
}

// LoginRequest is the input to [Engine.Authenticate]. TOTPCode and
// BackupCode are optional; when the account has two-factor enabled and
// neither is supplied, Authenticate returns [ErrTwoFactorRequired]
// without consuming a lockout attempt.
type LoginRequest struct {
	Email      string
	Password   string
	TOTPCode   string
	BackupCode string
	IP         string
	UserAgent  string
}

// CredentialStore is the persistence contract the engine requires. The
// engine owns no durable state of its own; implementations must make
// IncrementFailedAttempts and ConsumeBackupCode single atomic writes
// (conditional update, Redis command, or per-account mutex for in-memory
// stores) — that atomicity is a correctness requirement for the lockout
// threshold and exactly-once backup-code invariants, not an optimization.
//
// Implementations propagate the caller's context to their backend so
// storage timeouts surface as transient errors, never as an implicit
// authentication rejection.
type CredentialStore interface {
	GetCredentialByEmail(ctx context.Context, email string) (*AdminCredential, error)
	GetCredentialByID(ctx context.Context, userID string) (*AdminCredential, error)

	// IncrementFailedAttempts atomically adds one to the account's
	// failed-attempt counter and returns the post-increment value.
	IncrementFailedAttempts(ctx context.Context, userID string) (uint32, error)
	SetLockout(ctx context.Context, userID string, until time.Time) error
	// ClearLockout zeroes the failed-attempt counter and removes any
	// lockout timestamp. Called only after a fully successful login.
	ClearLockout(ctx context.Context, userID string) error

	GetTwoFactor(ctx context.Context, userID string) (*TwoFactorRecord, error)
	PutTwoFactor(ctx context.Context, record *TwoFactorRecord) error
	DeleteTwoFactor(ctx context.Context, userID string) error
	// ConsumeBackupCode atomically removes the code hash from the user's
	// set and reports whether it was present. Two concurrent calls with
	// the same hash must not both return true.
	ConsumeBackupCode(ctx context.Context, userID string, codeHash [32]byte) (bool, error)
	// MarkTwoFactorUsed records the last successful verification time.
	// Best effort; the engine ignores its failure.
	MarkTwoFactorUsed(ctx context.Context, userID string, at time.Time) error

	PutSession(ctx context.Context, session *AdminSession) error
	GetSession(ctx context.Context, token string) (*AdminSession, error)
	// DeactivateSession clears IsActive. Idempotent: deactivating an
	// absent or already-inactive session is not an error.
	DeactivateSession(ctx context.Context, token string) error
	// DeleteExpiredSessions removes sessions that expired before the
	// given time and returns how many were removed. Maintenance only;
	// correctness never depends on it running.
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error)

	AppendAuditEvent(ctx context.Context, event AuditEvent) error
}

func cloneCredential(c *AdminCredential) *AdminCredential {
	if c == nil {
		return nil
	}
	out := *c
	if c.LockedUntil != nil {
		t := *c.LockedUntil
		out.LockedUntil = &t
	}
	return &out
}

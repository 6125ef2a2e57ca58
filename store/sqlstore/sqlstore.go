// Package sqlstore implements adminauth.CredentialStore on SQLite.
//
// One writer connection keeps SQLite's locking model out of the way;
// the atomic operations (failed-attempt increment, backup-code
// consumption) are single UPDATE/DELETE statements whose row counts
// decide the outcome.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hallgate/adminauth"
)

// Store implements adminauth.CredentialStore backed by a SQLite file.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) the database under dataDir. Pass "" for an
// in-memory database, which is what the tests use.
func New(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "adminauth.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open auth database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate auth database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// credentialRow maps 1:1 to the admin_credentials table. Timestamps are
// unix seconds; zero means unset.
type credentialRow struct {
	UserID         string `db:"user_id"`
	Email          string `db:"email"`
	PasswordHash   string `db:"password_hash"`
	IsAdmin        bool   `db:"is_admin"`
	IsSuperAdmin   bool   `db:"is_super_admin"`
	FailedAttempts uint32 `db:"failed_attempts"`
	LockedUntil    int64  `db:"locked_until"`
}

func (r credentialRow) toModel() *adminauth.AdminCredential {
	cred := &adminauth.AdminCredential{
		UserID:         r.UserID,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		IsAdmin:        r.IsAdmin,
		IsSuperAdmin:   r.IsSuperAdmin,
		FailedAttempts: r.FailedAttempts,
	}
	if r.LockedUntil > 0 {
		t := time.Unix(r.LockedUntil, 0)
		cred.LockedUntil = &t
	}
	return cred
}

// PutCredential inserts or replaces an account record. Provisioning
// helper; not part of the CredentialStore contract.
func (s *Store) PutCredential(ctx context.Context, cred *adminauth.AdminCredential) error {
	lockedUntil := int64(0)
	if cred.LockedUntil != nil {
		lockedUntil = cred.LockedUntil.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_credentials
			(user_id, email, password_hash, is_admin, is_super_admin, failed_attempts, locked_until)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			password_hash = excluded.password_hash,
			is_admin = excluded.is_admin,
			is_super_admin = excluded.is_super_admin,
			failed_attempts = excluded.failed_attempts,
			locked_until = excluded.locked_until`,
		cred.UserID, cred.Email, cred.PasswordHash, cred.IsAdmin, cred.IsSuperAdmin,
		cred.FailedAttempts, lockedUntil)
	return err
}

// GetCredentialByEmail returns the account for email, or nil when absent.
func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (*adminauth.AdminCredential, error) {
	var row credentialRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM admin_credentials WHERE email = ?", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// GetCredentialByID returns the account for userID, or nil when absent.
func (s *Store) GetCredentialByID(ctx context.Context, userID string) (*adminauth.AdminCredential, error) {
	var row credentialRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM admin_credentials WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// IncrementFailedAttempts bumps the counter in one UPDATE and returns
// the post-increment value via RETURNING.
func (s *Store) IncrementFailedAttempts(ctx context.Context, userID string) (uint32, error) {
	var count uint32
	err := s.db.GetContext(ctx, &count, `
		UPDATE admin_credentials
		SET failed_attempts = failed_attempts + 1
		WHERE user_id = ?
		RETURNING failed_attempts`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("no credential for user %s", userID)
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SetLockout records the lockout deadline.
func (s *Store) SetLockout(ctx context.Context, userID string, until time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE admin_credentials SET locked_until = ? WHERE user_id = ?", until.Unix(), userID)
	return err
}

// ClearLockout zeroes the counter and the deadline together.
func (s *Store) ClearLockout(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE admin_credentials SET failed_attempts = 0, locked_until = 0 WHERE user_id = ?", userID)
	return err
}

type twoFactorRow struct {
	UserID     string `db:"user_id"`
	Secret     string `db:"secret"`
	Enabled    bool   `db:"enabled"`
	LastUsedAt int64  `db:"last_used_at"`
}

// GetTwoFactor loads the record and its remaining backup-code hashes.
func (s *Store) GetTwoFactor(ctx context.Context, userID string) (*adminauth.TwoFactorRecord, error) {
	var row twoFactorRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM two_factor WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record := &adminauth.TwoFactorRecord{
		UserID:  row.UserID,
		Secret:  row.Secret,
		Enabled: row.Enabled,
	}
	if row.LastUsedAt > 0 {
		t := time.Unix(row.LastUsedAt, 0)
		record.LastUsedAt = &t
	}

	var hashes []string
	if err := s.db.SelectContext(ctx, &hashes,
		"SELECT code_hash FROM backup_codes WHERE user_id = ? ORDER BY code_hash", userID); err != nil {
		return nil, err
	}
	for _, encoded := range hashes {
		raw, err := hex.DecodeString(encoded)
		if err != nil || len(raw) != 32 {
			continue
		}
		var h [32]byte
		copy(h[:], raw)
		record.BackupCodeHashes = append(record.BackupCodeHashes, h)
	}
	return record, nil
}

// PutTwoFactor replaces the record and its code set in one transaction.
func (s *Store) PutTwoFactor(ctx context.Context, record *adminauth.TwoFactorRecord) error {
	lastUsed := int64(0)
	if record.LastUsedAt != nil {
		lastUsed = record.LastUsedAt.Unix()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO two_factor (user_id, secret, enabled, last_used_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			secret = excluded.secret,
			enabled = excluded.enabled,
			last_used_at = excluded.last_used_at`,
		record.UserID, record.Secret, record.Enabled, lastUsed); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM backup_codes WHERE user_id = ?", record.UserID); err != nil {
		return err
	}
	for _, h := range record.BackupCodeHashes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO backup_codes (user_id, code_hash) VALUES (?, ?)",
			record.UserID, hex.EncodeToString(h[:])); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteTwoFactor removes the record; backup codes go with it via the
// foreign key cascade.
func (s *Store) DeleteTwoFactor(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM two_factor WHERE user_id = ?", userID)
	return err
}

// ConsumeBackupCode deletes the code row; RowsAffected == 1 is the
// exactly-once success determination.
func (s *Store) ConsumeBackupCode(ctx context.Context, userID string, codeHash [32]byte) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM backup_codes WHERE user_id = ? AND code_hash = ?",
		userID, hex.EncodeToString(codeHash[:]))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// MarkTwoFactorUsed records the last successful verification time.
func (s *Store) MarkTwoFactorUsed(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE two_factor SET last_used_at = ? WHERE user_id = ?", at.Unix(), userID)
	return err
}

type sessionRow struct {
	Token     string `db:"token"`
	UserID    string `db:"user_id"`
	IPAddress string `db:"ip_address"`
	UserAgent string `db:"user_agent"`
	IssuedAt  int64  `db:"issued_at"`
	ExpiresAt int64  `db:"expires_at"`
	IsActive  bool   `db:"is_active"`
}

// PutSession inserts a session row.
func (s *Store) PutSession(ctx context.Context, session *adminauth.AdminSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_sessions (token, user_id, ip_address, user_agent, issued_at, expires_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.Token, session.UserID, session.IPAddress, session.UserAgent,
		session.IssuedAt.Unix(), session.ExpiresAt.Unix(), session.IsActive)
	return err
}

// GetSession returns the row for token, or nil when absent.
func (s *Store) GetSession(ctx context.Context, token string) (*adminauth.AdminSession, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM admin_sessions WHERE token = ?", token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &adminauth.AdminSession{
		Token:     row.Token,
		UserID:    row.UserID,
		IPAddress: row.IPAddress,
		UserAgent: row.UserAgent,
		IssuedAt:  time.Unix(row.IssuedAt, 0),
		ExpiresAt: time.Unix(row.ExpiresAt, 0),
		IsActive:  row.IsActive,
	}, nil
}

// DeactivateSession clears is_active. Unknown tokens are a no-op.
func (s *Store) DeactivateSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE admin_sessions SET is_active = 0 WHERE token = ?", token)
	return err
}

// DeleteExpiredSessions removes rows whose expiry is at or before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM admin_sessions WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// AppendAuditEvent inserts one event row; details is stored as JSON.
func (s *Store) AppendAuditEvent(ctx context.Context, event adminauth.AuditEvent) error {
	details := "{}"
	if len(event.Details) > 0 {
		data, err := json.Marshal(event.Details)
		if err != nil {
			return err
		}
		details = string(data)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor_id, action, details, ip, ts)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.ActorID, event.Action, details, event.IP,
		event.TS.UTC().Format(time.RFC3339))
	return err
}

// AuditEvents returns up to limit most recent events, oldest first.
func (s *Store) AuditEvents(ctx context.Context, limit int) ([]adminauth.AuditEvent, error) {
	type auditRow struct {
		ID      string `db:"id"`
		ActorID string `db:"actor_id"`
		Action  string `db:"action"`
		Details string `db:"details"`
		IP      string `db:"ip"`
		TS      string `db:"ts"`
	}
	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, actor_id, action, details, ip, ts FROM (
			SELECT * FROM audit_events ORDER BY rowid DESC LIMIT ?
		) ORDER BY rowid ASC`, limit); err != nil {
		return nil, err
	}

	out := make([]adminauth.AuditEvent, 0, len(rows))
	for _, row := range rows {
		event := adminauth.AuditEvent{
			ID:      row.ID,
			ActorID: row.ActorID,
			Action:  row.Action,
			IP:      row.IP,
		}
		if ts, err := time.Parse(time.RFC3339, row.TS); err == nil {
			event.TS = adminauth.EventTime{Time: ts}
		}
		if row.Details != "" && row.Details != "{}" {
			_ = json.Unmarshal([]byte(row.Details), &event.Details)
		}
		out = append(out, event)
	}
	return out, nil
}

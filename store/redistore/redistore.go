// Package redistore implements adminauth.CredentialStore on Redis.
//
// The two linearizable operations ride on single Redis commands: the
// failed-attempt counter is an HINCRBY and backup-code consumption is an
// SREM, so correctness holds across processes without client-side
// locking. Session rows expire naturally through key TTLs, making the
// engine's purge sweep mostly a no-op on this backend.
package redistore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hallgate/adminauth"
)

// Key layout, all under one prefix:
//
//	<p>:email:<email>     -> userID
//	<p>:cred:<id>         hash: email, password_hash, is_admin, is_super, failed_attempts, locked_until
//	<p>:2fa:<id>          hash: secret, enabled, last_used_at
//	<p>:2fa:codes:<id>    set of hex code hashes
//	<p>:sess:<token>      hash: user_id, ip, user_agent, issued_at, expires_at, is_active
//	<p>:audit             list of JSON events
const defaultPrefix = "adminauth"

// deactivate flips is_active only when the session key still exists, so
// revoking an expired token cannot resurrect the key without its TTL.
var deactivateScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("HSET", KEYS[1], "is_active", "0")
  return 1
end
return 0
`)

// Store implements adminauth.CredentialStore on a Redis client.
type Store struct {
	client *redis.Client
	prefix string
}

// New returns a store over client. prefix namespaces every key; pass ""
// for the default.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) emailKey(email string) string   { return s.prefix + ":email:" + email }
func (s *Store) credKey(id string) string       { return s.prefix + ":cred:" + id }
func (s *Store) twoFactorKey(id string) string  { return s.prefix + ":2fa:" + id }
func (s *Store) backupKey(id string) string     { return s.prefix + ":2fa:codes:" + id }
func (s *Store) sessionKey(tok string) string   { return s.prefix + ":sess:" + tok }
func (s *Store) auditKey() string               { return s.prefix + ":audit" }

// PutCredential writes an account record and its email index entry.
// Provisioning helper; not part of the CredentialStore contract.
func (s *Store) PutCredential(ctx context.Context, cred *adminauth.AdminCredential) error {
	lockedUntil := int64(0)
	if cred.LockedUntil != nil {
		lockedUntil = cred.LockedUntil.Unix()
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.credKey(cred.UserID), map[string]any{
		"email":           cred.Email,
		"password_hash":   cred.PasswordHash,
		"is_admin":        boolField(cred.IsAdmin),
		"is_super":        boolField(cred.IsSuperAdmin),
		"failed_attempts": int64(cred.FailedAttempts),
		"locked_until":    lockedUntil,
	})
	pipe.Set(ctx, s.emailKey(cred.Email), cred.UserID, 0)
	_, err := pipe.Exec(ctx)
	return err
}

// GetCredentialByEmail resolves the email index, then loads the record.
func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (*adminauth.AdminCredential, error) {
	userID, err := s.client.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return s.GetCredentialByID(ctx, userID)
}

// GetCredentialByID loads one account record, or nil when absent.
func (s *Store) GetCredentialByID(ctx context.Context, userID string) (*adminauth.AdminCredential, error) {
	fields, err := s.client.HGetAll(ctx, s.credKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	cred := &adminauth.AdminCredential{
		UserID:       userID,
		Email:        fields["email"],
		PasswordHash: fields["password_hash"],
		IsAdmin:      fields["is_admin"] == "1",
		IsSuperAdmin: fields["is_super"] == "1",
	}
	if v, err := strconv.ParseUint(fields["failed_attempts"], 10, 32); err == nil {
		cred.FailedAttempts = uint32(v)
	}
	if v, err := strconv.ParseInt(fields["locked_until"], 10, 64); err == nil && v > 0 {
		t := time.Unix(v, 0)
		cred.LockedUntil = &t
	}
	return cred, nil
}

// IncrementFailedAttempts is a single HINCRBY; Redis serializes it.
func (s *Store) IncrementFailedAttempts(ctx context.Context, userID string) (uint32, error) {
	count, err := s.client.HIncrBy(ctx, s.credKey(userID), "failed_attempts", 1).Result()
	if err != nil {
		return 0, err
	}
	return uint32(count), nil
}

// SetLockout records the lockout deadline as a unix timestamp field.
func (s *Store) SetLockout(ctx context.Context, userID string, until time.Time) error {
	return s.client.HSet(ctx, s.credKey(userID), "locked_until", until.Unix()).Err()
}

// ClearLockout zeroes both lockout fields in one HSET.
func (s *Store) ClearLockout(ctx context.Context, userID string) error {
	return s.client.HSet(ctx, s.credKey(userID), "failed_attempts", 0, "locked_until", 0).Err()
}

// GetTwoFactor loads the record plus the current backup-code set.
func (s *Store) GetTwoFactor(ctx context.Context, userID string) (*adminauth.TwoFactorRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.twoFactorKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	record := &adminauth.TwoFactorRecord{
		UserID:  userID,
		Secret:  fields["secret"],
		Enabled: fields["enabled"] == "1",
	}
	if v, err := strconv.ParseInt(fields["last_used_at"], 10, 64); err == nil && v > 0 {
		t := time.Unix(v, 0)
		record.LastUsedAt = &t
	}

	members, err := s.client.SMembers(ctx, s.backupKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		raw, err := hex.DecodeString(member)
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

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.twoFactorKey(record.UserID), map[string]any{
		"secret":       record.Secret,
		"enabled":      boolField(record.Enabled),
		"last_used_at": lastUsed,
	})
	pipe.Del(ctx, s.backupKey(record.UserID))
	if len(record.BackupCodeHashes) > 0 {
		members := make([]any, 0, len(record.BackupCodeHashes))
		for _, h := range record.BackupCodeHashes {
			members = append(members, hex.EncodeToString(h[:]))
		}
		pipe.SAdd(ctx, s.backupKey(record.UserID), members...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteTwoFactor removes the record and remaining codes.
func (s *Store) DeleteTwoFactor(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.twoFactorKey(userID), s.backupKey(userID)).Err()
}

// ConsumeBackupCode is a single SREM: the removal count is the success
// determination, so concurrent submissions of one code yield one true.
func (s *Store) ConsumeBackupCode(ctx context.Context, userID string, codeHash [32]byte) (bool, error) {
	removed, err := s.client.SRem(ctx, s.backupKey(userID), hex.EncodeToString(codeHash[:])).Result()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}

// MarkTwoFactorUsed records the last successful verification time.
func (s *Store) MarkTwoFactorUsed(ctx context.Context, userID string, at time.Time) error {
	return s.client.HSet(ctx, s.twoFactorKey(userID), "last_used_at", at.Unix()).Err()
}

// PutSession writes the row and lets the key TTL track expiry.
func (s *Store) PutSession(ctx context.Context, session *adminauth.AdminSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	key := s.sessionKey(session.Token)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    session.UserID,
		"ip":         session.IPAddress,
		"user_agent": session.UserAgent,
		"issued_at":  session.IssuedAt.Unix(),
		"expires_at": session.ExpiresAt.Unix(),
		"is_active":  boolField(session.IsActive),
	})
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// GetSession loads one session row, or nil when absent or TTL-expired.
func (s *Store) GetSession(ctx context.Context, token string) (*adminauth.AdminSession, error) {
	fields, err := s.client.HGetAll(ctx, s.sessionKey(token)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	sess := &adminauth.AdminSession{
		Token:     token,
		UserID:    fields["user_id"],
		IPAddress: fields["ip"],
		UserAgent: fields["user_agent"],
		IsActive:  fields["is_active"] == "1",
	}
	if v, err := strconv.ParseInt(fields["issued_at"], 10, 64); err == nil {
		sess.IssuedAt = time.Unix(v, 0)
	}
	if v, err := strconv.ParseInt(fields["expires_at"], 10, 64); err == nil {
		sess.ExpiresAt = time.Unix(v, 0)
	}
	return sess, nil
}

// DeactivateSession clears is_active if the key exists. Idempotent.
func (s *Store) DeactivateSession(ctx context.Context, token string) error {
	return deactivateScript.Run(ctx, s.client, []string{s.sessionKey(token)}).Err()
}

// DeleteExpiredSessions is a no-op on Redis: key TTLs already reap
// expired rows.
func (s *Store) DeleteExpiredSessions(context.Context, time.Time) (int, error) {
	return 0, nil
}

// AppendAuditEvent pushes the JSON-encoded event onto the audit list.
func (s *Store) AppendAuditEvent(ctx context.Context, event adminauth.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.auditKey(), data).Err()
}

// AuditEvents returns up to limit most recent events, oldest first.
func (s *Store) AuditEvents(ctx context.Context, limit int64) ([]adminauth.AuditEvent, error) {
	raw, err := s.client.LRange(ctx, s.auditKey(), -limit, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]adminauth.AuditEvent, 0, len(raw))
	for _, item := range raw {
		var event adminauth.AuditEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

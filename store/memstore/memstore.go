// Package memstore is an in-memory CredentialStore for tests, examples,
// and single-process deployments. Linearizable per-account operations
// are serialized with a per-account mutex; cross-process deployments
// need redistore or sqlstore instead.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/hallgate/adminauth"
)

// Store implements adminauth.CredentialStore in process memory.
type Store struct {
	mu        sync.RWMutex
	byID      map[string]*adminauth.AdminCredential
	byEmail   map[string]string // email -> userID
	twoFactor map[string]*twoFactorState
	sessions  map[string]*adminauth.AdminSession
	audit     []adminauth.AuditEvent

	accountMu sync.Mutex
	accounts  map[string]*sync.Mutex
}

type twoFactorState struct {
	record adminauth.TwoFactorRecord
	codes  map[[32]byte]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:      make(map[string]*adminauth.AdminCredential),
		byEmail:   make(map[string]string),
		twoFactor: make(map[string]*twoFactorState),
		sessions:  make(map[string]*adminauth.AdminSession),
		accounts:  make(map[string]*sync.Mutex),
	}
}

// accountLock returns the mutex serializing one account's counter and
// backup-code mutations.
func (s *Store) accountLock(userID string) *sync.Mutex {
	s.accountMu.Lock()
	defer s.accountMu.Unlock()
	m, ok := s.accounts[userID]
	if !ok {
		m = &sync.Mutex{}
		s.accounts[userID] = m
	}
	return m
}

// PutCredential inserts or replaces an account record. Provisioning
// helper; not part of the CredentialStore contract.
func (s *Store) PutCredential(cred *adminauth.AdminCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cloneCred(cred)
	s.byID[c.UserID] = c
	s.byEmail[c.Email] = c.UserID
}

// GetCredentialByEmail returns the account for email, or nil.
func (s *Store) GetCredentialByEmail(_ context.Context, email string) (*adminauth.AdminCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	return cloneCred(s.byID[id]), nil
}

// GetCredentialByID returns the account for userID, or nil.
func (s *Store) GetCredentialByID(_ context.Context, userID string) (*adminauth.AdminCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCred(s.byID[userID]), nil
}

// IncrementFailedAttempts adds one to the counter under the account
// mutex and returns the new value.
func (s *Store) IncrementFailedAttempts(_ context.Context, userID string) (uint32, error) {
	lock := s.accountLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byID[userID]
	if !ok {
		return 0, nil
	}
	cred.FailedAttempts++
	return cred.FailedAttempts, nil
}

// SetLockout records the lockout deadline.
func (s *Store) SetLockout(_ context.Context, userID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred, ok := s.byID[userID]; ok {
		t := until
		cred.LockedUntil = &t
	}
	return nil
}

// ClearLockout zeroes the counter and removes the deadline.
func (s *Store) ClearLockout(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred, ok := s.byID[userID]; ok {
		cred.FailedAttempts = 0
		cred.LockedUntil = nil
	}
	return nil
}

// GetTwoFactor returns the user's two-factor record, or nil.
func (s *Store) GetTwoFactor(_ context.Context, userID string) (*adminauth.TwoFactorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.twoFactor[userID]
	if !ok {
		return nil, nil
	}
	return state.snapshot(), nil
}

// PutTwoFactor replaces the user's two-factor record wholesale.
func (s *Store) PutTwoFactor(_ context.Context, record *adminauth.TwoFactorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := &twoFactorState{
		record: *record,
		codes:  make(map[[32]byte]struct{}, len(record.BackupCodeHashes)),
	}
	state.record.BackupCodeHashes = nil
	for _, h := range record.BackupCodeHashes {
		state.codes[h] = struct{}{}
	}
	s.twoFactor[record.UserID] = state
	return nil
}

// DeleteTwoFactor removes the user's two-factor record.
func (s *Store) DeleteTwoFactor(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.twoFactor, userID)
	return nil
}

// ConsumeBackupCode removes the hash under the account mutex; the
// membership check and the delete are one critical section, so a code
// is consumed at most once.
func (s *Store) ConsumeBackupCode(_ context.Context, userID string, codeHash [32]byte) (bool, error) {
	lock := s.accountLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.twoFactor[userID]
	if !ok {
		return false, nil
	}
	if _, present := state.codes[codeHash]; !present {
		return false, nil
	}
	delete(state.codes, codeHash)
	return true, nil
}

// MarkTwoFactorUsed records the last successful verification time.
func (s *Store) MarkTwoFactorUsed(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.twoFactor[userID]; ok {
		t := at
		state.record.LastUsedAt = &t
	}
	return nil
}

// PutSession stores the session row keyed by token.
func (s *Store) PutSession(_ context.Context, session *adminauth.AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.Token] = &copied
	return nil
}

// GetSession returns the session for token, or nil.
func (s *Store) GetSession(_ context.Context, token string) (*adminauth.AdminSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	copied := *sess
	return &copied, nil
}

// DeactivateSession clears IsActive. Idempotent.
func (s *Store) DeactivateSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.IsActive = false
	}
	return nil
}

// DeleteExpiredSessions drops rows that expired before the given time.
func (s *Store) DeleteExpiredSessions(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, sess := range s.sessions {
		if sess.ExpiresAt.Before(before) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// AppendAuditEvent appends to the in-memory audit log.
func (s *Store) AppendAuditEvent(_ context.Context, event adminauth.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, event)
	return nil
}

// AuditEvents returns a copy of the audit log, oldest first.
func (s *Store) AuditEvents() []adminauth.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]adminauth.AuditEvent, len(s.audit))
	copy(out, s.audit)
	return out
}

func (t *twoFactorState) snapshot() *adminauth.TwoFactorRecord {
	out := t.record
	out.BackupCodeHashes = make([][32]byte, 0, len(t.codes))
	for h := range t.codes {
		out.BackupCodeHashes = append(out.BackupCodeHashes, h)
	}
	if t.record.LastUsedAt != nil {
		at := *t.record.LastUsedAt
		out.LastUsedAt = &at
	}
	return &out
}

func cloneCred(c *adminauth.AdminCredential) *adminauth.AdminCredential {
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

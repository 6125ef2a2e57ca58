package adminauth

import (
	"context"
	"encoding/base32"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hallgate/adminauth/password"
)

const (
	testEmail    = "root@example.com"
	testPassword = "correct-horse-battery-staple"
	testUserID   = "admin-1"
)

var testStart = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// testClock is a manually advanced time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testStart}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeStore is an in-memory CredentialStore with per-operation failure
// injection for exercising the transient-error paths.
type fakeStore struct {
	mu        sync.Mutex
	creds     map[string]*AdminCredential
	emails    map[string]string
	twoFactor map[string]*TwoFactorRecord
	codes     map[string]map[[32]byte]struct{}
	sessions  map[string]*AdminSession
	audit     []AuditEvent
	failing   map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		creds:     make(map[string]*AdminCredential),
		emails:    make(map[string]string),
		twoFactor: make(map[string]*TwoFactorRecord),
		codes:     make(map[string]map[[32]byte]struct{}),
		sessions:  make(map[string]*AdminSession),
		failing:   make(map[string]error),
	}
}

// failOn makes every subsequent call to the named operation return err.
func (s *fakeStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[op] = err
}

func (s *fakeStore) failErr(op string) error {
	return s.failing[op]
}

func (s *fakeStore) putCredential(cred *AdminCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.UserID] = cred
	s.emails[cred.Email] = cred.UserID
}

func (s *fakeStore) credential(userID string) *AdminCredential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCredential(s.creds[userID])
}

func (s *fakeStore) auditEvents() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.audit))
	copy(out, s.audit)
	return out
}

func (s *fakeStore) GetCredentialByEmail(_ context.Context, email string) (*AdminCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("GetCredentialByEmail"); err != nil {
		return nil, err
	}
	id, ok := s.emails[email]
	if !ok {
		return nil, nil
	}
	return cloneCredential(s.creds[id]), nil
}

func (s *fakeStore) GetCredentialByID(_ context.Context, userID string) (*AdminCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("GetCredentialByID"); err != nil {
		return nil, err
	}
	return cloneCredential(s.creds[userID]), nil
}

func (s *fakeStore) IncrementFailedAttempts(_ context.Context, userID string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("IncrementFailedAttempts"); err != nil {
		return 0, err
	}
	cred := s.creds[userID]
	cred.FailedAttempts++
	return cred.FailedAttempts, nil
}

func (s *fakeStore) SetLockout(_ context.Context, userID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("SetLockout"); err != nil {
		return err
	}
	t := until
	s.creds[userID].LockedUntil = &t
	return nil
}

func (s *fakeStore) ClearLockout(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("ClearLockout"); err != nil {
		return err
	}
	cred := s.creds[userID]
	cred.FailedAttempts = 0
	cred.LockedUntil = nil
	return nil
}

func (s *fakeStore) GetTwoFactor(_ context.Context, userID string) (*TwoFactorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("GetTwoFactor"); err != nil {
		return nil, err
	}
	record, ok := s.twoFactor[userID]
	if !ok {
		return nil, nil
	}
	out := *record
	out.BackupCodeHashes = nil
	for hash := range s.codes[userID] {
		out.BackupCodeHashes = append(out.BackupCodeHashes, hash)
	}
	return &out, nil
}

func (s *fakeStore) PutTwoFactor(_ context.Context, record *TwoFactorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("PutTwoFactor"); err != nil {
		return err
	}
	stored := *record
	s.twoFactor[record.UserID] = &stored
	set := make(map[[32]byte]struct{}, len(record.BackupCodeHashes))
	for _, hash := range record.BackupCodeHashes {
		set[hash] = struct{}{}
	}
	s.codes[record.UserID] = set
	return nil
}

func (s *fakeStore) DeleteTwoFactor(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("DeleteTwoFactor"); err != nil {
		return err
	}
	delete(s.twoFactor, userID)
	delete(s.codes, userID)
	return nil
}

func (s *fakeStore) ConsumeBackupCode(_ context.Context, userID string, codeHash [32]byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("ConsumeBackupCode"); err != nil {
		return false, err
	}
	set := s.codes[userID]
	if _, ok := set[codeHash]; !ok {
		return false, nil
	}
	delete(set, codeHash)
	return true, nil
}

func (s *fakeStore) MarkTwoFactorUsed(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.twoFactor[userID]; ok {
		t := at
		record.LastUsedAt = &t
	}
	return nil
}

func (s *fakeStore) PutSession(_ context.Context, session *AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("PutSession"); err != nil {
		return err
	}
	stored := *session
	s.sessions[session.Token] = &stored
	return nil
}

func (s *fakeStore) GetSession(_ context.Context, token string) (*AdminSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("GetSession"); err != nil {
		return nil, err
	}
	sess, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	out := *sess
	return &out, nil
}

func (s *fakeStore) DeactivateSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("DeactivateSession"); err != nil {
		return err
	}
	if sess, ok := s.sessions[token]; ok {
		sess.IsActive = false
	}
	return nil
}

func (s *fakeStore) DeleteExpiredSessions(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("DeleteExpiredSessions"); err != nil {
		return 0, err
	}
	removed := 0
	for token, sess := range s.sessions {
		if !sess.ExpiresAt.After(before) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (s *fakeStore) AppendAuditEvent(_ context.Context, event AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failErr("AppendAuditEvent"); err != nil {
		return err
	}
	s.audit = append(s.audit, event)
	return nil
}

// testConfig is the default configuration with Argon2 costs at the
// hardening floor so the suite stays fast.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	return cfg
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) (*Engine, *fakeStore, *testClock) {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	store := newFakeStore()
	clock := newTestClock()
	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	hash, err := engine.passwordHash.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash test password: %v", err)
	}
	store.putCredential(&AdminCredential{
		UserID:       testUserID,
		Email:        testEmail,
		PasswordHash: hash,
		IsAdmin:      true,
	})

	return engine, store, clock
}

// totpCodeAt computes the valid TOTP code for the secret at the given
// time under cfg.
func totpCodeAt(t *testing.T, cfg TOTPConfig, secretBase32 string, at time.Time) string {
	t.Helper()
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secretBase32))
	if err != nil {
		t.Fatalf("decode totp secret: %v", err)
	}
	code, err := hotpCode(secret, at.Unix()/int64(cfg.Period), cfg.Digits, cfg.Algorithm)
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	return code
}

// enrollTwoFactor walks the full setup-then-confirm flow and returns the
// resulting setup material.
func enrollTwoFactor(t *testing.T, engine *Engine, clock *testClock) *TwoFactorSetup {
	t.Helper()
	ctx := context.Background()

	setup, err := engine.SetupTwoFactor(ctx, testUserID)
	if err != nil {
		t.Fatalf("SetupTwoFactor: %v", err)
	}
	code := totpCodeAt(t, engine.config.TOTP, setup.Secret, clock.Now())
	if err := engine.EnableTwoFactor(ctx, testUserID, code); err != nil {
		t.Fatalf("EnableTwoFactor: %v", err)
	}
	return setup
}

func loginRequest() LoginRequest {
	return LoginRequest{
		Email:     testEmail,
		Password:  testPassword,
		IP:        "203.0.113.7",
		UserAgent: "adminauth-test/1.0",
	}
}

package adminauth

import (
	"context"
	"time"

	"github.com/hallgate/adminauth/internal"
)

// sessionManager issues, validates, and revokes opaque session tokens.
// Tokens carry no encoded state; validity is decided entirely from the
// stored row and the current time.
type sessionManager struct {
	cfg   SessionConfig
	store CredentialStore
}

func newSessionManager(cfg SessionConfig, store CredentialStore) *sessionManager {
	return &sessionManager{cfg: cfg, store: store}
}

// Create issues a fresh session for userID. The token is cfg.TokenBytes
// of crypto/rand output rendered as hex.
func (m *sessionManager) Create(ctx context.Context, userID, ip, userAgent string, now time.Time) (*AdminSession, error) {
	token, err := internal.NewSessionToken(m.cfg.TokenBytes)
	if err != nil {
		return nil, err
	}

	sess := &AdminSession{
		Token:     token,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.cfg.TTL),
		IsActive:  true,
	}
	if err := m.store.PutSession(ctx, sess); err != nil {
		return nil, storeErr(err)
	}
	return sess, nil
}

// Validate fetches the session row and checks it against now. Expiry is
// never extended here: no sliding sessions. Revoked and absent sessions
// are indistinguishable to the caller.
func (m *sessionManager) Validate(ctx context.Context, token string, now time.Time) (*AdminSession, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := m.store.GetSession(ctx, token)
	if err != nil {
		return nil, storeErr(err)
	}
	if sess == nil || !sess.IsActive {
		return nil, ErrSessionNotFound
	}
	if !now.Before(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Revoke deactivates the session. Idempotent: revoking an unknown or
// already-revoked token is not an error.
func (m *sessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.DeactivateSession(ctx, token); err != nil {
		return storeErr(err)
	}
	return nil
}

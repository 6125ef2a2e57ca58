package adminauth

import (
	"context"
	"time"
)

// lockoutPolicy enforces the brute-force lockout over the store's atomic
// counter. All linearization happens in the store: RecordFailure is one
// atomic increment (plus a lockout write when the threshold trips), so
// two parallel failures cannot both observe a pre-threshold count and
// neither trip the lockout.
type lockoutPolicy struct {
	cfg   LockoutConfig
	store CredentialStore
}

func newLockoutPolicy(cfg LockoutConfig, store CredentialStore) *lockoutPolicy {
	return &lockoutPolicy{cfg: cfg, store: store}
}

// Check returns a LockoutError when a lockout window is active at now.
// It consumes no attempt.
func (p *lockoutPolicy) Check(cred *AdminCredential, now time.Time) error {
	if cred == nil || cred.LockedUntil == nil {
		return nil
	}
	if now.Before(*cred.LockedUntil) {
		return &LockoutError{Until: *cred.LockedUntil}
	}
	return nil
}

// RecordFailure counts one genuine wrong-credential or wrong-2FA attempt.
// When the post-increment count reaches the threshold a new lockout
// window starts. The counter is deliberately NOT reset here — only a
// fully successful authentication resets it — so windows compound while
// the attacker keeps probing.
func (p *lockoutPolicy) RecordFailure(ctx context.Context, userID string, now time.Time) error {
	count, err := p.store.IncrementFailedAttempts(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if count >= p.cfg.MaxFailedAttempts {
		if err := p.store.SetLockout(ctx, userID, now.Add(p.cfg.LockoutDuration)); err != nil {
			return storeErr(err)
		}
	}
	return nil
}

// Reset clears the counter and any lockout timestamp. Called only on
// full success.
func (p *lockoutPolicy) Reset(ctx context.Context, userID string) error {
	if err := p.store.ClearLockout(ctx, userID); err != nil {
		return storeErr(err)
	}
	return nil
}

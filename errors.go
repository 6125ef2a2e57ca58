package adminauth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned for a wrong password and for an
	// unknown or non-admin account alike, so callers cannot enumerate
	// accounts from the failure mode.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout window is active.
	// Authenticate wraps it in a [LockoutError] carrying the remaining
	// duration, which is safe to disclose.
	ErrAccountLocked = errors.New("account locked")
	// ErrTwoFactorRequired means the password was accepted but a TOTP or
	// backup code is still needed. It does not consume a lockout attempt.
	ErrTwoFactorRequired = errors.New("two-factor code required")
	// ErrInvalidTwoFactor means the supplied TOTP or backup code was
	// rejected. It counts toward lockout: the caller already holds a
	// valid password and must not get unlimited second-factor guesses.
	ErrInvalidTwoFactor = errors.New("invalid two-factor code")
	// ErrTwoFactorNotConfigured is returned by EnableTwoFactor and
	// DisableTwoFactor when no secret exists for the user.
	ErrTwoFactorNotConfigured = errors.New("two-factor not configured")
	// ErrTwoFactorAlreadyEnabled is returned by SetupTwoFactor when an
	// enabled secret exists; enabling state is never silently replaced.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	// ErrSessionNotFound covers absent and revoked sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is distinguished from ErrSessionNotFound for
	// audit and debugging only; callers treat both as re-authenticate.
	ErrSessionExpired = errors.New("session expired")
	// ErrStoreUnavailable wraps transient storage failures. It is never
	// converted into an authentication rejection and never changes the
	// lockout counter.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrUserNotFound is returned by two-factor management operations
	// addressed to an unknown user ID.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// nil or incompletely built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// LockoutError reports an active lockout together with when it ends.
// It matches ErrAccountLocked under errors.Is.
type LockoutError struct {
	Until time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockoutError) Unwrap() error { return ErrAccountLocked }

// Remaining returns the lockout time left at now, never negative.
func (e *LockoutError) Remaining(now time.Time) time.Duration {
	if d := e.Until.Sub(now); d > 0 {
		return d
	}
	return 0
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

package adminauth

import (
	"context"

	"github.com/hallgate/adminauth/internal"
	"github.com/hallgate/adminauth/internal/metrics"
)

// Authentication method recorded in the admin_login audit event.
const (
	loginMethodPassword   = "password"
	loginMethodTOTP       = "totp"
	loginMethodBackupCode = "backup_code"
)

// Authenticate runs the full login state machine and returns an issued
// session on success.
//
// Failure modes, in evaluation order:
//
//   - unknown email or an account without admin privilege:
//     [ErrInvalidCredentials] — the same error as a wrong password, so
//     account existence does not leak;
//   - active lockout window: a [*LockoutError] matching
//     [ErrAccountLocked], carrying the remaining duration; no attempt
//     is consumed;
//   - wrong password: [ErrInvalidCredentials], one attempt consumed;
//   - two-factor enabled but no code supplied: [ErrTwoFactorRequired];
//     the caller re-prompts, no attempt is consumed — the 2FA prompt
//     itself must not be usable as a lockout-triggering oracle;
//   - wrong TOTP or backup code: [ErrInvalidTwoFactor], one attempt
//     consumed — the caller already holds a valid password and does not
//     get unlimited second-factor guesses;
//   - storage failure at any step: an error matching
//     [ErrStoreUnavailable]; never converted into a rejection and never
//     counted against the lockout threshold.
func (e *Engine) Authenticate(ctx context.Context, req LoginRequest) (*AdminSession, error) {
	if e == nil || e.store == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	now := e.now()

	cred, err := e.store.GetCredentialByEmail(ctx, req.Email)
	if err != nil {
		return nil, e.storeFail(err)
	}
	if !cred.HasAdminPrivilege() {
		e.metricInc(metrics.MetricLoginFailure)
		e.emitAudit(ctx, auditActionLoginFailure, "", req.IP, ErrInvalidCredentials, func() map[string]any {
			return map[string]any{"email": req.Email}
		})
		return nil, ErrInvalidCredentials
	}

	if lockErr := e.lockout.Check(cred, now); lockErr != nil {
		e.metricInc(metrics.MetricLoginLocked)
		e.emitAudit(ctx, auditActionLoginLocked, cred.UserID, req.IP, lockErr, func() map[string]any {
			return map[string]any{
				"email":             req.Email,
				"remaining_seconds": lockoutRemainingSeconds(*cred.LockedUntil, now),
			}
		})
		return nil, lockErr
	}

	ok, err := e.passwordHash.Verify(req.Password, cred.PasswordHash)
	if err != nil || !ok {
		if recErr := e.lockout.RecordFailure(ctx, cred.UserID, now); recErr != nil {
			return nil, e.countStoreErr(recErr)
		}
		e.metricInc(metrics.MetricLoginFailure)
		e.emitAudit(ctx, auditActionLoginFailure, cred.UserID, req.IP, ErrInvalidCredentials, func() map[string]any {
			return map[string]any{"email": req.Email}
		})
		return nil, ErrInvalidCredentials
	}

	method := loginMethodPassword
	record, err := e.store.GetTwoFactor(ctx, cred.UserID)
	if err != nil {
		return nil, e.storeFail(err)
	}
	if record != nil && record.Enabled {
		if req.TOTPCode == "" && req.BackupCode == "" {
			e.metricInc(metrics.MetricTwoFactorRequired)
			e.emitAudit(ctx, auditActionTwoFactorRequired, cred.UserID, req.IP, nil, nil)
			return nil, ErrTwoFactorRequired
		}

		method, err = e.verifySecondFactor(ctx, cred.UserID, record, req.TOTPCode, req.BackupCode)
		if err != nil {
			if recErr := e.lockout.RecordFailure(ctx, cred.UserID, now); recErr != nil {
				return nil, e.countStoreErr(recErr)
			}
			e.metricInc(metrics.MetricTwoFactorFailure)
			e.emitAudit(ctx, auditActionLoginFailure, cred.UserID, req.IP, err, func() map[string]any {
				return map[string]any{"email": req.Email}
			})
			return nil, err
		}
		e.metricInc(metrics.MetricTwoFactorSuccess)
	}

	if err := e.lockout.Reset(ctx, cred.UserID); err != nil {
		return nil, e.countStoreErr(err)
	}
	sess, err := e.sessions.Create(ctx, cred.UserID, req.IP, req.UserAgent, now)
	if err != nil {
		return nil, e.countStoreErr(err)
	}

	e.metricInc(metrics.MetricSessionCreated)
	e.metricInc(metrics.MetricLoginSuccess)
	e.emitAudit(ctx, auditActionLogin, cred.UserID, req.IP, nil, func() map[string]any {
		return map[string]any{"method": method}
	})

	return sess, nil
}

// verifySecondFactor tries TOTP first (tolerating clock drift inside the
// configured skew), then falls back to an atomic backup-code consume.
// The consume and the success decision are one store operation, so two
// concurrent requests presenting the same backup code cannot both pass.
//
// It returns the method that matched, ErrInvalidTwoFactor on a mismatch,
// or a transient store error that must not count toward lockout.
func (e *Engine) verifySecondFactor(ctx context.Context, userID string, record *TwoFactorRecord, totpCode, backupCode string) (string, error) {
	now := e.now()

	if totpCode != "" {
		ok, err := e.totp.Verify(record.Secret, totpCode, now)
		if err != nil {
			return "", ErrInvalidTwoFactor
		}
		if ok {
			// Best effort; a missed last-used update is not a failure.
			_ = e.store.MarkTwoFactorUsed(ctx, userID, now)
			return loginMethodTOTP, nil
		}
	}

	if backupCode != "" {
		hash := internal.BackupCodeHash(userID, canonicalBackupCode(backupCode))
		consumed, err := e.store.ConsumeBackupCode(ctx, userID, hash)
		if err != nil {
			return "", e.storeFail(err)
		}
		if consumed {
			e.metricInc(metrics.MetricBackupCodeUsed)
			_ = e.store.MarkTwoFactorUsed(ctx, userID, now)
			return loginMethodBackupCode, nil
		}
	}

	return "", ErrInvalidTwoFactor
}

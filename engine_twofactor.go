package adminauth

import (
	"context"

	"github.com/hallgate/adminauth/internal"
	"github.com/hallgate/adminauth/internal/metrics"
)

// SetupTwoFactor provisions a new pending TOTP secret and a fresh set of
// backup codes for the user, persisted disabled. A pending (unconfirmed)
// secret is silently replaced; an already-enabled secret is not —
// weakening an enabled second factor requires [Engine.DisableTwoFactor]
// with the account password.
//
// The plaintext backup codes appear in the returned setup exactly once.
func (e *Engine) SetupTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUserNotFound
	}

	cred, err := e.store.GetCredentialByID(ctx, userID)
	if err != nil {
		return nil, e.storeFail(err)
	}
	if !cred.HasAdminPrivilege() {
		return nil, ErrUserNotFound
	}

	existing, err := e.store.GetTwoFactor(ctx, userID)
	if err != nil {
		return nil, e.storeFail(err)
	}
	if existing != nil && existing.Enabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	secret, err := internal.NewTOTPSecret(e.config.TOTP.SecretBytes)
	if err != nil {
		return nil, err
	}
	codes, hashes, err := newBackupCodes(userID, e.config.TOTP.BackupCodeCount, e.config.TOTP.BackupCodeLength)
	if err != nil {
		return nil, err
	}

	if err := e.store.PutTwoFactor(ctx, &TwoFactorRecord{
		UserID:           userID,
		Secret:           secret,
		Enabled:          false,
		BackupCodeHashes: hashes,
	}); err != nil {
		return nil, e.storeFail(err)
	}

	e.emitAudit(ctx, auditActionTwoFactorSetup, userID, "", nil, nil)
	account := cred.Email
	if account == "" {
		account = userID
	}
	return &TwoFactorSetup{
		Secret:      secret,
		QRPayload:   e.totp.ProvisionURI(secret, account),
		BackupCodes: codes,
	}, nil
}

// EnableTwoFactor confirms the pending secret with a live TOTP code and
// flips it to enabled. The confirmation step exists so a user cannot
// lock themselves out by saving a secret they transcribed incorrectly.
func (e *Engine) EnableTwoFactor(ctx context.Context, userID, totpCode string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}

	record, err := e.store.GetTwoFactor(ctx, userID)
	if err != nil {
		return e.storeFail(err)
	}
	if record == nil || record.Secret == "" {
		return ErrTwoFactorNotConfigured
	}
	if record.Enabled {
		return nil
	}

	ok, err := e.totp.Verify(record.Secret, totpCode, e.now())
	if err != nil || !ok {
		e.metricInc(metrics.MetricTwoFactorFailure)
		e.emitAudit(ctx, auditActionTwoFactorFailure, userID, "", ErrInvalidTwoFactor, func() map[string]any {
			return map[string]any{"phase": "enable_confirmation"}
		})
		return ErrInvalidTwoFactor
	}

	record.Enabled = true
	if err := e.store.PutTwoFactor(ctx, record); err != nil {
		return e.storeFail(err)
	}

	e.metricInc(metrics.MetricTwoFactorEnabled)
	e.emitAudit(ctx, auditActionTwoFactorEnabled, userID, "", nil, nil)
	return nil
}

// DisableTwoFactor removes the user's second factor. Because disabling
// is a security-downgrading action it demands password re-verification,
// not just an active session.
func (e *Engine) DisableTwoFactor(ctx context.Context, userID, password string) error {
	if e == nil || e.store == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}

	cred, err := e.store.GetCredentialByID(ctx, userID)
	if err != nil {
		return e.storeFail(err)
	}
	if cred == nil {
		return ErrUserNotFound
	}

	ok, err := e.passwordHash.Verify(password, cred.PasswordHash)
	if err != nil || !ok {
		e.emitAudit(ctx, auditActionTwoFactorFailure, userID, "", ErrInvalidCredentials, func() map[string]any {
			return map[string]any{"phase": "disable_two_factor"}
		})
		return ErrInvalidCredentials
	}

	record, err := e.store.GetTwoFactor(ctx, userID)
	if err != nil {
		return e.storeFail(err)
	}
	if record == nil {
		return ErrTwoFactorNotConfigured
	}

	if err := e.store.DeleteTwoFactor(ctx, userID); err != nil {
		return e.storeFail(err)
	}

	e.metricInc(metrics.MetricTwoFactorDisabled)
	e.emitAudit(ctx, auditActionTwoFactorDisabled, userID, "", nil, nil)
	return nil
}

// RegenerateBackupCodes replaces the user's remaining backup codes with
// a fresh set. It requires a live TOTP proof: backup codes are a bypass
// of the TOTP device, so minting new ones must demonstrate possession of
// that device.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, userID, totpCode string) ([]string, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUserNotFound
	}

	record, err := e.store.GetTwoFactor(ctx, userID)
	if err != nil {
		return nil, e.storeFail(err)
	}
	if record == nil || !record.Enabled {
		return nil, ErrTwoFactorNotConfigured
	}

	ok, err := e.totp.Verify(record.Secret, totpCode, e.now())
	if err != nil || !ok {
		e.metricInc(metrics.MetricTwoFactorFailure)
		return nil, ErrInvalidTwoFactor
	}

	codes, hashes, err := newBackupCodes(userID, e.config.TOTP.BackupCodeCount, e.config.TOTP.BackupCodeLength)
	if err != nil {
		return nil, err
	}
	record.BackupCodeHashes = hashes
	if err := e.store.PutTwoFactor(ctx, record); err != nil {
		return nil, e.storeFail(err)
	}

	e.emitAudit(ctx, auditActionBackupCodesReset, userID, "", nil, nil)
	return codes, nil
}

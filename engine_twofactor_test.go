package adminauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSetupTwoFactorProvisionsPendingSecret(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	setup, err := engine.SetupTwoFactor(ctx, testUserID)
	if err != nil {
		t.Fatalf("SetupTwoFactor: %v", err)
	}
	if setup.Secret == "" {
		t.Fatal("empty secret")
	}
	if !strings.HasPrefix(setup.QRPayload, "otpauth://totp/") {
		t.Fatalf("QR payload %q is not an otpauth URI", setup.QRPayload)
	}
	if !strings.Contains(setup.QRPayload, testEmail) {
		t.Fatalf("QR payload %q does not name the account", setup.QRPayload)
	}
	if len(setup.BackupCodes) != 10 {
		t.Fatalf("got %d backup codes, want 10", len(setup.BackupCodes))
	}

	// The secret is persisted but must stay disabled until confirmed.
	record, err := store.GetTwoFactor(ctx, testUserID)
	if err != nil {
		t.Fatalf("GetTwoFactor: %v", err)
	}
	if record.Enabled {
		t.Fatal("secret enabled without confirmation")
	}
	if record.Secret != setup.Secret {
		t.Fatal("stored secret does not match setup")
	}

	// A second setup call replaces the pending secret.
	setup2, err := engine.SetupTwoFactor(ctx, testUserID)
	if err != nil {
		t.Fatalf("second SetupTwoFactor: %v", err)
	}
	if setup2.Secret == setup.Secret {
		t.Fatal("pending secret was not replaced")
	}
}

func TestSetupTwoFactorRefusesWhileEnabled(t *testing.T) {
	engine, _, clock := newTestEngine(t)
	enrollTwoFactor(t, engine, clock)

	if _, err := engine.SetupTwoFactor(context.Background(), testUserID); !errors.Is(err, ErrTwoFactorAlreadyEnabled) {
		t.Fatalf("err = %v, want ErrTwoFactorAlreadyEnabled", err)
	}
}

func TestEnableTwoFactorConfirmation(t *testing.T) {
	engine, store, clock := newTestEngine(t)
	ctx := context.Background()

	// Nothing provisioned yet.
	if err := engine.EnableTwoFactor(ctx, testUserID, "000000"); !errors.Is(err, ErrTwoFactorNotConfigured) {
		t.Fatalf("err = %v, want ErrTwoFactorNotConfigured", err)
	}

	setup, err := engine.SetupTwoFactor(ctx, testUserID)
	if err != nil {
		t.Fatalf("SetupTwoFactor: %v", err)
	}

	// A wrong confirmation code must leave the factor pending.
	if err := engine.EnableTwoFactor(ctx, testUserID, "000000"); !errors.Is(err, ErrInvalidTwoFactor) {
		t.Fatalf("err = %v, want ErrInvalidTwoFactor", err)
	}
	record, _ := store.GetTwoFactor(ctx, testUserID)
	if record.Enabled {
		t.Fatal("factor enabled on failed confirmation")
	}

	code := totpCodeAt(t, engine.config.TOTP, setup.Secret, clock.Now())
	if err := engine.EnableTwoFactor(ctx, testUserID, code); err != nil {
		t.Fatalf("EnableTwoFactor: %v", err)
	}
	record, _ = store.GetTwoFactor(ctx, testUserID)
	if !record.Enabled {
		t.Fatal("factor not enabled after confirmation")
	}

	// Re-confirming an enabled factor is a no-op, even with a bad code.
	if err := engine.EnableTwoFactor(ctx, testUserID, "000000"); err != nil {
		t.Fatalf("re-enable: %v", err)
	}
}

func TestDisableTwoFactorRequiresPassword(t *testing.T) {
	engine, store, clock := newTestEngine(t)
	ctx := context.Background()
	enrollTwoFactor(t, engine, clock)

	if err := engine.DisableTwoFactor(ctx, testUserID, "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if record, _ := store.GetTwoFactor(ctx, testUserID); record == nil || !record.Enabled {
		t.Fatal("factor touched by failed disable")
	}

	if err := engine.DisableTwoFactor(ctx, testUserID, testPassword); err != nil {
		t.Fatalf("DisableTwoFactor: %v", err)
	}
	if record, _ := store.GetTwoFactor(ctx, testUserID); record != nil {
		t.Fatal("record remains after disable")
	}

	// Password logins work again without a second factor.
	if _, err := engine.Authenticate(ctx, loginRequest()); err != nil {
		t.Fatalf("Authenticate after disable: %v", err)
	}
}

func TestDisableTwoFactorWithoutRecord(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if err := engine.DisableTwoFactor(context.Background(), testUserID, testPassword); !errors.Is(err, ErrTwoFactorNotConfigured) {
		t.Fatalf("err = %v, want ErrTwoFactorNotConfigured", err)
	}
}

func TestRegenerateBackupCodes(t *testing.T) {
	engine, _, clock := newTestEngine(t)
	ctx := context.Background()
	setup := enrollTwoFactor(t, engine, clock)

	// Requires possession of the TOTP device, not a backup code.
	if _, err := engine.RegenerateBackupCodes(ctx, testUserID, "000000"); !errors.Is(err, ErrInvalidTwoFactor) {
		t.Fatalf("err = %v, want ErrInvalidTwoFactor", err)
	}

	code := totpCodeAt(t, engine.config.TOTP, setup.Secret, clock.Now())
	fresh, err := engine.RegenerateBackupCodes(ctx, testUserID, code)
	if err != nil {
		t.Fatalf("RegenerateBackupCodes: %v", err)
	}
	if len(fresh) != 10 {
		t.Fatalf("got %d codes, want 10", len(fresh))
	}

	// Old codes are dead; fresh codes work.
	clock.Advance(time.Minute)
	req := loginRequest()
	req.BackupCode = setup.BackupCodes[0]
	if _, err := engine.Authenticate(ctx, req); !errors.Is(err, ErrInvalidTwoFactor) {
		t.Fatalf("old backup code err = %v, want ErrInvalidTwoFactor", err)
	}
	req.BackupCode = fresh[0]
	if _, err := engine.Authenticate(ctx, req); err != nil {
		t.Fatalf("fresh backup code: %v", err)
	}
}

func TestRegenerateBackupCodesRequiresEnabledFactor(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.RegenerateBackupCodes(ctx, testUserID, "000000"); !errors.Is(err, ErrTwoFactorNotConfigured) {
		t.Fatalf("err = %v, want ErrTwoFactorNotConfigured", err)
	}

	// A pending (unconfirmed) secret does not count.
	if _, err := engine.SetupTwoFactor(ctx, testUserID); err != nil {
		t.Fatalf("SetupTwoFactor: %v", err)
	}
	if _, err := engine.RegenerateBackupCodes(ctx, testUserID, "000000"); !errors.Is(err, ErrTwoFactorNotConfigured) {
		t.Fatalf("pending secret err = %v, want ErrTwoFactorNotConfigured", err)
	}
}

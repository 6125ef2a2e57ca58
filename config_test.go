package adminauth

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Lockout.MaxFailedAttempts != 5 {
		t.Errorf("MaxFailedAttempts = %d, want 5", cfg.Lockout.MaxFailedAttempts)
	}
	if cfg.Lockout.LockoutDuration != 15*time.Minute {
		t.Errorf("LockoutDuration = %v, want 15m", cfg.Lockout.LockoutDuration)
	}
	if cfg.TOTP.Digits != 6 || cfg.TOTP.Period != 30 || cfg.TOTP.Skew != 2 {
		t.Errorf("TOTP = %+v, want 6 digits / 30s period / skew 2", cfg.TOTP)
	}
	if cfg.TOTP.Algorithm != "SHA1" {
		t.Errorf("Algorithm = %q, want SHA1", cfg.TOTP.Algorithm)
	}
	if cfg.TOTP.BackupCodeCount != 10 || cfg.TOTP.BackupCodeLength != 8 {
		t.Errorf("backup codes = %d x %d chars, want 10 x 8", cfg.TOTP.BackupCodeCount, cfg.TOTP.BackupCodeLength)
	}
	if cfg.Session.TokenBytes != 64 {
		t.Errorf("TokenBytes = %d, want 64", cfg.Session.TokenBytes)
	}
	if cfg.Session.TTL != 8*time.Hour {
		t.Errorf("TTL = %v, want 8h", cfg.Session.TTL)
	}
	if !cfg.Audit.Enabled || !cfg.Audit.DropIfFull {
		t.Errorf("Audit = %+v, want enabled and non-blocking", cfg.Audit)
	}

	if err := validateConfig(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateConfigRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max attempts", func(c *Config) { c.Lockout.MaxFailedAttempts = 0 }},
		{"zero lockout duration", func(c *Config) { c.Lockout.LockoutDuration = 0 }},
		{"too few totp digits", func(c *Config) { c.TOTP.Digits = 5 }},
		{"too many totp digits", func(c *Config) { c.TOTP.Digits = 11 }},
		{"zero totp period", func(c *Config) { c.TOTP.Period = 0 }},
		{"negative totp skew", func(c *Config) { c.TOTP.Skew = -1 }},
		{"short totp secret", func(c *Config) { c.TOTP.SecretBytes = 16 }},
		{"no backup codes", func(c *Config) { c.TOTP.BackupCodeCount = 0 }},
		{"short backup codes", func(c *Config) { c.TOTP.BackupCodeLength = 6 }},
		{"odd backup code length", func(c *Config) { c.TOTP.BackupCodeLength = 9 }},
		{"weak session tokens", func(c *Config) { c.Session.TokenBytes = 16 }},
		{"zero session ttl", func(c *Config) { c.Session.TTL = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatal("invalid config accepted")
			}
		})
	}
}

func TestBuildRequiresStore(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("built an engine with no store")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithStore(newFakeStore())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("builder reuse accepted")
	}
}

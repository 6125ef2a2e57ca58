package adminauth

import (
	"errors"
	"time"

	"github.com/hallgate/adminauth/password"
)

// Config defines the engine's policy knobs.
//
// Config instances are intended to be populated before [Builder.Build]
// and treated as immutable afterwards.
type Config struct {
	Lockout LockoutConfig
	TOTP    TOTPConfig
	Session SessionConfig
	Audit   AuditConfig
	Metrics MetricsConfig

	// Password holds the Argon2id parameters used when hashing new
	// passwords (provisioning, tooling). Verification accepts any
	// parameters embedded in the stored PHC hash.
	Password password.Config
}

// LockoutConfig controls the brute-force lockout policy.
type LockoutConfig struct {
	// MaxFailedAttempts is the failure count at which a lockout window
	// starts. The counter is not reset when the window starts, so an
	// attacker who keeps probing after the window clears re-locks the
	// account on the very next failure.
	MaxFailedAttempts uint32
	LockoutDuration   time.Duration
}

// TOTPConfig controls TOTP generation and verification plus backup codes.
type TOTPConfig struct {
	Issuer      string
	Digits      int
	Period      int    // seconds per time step
	Skew        int    // accepted steps either side of now
	Algorithm   string // "SHA1" (default), "SHA256", "SHA512"
	SecretBytes int

	BackupCodeCount  int
	BackupCodeLength int // hex characters
}

// SessionConfig controls session token issuance.
type SessionConfig struct {
	// TokenBytes is the entropy of a session token before hex encoding.
	TokenBytes int
	TTL        time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking: when the buffer is full the
	// event is counted as dropped instead of stalling the login path.
	DropIfFull bool
}

// MetricsConfig enables the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration [New] starts from. Callers
// that need overrides should mutate the copy and pass it to
// [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxFailedAttempts: 5,
			LockoutDuration:   15 * time.Minute,
		},
		TOTP: TOTPConfig{
			Issuer:           "adminauth",
			Digits:           6,
			Period:           30,
			Skew:             2,
			Algorithm:        "SHA1",
			SecretBytes:      32,
			BackupCodeCount:  10,
			BackupCodeLength: 8,
		},
		Session: SessionConfig{
			TokenBytes: 64,
			TTL:        8 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Password: password.Config{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.Lockout.MaxFailedAttempts == 0 {
		return errors.New("lockout max failed attempts must be >= 1")
	}
	if cfg.Lockout.LockoutDuration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if cfg.TOTP.Digits < 6 || cfg.TOTP.Digits > 10 {
		return errors.New("totp digits must be in [6,10]")
	}
	if cfg.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if cfg.TOTP.Skew < 0 {
		return errors.New("totp skew must be >= 0")
	}
	if cfg.TOTP.SecretBytes < 20 {
		return errors.New("totp secret must be >= 20 bytes")
	}
	if cfg.TOTP.BackupCodeCount < 1 {
		return errors.New("backup code count must be >= 1")
	}
	if cfg.TOTP.BackupCodeLength < 8 || cfg.TOTP.BackupCodeLength%2 != 0 {
		return errors.New("backup code length must be an even number >= 8")
	}
	if cfg.Session.TokenBytes < 32 {
		return errors.New("session token entropy must be >= 32 bytes")
	}
	if cfg.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	return nil
}

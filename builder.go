package adminauth

import (
	"errors"
	"time"

	"github.com/hallgate/adminauth/internal/metrics"
	"github.com/hallgate/adminauth/password"
)

// Builder assembles an [Engine]. Construction is allocation-only; no
// I/O happens until the first Engine method call.
type Builder struct {
	config    Config
	store     CredentialStore
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a Builder preloaded with the default configuration:
// 5 failed attempts for a 15-minute lockout, 6-digit SHA1 TOTP with a
// ±2-step window, 10 backup codes of 8 hex characters, and 8-hour
// sessions from 64-byte tokens.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the credential store. Required.
func (b *Builder) WithStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithAuditSink overrides the audit destination. When unset, events are
// appended through the credential store via [StoreSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the engine's time source. Tests use it to cross
// lockout windows, session expiries, and TOTP steps without sleeping.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// Build validates the configuration and assembles the engine. A Builder
// can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("credential store is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	hasher, err := password.New(b.config.Password)
	if err != nil {
		return nil, err
	}

	sink := b.auditSink
	if sink == nil {
		sink = NewStoreSink(b.store)
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	b.built = true
	return &Engine{
		config:       b.config,
		store:        b.store,
		passwordHash: hasher,
		totp:         newTOTPManager(b.config.TOTP),
		lockout:      newLockoutPolicy(b.config.Lockout, b.store),
		sessions:     newSessionManager(b.config.Session, b.store),
		audit:        newAuditDispatcher(b.config.Audit, sink),
		metrics:      metrics.New(metrics.Config{Enabled: b.config.Metrics.Enabled}),
		now:          clock,
	}, nil
}

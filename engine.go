package adminauth

import (
	"errors"
	"time"

	"github.com/hallgate/adminauth/internal/metrics"
	"github.com/hallgate/adminauth/password"
)

// Engine is the subsystem's single entry point. Build one through
// [Builder], share it across goroutines, and Close it on shutdown to
// drain the audit dispatcher.
//
// Engine instances are configured during initialization and treated as
// immutable afterwards.
type Engine struct {
	config       Config
	store        CredentialStore
	passwordHash *password.Hasher
	totp         *totpManager
	lockout      *lockoutPolicy
	sessions     *sessionManager
	audit        *auditDispatcher
	metrics      *metrics.Metrics

	// now is injectable for tests; every policy decision (lockout
	// windows, session expiry, TOTP steps) reads it exactly once.
	now func() time.Time
}

// Close drains and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() metrics.Snapshot {
	if e == nil || e.metrics == nil {
		return metrics.Snapshot{Counters: map[metrics.MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id metrics.MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// storeFail counts a raw storage failure and wraps it so it matches
// [ErrStoreUnavailable].
func (e *Engine) storeFail(err error) error {
	if err == nil {
		return nil
	}
	e.metricInc(metrics.MetricStoreErrors)
	return storeErr(err)
}

// countStoreErr bumps the store-failure counter for errors already
// wrapped by a lower layer; err passes through unchanged.
func (e *Engine) countStoreErr(err error) error {
	if err != nil && errors.Is(err, ErrStoreUnavailable) {
		e.metricInc(metrics.MetricStoreErrors)
	}
	return err
}

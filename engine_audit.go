package adminauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hallgate/adminauth/internal/metrics"
)

const (
	auditActionLogin             = "admin_login"
	auditActionLoginFailure      = "admin_login_failure"
	auditActionLoginLocked       = "admin_login_locked"
	auditActionTwoFactorRequired = "admin_login_2fa_required"
	auditActionLogout            = "admin_logout"
	auditActionSessionRejected   = "admin_session_rejected"
	auditActionTwoFactorSetup    = "admin_2fa_setup"
	auditActionTwoFactorFailure  = "admin_2fa_failure"
	auditActionTwoFactorEnabled  = "admin_2fa_enabled"
	auditActionTwoFactorDisabled = "admin_2fa_disabled"
	auditActionBackupCodesReset  = "admin_2fa_backup_codes_reset"
	auditActionSessionPurge      = "admin_session_purge"
)

// LogAction appends a structured audit record for a privileged action.
// This is the public append operation used by surrounding route handlers
// (moderation, settings changes, and so on); the engine emits its own
// records for every authentication outcome through the same path.
//
// LogAction never blocks on or fails with the audit backend; undeliverable
// events are counted via [Engine.AuditDropped] and, for store sinks,
// surfaced in the process log.
func (e *Engine) LogAction(ctx context.Context, actorID, action string, details map[string]any, ip string) {
	if e == nil || e.audit == nil || action == "" {
		return
	}
	e.metricInc(metrics.MetricAuditAppended)
	e.audit.Emit(ctx, AuditEvent{
		ID:      uuid.NewString(),
		ActorID: actorID,
		Action:  action,
		Details: details,
		IP:      ip,
		TS:      EventTime{e.now().UTC()},
	})
}

// emitAudit is the internal variant used on engine paths: the reason for
// a failure rides in details, and the details map is built lazily so the
// disabled-audit case allocates nothing.
func (e *Engine) emitAudit(ctx context.Context, action, actorID, ip string, err error, detailsBuilder func() map[string]any) {
	if e == nil || e.audit == nil {
		return
	}

	var details map[string]any
	if detailsBuilder != nil {
		details = detailsBuilder()
	}
	if reason := auditReason(err); reason != "" {
		if details == nil {
			details = make(map[string]any, 1)
		}
		details["reason"] = reason
	}

	e.metricInc(metrics.MetricAuditAppended)
	e.audit.Emit(ctx, AuditEvent{
		ID:      uuid.NewString(),
		ActorID: actorID,
		Action:  action,
		Details: details,
		IP:      ip,
		TS:      EventTime{e.now().UTC()},
	})
}

// auditReason maps engine errors onto stable reason codes. The audit
// trail records the specific cause even where the caller-facing error is
// deliberately generic.
func auditReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrTwoFactorRequired):
		return "two_factor_required"
	case errors.Is(err, ErrInvalidTwoFactor):
		return "two_factor_invalid"
	case errors.Is(err, ErrTwoFactorNotConfigured):
		return "two_factor_not_configured"
	case errors.Is(err, ErrTwoFactorAlreadyEnabled):
		return "two_factor_already_enabled"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal_error"
	}
}

func lockoutRemainingSeconds(until, now time.Time) int64 {
	if d := until.Sub(now); d > 0 {
		return int64(d.Seconds())
	}
	return 0
}

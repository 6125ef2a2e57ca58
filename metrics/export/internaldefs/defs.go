package internaldefs

import (
	adminauth "github.com/hallgate/adminauth"
)

// CounterDef binds one engine counter to its stable exported name.
type CounterDef struct {
	ID   adminauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order. Both
// exporters iterate this slice so their metric names never diverge.
var CounterDefs = []CounterDef{
	{ID: adminauth.MetricLoginSuccess, Name: "adminauth_login_success_total", Help: "Fully verified admin logins."},
	{ID: adminauth.MetricLoginFailure, Name: "adminauth_login_failure_total", Help: "Logins rejected for a bad password or unknown account."},
	{ID: adminauth.MetricLoginLocked, Name: "adminauth_login_locked_total", Help: "Logins refused while a lockout window was active."},
	{ID: adminauth.MetricTwoFactorRequired, Name: "adminauth_2fa_required_total", Help: "Logins that stopped at the second-factor prompt."},
	{ID: adminauth.MetricTwoFactorFailure, Name: "adminauth_2fa_failure_total", Help: "Rejected TOTP or backup codes."},
	{ID: adminauth.MetricTwoFactorSuccess, Name: "adminauth_2fa_success_total", Help: "Accepted TOTP codes."},
	{ID: adminauth.MetricBackupCodeUsed, Name: "adminauth_backup_code_used_total", Help: "Logins completed with a backup code."},
	{ID: adminauth.MetricTwoFactorEnabled, Name: "adminauth_2fa_enabled_total", Help: "Completed two-factor enrollments."},
	{ID: adminauth.MetricTwoFactorDisabled, Name: "adminauth_2fa_disabled_total", Help: "Two-factor teardown operations."},
	{ID: adminauth.MetricSessionCreated, Name: "adminauth_session_created_total", Help: "Issued admin sessions."},
	{ID: adminauth.MetricSessionRevoked, Name: "adminauth_session_revoked_total", Help: "Explicit logouts."},
	{ID: adminauth.MetricSessionExpired, Name: "adminauth_session_expired_total", Help: "Validations rejected for expiry."},
	{ID: adminauth.MetricSessionRejected, Name: "adminauth_session_rejected_total", Help: "Validations rejected for unknown tokens or revoked privilege."},
	{ID: adminauth.MetricSessionPurged, Name: "adminauth_session_purged_total", Help: "Sessions removed by the purge sweep."},
	{ID: adminauth.MetricAuditAppended, Name: "adminauth_audit_appended_total", Help: "Audit events handed to the sink."},
	{ID: adminauth.MetricStoreErrors, Name: "adminauth_store_errors_total", Help: "Operations that failed on the backing store."},
}

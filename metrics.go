package adminauth

import (
	internalmetrics "github.com/hallgate/adminauth/internal/metrics"
)

// MetricID identifies a specific counter in the in-process metrics
// system.
type MetricID = internalmetrics.MetricID

// MetricsSnapshot is a point-in-time copy of every engine counter.
type MetricsSnapshot = internalmetrics.Snapshot

// Counter identifiers, re-exported so callers and exporters can read
// the snapshot without importing the internal package.
const (
	// MetricLoginSuccess counts fully verified logins.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure counts logins rejected for a bad password or
	// unknown account.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginLocked counts logins refused while a lockout window
	// was active.
	MetricLoginLocked = internalmetrics.MetricLoginLocked
	// MetricTwoFactorRequired counts logins that stopped at the
	// second-factor prompt.
	MetricTwoFactorRequired = internalmetrics.MetricTwoFactorRequired
	// MetricTwoFactorFailure counts rejected TOTP or backup codes.
	MetricTwoFactorFailure = internalmetrics.MetricTwoFactorFailure
	// MetricTwoFactorSuccess counts accepted TOTP codes.
	MetricTwoFactorSuccess = internalmetrics.MetricTwoFactorSuccess
	// MetricBackupCodeUsed counts logins completed with a backup code.
	MetricBackupCodeUsed = internalmetrics.MetricBackupCodeUsed
	// MetricTwoFactorEnabled counts completed 2FA enrollments.
	MetricTwoFactorEnabled = internalmetrics.MetricTwoFactorEnabled
	// MetricTwoFactorDisabled counts 2FA teardown operations.
	MetricTwoFactorDisabled = internalmetrics.MetricTwoFactorDisabled
	// MetricSessionCreated counts issued sessions.
	MetricSessionCreated = internalmetrics.MetricSessionCreated
	// MetricSessionRevoked counts explicit logouts.
	MetricSessionRevoked = internalmetrics.MetricSessionRevoked
	// MetricSessionExpired counts validations rejected for expiry.
	MetricSessionExpired = internalmetrics.MetricSessionExpired
	// MetricSessionRejected counts validations rejected for any other
	// reason, unknown tokens and revoked privilege included.
	MetricSessionRejected = internalmetrics.MetricSessionRejected
	// MetricSessionPurged counts sessions removed by the purge sweep.
	MetricSessionPurged = internalmetrics.MetricSessionPurged
	// MetricAuditAppended counts audit events handed to the sink.
	MetricAuditAppended = internalmetrics.MetricAuditAppended
	// MetricStoreErrors counts operations that failed on the backing
	// store rather than on the caller's input.
	MetricStoreErrors = internalmetrics.MetricStoreErrors
)

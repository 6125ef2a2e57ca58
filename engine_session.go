package adminauth

import (
	"context"
	"errors"
	"log"

	"github.com/hallgate/adminauth/internal/metrics"
)

// ValidateSession is the middleware contract for every privileged route.
// It resolves the opaque token to its session row, checks activity and
// expiry without extending either, then re-reads the credential from the
// store — so a privilege revocation takes effect on the next request,
// not at next login. The returned credential is an owned snapshot; the
// caller cannot mutate shared state through it.
//
// Failures match [ErrSessionNotFound] (absent or revoked),
// [ErrSessionExpired], or [ErrStoreUnavailable]. Callers treat the first
// two identically as re-authenticate; the split exists for audit and
// debugging.
func (e *Engine) ValidateSession(ctx context.Context, token string) (*AdminCredential, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	sess, err := e.sessions.Validate(ctx, token, e.now())
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			e.metricInc(metrics.MetricSessionExpired)
		} else if errors.Is(err, ErrSessionNotFound) {
			e.metricInc(metrics.MetricSessionRejected)
		}
		return nil, e.countStoreErr(err)
	}

	cred, err := e.store.GetCredentialByID(ctx, sess.UserID)
	if err != nil {
		return nil, e.storeFail(err)
	}
	if !cred.HasAdminPrivilege() {
		// Privilege was revoked after issuance; the session is dead.
		e.metricInc(metrics.MetricSessionRejected)
		e.emitAudit(ctx, auditActionSessionRejected, sess.UserID, sess.IPAddress, ErrSessionNotFound, func() map[string]any {
			return map[string]any{"cause": "privilege_revoked"}
		})
		return nil, ErrSessionNotFound
	}

	return cloneCredential(cred), nil
}

// Logout revokes the session. Idempotent: a second call for the same
// token is a no-op and never errors.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	// Resolve the actor before revoking, for the audit record only.
	var actorID string
	if sess, err := e.store.GetSession(ctx, token); err == nil && sess != nil {
		actorID = sess.UserID
	}

	if err := e.sessions.Revoke(ctx, token); err != nil {
		return e.countStoreErr(err)
	}
	e.metricInc(metrics.MetricSessionRevoked)
	e.emitAudit(ctx, auditActionLogout, actorID, "", nil, nil)
	return nil
}

// PurgeExpiredSessions removes session rows whose expiry is already in
// the past. It is an independent maintenance task: correctness never
// depends on it, since Validate checks expiry on every call.
func (e *Engine) PurgeExpiredSessions(ctx context.Context) (int, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}

	removed, err := e.store.DeleteExpiredSessions(ctx, e.now())
	if err != nil {
		log.Printf("adminauth: expired session purge failed: %v", err)
		return 0, e.storeFail(err)
	}
	if removed > 0 {
		e.metricInc(metrics.MetricSessionPurged)
		e.emitAudit(ctx, auditActionSessionPurge, "", "", nil, func() map[string]any {
			return map[string]any{"removed": removed}
		})
	}
	return removed, nil
}

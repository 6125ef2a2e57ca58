package cli

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	adminauth "github.com/hallgate/adminauth"
	"github.com/hallgate/adminauth/middleware"
)

type handlers struct {
	engine *adminauth.Engine
	logger *slog.Logger
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	TOTPCode   string `json:"totpCode,omitempty"`
	BackupCode string `json:"backupCode,omitempty"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.engine.Authenticate(r.Context(), adminauth.LoginRequest{
		Email:      req.Email,
		Password:   req.Password,
		TOTPCode:   req.TOTPCode,
		BackupCode: req.BackupCode,
		IP:         clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if err := h.engine.Logout(r.Context(), token); err != nil {
		h.writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) whoami(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.CredentialFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":       cred.UserID,
		"email":        cred.Email,
		"isSuperAdmin": cred.IsSuperAdmin,
	})
}

func (h *handlers) setupTwoFactor(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.CredentialFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	setup, err := h.engine.SetupTwoFactor(r.Context(), cred.UserID)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"secret":      setup.Secret,
		"qrPayload":   setup.QRPayload,
		"backupCodes": setup.BackupCodes,
	})
}

func (h *handlers) enableTwoFactor(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.CredentialFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		TOTPCode string `json:"totpCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.EnableTwoFactor(r.Context(), cred.UserID, req.TOTPCode); err != nil {
		h.writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) disableTwoFactor(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.CredentialFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.DisableTwoFactor(r.Context(), cred.UserID, req.Password); err != nil {
		h.writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) regenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.CredentialFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		TOTPCode string `json:"totpCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	codes, err := h.engine.RegenerateBackupCodes(r.Context(), cred.UserID, req.TOTPCode)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backupCodes": codes})
}

// writeAuthError maps engine errors onto HTTP statuses without leaking
// why a credential was rejected.
func (h *handlers) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, adminauth.ErrTwoFactorRequired):
		writeError(w, http.StatusUnauthorized, "two_factor_required")
	case errors.Is(err, adminauth.ErrAccountLocked):
		writeError(w, http.StatusLocked, "account_locked")
	case errors.Is(err, adminauth.ErrInvalidCredentials),
		errors.Is(err, adminauth.ErrInvalidTwoFactor),
		errors.Is(err, adminauth.ErrSessionNotFound),
		errors.Is(err, adminauth.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, adminauth.ErrTwoFactorAlreadyEnabled),
		errors.Is(err, adminauth.ErrTwoFactorNotConfigured):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, adminauth.ErrStoreUnavailable):
		h.logger.Error("store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		h.logger.Error("unexpected auth error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func requestToken(r *http.Request) string {
	const bearer = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, bearer) {
		return auth[len(bearer):]
	}
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware has already rewritten RemoteAddr from
	// X-Forwarded-For / X-Real-IP when present.
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 && !strings.HasSuffix(host, "]") {
		host = host[:idx]
	}
	return strings.Trim(host, "[]")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

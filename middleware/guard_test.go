package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	adminauth "github.com/hallgate/adminauth"
	"github.com/hallgate/adminauth/store/memstore"
)

func newGuardedServer(t *testing.T) (*memstore.Store, http.Handler) {
	t.Helper()
	store := memstore.New()
	engine, err := adminauth.New().WithStore(store).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	handler := RequireAdmin(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred, ok := CredentialFromContext(r.Context())
		if !ok {
			t.Error("credential missing from context")
			http.Error(w, "no credential", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(cred.UserID))
	}))
	return store, handler
}

func seedSession(t *testing.T, store *memstore.Store, token string) {
	t.Helper()
	now := time.Now()
	store.PutCredential(&adminauth.AdminCredential{
		UserID:       "admin-1",
		Email:        "root@example.com",
		PasswordHash: "x",
		IsAdmin:      true,
	})
	err := store.PutSession(context.Background(), &adminauth.AdminSession{
		Token:     token,
		UserID:    "admin-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
		IsActive:  true,
	})
	if err != nil {
		t.Fatalf("PutSession: %v", err)
	}
}

func TestRequireAdminBearerToken(t *testing.T) {
	store, handler := newGuardedServer(t)
	seedSession(t, store, "tok-1")

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "admin-1" {
		t.Fatalf("body = %q, want admin-1", rec.Body.String())
	}
}

func TestRequireAdminCookieFallback(t *testing.T) {
	store, handler := newGuardedServer(t)
	seedSession(t, store, "tok-2")

	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok-2"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAdminRejections(t *testing.T) {
	store, handler := newGuardedServer(t)
	seedSession(t, store, "tok-3")

	cases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"no token", func(*http.Request) {}},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Basic tok-3") }},
		{"empty bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") }},
		{"unknown token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

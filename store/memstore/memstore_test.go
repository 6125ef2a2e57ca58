package memstore

import (
	"context"
	"crypto/sha256"
	"sync"
	"testing"
	"time"

	"github.com/hallgate/adminauth"
)

func TestIncrementFailedAttemptsIsAtomic(t *testing.T) {
	s := New()
	s.PutCredential(&adminauth.AdminCredential{UserID: "u1", Email: "a@x.com", IsAdmin: true})

	ctx := context.Background()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementFailedAttempts(ctx, "u1"); err != nil {
				t.Errorf("increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	cred, err := s.GetCredentialByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cred.FailedAttempts != workers {
		t.Fatalf("expected %d failed attempts, got %d", workers, cred.FailedAttempts)
	}
}

func TestConsumeBackupCodeExactlyOnce(t *testing.T) {
	s := New()
	hash := sha256.Sum256([]byte("u1:deadbeef"))
	err := s.PutTwoFactor(context.Background(), &adminauth.TwoFactorRecord{
		UserID:           "u1",
		Secret:           "SECRET",
		Enabled:          true,
		BackupCodeHashes: [][32]byte{hash},
	})
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	const workers = 16
	results := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ConsumeBackupCode(context.Background(), "u1", hash)
			if err != nil {
				t.Errorf("consume failed: %v", err)
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for ok := range results {
		if ok {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 successful consume, got %d", successes)
	}

	record, err := s.GetTwoFactor(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(record.BackupCodeHashes) != 0 {
		t.Fatalf("expected empty code set, got %d entries", len(record.BackupCodeHashes))
	}
}

func TestCredentialReadsReturnSnapshots(t *testing.T) {
	s := New()
	s.PutCredential(&adminauth.AdminCredential{UserID: "u1", Email: "a@x.com", IsAdmin: true})

	ctx := context.Background()
	first, err := s.GetCredentialByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	first.FailedAttempts = 99

	second, err := s.GetCredentialByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if second.FailedAttempts != 0 {
		t.Fatal("mutation through a returned credential leaked into the store")
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	put := func(token string, expires time.Time) {
		err := s.PutSession(ctx, &adminauth.AdminSession{
			Token: token, UserID: "u1", IssuedAt: now.Add(-time.Hour), ExpiresAt: expires, IsActive: true,
		})
		if err != nil {
			t.Fatalf("put session failed: %v", err)
		}
	}
	put("old", now.Add(-time.Minute))
	put("live", now.Add(time.Hour))

	removed, err := s.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed session, got %d", removed)
	}
	if sess, _ := s.GetSession(ctx, "live"); sess == nil {
		t.Fatal("live session was purged")
	}
	if sess, _ := s.GetSession(ctx, "old"); sess != nil {
		t.Fatal("expired session survived purge")
	}
}

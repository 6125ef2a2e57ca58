package password

import (
	"strings"
	"testing"
)

func testConfig() Config {
	// Minimum-cost parameters to keep the test suite fast.
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerifyRoundTrip(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	encoded, err := h.Hash("Correct1!pass")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", encoded)
	}

	ok, err := h.Verify("Correct1!pass", encoded)
	if err != nil || !ok {
		t.Fatalf("expected verification success, ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong-password", encoded)
	if err != nil {
		t.Fatalf("Verify returned error for mismatch: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	a, err := h.Hash("same-password-123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := h.Hash("same-password-123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	cases := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$aGFzaA",
	}
	for _, malformed := range cases {
		if _, err := h.Verify("password12", malformed); err == nil {
			t.Fatalf("expected error for malformed hash %q", malformed)
		}
	}
}

func TestNewRejectsWeakConfig(t *testing.T) {
	weak := testConfig()
	weak.Memory = 1024
	if _, err := New(weak); err == nil {
		t.Fatal("expected error for sub-minimum memory")
	}

	weak = testConfig()
	weak.SaltLength = 8
	if _, err := New(weak); err == nil {
		t.Fatal("expected error for short salt")
	}
}

func TestVerifyOldParametersAfterHardening(t *testing.T) {
	old, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	encoded, err := old.Hash("long-lived-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	hardened := testConfig()
	hardened.Memory = 64 * 1024
	hardened.Time = 3
	h, err := New(hardened)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Parameters come from the stored hash, not the active config.
	ok, err := h.Verify("long-lived-password", encoded)
	if err != nil || !ok {
		t.Fatalf("old hash no longer verifies, ok=%v err=%v", ok, err)
	}
}

package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"docseal/internal/domain"
	cryptoinfra "docseal/internal/infra/crypto"
)

func newVerifyUC(keys KeyRepository) *VerifyAttestation {
	return &VerifyAttestation{Keys: keys, Crypto: cryptoinfra.NewService()}
}

func TestVerifyMissingSignature(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")
	record.Sig = ""

	uc := newVerifyUC(&fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}})
	result, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsValid {
		t.Fatalf("expected invalid result")
	}
	if result.Error != "No signature found" {
		t.Fatalf("error = %q", result.Error)
	}
	if result.Details != nil {
		t.Fatalf("details should be absent before any check runs, got %+v", result.Details)
	}
}

func TestVerifyMissingKeyID(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")
	record.S.K = ""

	uc := newVerifyUC(&fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}})
	result, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Error != "No public key ID found" {
		t.Fatalf("error = %q", result.Error)
	}
	if result.Details != nil {
		t.Fatalf("details should be absent, got %+v", result.Details)
	}
}

func TestVerifyKeyNotFound(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")

	uc := newVerifyUC(&fakeKeys{byID: map[string]*domain.SigningKey{}})
	result, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Error != "Public key not found" {
		t.Fatalf("error = %q", result.Error)
	}
	if result.Details == nil || result.Details.KeyFound || result.Details.SignatureMatch || result.Details.TimestampValid {
		t.Fatalf("details = %+v, want all false", result.Details)
	}
}

func TestVerifyRepositoryErrorIsHardError(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")

	uc := newVerifyUC(&fakeKeys{byIDErr: errors.New("connection refused")})
	_, err := uc.Execute(context.Background(), record)
	if !errors.Is(err, domain.ErrKeyRepository) {
		t.Fatalf("err = %v, want ErrKeyRepository", err)
	}
}

func TestVerifyMalformedTimestamp(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")
	record.T = "not-a-timestamp"

	uc := newVerifyUC(&fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}})
	result, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(result.Error, "Signature verification failed:") {
		t.Fatalf("error = %q", result.Error)
	}
	if result.Details == nil || !result.Details.KeyFound || result.Details.TimestampValid {
		t.Fatalf("details = %+v", result.Details)
	}
}

func TestVerifyKeyValidityWindow(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	key.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	key.ExpiresAt = &expires

	cases := []struct {
		name      string
		timestamp string
		valid     bool
	}{
		{"before window", "2023-12-31T23:59:59Z", false},
		{"window start", "2024-01-01T00:00:00Z", true},
		{"inside window", "2024-06-15T08:00:00Z", true},
		{"window end", "2025-01-01T00:00:00Z", true},
		{"after window", "2025-01-01T00:00:00.000001Z", false},
	}
	uc := newVerifyUC(&fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := signedRecord(t, key, tc.timestamp)
			result, err := uc.Execute(context.Background(), record)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if result.IsValid != tc.valid {
				t.Fatalf("valid = %v, want %v (error %q)", result.IsValid, tc.valid, result.Error)
			}
			if !tc.valid {
				if result.Error != "Key was not valid at the time of signing" {
					t.Fatalf("error = %q", result.Error)
				}
				if result.Details == nil || !result.Details.KeyFound || result.Details.TimestampValid {
					t.Fatalf("details = %+v", result.Details)
				}
			}
		})
	}
}

func TestVerifyNoExpiryIsOpenEnded(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	key.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	record := signedRecord(t, key, "2040-01-01T00:00:00Z")
	uc := newVerifyUC(&fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}})
	result, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected valid result, got error %q", result.Error)
	}
}

func TestVerifyClockSkewWidensWindow(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	key.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	record := signedRecord(t, key, "2023-12-31T23:59:30Z")

	keys := &fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}}

	strict := newVerifyUC(keys)
	result, err := strict.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsValid {
		t.Fatalf("expected rejection without skew")
	}

	lenient := newVerifyUC(keys)
	lenient.ClockSkew = 5 * time.Minute
	result, err = lenient.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected acceptance with skew, got error %q", result.Error)
	}
}

func TestVerifyTamperedField(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")
	record.E.F = "000000"

	uc := newVerifyUC(&fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}})
	result, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsValid {
		t.Fatalf("tampered record verified")
	}
	if result.Details == nil || result.Details.SignatureMatch || !result.Details.KeyFound || !result.Details.TimestampValid {
		t.Fatalf("details = %+v", result.Details)
	}
}

func TestVerifyCorruptSignatureEncoding(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")
	record.Sig = "%%%not-base64%%%"

	uc := newVerifyUC(&fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}})
	result, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsValid {
		t.Fatalf("corrupt signature verified")
	}
	if !strings.HasPrefix(result.Error, "Signature verification failed:") {
		t.Fatalf("error = %q", result.Error)
	}
	if result.Details == nil || !result.Details.KeyFound || !result.Details.TimestampValid || result.Details.SignatureMatch {
		t.Fatalf("details = %+v", result.Details)
	}
}

func TestVerifyCacheRoundTrip(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")

	cache := &fakeCache{}
	keys := &fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}}
	uc := newVerifyUC(keys)
	uc.Cache = cache

	first, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !first.IsValid {
		t.Fatalf("expected valid result, got %q", first.Error)
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts = %d", cache.puts)
	}

	// A cache hit bypasses the repository entirely.
	uc.Keys = &fakeKeys{byIDErr: errors.New("must not be called")}
	second, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute with cache: %v", err)
	}
	if !second.IsValid {
		t.Fatalf("cached result invalid")
	}
}

func TestVerifyCacheMissesOnTamperedRecord(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")

	cache := &fakeCache{}
	uc := newVerifyUC(&fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}})
	uc.Cache = cache

	first, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !first.IsValid {
		t.Fatalf("expected valid result, got %q", first.Error)
	}

	// Same signature, different content. The cached verdict for the
	// original record must not be served for this one.
	tampered := record
	tampered.I.ID = "attacker@evil.com"
	result, err := uc.Execute(context.Background(), tampered)
	if err != nil {
		t.Fatalf("execute tampered: %v", err)
	}
	if result.IsValid {
		t.Fatalf("tampered record verified via cache")
	}
	if result.Identity.Identifier != "attacker@evil.com" {
		t.Fatalf("identity = %+v, want the tampered record's own identity", result.Identity)
	}
	if result.Details == nil || result.Details.SignatureMatch {
		t.Fatalf("details = %+v", result.Details)
	}
}

func TestVerifyPolicyOverlay(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")
	keys := &fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}}

	policy := &fakePolicy{receipt: domain.PolicyReceipt{"accepted": true}}
	uc := newVerifyUC(keys)
	uc.Policy = policy

	result, err := uc.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected valid result, got %q", result.Error)
	}
	if policy.calls != 1 {
		t.Fatalf("policy calls = %d", policy.calls)
	}
	if accepted, ok := result.Policy["accepted"].(bool); !ok || !accepted {
		t.Fatalf("policy receipt = %+v", result.Policy)
	}
	if policy.lastIn.Record.Sig != record.Sig {
		t.Fatalf("policy input record mismatch")
	}

	// The overlay never runs for negative results.
	tampered := record
	tampered.E.F = "000000"
	policy.calls = 0
	result, err = uc.Execute(context.Background(), tampered)
	if err != nil {
		t.Fatalf("execute tampered: %v", err)
	}
	if result.IsValid || policy.calls != 0 {
		t.Fatalf("policy ran on invalid result (calls=%d)", policy.calls)
	}
}

func TestVerifyPolicyErrorIsHardError(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	record := signedRecord(t, key, "2024-06-01T00:00:00Z")
	keys := &fakeKeys{byID: map[string]*domain.SigningKey{key.ID: &key}}

	uc := newVerifyUC(keys)
	uc.Policy = &fakePolicy{err: errors.New("bundle gone")}

	_, err := uc.Execute(context.Background(), record)
	if err == nil || !strings.Contains(err.Error(), "policy evaluation") {
		t.Fatalf("err = %v", err)
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"docseal/internal/domain"
	cryptoinfra "docseal/internal/infra/crypto"
)

func TestSignAttestationRoundTrip(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	keys := &fakeKeys{
		active: &key,
		byID:   map[string]*domain.SigningKey{key.ID: &key},
	}
	service := cryptoinfra.NewService()

	signUC := &SignAttestation{Keys: keys, Crypto: service}
	resp, err := signUC.Execute(context.Background(), testPackage())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if resp.PublicKeyID != key.ID {
		t.Fatalf("public key id = %q, want %q", resp.PublicKeyID, key.ID)
	}
	if resp.PublicKey != key.PublicKeyPEM {
		t.Fatalf("response public key does not match the signing key")
	}

	verifyUC := &VerifyAttestation{Keys: keys, Crypto: service}
	result, err := verifyUC.Execute(context.Background(), resp.Record)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected valid result, got error %q", result.Error)
	}
	if result.Details == nil || !result.Details.KeyFound || !result.Details.SignatureMatch || !result.Details.TimestampValid {
		t.Fatalf("details = %+v, want all true", result.Details)
	}
	if result.Identity.Provider != "google" || result.Identity.Identifier != "user@example.com" {
		t.Fatalf("identity = %+v", result.Identity)
	}
}

func TestSignAttestationRecordFields(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	keys := &fakeKeys{active: &key}
	at := time.Date(2024, 6, 1, 12, 30, 45, 123456789, time.UTC)

	signUC := &SignAttestation{
		Keys:   keys,
		Crypto: cryptoinfra.NewService(),
		Clock:  func() time.Time { return at },
	}
	resp, err := signUC.Execute(context.Background(), testPackage())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if resp.Timestamp != at.Format(time.RFC3339Nano) {
		t.Fatalf("timestamp = %q", resp.Timestamp)
	}
	if resp.Record.T != resp.Timestamp {
		t.Fatalf("record timestamp %q differs from response timestamp %q", resp.Record.T, resp.Timestamp)
	}
	if resp.Record.S.K != key.ID {
		t.Fatalf("record key id = %q, want %q", resp.Record.S.K, key.ID)
	}
	if resp.Record.S.N != domain.DefaultServiceName {
		t.Fatalf("record service name = %q", resp.Record.S.N)
	}
	if resp.Record.Sig != resp.Signature {
		t.Fatalf("record signature differs from response signature")
	}
}

func TestSignAttestationUnknownProviderHasNoSideEffects(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	keys := &fakeKeys{active: &key}
	signUC := &SignAttestation{Keys: keys, Crypto: cryptoinfra.NewService()}

	pkg := testPackage()
	pkg.Identity.Provider = "myspace"
	_, err := signUC.Execute(context.Background(), pkg)
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
	if keys.findActiveCalls != 0 {
		t.Fatalf("repository was read %d times before validation", keys.findActiveCalls)
	}
}

func TestSignAttestationInvalidGeometry(t *testing.T) {
	key, _ := testSigningKey(t, "key-1")
	keys := &fakeKeys{active: &key}
	signUC := &SignAttestation{Keys: keys, Crypto: cryptoinfra.NewService()}

	pkg := testPackage()
	pkg.ExclusionZone.Width = -5
	_, err := signUC.Execute(context.Background(), pkg)
	if !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Fatalf("err = %v, want ErrInvalidGeometry", err)
	}
	if keys.findActiveCalls != 0 {
		t.Fatalf("repository was read before validation")
	}
}

func TestSignAttestationNoActiveKey(t *testing.T) {
	keys := &fakeKeys{activeErr: domain.ErrNotFound}
	signUC := &SignAttestation{Keys: keys, Crypto: cryptoinfra.NewService()}

	_, err := signUC.Execute(context.Background(), testPackage())
	if !errors.Is(err, domain.ErrNoActiveKey) {
		t.Fatalf("err = %v, want ErrNoActiveKey", err)
	}
}

func TestSignAttestationAmbiguousActiveKey(t *testing.T) {
	keys := &fakeKeys{activeErr: domain.ErrAmbiguousActiveKey}
	signUC := &SignAttestation{Keys: keys, Crypto: cryptoinfra.NewService()}

	_, err := signUC.Execute(context.Background(), testPackage())
	if !errors.Is(err, domain.ErrAmbiguousActiveKey) {
		t.Fatalf("err = %v, want ErrAmbiguousActiveKey", err)
	}
}

func TestSignAttestationRepositoryError(t *testing.T) {
	keys := &fakeKeys{activeErr: errors.New("connection refused")}
	signUC := &SignAttestation{Keys: keys, Crypto: cryptoinfra.NewService()}

	_, err := signUC.Execute(context.Background(), testPackage())
	if !errors.Is(err, domain.ErrKeyRepository) {
		t.Fatalf("err = %v, want ErrKeyRepository", err)
	}
}

package usecase

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"docseal/internal/domain"
	cryptoinfra "docseal/internal/infra/crypto"
)

func testPackage() domain.AttestationPackage {
	return domain.AttestationPackage{
		Hashes: domain.DocumentHashes{
			Cryptographic: "abc123",
			PHash:         "p1",
			DHash:         "d1",
		},
		Identity: domain.Identity{
			Provider:   "google",
			Identifier: "user@example.com",
		},
		ExclusionZone: domain.ExclusionZone{
			X:         10,
			Y:         10,
			Width:     100,
			Height:    100,
			FillColor: "#ffffff",
		},
	}
}

func testSigningKey(t *testing.T, id string) (domain.SigningKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	key := domain.SigningKey{
		ID:            id,
		Algorithm:     domain.AlgorithmEd25519,
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		PublicKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		IsActive:      true,
		KeyPurpose:    domain.KeyPurposeAttestation,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	return key, priv
}

// signedRecord builds a fully signed record with the given timestamp using
// the real canonical codec.
func signedRecord(t *testing.T, key domain.SigningKey, timestamp string) domain.CanonicalAttestationData {
	t.Helper()
	service := cryptoinfra.NewService()
	data, err := service.EncodeCanonical(testPackage(), timestamp, key.ID, domain.DefaultServiceName)
	if err != nil {
		t.Fatalf("encode canonical: %v", err)
	}
	sig, err := service.SignCanonical(data, key.PrivateKeyPEM)
	if err != nil {
		t.Fatalf("sign canonical: %v", err)
	}
	data.Sig = sig
	return data
}

type fakeKeys struct {
	active          *domain.SigningKey
	activeErr       error
	byID            map[string]*domain.SigningKey
	byIDErr         error
	findActiveCalls int
}

func (f *fakeKeys) FindActiveKey(_ context.Context, _ domain.KeyPurpose) (*domain.SigningKey, error) {
	f.findActiveCalls++
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	if f.active == nil {
		return nil, domain.ErrNotFound
	}
	return f.active, nil
}

func (f *fakeKeys) FindKeyByID(_ context.Context, id string) (*domain.SigningKey, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	key, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return key, nil
}

type fakeCache struct {
	data map[string]domain.SignatureVerificationResult
	puts int
}

func (f *fakeCache) Get(_ context.Context, key string) (*domain.SignatureVerificationResult, bool, error) {
	value, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	return &value, true, nil
}

func (f *fakeCache) Put(_ context.Context, key string, value domain.SignatureVerificationResult, _ time.Duration) error {
	if f.data == nil {
		f.data = make(map[string]domain.SignatureVerificationResult)
	}
	f.data[key] = value
	f.puts++
	return nil
}

type fakePolicy struct {
	receipt domain.PolicyReceipt
	err     error
	calls   int
	lastIn  domain.PolicyInput
}

func (f *fakePolicy) Evaluate(_ context.Context, input domain.PolicyInput) (domain.PolicyReceipt, error) {
	f.calls++
	f.lastIn = input
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

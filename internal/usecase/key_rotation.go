package usecase

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"docseal/internal/domain"
)

type KeyRotationService struct {
	Store KeyLifecycleStore
	Clock Clock
}

func NewKeyRotationService(store KeyLifecycleStore, clock Clock) *KeyRotationService {
	return &KeyRotationService{Store: store, Clock: clock}
}

// Rotate generates a fresh Ed25519 pair, activates it, and deactivates the
// previous active key for the purpose. The old key keeps its CreatedAt and
// ExpiresAt untouched: deactivation must never shrink the validity window of
// attestations already issued.
func (s *KeyRotationService) Rotate(ctx context.Context, purpose domain.KeyPurpose) (domain.SigningKey, error) {
	if s.Store == nil {
		return domain.SigningKey{}, errors.New("key lifecycle store is required")
	}
	if purpose == "" {
		purpose = domain.KeyPurposeAttestation
	}

	oldKey, err := s.Store.FindActiveKey(ctx, purpose)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		if errors.Is(err, domain.ErrAmbiguousActiveKey) {
			return domain.SigningKey{}, err
		}
		return domain.SigningKey{}, fmt.Errorf("%w: %v", domain.ErrKeyRepository, err)
	}

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return domain.SigningKey{}, err
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(privKey)
	if err != nil {
		return domain.SigningKey{}, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pubKey)
	if err != nil {
		return domain.SigningKey{}, err
	}
	privPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))

	now := s.now().UTC()
	newKey := domain.SigningKey{
		ID:            keyIDFromPublicKey(pubKey),
		Algorithm:     domain.AlgorithmEd25519,
		PrivateKeyPEM: privPEM,
		PublicKeyPEM:  pubPEM,
		IsActive:      true,
		KeyPurpose:    purpose,
		CreatedAt:     now,
	}
	if err := s.Store.Create(ctx, newKey); err != nil {
		return domain.SigningKey{}, err
	}
	if oldKey != nil {
		if err := s.Store.Deactivate(ctx, oldKey.ID); err != nil {
			return domain.SigningKey{}, err
		}
	}
	return newKey, nil
}

func (s *KeyRotationService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func keyIDFromPublicKey(pubKey ed25519.PublicKey) string {
	sum := sha256.Sum256(pubKey)
	return hex.EncodeToString(sum[:16])
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docseal/internal/domain"
)

type SignAttestation struct {
	Keys        KeyRepository
	Crypto      CanonicalCrypto
	Clock       Clock
	ServiceName string
	Purpose     domain.KeyPurpose
}

// SignAttestationResponse carries the exact timestamp and key id embedded in
// the canonical structure; verifiers reconstruct from these values, never by
// re-deriving them.
type SignAttestationResponse struct {
	Timestamp   string `json:"timestamp"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"publicKey"`
	PublicKeyID string `json:"publicKeyId"`

	Record domain.CanonicalAttestationData `json:"-"`
}

func (uc *SignAttestation) Execute(ctx context.Context, pkg domain.AttestationPackage) (*SignAttestationResponse, error) {
	// Input validation happens before any repository read so an unknown
	// provider or bad geometry has no side effects at all.
	if _, err := domain.CompactProviderCode(pkg.Identity.Provider); err != nil {
		return nil, err
	}
	if err := pkg.ExclusionZone.Validate(); err != nil {
		return nil, err
	}

	key, err := uc.Keys.FindActiveKey(ctx, uc.purpose())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, domain.ErrNoActiveKey
		case errors.Is(err, domain.ErrAmbiguousActiveKey):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrKeyRepository, err)
		}
	}

	timestamp := uc.now().UTC().Format(time.RFC3339Nano)
	data, err := uc.Crypto.EncodeCanonical(pkg, timestamp, key.ID, uc.serviceName())
	if err != nil {
		return nil, err
	}
	signature, err := uc.Crypto.SignCanonical(data, key.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}

	data.Sig = signature
	return &SignAttestationResponse{
		Timestamp:   timestamp,
		Signature:   signature,
		PublicKey:   key.PublicKeyPEM,
		PublicKeyID: key.ID,
		Record:      data,
	}, nil
}

func (uc *SignAttestation) purpose() domain.KeyPurpose {
	if uc.Purpose != "" {
		return uc.Purpose
	}
	return domain.KeyPurposeAttestation
}

func (uc *SignAttestation) serviceName() string {
	if uc.ServiceName != "" {
		return uc.ServiceName
	}
	return domain.DefaultServiceName
}

func (uc *SignAttestation) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now().UTC()
}

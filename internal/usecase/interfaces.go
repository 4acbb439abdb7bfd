package usecase

import (
	"context"
	"time"

	"docseal/internal/domain"
)

type Clock func() time.Time

// KeyRepository is the read surface of the external key store. FindActiveKey
// must return domain.ErrNotFound when no key is active for the purpose and
// domain.ErrAmbiguousActiveKey when more than one is; callers never pick
// among ambiguous keys.
type KeyRepository interface {
	FindActiveKey(ctx context.Context, purpose domain.KeyPurpose) (*domain.SigningKey, error)
	FindKeyByID(ctx context.Context, id string) (*domain.SigningKey, error)
}

// KeyLifecycleStore is the write surface used by rotation and the admin API.
type KeyLifecycleStore interface {
	KeyRepository
	Create(ctx context.Context, key domain.SigningKey) error
	Deactivate(ctx context.Context, id string) error
	ListByPurpose(ctx context.Context, purpose domain.KeyPurpose) ([]domain.SigningKey, error)
}

type CanonicalCrypto interface {
	EncodeCanonical(pkg domain.AttestationPackage, timestamp, keyID, serviceName string) (domain.CanonicalAttestationData, error)
	SignedBytes(data domain.CanonicalAttestationData) ([]byte, error)
	SignCanonical(data domain.CanonicalAttestationData, privateKeyPEM string) (string, error)
	VerifyCanonical(record domain.CanonicalAttestationData, publicKeyPEM string) (bool, error)
}

type VerificationCache interface {
	Get(ctx context.Context, key string) (*domain.SignatureVerificationResult, bool, error)
	Put(ctx context.Context, key string, value domain.SignatureVerificationResult, ttl time.Duration) error
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyReceipt, error)
}

type AttestationRecorder interface {
	Record(ctx context.Context, rec domain.AttestationRecord) error
}

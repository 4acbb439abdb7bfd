package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"docseal/internal/domain"
)

type VerifyAttestation struct {
	Keys   KeyRepository
	Crypto CanonicalCrypto
	Cache  VerificationCache
	Policy PolicyEngine

	// ClockSkew widens the key validity window on both ends. Zero by
	// default; operators opt in via config.
	ClockSkew time.Duration
	CacheTTL  time.Duration
}

// Execute turns every expected failure into a negative result. The returned
// error is reserved for repository and infrastructure faults, which callers
// must treat as "verification indeterminate" rather than "attestation
// invalid".
func (uc *VerifyAttestation) Execute(ctx context.Context, record domain.CanonicalAttestationData) (*domain.SignatureVerificationResult, error) {
	result := &domain.SignatureVerificationResult{
		PublicKeyID: record.S.K,
		Timestamp:   record.T,
		Identity:    identityFromRecord(record),
	}

	if record.Sig == "" {
		result.Error = "No signature found"
		return result, nil
	}
	if record.S.K == "" {
		result.Error = "No public key ID found"
		return result, nil
	}

	cacheKey := ""
	if uc.Cache != nil {
		cacheKey = uc.cacheKey(record)
		if cacheKey != "" {
			if cached, ok, err := uc.Cache.Get(ctx, cacheKey); err == nil && ok {
				return cached, nil
			}
		}
	}

	key, err := uc.Keys.FindKeyByID(ctx, record.S.K)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			result.Error = "Public key not found"
			result.Details = &domain.VerificationDetails{}
			return result, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyRepository, err)
	}

	signedAt, err := time.Parse(time.RFC3339Nano, record.T)
	if err != nil {
		result.Error = fmt.Sprintf("Signature verification failed: invalid timestamp %q", record.T)
		result.Details = &domain.VerificationDetails{KeyFound: true}
		return result, nil
	}

	// A key deactivated or rotated later must still validate attestations
	// signed inside its window; only CreatedAt/ExpiresAt bound validity.
	if !uc.timestampWithinWindow(signedAt, key) {
		result.Error = "Key was not valid at the time of signing"
		result.Details = &domain.VerificationDetails{KeyFound: true}
		return result, nil
	}

	match, err := uc.Crypto.VerifyCanonical(record, key.PublicKeyPEM)
	if err != nil {
		result.Error = fmt.Sprintf("Signature verification failed: %v", err)
		result.Details = &domain.VerificationDetails{KeyFound: true, TimestampValid: true}
		return result, nil
	}

	result.IsValid = match
	result.Details = &domain.VerificationDetails{
		KeyFound:       true,
		SignatureMatch: match,
		TimestampValid: true,
	}

	if uc.Policy != nil && result.IsValid {
		receipt, err := uc.Policy.Evaluate(ctx, domain.PolicyInput{Result: *result, Record: record})
		if err != nil {
			return nil, fmt.Errorf("policy evaluation: %w", err)
		}
		result.Policy = receipt
	}

	if uc.Cache != nil && cacheKey != "" {
		_ = uc.Cache.Put(ctx, cacheKey, *result, uc.CacheTTL)
	}
	return result, nil
}

// cacheKey binds a cached verdict to the exact signed bytes plus the
// signature value. A tampered record reusing a known-good signature hashes
// differently and must miss the cache, so it gets verified on its own
// content.
func (uc *VerifyAttestation) cacheKey(record domain.CanonicalAttestationData) string {
	payload, err := uc.Crypto.SignedBytes(record)
	if err != nil {
		return ""
	}
	digest := sha256.New()
	digest.Write(payload)
	digest.Write([]byte(record.Sig))
	return hex.EncodeToString(digest.Sum(nil))
}

func (uc *VerifyAttestation) timestampWithinWindow(signedAt time.Time, key *domain.SigningKey) bool {
	if signedAt.Before(key.CreatedAt.Add(-uc.ClockSkew)) {
		return false
	}
	if key.ExpiresAt != nil && signedAt.After(key.ExpiresAt.Add(uc.ClockSkew)) {
		return false
	}
	return true
}

func identityFromRecord(record domain.CanonicalAttestationData) domain.Identity {
	provider := record.I.P
	if full, ok := domain.ProviderFromCode(record.I.P); ok {
		provider = full
	}
	return domain.Identity{Provider: provider, Identifier: record.I.ID}
}

// Package stamp signs and verifies attestation records without a running
// service. Callers bring their own key material; key storage, rotation, and
// lookup stay server-side concerns.
package stamp

import (
	"errors"
	"fmt"
	"time"

	"docseal/internal/domain"
	cryptoinfra "docseal/internal/infra/crypto"
)

type SignOptions struct {
	PrivateKeyPEM string
	KeyID         string

	// ServiceName defaults to domain.DefaultServiceName.
	ServiceName string

	// Now overrides the signing clock, mainly for tests.
	Now func() time.Time
}

// Sign canonicalizes the package, signs it, and returns the full record with
// the signature attached.
func Sign(pkg domain.AttestationPackage, opts SignOptions) (domain.CanonicalAttestationData, error) {
	if opts.PrivateKeyPEM == "" {
		return domain.CanonicalAttestationData{}, errors.New("private key is required")
	}
	if opts.KeyID == "" {
		return domain.CanonicalAttestationData{}, errors.New("key id is required")
	}
	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = domain.DefaultServiceName
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	service := cryptoinfra.NewService()
	timestamp := now().UTC().Format(time.RFC3339Nano)
	data, err := service.EncodeCanonical(pkg, timestamp, opts.KeyID, serviceName)
	if err != nil {
		return domain.CanonicalAttestationData{}, err
	}
	signature, err := service.SignCanonical(data, opts.PrivateKeyPEM)
	if err != nil {
		return domain.CanonicalAttestationData{}, err
	}
	data.Sig = signature
	return data, nil
}

type VerifyOptions struct {
	PublicKeyPEM string

	// CreatedAt and ExpiresAt bound the key validity window. A zero
	// CreatedAt skips the window check entirely; a nil ExpiresAt leaves
	// the window open-ended.
	CreatedAt time.Time
	ExpiresAt *time.Time

	// ClockSkew widens the window on both ends.
	ClockSkew time.Duration
}

// Verify checks a record against a known public key. Expected failures come
// back inside the result; the error return is reserved for unusable options.
func Verify(record domain.CanonicalAttestationData, opts VerifyOptions) (domain.SignatureVerificationResult, error) {
	if opts.PublicKeyPEM == "" {
		return domain.SignatureVerificationResult{}, errors.New("public key is required")
	}

	result := domain.SignatureVerificationResult{
		PublicKeyID: record.S.K,
		Timestamp:   record.T,
		Identity:    identityFromRecord(record),
	}
	if record.Sig == "" {
		result.Error = "No signature found"
		return result, nil
	}

	signedAt, err := time.Parse(time.RFC3339Nano, record.T)
	if err != nil {
		result.Error = fmt.Sprintf("Signature verification failed: invalid timestamp %q", record.T)
		result.Details = &domain.VerificationDetails{KeyFound: true}
		return result, nil
	}
	if !opts.CreatedAt.IsZero() {
		if signedAt.Before(opts.CreatedAt.Add(-opts.ClockSkew)) ||
			(opts.ExpiresAt != nil && signedAt.After(opts.ExpiresAt.Add(opts.ClockSkew))) {
			result.Error = "Key was not valid at the time of signing"
			result.Details = &domain.VerificationDetails{KeyFound: true}
			return result, nil
		}
	}

	service := cryptoinfra.NewService()
	match, err := service.VerifyCanonical(record, opts.PublicKeyPEM)
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
	return result, nil
}

func identityFromRecord(record domain.CanonicalAttestationData) domain.Identity {
	provider := record.I.P
	if full, ok := domain.ProviderFromCode(record.I.P); ok {
		provider = full
	}
	return domain.Identity{Provider: provider, Identifier: record.I.ID}
}

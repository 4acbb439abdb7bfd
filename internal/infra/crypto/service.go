package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"docseal/internal/domain"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// EncodeCanonical builds the compact attestation structure from a package.
// Pure function: the timestamp and key id are supplied by the caller so the
// exact values returned to the client are the ones that get signed.
func (s *Service) EncodeCanonical(pkg domain.AttestationPackage, timestamp, keyID, serviceName string) (domain.CanonicalAttestationData, error) {
	if err := pkg.ExclusionZone.Validate(); err != nil {
		return domain.CanonicalAttestationData{}, err
	}
	code, err := domain.CompactProviderCode(pkg.Identity.Provider)
	if err != nil {
		return domain.CanonicalAttestationData{}, err
	}

	data := domain.CanonicalAttestationData{
		H: domain.CanonicalHashes{
			C: pkg.Hashes.Cryptographic,
			P: domain.CanonicalPerceptual{
				P: pkg.Hashes.PHash,
				D: pkg.Hashes.DHash,
			},
		},
		T: timestamp,
		I: domain.CanonicalIdentity{
			P:  code,
			ID: pkg.Identity.Identifier,
		},
		S: domain.CanonicalService{
			N: serviceName,
			K: keyID,
		},
		E: domain.CanonicalZone{
			X: pkg.ExclusionZone.X,
			Y: pkg.ExclusionZone.Y,
			W: pkg.ExclusionZone.Width,
			H: pkg.ExclusionZone.Height,
			F: pkg.ExclusionZone.CompactFillColor(),
		},
	}
	if pkg.UserURL != "" {
		data.U = pkg.UserURL
	}
	return data, nil
}

// SignedBytes serializes the record with the signature field excluded. This
// is the byte sequence that gets signed and later reconstructed for
// verification; U stays present iff the record carries it.
func (s *Service) SignedBytes(data domain.CanonicalAttestationData) ([]byte, error) {
	data.Sig = ""
	return CanonicalBytes(data)
}

func (s *Service) SignCanonical(data domain.CanonicalAttestationData, privateKeyPEM string) (string, error) {
	key, err := ParsePrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return "", err
	}
	payload, err := s.SignedBytes(data)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(key, payload)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyCanonical reconstructs the signed bytes from the record and checks
// its signature against the given public key. A clean mismatch returns
// (false, nil); errors are reserved for malformed signatures or key material.
func (s *Service) VerifyCanonical(record domain.CanonicalAttestationData, publicKeyPEM string) (bool, error) {
	if record.Sig == "" {
		return false, errors.New("signature value is required")
	}
	key, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return false, err
	}
	sigBytes, err := base64.StdEncoding.DecodeString(record.Sig)
	if err != nil {
		return false, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return false, fmt.Errorf("invalid ed25519 signature length: %d", len(sigBytes))
	}
	payload, err := s.SignedBytes(record)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(key, payload, sigBytes), nil
}

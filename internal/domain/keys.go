package domain

import "time"

type KeyPurpose string

const KeyPurposeAttestation KeyPurpose = "attestation"

const AlgorithmEd25519 = "Ed25519"

// SigningKey mirrors the key repository's record. The core never mutates
// stored keys; rotation creates a new record and flips IsActive on the old
// one without touching its validity window.
type SigningKey struct {
	ID            string
	Algorithm     string
	PrivateKeyPEM string
	PublicKeyPEM  string
	IsActive      bool
	KeyPurpose    KeyPurpose
	CreatedAt     time.Time
	ExpiresAt     *time.Time
}

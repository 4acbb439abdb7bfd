package domain

import "time"

// AttestationRecord is the issuance audit row written after a successful
// sign. It is bookkeeping only; verification never reads it.
type AttestationRecord struct {
	ID           string
	KeyID        string
	ProviderCode string
	DocumentHash string
	SignedAt     time.Time
}

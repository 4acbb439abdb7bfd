package domain

import (
	"fmt"
	"math"
	"strings"
)

// DefaultServiceName is the short service identifier embedded in every
// canonical attestation under "s.n". Verifiers reconstruct the signed bytes
// from the record, so the value only has to be stable, not meaningful.
const DefaultServiceName = "docseal"

type DocumentHashes struct {
	Cryptographic string `json:"cryptographic"`
	PHash         string `json:"pHash"`
	DHash         string `json:"dHash"`
}

type Identity struct {
	Provider   string `json:"provider"`
	Identifier string `json:"identifier"`
}

type ExclusionZone struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	FillColor string  `json:"fillColor"`
}

// AttestationPackage is the caller-assembled input to signing. It is treated
// as immutable; nothing in this module mutates it after construction.
type AttestationPackage struct {
	Hashes        DocumentHashes `json:"hashes"`
	Identity      Identity       `json:"identity"`
	ExclusionZone ExclusionZone  `json:"exclusionZone"`
	UserURL       string         `json:"userUrl,omitempty"`
}

// Validate rejects non-finite or negative geometry before any key material is
// touched.
func (z ExclusionZone) Validate() error {
	for _, dim := range []struct {
		name  string
		value float64
	}{
		{"x", z.X},
		{"y", z.Y},
		{"width", z.Width},
		{"height", z.Height},
	} {
		if math.IsNaN(dim.value) || math.IsInf(dim.value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidGeometry, dim.name)
		}
		if dim.value < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidGeometry, dim.name)
		}
	}
	return nil
}

// CompactFillColor strips the leading "#" so the signed payload carries the
// bare RGB hex digits.
func (z ExclusionZone) CompactFillColor() string {
	return strings.TrimPrefix(z.FillColor, "#")
}

type CanonicalHashes struct {
	C string              `json:"c"`
	P CanonicalPerceptual `json:"p"`
}

type CanonicalPerceptual struct {
	P string `json:"p"`
	D string `json:"d"`
}

type CanonicalIdentity struct {
	P  string `json:"p"`
	ID string `json:"id"`
}

type CanonicalService struct {
	N string `json:"n"`
	K string `json:"k"`
}

type CanonicalZone struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
	F string  `json:"f"`
}

// CanonicalAttestationData is the compact structure whose canonical
// serialization is what gets signed and verified. U is omitted entirely when
// the package carried no user URL; Sig is only ever present on records handed
// to verification and is always excluded from the signed bytes.
type CanonicalAttestationData struct {
	H   CanonicalHashes   `json:"h"`
	T   string            `json:"t"`
	I   CanonicalIdentity `json:"i"`
	S   CanonicalService  `json:"s"`
	E   CanonicalZone     `json:"e"`
	U   string            `json:"u,omitempty"`
	Sig string            `json:"sig,omitempty"`
}

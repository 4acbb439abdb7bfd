package keyring

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"docseal/internal/domain"
	"docseal/internal/infra/crypto"
)

// Memory is an in-process key repository used in no-db mode, by the offline
// CLI, and in tests. Same contract as the gorm-backed repository, including
// ambiguity detection.
type Memory struct {
	mu   sync.RWMutex
	keys map[string]domain.SigningKey
}

func NewMemory() *Memory {
	return &Memory{keys: make(map[string]domain.SigningKey)}
}

// NewMemoryFromSeed boots a single-key repository from configured key
// material: either a PKCS#8 PEM private key or a raw 32-byte seed in hex.
func NewMemoryFromSeed(privateKeyPEM, seedHex string, purpose domain.KeyPurpose) (*Memory, error) {
	var priv ed25519.PrivateKey
	switch {
	case privateKeyPEM != "":
		parsed, err := crypto.ParsePrivateKeyPEM(privateKeyPEM)
		if err != nil {
			return nil, err
		}
		priv = parsed
	case seedHex != "":
		raw, err := hex.DecodeString(seedHex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidKeyMaterial, err)
		}
		if len(raw) != ed25519.SeedSize {
			return nil, fmt.Errorf("%w: seed must be %d bytes", domain.ErrInvalidKeyMaterial, ed25519.SeedSize)
		}
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("%w: no key material configured", domain.ErrInvalidKeyMaterial)
	}

	pub := priv.Public().(ed25519.PublicKey)
	privPEM, err := crypto.EncodePrivateKeyPEM(priv)
	if err != nil {
		return nil, err
	}
	pubPEM, err := crypto.EncodePublicKeyPEM(pub)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(pub)
	m := NewMemory()
	m.keys[hex.EncodeToString(sum[:16])] = domain.SigningKey{
		ID:            hex.EncodeToString(sum[:16]),
		Algorithm:     domain.AlgorithmEd25519,
		PrivateKeyPEM: privPEM,
		PublicKeyPEM:  pubPEM,
		IsActive:      true,
		KeyPurpose:    purpose,
		CreatedAt:     time.Now().UTC(),
	}
	return m, nil
}

func (m *Memory) FindActiveKey(_ context.Context, purpose domain.KeyPurpose) (*domain.SigningKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *domain.SigningKey
	for _, key := range m.keys {
		if key.KeyPurpose != purpose || !key.IsActive {
			continue
		}
		if found != nil {
			return nil, domain.ErrAmbiguousActiveKey
		}
		copied := key
		found = &copied
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

func (m *Memory) FindKeyByID(_ context.Context, id string) (*domain.SigningKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.keys[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := key
	return &copied, nil
}

func (m *Memory) Create(_ context.Context, key domain.SigningKey) error {
	if key.ID == "" {
		return fmt.Errorf("key id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	m.keys[key.ID] = key
	return nil
}

func (m *Memory) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[id]
	if !ok {
		return domain.ErrNotFound
	}
	key.IsActive = false
	m.keys[id] = key
	return nil
}

func (m *Memory) ListByPurpose(_ context.Context, purpose domain.KeyPurpose) ([]domain.SigningKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.SigningKey, 0, len(m.keys))
	for _, key := range m.keys {
		if key.KeyPurpose == purpose {
			out = append(out, key)
		}
	}
	return out, nil
}

package db

import (
	"context"
	"errors"
	"time"

	"docseal/internal/domain"

	"gorm.io/gorm"
)

type SigningKeyRepository struct {
	db *gorm.DB
}

func NewSigningKeyRepository(db *gorm.DB) *SigningKeyRepository {
	return &SigningKeyRepository{db: db}
}

// FindActiveKey expects exactly one active key per purpose. Zero maps to
// domain.ErrNotFound; two or more is a configuration error the caller must
// refuse to sign against, so it is reported distinctly instead of picking
// one.
func (r *SigningKeyRepository) FindActiveKey(ctx context.Context, purpose domain.KeyPurpose) (*domain.SigningKey, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []SigningKeyModel
	err := r.db.WithContext(ctx).
		Where("key_purpose = ? AND is_active = ?", string(purpose), true).
		Limit(2).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	switch len(models) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		return signingKeyFromModel(models[0]), nil
	default:
		return nil, domain.ErrAmbiguousActiveKey
	}
}

func (r *SigningKeyRepository) FindKeyByID(ctx context.Context, id string) (*domain.SigningKey, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SigningKeyModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return signingKeyFromModel(model), nil
}

func (r *SigningKeyRepository) Create(ctx context.Context, key domain.SigningKey) error {
	if r.db == nil {
		return errDBUnavailable
	}
	createdAt := key.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	algorithm := key.Algorithm
	if algorithm == "" {
		algorithm = domain.AlgorithmEd25519
	}
	model := SigningKeyModel{
		ID:            key.ID,
		Algorithm:     algorithm,
		PrivateKeyPEM: key.PrivateKeyPEM,
		PublicKeyPEM:  key.PublicKeyPEM,
		IsActive:      key.IsActive,
		KeyPurpose:    string(key.KeyPurpose),
		CreatedAt:     createdAt,
		ExpiresAt:     key.ExpiresAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// Deactivate clears IsActive only. CreatedAt and ExpiresAt are left alone so
// already-issued attestations keep verifying.
func (r *SigningKeyRepository) Deactivate(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).
		Model(&SigningKeyModel{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *SigningKeyRepository) ListByPurpose(ctx context.Context, purpose domain.KeyPurpose) ([]domain.SigningKey, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []SigningKeyModel
	err := r.db.WithContext(ctx).
		Where("key_purpose = ?", string(purpose)).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.SigningKey, 0, len(models))
	for _, model := range models {
		out = append(out, *signingKeyFromModel(model))
	}
	return out, nil
}

func signingKeyFromModel(model SigningKeyModel) *domain.SigningKey {
	return &domain.SigningKey{
		ID:            model.ID,
		Algorithm:     model.Algorithm,
		PrivateKeyPEM: model.PrivateKeyPEM,
		PublicKeyPEM:  model.PublicKeyPEM,
		IsActive:      model.IsActive,
		KeyPurpose:    domain.KeyPurpose(model.KeyPurpose),
		CreatedAt:     model.CreatedAt,
		ExpiresAt:     model.ExpiresAt,
	}
}

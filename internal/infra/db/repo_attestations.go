package db

import (
	"context"
	"time"

	"docseal/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttestationRepository struct {
	db *gorm.DB
}

func NewAttestationRepository(db *gorm.DB) *AttestationRepository {
	return &AttestationRepository{db: db}
}

func (r *AttestationRepository) Record(ctx context.Context, rec domain.AttestationRecord) error {
	if r.db == nil {
		return errDBUnavailable
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	model := AttestationModel{
		ID:           id,
		KeyID:        rec.KeyID,
		ProviderCode: rec.ProviderCode,
		DocumentHash: rec.DocumentHash,
		SignedAt:     rec.SignedAt,
		CreatedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *AttestationRepository) ListByKey(ctx context.Context, keyID string) ([]domain.AttestationRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AttestationModel
	err := r.db.WithContext(ctx).
		Where("key_id = ?", keyID).
		Order("signed_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.AttestationRecord, 0, len(models))
	for _, model := range models {
		out = append(out, domain.AttestationRecord{
			ID:           model.ID,
			KeyID:        model.KeyID,
			ProviderCode: model.ProviderCode,
			DocumentHash: model.DocumentHash,
			SignedAt:     model.SignedAt,
		})
	}
	return out, nil
}

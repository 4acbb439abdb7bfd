package db

import "time"

type SigningKeyModel struct {
	ID            string     `gorm:"primaryKey"`
	Algorithm     string     `gorm:"not null"`
	PrivateKeyPEM string     `gorm:"column:private_key_pem;type:text;not null"`
	PublicKeyPEM  string     `gorm:"column:public_key_pem;type:text;not null"`
	IsActive      bool       `gorm:"index;not null"`
	KeyPurpose    string     `gorm:"index;not null"`
	CreatedAt     time.Time  `gorm:"not null"`
	ExpiresAt     *time.Time
}

func (SigningKeyModel) TableName() string {
	return "signing_keys"
}

type AttestationModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	KeyID        string    `gorm:"index;not null"`
	ProviderCode string    `gorm:"not null"`
	DocumentHash string    `gorm:"index;not null"`
	SignedAt     time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (AttestationModel) TableName() string {
	return "attestations"
}

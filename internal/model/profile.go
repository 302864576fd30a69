package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Profile is the auction side of an external identity: a wallet plus
// back-references to owned, watched and bid-on listings.
type Profile struct {
	ID        uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	UserKey   uint64          `json:"user_key" gorm:"uniqueIndex;not null"`
	Username  string          `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Money     decimal.Decimal `json:"money" gorm:"type:decimal(20,2);not null;default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Identity is the external identity record a Profile mirrors.
// It is supplied by the identity-management collaborator and never stored here.
type Identity struct {
	Key       uint64    `json:"key"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

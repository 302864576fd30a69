package model

import (
	"time"

	"github.com/google/uuid"
)

// Log is an append-only, human-readable history entry of a profile.
type Log struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProfileID uuid.UUID `json:"profile_id" gorm:"type:char(36);not null;index"`
	Entry     string    `json:"entry" gorm:"size:255;not null"`
	Date      time.Time `json:"date" gorm:"not null;index"`
}

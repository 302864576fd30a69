package model

import (
	"time"

	"github.com/google/uuid"
)

// Watchlist links a profile to a listing it tracks.
type Watchlist struct {
	ProfileID uuid.UUID `json:"profile_id" gorm:"type:char(36);primaryKey;autoIncrement:false"`
	ListingID uuid.UUID `json:"listing_id" gorm:"type:char(36);primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`
}

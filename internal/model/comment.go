package model

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a remark on a listing. AuthorID is nil once the author is gone.
type Comment struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	ListingID uuid.UUID  `json:"listing_id" gorm:"type:char(36);not null;index"`
	AuthorID  *uuid.UUID `json:"author_id" gorm:"type:char(36);index"`
	Text      string     `json:"text" gorm:"type:text;not null"`
	PubDate   time.Time  `json:"pub_date" gorm:"not null;index"`
}

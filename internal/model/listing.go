package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SlugMaxLen is the maximum length of a listing slug.
const SlugMaxLen = 16

// ListingState is the lifecycle state of a listing.
type ListingState string

const (
	ListingStateDraft     ListingState = "draft"
	ListingStatePublished ListingState = "published"
)

// Listing is an item offered at auction.
//
// IsActive, DatePublished and HighestBid move together: a published listing
// has DatePublished set, a draft has neither DatePublished nor HighestBid.
type Listing struct {
	ID            uuid.UUID           `json:"id" gorm:"type:char(36);primaryKey"`
	Slug          string              `json:"slug" gorm:"size:16;uniqueIndex;not null"`
	Title         string              `json:"title" gorm:"size:300;not null"`
	Description   string              `json:"description" gorm:"type:text"`
	Image         string              `json:"image" gorm:"size:500"`
	StartingPrice decimal.Decimal     `json:"starting_price" gorm:"type:decimal(20,2);not null"`
	DateCreated   time.Time           `json:"date_created" gorm:"not null;index:idx_listing_dates,priority:2"`
	DatePublished *time.Time          `json:"date_published,omitempty" gorm:"index:idx_listing_dates,priority:1"`
	IsActive      bool                `json:"is_active" gorm:"not null;default:false;index"`
	HighestBid    decimal.NullDecimal `json:"highest_bid" gorm:"type:decimal(20,2)"`
	CategoryID    uint                `json:"category_id" gorm:"not null;index"`
	OwnerID       uuid.UUID           `json:"owner_id" gorm:"type:char(36);not null;index"`
	// Version is bumped by every state update and guards concurrent writers.
	Version   uint      `json:"version" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// State reports the lifecycle state derived from IsActive.
func (l *Listing) State() ListingState {
	if l.IsActive {
		return ListingStatePublished
	}
	return ListingStateDraft
}

// CurrentPrice is the highest bid when there is one, otherwise the starting price.
func (l *Listing) CurrentPrice() decimal.Decimal {
	if l.HighestBid.Valid {
		return l.HighestBid.Decimal
	}
	return l.StartingPrice
}

// OwnedBy reports whether the profile owns the listing.
func (l *Listing) OwnedBy(profileID uuid.UUID) bool {
	return l.OwnerID == profileID
}

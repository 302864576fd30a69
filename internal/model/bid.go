package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is an escrowed offer of a profile on a listing.
// ID grows with insertion and is the ledger order of a listing's bids.
type Bid struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	LotID        uuid.UUID       `json:"lot_id" gorm:"type:char(36);not null;index"`
	AuctioneerID uuid.UUID       `json:"auctioneer_id" gorm:"type:char(36);not null;index"`
	BidValue     decimal.Decimal `json:"bid_value" gorm:"type:decimal(20,2);not null"`
	BidDate      time.Time       `json:"bid_date" gorm:"not null"`
}

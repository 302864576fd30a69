package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"auctionhouse/internal/model"
)

// BidRepository defines bid ledger persistence operations.
type BidRepository interface {
	Create(ctx context.Context, bid *model.Bid) error
	// Latest returns the most recently inserted bid of a listing, or nil.
	Latest(ctx context.Context, listingID uuid.UUID) (*model.Bid, error)
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]model.Bid, error)
	ListByBidder(ctx context.Context, profileID uuid.UUID) ([]model.Bid, error)
	HasBid(ctx context.Context, listingID, profileID uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type bidRepository struct {
	db *gorm.DB
}

// NewBidRepository creates a new bid repository.
func NewBidRepository(db *gorm.DB) BidRepository {
	return &bidRepository{db: db}
}

// Create creates a new bid record.
func (r *bidRepository) Create(ctx context.Context, bid *model.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *bidRepository) Latest(ctx context.Context, listingID uuid.UUID) (*model.Bid, error) {
	var bids []model.Bid
	if err := r.db.WithContext(ctx).Where("lot_id = ?", listingID).
		Order("id DESC").Limit(1).Find(&bids).Error; err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, nil
	}
	return &bids[0], nil
}

// ListByListing lists the bids of a listing, newest first.
func (r *bidRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]model.Bid, error) {
	var bids []model.Bid
	if err := r.db.WithContext(ctx).Where("lot_id = ?", listingID).
		Order("id DESC").Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

// ListByBidder lists the outstanding bids of a profile, newest first.
func (r *bidRepository) ListByBidder(ctx context.Context, profileID uuid.UUID) ([]model.Bid, error) {
	var bids []model.Bid
	if err := r.db.WithContext(ctx).Where("auctioneer_id = ?", profileID).
		Order("id DESC").Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *bidRepository) HasBid(ctx context.Context, listingID, profileID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Bid{}).
		Where("lot_id = ? AND auctioneer_id = ?", listingID, profileID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes a bid record.
func (r *bidRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Bid{}).Error
}

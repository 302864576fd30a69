package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auctionhouse/internal/model"
)

// WatchlistRepository defines watchlist persistence operations.
type WatchlistRepository interface {
	// Add inserts the pair unless it already exists.
	Add(ctx context.Context, profileID, listingID uuid.UUID) error
	Remove(ctx context.Context, profileID, listingID uuid.UUID) (bool, error)
	Exists(ctx context.Context, profileID, listingID uuid.UUID) (bool, error)
	Watchers(ctx context.Context, listingID uuid.UUID) ([]uuid.UUID, error)
	// RemoveAllExcept clears a listing's watchlist but keeps one profile.
	RemoveAllExcept(ctx context.Context, listingID, keep uuid.UUID) error
	DeleteByListing(ctx context.Context, listingID uuid.UUID) error
	DeleteByProfile(ctx context.Context, profileID uuid.UUID) error
}

type watchlistRepository struct {
	db *gorm.DB
}

// NewWatchlistRepository creates a new watchlist repository.
func NewWatchlistRepository(db *gorm.DB) WatchlistRepository {
	return &watchlistRepository{db: db}
}

func (r *watchlistRepository) Add(ctx context.Context, profileID, listingID uuid.UUID) error {
	entry := model.Watchlist{ProfileID: profileID, ListingID: listingID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
}

func (r *watchlistRepository) Remove(ctx context.Context, profileID, listingID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("profile_id = ? AND listing_id = ?", profileID, listingID).
		Delete(&model.Watchlist{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *watchlistRepository) Exists(ctx context.Context, profileID, listingID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Watchlist{}).
		Where("profile_id = ? AND listing_id = ?", profileID, listingID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Watchers lists the profiles watching a listing in insertion order.
func (r *watchlistRepository) Watchers(ctx context.Context, listingID uuid.UUID) ([]uuid.UUID, error) {
	var entries []model.Watchlist
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).
		Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProfileID)
	}
	return ids, nil
}

func (r *watchlistRepository) RemoveAllExcept(ctx context.Context, listingID, keep uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("listing_id = ? AND profile_id <> ?", listingID, keep).
		Delete(&model.Watchlist{}).Error
}

func (r *watchlistRepository) DeleteByListing(ctx context.Context, listingID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("listing_id = ?", listingID).Delete(&model.Watchlist{}).Error
}

func (r *watchlistRepository) DeleteByProfile(ctx context.Context, profileID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("profile_id = ?", profileID).Delete(&model.Watchlist{}).Error
}

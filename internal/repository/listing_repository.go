package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "auctionhouse/internal/errors"
	"auctionhouse/internal/model"
)

// ListingRepository defines listing persistence operations.
type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Listing, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Listing, error)
	FindBySlug(ctx context.Context, slug string) (*model.Listing, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Listing, error)
	ListWatchedBy(ctx context.Context, profileID uuid.UUID) ([]model.Listing, error)
	ListBidOnBy(ctx context.Context, profileID uuid.UUID) ([]model.Listing, error)
	ListActive(ctx context.Context, categoryID *uint) ([]model.Listing, error)
	// Save persists every mutable field if the stored version still equals
	// listing.Version, then bumps the version. A stale version yields ErrConflict.
	Save(ctx context.Context, listing *model.Listing) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

// listingOrder is the catalogue order: latest published first, drafts by creation.
const listingOrder = "date_published DESC, date_created DESC"

// Create creates a new listing.
func (r *listingRepository) Create(ctx context.Context, listing *model.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

// FindByID finds a listing by ID.
func (r *listingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	var listing model.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindByIDForUpdate finds a listing by ID with row-level lock for update.
func (r *listingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	var listing model.Listing
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindBySlug finds a listing by slug.
func (r *listingRepository) FindBySlug(ctx context.Context, slug string) (*model.Listing, error) {
	var listing model.Listing
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Listing{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByOwner lists the listings a profile owns.
func (r *listingRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Listing, error) {
	var listings []model.Listing
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order(listingOrder).Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// ListWatchedBy lists the listings in a profile's watchlist.
func (r *listingRepository) ListWatchedBy(ctx context.Context, profileID uuid.UUID) ([]model.Listing, error) {
	var listings []model.Listing
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&model.Watchlist{}).Select("listing_id").Where("profile_id = ?", profileID)).
		Order(listingOrder).Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// ListBidOnBy lists the listings a profile holds outstanding bids on.
func (r *listingRepository) ListBidOnBy(ctx context.Context, profileID uuid.UUID) ([]model.Listing, error) {
	var listings []model.Listing
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&model.Bid{}).Select("lot_id").Where("auctioneer_id = ?", profileID)).
		Order(listingOrder).Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// ListActive lists published listings, optionally within one category.
func (r *listingRepository) ListActive(ctx context.Context, categoryID *uint) ([]model.Listing, error) {
	var listings []model.Listing
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	if err := q.Order(listingOrder).Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) Save(ctx context.Context, listing *model.Listing) error {
	res := r.db.WithContext(ctx).Model(&model.Listing{}).
		Where("id = ? AND version = ?", listing.ID, listing.Version).
		Updates(map[string]interface{}{
			"title":          listing.Title,
			"description":    listing.Description,
			"image":          listing.Image,
			"starting_price": listing.StartingPrice,
			"date_published": listing.DatePublished,
			"is_active":      listing.IsActive,
			"highest_bid":    listing.HighestBid,
			"category_id":    listing.CategoryID,
			"owner_id":       listing.OwnerID,
			"version":        listing.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	listing.Version++
	return nil
}

// Delete removes a listing row. Dependent rows must be removed first.
func (r *listingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Listing{}).Error
}

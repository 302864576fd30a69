package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"auctionhouse/internal/model"
)

// CommentRepository defines comment persistence operations.
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]model.Comment, error)
	// ClearAuthor detaches a profile from every comment it wrote.
	ClearAuthor(ctx context.Context, profileID uuid.UUID) error
	DeleteByListing(ctx context.Context, listingID uuid.UUID) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create creates a new comment record.
func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListByListing lists the comments of a listing, newest first.
func (r *commentRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]model.Comment, error) {
	var comments []model.Comment
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).
		Order("pub_date DESC, id DESC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) ClearAuthor(ctx context.Context, profileID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Comment{}).
		Where("author_id = ?", profileID).
		Update("author_id", nil).Error
}

func (r *commentRepository) DeleteByListing(ctx context.Context, listingID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("listing_id = ?", listingID).Delete(&model.Comment{}).Error
}

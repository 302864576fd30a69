package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"auctionhouse/internal/cache"
	apperrors "auctionhouse/internal/errors"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// CommentService handles remarks left on listings.
type CommentService interface {
	AddComment(ctx context.Context, listingID, authorID uuid.UUID, text string) (*model.Comment, error)
	Comments(ctx context.Context, listingID uuid.UUID) ([]model.Comment, error)
}

type commentService struct {
	core
}

// NewCommentService creates a new comment service.
func NewCommentService(store repository.Store, cache *cache.Client, log logrus.FieldLogger, policy RetryPolicy) CommentService {
	return &commentService{core: core{store: store, cache: cache, log: log, policy: policy}}
}

func (s *commentService) AddComment(ctx context.Context, listingID, authorID uuid.UUID, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrInvalidComment
	}

	var comment *model.Comment
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		if _, err := u.lockListing(ctx, listingID); err != nil {
			return err
		}
		if _, err := u.lockProfile(ctx, authorID); err != nil {
			return err
		}
		comment = &model.Comment{
			ListingID: listingID,
			AuthorID:  &authorID,
			Text:      text,
			PubDate:   time.Now().UTC(),
		}
		if err := u.tx.Comments().Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Comments lists the comments of a listing, newest first.
func (s *commentService) Comments(ctx context.Context, listingID uuid.UUID) ([]model.Comment, error) {
	comments, err := s.store.Comments().ListByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

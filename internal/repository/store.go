package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the auction repositories over one connection or transaction.
type Store interface {
	Profiles() ProfileRepository
	Listings() ListingRepository
	Bids() BidRepository
	Watchlists() WatchlistRepository
	Logs() LogRepository
	Comments() CommentRepository
	Categories() CategoryRepository
	// WithTransaction executes fn with a Store bound to a database transaction.
	// Returning an error from fn rolls every write back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type store struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Profiles() ProfileRepository     { return NewProfileRepository(s.db) }
func (s *store) Listings() ListingRepository     { return NewListingRepository(s.db) }
func (s *store) Bids() BidRepository             { return NewBidRepository(s.db) }
func (s *store) Watchlists() WatchlistRepository { return NewWatchlistRepository(s.db) }
func (s *store) Logs() LogRepository             { return NewLogRepository(s.db) }
func (s *store) Comments() CommentRepository     { return NewCommentRepository(s.db) }
func (s *store) Categories() CategoryRepository  { return NewCategoryRepository(s.db) }

// WithTransaction executes a function within a database transaction.
func (s *store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &store{db: tx})
	})
}

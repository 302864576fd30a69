package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"auctionhouse/internal/model"
)

func (u *unit) watch(ctx context.Context, profileID, listingID uuid.UUID) error {
	if err := u.tx.Watchlists().Add(ctx, profileID, listingID); err != nil {
		return fmt.Errorf("watch %s: %w", listingID, err)
	}
	return nil
}

// keepOnlyOwnerWatching leaves the owner as the single watcher of a listing.
func (u *unit) keepOnlyOwnerWatching(ctx context.Context, listing *model.Listing) error {
	if err := u.tx.Watchlists().RemoveAllExcept(ctx, listing.ID, listing.OwnerID); err != nil {
		return fmt.Errorf("clear watchers of %s: %w", listing.Slug, err)
	}
	return u.watch(ctx, listing.OwnerID, listing.ID)
}

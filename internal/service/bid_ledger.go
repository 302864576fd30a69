package service

import (
	"context"
	"fmt"

	apperrors "auctionhouse/internal/errors"
	"auctionhouse/internal/model"
)

// highestBid returns the last accepted bid of a listing, or nil.
//
// Bids are only accepted when they beat every earlier one, so the last
// inserted bid is also the largest. The stored highest_bid must agree with
// it; a disagreement means the ledger was written around this package.
func (u *unit) highestBid(ctx context.Context, listing *model.Listing) (*model.Bid, error) {
	top, err := u.tx.Bids().Latest(ctx, listing.ID)
	if err != nil {
		return nil, fmt.Errorf("highest bid of %s: %w", listing.Slug, err)
	}

	switch {
	case top == nil && !listing.HighestBid.Valid:
		return nil, nil
	case top != nil && listing.HighestBid.Valid && top.BidValue.Equal(listing.HighestBid.Decimal):
		return top, nil
	default:
		return nil, fmt.Errorf("listing %s: %w", listing.Slug, apperrors.ErrLedgerMismatch)
	}
}

// deleteBid removes a bid. With refund the escrow goes back to the bidder
// together with one audit entry explaining why.
func (u *unit) deleteBid(ctx context.Context, bid model.Bid, title string, refund, itemSold bool) error {
	if refund {
		if _, err := u.credit(ctx, bid.AuctioneerID, bid.BidValue); err != nil {
			return fmt.Errorf("refund bid %d: %w", bid.ID, err)
		}
		if err := u.writeLog(ctx, bid.AuctioneerID, refundEntry(title, bid.BidValue, itemSold)); err != nil {
			return err
		}
	}
	if err := u.tx.Bids().Delete(ctx, bid.ID); err != nil {
		return fmt.Errorf("delete bid %d: %w", bid.ID, err)
	}
	return nil
}

// restoreHighestBid points highest_bid back at the ledger after bids were
// removed from the middle of it.
func (u *unit) restoreHighestBid(ctx context.Context, listing *model.Listing) error {
	top, err := u.tx.Bids().Latest(ctx, listing.ID)
	if err != nil {
		return fmt.Errorf("highest bid of %s: %w", listing.Slug, err)
	}
	listing.HighestBid.Valid = top != nil
	if top != nil {
		listing.HighestBid.Decimal = top.BidValue
	}
	return u.saveListing(ctx, listing)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"auctionhouse/internal/cache"
	apperrors "auctionhouse/internal/errors"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// ListingDraft carries the owner-editable fields of a listing.
type ListingDraft struct {
	Title         string
	Description   string
	Image         string
	StartingPrice decimal.Decimal
	CategoryID    uint
}

// ListingService drives the listing lifecycle: draft, published, and back
// to draft through withdraw or close.
type ListingService interface {
	CreateListing(ctx context.Context, ownerID uuid.UUID, draft ListingDraft) (*model.Listing, error)
	EditListing(ctx context.Context, listingID uuid.UUID, draft ListingDraft) (bool, error)
	DeleteListing(ctx context.Context, listingID uuid.UUID) (bool, error)
	GetListing(ctx context.Context, slug string) (*model.Listing, error)
	ActiveListings(ctx context.Context, categoryID *uint) ([]model.Listing, error)

	Publish(ctx context.Context, listingID uuid.UUID) (bool, error)
	Withdraw(ctx context.Context, listingID uuid.UUID, itemSold bool) (bool, error)
	// NoBidReason tells whether bidderID could bid on the listing at all.
	NoBidReason(ctx context.Context, listingID, bidderID uuid.UUID) (Reason, error)
	// NoBidReasonFor additionally checks a concrete amount.
	NoBidReasonFor(ctx context.Context, listingID, bidderID uuid.UUID, amount decimal.Decimal) (Reason, error)
	PlaceBid(ctx context.Context, listingID, bidderID uuid.UUID, amount decimal.Decimal) (bool, Reason, error)
	Close(ctx context.Context, listingID uuid.UUID) (bool, error)

	Watch(ctx context.Context, listingID, profileID uuid.UUID) (bool, error)
	Unwatch(ctx context.Context, listingID, profileID uuid.UUID) (bool, error)

	// HighestPrice is the current price. With percent it is the lowest
	// acceptable next bid once bids exist, rounded up to cents.
	HighestPrice(ctx context.Context, listingID uuid.UUID, percent bool) (decimal.Decimal, error)
	HighestBid(ctx context.Context, listingID uuid.UUID) (*model.Bid, error)
	Bids(ctx context.Context, listingID uuid.UUID) ([]model.Bid, error)
	OwnedBy(ctx context.Context, listingID, profileID uuid.UUID) (bool, error)

	CreateCategory(ctx context.Context, label string) (*model.Category, error)
	Categories(ctx context.Context) ([]model.Category, error)
}

type listingService struct {
	core
	rules AuctionRules
}

// NewListingService creates a new listing service.
func NewListingService(
	store repository.Store,
	cache *cache.Client,
	log logrus.FieldLogger,
	rules AuctionRules,
	policy RetryPolicy,
) ListingService {
	return &listingService{
		core:  core{store: store, cache: cache, log: log, policy: policy},
		rules: rules,
	}
}

func (s *listingService) validateDraft(draft *ListingDraft) error {
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return fmt.Errorf("%w: empty title", apperrors.ErrInvalidListing)
	}
	if !validAmount(draft.StartingPrice) {
		return fmt.Errorf("%w: starting price must be positive", apperrors.ErrInvalidListing)
	}
	return nil
}

func (u *unit) requireCategory(ctx context.Context, id uint) error {
	if _, err := u.tx.Categories().FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCategoryNotFound
		}
		return fmt.Errorf("find category %d: %w", id, err)
	}
	return nil
}

// CreateListing stores a new draft owned by ownerID and puts it in the owner's watchlist.
func (s *listingService) CreateListing(ctx context.Context, ownerID uuid.UUID, draft ListingDraft) (*model.Listing, error) {
	if err := s.validateDraft(&draft); err != nil {
		return nil, err
	}

	var listing *model.Listing
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		if _, err := u.lockProfile(ctx, ownerID); err != nil {
			return err
		}
		if err := u.requireCategory(ctx, draft.CategoryID); err != nil {
			return err
		}
		slug, err := uniqueSlug(ctx, u.tx.Listings(), draft.Title)
		if err != nil {
			return err
		}

		listing = &model.Listing{
			Slug:          slug,
			Title:         draft.Title,
			Description:   draft.Description,
			Image:         draft.Image,
			StartingPrice: draft.StartingPrice,
			DateCreated:   time.Now().UTC(),
			CategoryID:    draft.CategoryID,
			OwnerID:       ownerID,
		}
		if err := u.tx.Listings().Create(ctx, listing); err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
		if err := u.writeLog(ctx, ownerID, newListingEntry(listing.Title)); err != nil {
			return err
		}
		return u.watch(ctx, ownerID, listing.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"listing": listing.Slug, "owner": ownerID}).Info("listing created")
	return listing, nil
}

// EditListing updates a draft. Published listings cannot be edited.
func (s *listingService) EditListing(ctx context.Context, listingID uuid.UUID, draft ListingDraft) (bool, error) {
	if err := s.validateDraft(&draft); err != nil {
		return false, err
	}

	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		listing, err := u.lockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.IsActive {
			return errRejected
		}
		if err := u.requireCategory(ctx, draft.CategoryID); err != nil {
			return err
		}
		listing.Title = draft.Title
		listing.Description = draft.Description
		listing.Image = draft.Image
		listing.StartingPrice = draft.StartingPrice
		listing.CategoryID = draft.CategoryID
		return u.saveListing(ctx, listing)
	})
	return settle(err)
}

// DeleteListing removes a draft together with its comments and watchers.
func (s *listingService) DeleteListing(ctx context.Context, listingID uuid.UUID) (bool, error) {
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		listing, err := u.lockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.IsActive {
			return errRejected
		}
		return u.removeListing(ctx, listing)
	})
	return settle(err)
}

// removeListing deletes an unpublished listing and every row hanging off it.
func (u *unit) removeListing(ctx context.Context, listing *model.Listing) error {
	if listing.IsActive {
		return fmt.Errorf("remove listing %s: still published", listing.Slug)
	}
	if err := u.tx.Comments().DeleteByListing(ctx, listing.ID); err != nil {
		return fmt.Errorf("delete comments of %s: %w", listing.Slug, err)
	}
	if err := u.tx.Watchlists().DeleteByListing(ctx, listing.ID); err != nil {
		return fmt.Errorf("delete watchers of %s: %w", listing.Slug, err)
	}
	if err := u.tx.Listings().Delete(ctx, listing.ID); err != nil {
		return fmt.Errorf("delete listing %s: %w", listing.Slug, err)
	}
	u.touchListing(listing.Slug)
	return nil
}

// GetListing retrieves a listing by slug with caching.
func (s *listingService) GetListing(ctx context.Context, slug string) (*model.Listing, error) {
	var cached model.Listing
	if s.cache.GetJSON(ctx, cache.ListingKey(slug), &cached) {
		return &cached, nil
	}

	listing, err := s.store.Listings().FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}

	s.cache.SetJSON(ctx, cache.ListingKey(slug), listing, snapshotTTL)
	return listing, nil
}

func (s *listingService) ActiveListings(ctx context.Context, categoryID *uint) ([]model.Listing, error) {
	listings, err := s.store.Listings().ListActive(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list active listings: %w", err)
	}
	return listings, nil
}

func (s *listingService) findListing(ctx context.Context, listingID uuid.UUID) (*model.Listing, error) {
	listing, err := s.store.Listings().FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrListingNotFound
		}
		return nil, fmt.Errorf("find listing %s: %w", listingID, err)
	}
	return listing, nil
}

// Publish opens the auction if the listing is a draft with a high enough starting price.
func (s *listingService) Publish(ctx context.Context, listingID uuid.UUID) (bool, error) {
	var slug string
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		listing, err := u.lockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.IsActive || listing.StartingPrice.LessThan(s.rules.MinStartingPrice) {
			return errRejected
		}

		now := time.Now().UTC()
		listing.DatePublished = &now
		listing.IsActive = true
		listing.HighestBid = decimal.NullDecimal{}
		if err := u.saveListing(ctx, listing); err != nil {
			return err
		}
		slug = listing.Slug
		return u.writeLog(ctx, listing.OwnerID, publishedEntry(listing.Title))
	})

	ok, err := settle(err)
	if ok {
		s.log.WithField("listing", slug).Info("listing published")
	}
	return ok, err
}

// Withdraw takes a published listing off the auction and refunds every bid.
func (s *listingService) Withdraw(ctx context.Context, listingID uuid.UUID, itemSold bool) (bool, error) {
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		listing, err := u.lockListing(ctx, listingID)
		if err != nil {
			return err
		}
		withdrawn, err := u.withdraw(ctx, listing, itemSold)
		if err != nil {
			return err
		}
		if !withdrawn {
			return errRejected
		}
		return nil
	})

	ok, err := settle(err)
	if ok {
		s.log.WithFields(logrus.Fields{"listing": listingID, "item_sold": itemSold}).Info("listing withdrawn")
	}
	return ok, err
}

// withdraw returns a published listing to draft: the price fields are
// cleared, every outstanding bid is refunded and only the owner keeps watching.
func (u *unit) withdraw(ctx context.Context, listing *model.Listing, itemSold bool) (bool, error) {
	if !listing.IsActive {
		return false, nil
	}

	listing.DatePublished = nil
	listing.IsActive = false
	listing.HighestBid = decimal.NullDecimal{}
	if err := u.saveListing(ctx, listing); err != nil {
		return false, err
	}

	if !itemSold {
		if err := u.writeLog(ctx, listing.OwnerID, withdrawnEntry(listing.Title)); err != nil {
			return false, err
		}
	}

	bids, err := u.tx.Bids().ListByListing(ctx, listing.ID)
	if err != nil {
		return false, fmt.Errorf("list bids of %s: %w", listing.Slug, err)
	}
	for _, bid := range bids {
		if err := u.deleteBid(ctx, bid, listing.Title, true, itemSold); err != nil {
			return false, err
		}
	}

	if err := u.keepOnlyOwnerWatching(ctx, listing); err != nil {
		return false, err
	}
	return true, nil
}

func (s *listingService) NoBidReason(ctx context.Context, listingID, bidderID uuid.UUID) (Reason, error) {
	return s.noBidReason(ctx, listingID, bidderID, nil)
}

func (s *listingService) NoBidReasonFor(ctx context.Context, listingID, bidderID uuid.UUID, amount decimal.Decimal) (Reason, error) {
	return s.noBidReason(ctx, listingID, bidderID, &amount)
}

// noBidReason runs the bid checks in a read-only transaction so the listing,
// its ledger and the bidder's wallet are seen at one point in time.
func (s *listingService) noBidReason(ctx context.Context, listingID, bidderID uuid.UUID, amount *decimal.Decimal) (Reason, error) {
	reason := ReasonNone
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		u := newUnit()
		u.tx = tx
		listing, err := tx.Listings().FindByID(ctx, listingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrListingNotFound
			}
			return err
		}
		bidder, err := tx.Profiles().FindByID(ctx, bidderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrProfileNotFound
			}
			return err
		}
		reason, err = u.evaluateBid(ctx, s.rules, listing, bidder, amount)
		return err
	})
	if err != nil {
		return ReasonNone, err
	}
	return reason, nil
}

// evaluateBid checks whether bidder may bid on listing, and when amount is
// given, whether that amount would be accepted.
func (u *unit) evaluateBid(ctx context.Context, rules AuctionRules, listing *model.Listing, bidder *model.Profile, amount *decimal.Decimal) (Reason, error) {
	if !listing.IsActive {
		return ReasonNotPublished, nil
	}
	if listing.OwnedBy(bidder.ID) {
		return ReasonIsOwner, nil
	}

	top, err := u.highestBid(ctx, listing)
	if err != nil {
		return ReasonNone, err
	}
	if top != nil && top.AuctioneerID == bidder.ID {
		return ReasonAlreadyHighestBidder, nil
	}
	if !rules.affordable(listing, top, bidder.Money) {
		return ReasonInsufficientFunds, nil
	}
	if amount == nil {
		return ReasonNone, nil
	}

	if reason := rules.accepts(listing, top, *amount); reason != ReasonNone {
		return reason, nil
	}
	if bidder.Money.LessThan(*amount) {
		return ReasonInsufficientFunds, nil
	}
	return ReasonNone, nil
}

// PlaceBid escrows amount from the bidder and records it as the new highest bid.
func (s *listingService) PlaceBid(ctx context.Context, listingID, bidderID uuid.UUID, amount decimal.Decimal) (bool, Reason, error) {
	if !amount.Equal(amount.Round(2)) {
		return false, ReasonNone, apperrors.ErrInvalidAmount
	}

	var slug string
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		listing, err := u.lockListing(ctx, listingID)
		if err != nil {
			return err
		}
		bidder, err := u.lockProfile(ctx, bidderID)
		if err != nil {
			return err
		}

		reason, err := u.evaluateBid(ctx, s.rules, listing, bidder, &amount)
		if err != nil {
			return err
		}
		if reason != ReasonNone {
			return &bidRejection{reason: reason}
		}

		if err := u.debit(ctx, bidderID, amount); err != nil {
			if errors.Is(err, apperrors.ErrInsufficientFunds) {
				return &bidRejection{reason: ReasonInsufficientFunds}
			}
			return err
		}
		bid := &model.Bid{
			LotID:        listing.ID,
			AuctioneerID: bidderID,
			BidValue:     amount,
			BidDate:      time.Now().UTC(),
		}
		if err := u.tx.Bids().Create(ctx, bid); err != nil {
			return fmt.Errorf("create bid: %w", err)
		}

		listing.HighestBid = decimal.NullDecimal{Decimal: amount, Valid: true}
		if err := u.saveListing(ctx, listing); err != nil {
			return err
		}
		if err := u.watch(ctx, bidderID, listing.ID); err != nil {
			return err
		}
		slug = listing.Slug
		return u.writeLog(ctx, bidderID, newBidEntry(listing.Title, amount))
	})

	var rejected *bidRejection
	if errors.As(err, &rejected) {
		return false, rejected.reason, nil
	}
	if err != nil {
		return false, ReasonNone, err
	}

	s.log.WithFields(logrus.Fields{
		"listing": slug,
		"bidder":  bidderID,
		"value":   money(amount),
	}).Info("bid placed")
	return true, ReasonNone, nil
}

// Close sells the listing to its highest bidder: the winning escrow goes to
// the seller, ownership moves, and the remaining bids are settled by withdraw.
func (s *listingService) Close(ctx context.Context, listingID uuid.UUID) (bool, error) {
	var slug, winnerName string
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		listing, err := u.lockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.IsActive {
			return errRejected
		}
		top, err := u.highestBid(ctx, listing)
		if err != nil {
			return err
		}
		if top == nil {
			return errRejected
		}

		seller := listing.OwnerID
		winner, err := u.lockProfile(ctx, top.AuctioneerID)
		if err != nil {
			return err
		}

		if _, err := u.topUp(ctx, seller, top.BidValue); err != nil {
			return err
		}
		if err := u.writeLog(ctx, seller, itemSoldEntry(listing.Title, winner.Username)); err != nil {
			return err
		}
		if err := u.deleteBid(ctx, *top, listing.Title, false, true); err != nil {
			return err
		}

		listing.OwnerID = winner.ID
		listing.StartingPrice = s.rules.DefaultStartingPrice
		if _, err := u.withdraw(ctx, listing, true); err != nil {
			return err
		}
		u.touchProfile(seller)
		u.touchProfile(winner.ID)

		slug, winnerName = listing.Slug, winner.Username
		return u.writeLog(ctx, winner.ID, youWonEntry(listing.Title, top.BidValue))
	})

	ok, err := settle(err)
	if ok {
		s.log.WithFields(logrus.Fields{"listing": slug, "owner": winnerName}).Info("listing owner changed")
	}
	return ok, err
}

// Watch adds a published listing to a profile's watchlist.
func (s *listingService) Watch(ctx context.Context, listingID, profileID uuid.UUID) (bool, error) {
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		listing, err := u.lockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.IsActive && !listing.OwnedBy(profileID) {
			return errRejected
		}
		if _, err := u.lockProfile(ctx, profileID); err != nil {
			return err
		}
		return u.watch(ctx, profileID, listingID)
	})
	return settle(err)
}

// Unwatch removes a listing from a profile's watchlist. The owner and any
// profile with money escrowed on the listing keep watching.
func (s *listingService) Unwatch(ctx context.Context, listingID, profileID uuid.UUID) (bool, error) {
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		listing, err := u.lockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.OwnedBy(profileID) {
			return errRejected
		}
		bidding, err := u.tx.Bids().HasBid(ctx, listingID, profileID)
		if err != nil {
			return fmt.Errorf("check bids: %w", err)
		}
		if bidding {
			return errRejected
		}
		removed, err := u.tx.Watchlists().Remove(ctx, profileID, listingID)
		if err != nil {
			return fmt.Errorf("unwatch %s: %w", listingID, err)
		}
		if !removed {
			return errRejected
		}
		return nil
	})
	return settle(err)
}

func (s *listingService) HighestPrice(ctx context.Context, listingID uuid.UUID, percent bool) (decimal.Decimal, error) {
	listing, err := s.findListing(ctx, listingID)
	if err != nil {
		return decimal.Zero, err
	}
	if percent && listing.HighestBid.Valid {
		return s.rules.incrementOver(listing.HighestBid.Decimal).RoundCeil(2), nil
	}
	return listing.CurrentPrice(), nil
}

func (s *listingService) HighestBid(ctx context.Context, listingID uuid.UUID) (*model.Bid, error) {
	var top *model.Bid
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		listing, err := tx.Listings().FindByID(ctx, listingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrListingNotFound
			}
			return err
		}
		u := newUnit()
		u.tx = tx
		top, err = u.highestBid(ctx, listing)
		return err
	})
	if err != nil {
		return nil, err
	}
	return top, nil
}

// Bids lists the outstanding bids of a listing, newest first.
func (s *listingService) Bids(ctx context.Context, listingID uuid.UUID) ([]model.Bid, error) {
	bids, err := s.store.Bids().ListByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return bids, nil
}

func (s *listingService) OwnedBy(ctx context.Context, listingID, profileID uuid.UUID) (bool, error) {
	listing, err := s.findListing(ctx, listingID)
	if err != nil {
		return false, err
	}
	return listing.OwnedBy(profileID), nil
}

func (s *listingService) CreateCategory(ctx context.Context, label string) (*model.Category, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: empty category label", apperrors.ErrInvalidListing)
	}
	category := &model.Category{Label: label}
	if err := s.store.Categories().Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *listingService) Categories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.store.Categories().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// settle turns a unit result into the (ok, err) pair of a state transition.
func settle(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errRejected):
		return false, nil
	default:
		return false, err
	}
}

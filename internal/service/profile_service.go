package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"auctionhouse/internal/cache"
	apperrors "auctionhouse/internal/errors"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// ProfileService keeps profiles in step with the external identities and
// serves the per-profile views.
type ProfileService interface {
	// SyncProfile creates the profile of a new identity or renames an existing one.
	SyncProfile(ctx context.Context, identity model.Identity) (*model.Profile, error)
	// DeleteProfile removes the profile mirroring the identity key with all it owns.
	DeleteProfile(ctx context.Context, key uint64) (bool, error)
	// Reconcile repairs every difference between the identities and the stored profiles.
	Reconcile(ctx context.Context, identities []model.Identity) (*ReconcileReport, error)

	GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error)
	ItemsOwned(ctx context.Context, id uuid.UUID) ([]model.Listing, error)
	ItemsWatched(ctx context.Context, id uuid.UUID) ([]model.Listing, error)
	PlacedBids(ctx context.Context, id uuid.UUID) ([]model.Bid, error)
	Logs(ctx context.Context, id uuid.UUID) ([]model.Log, error)
}

type profileService struct {
	core
}

// NewProfileService creates a new profile service.
func NewProfileService(store repository.Store, cache *cache.Client, log logrus.FieldLogger, policy RetryPolicy) ProfileService {
	return &profileService{core: core{store: store, cache: cache, log: log, policy: policy}}
}

func (s *profileService) SyncProfile(ctx context.Context, identity model.Identity) (*model.Profile, error) {
	if identity.Username == "" {
		return nil, fmt.Errorf("sync profile %d: empty username", identity.Key)
	}

	var (
		profile *model.Profile
		created bool
		oldName string
	)
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		existing, err := u.tx.Profiles().FindByUserKey(ctx, identity.Key)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile, err = u.createProfile(ctx, identity)
			created = true
			return err
		}
		if err != nil {
			return fmt.Errorf("find profile %d: %w", identity.Key, err)
		}

		profile, created, oldName = existing, false, existing.Username
		if existing.Username == identity.Username {
			return nil
		}
		if err := u.tx.Profiles().Rename(ctx, existing.ID, identity.Username); err != nil {
			return fmt.Errorf("rename profile %s: %w", existing.ID, err)
		}
		u.touchProfile(existing.ID)
		profile.Username = identity.Username
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{"profile": profile.ID, "username": profile.Username})
	switch {
	case created:
		entry.Info("profile created")
	case oldName != profile.Username:
		entry.WithField("old_username", oldName).Info("profile renamed")
	}
	return profile, nil
}

// createProfile inserts an empty wallet for identity and records the registration date.
func (u *unit) createProfile(ctx context.Context, identity model.Identity) (*model.Profile, error) {
	profile := &model.Profile{UserKey: identity.Key, Username: identity.Username}
	if err := u.tx.Profiles().Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile %q: %w", identity.Username, err)
	}
	registered := identity.CreatedAt
	if registered.IsZero() {
		registered = time.Now().UTC()
	}
	if err := u.writeLogAt(ctx, profile.ID, entryRegistration, registered); err != nil {
		return nil, err
	}
	u.touchProfile(profile.ID)
	return profile, nil
}

func (s *profileService) DeleteProfile(ctx context.Context, key uint64) (bool, error) {
	var deleted *model.Profile
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		profile, err := u.tx.Profiles().FindByUserKey(ctx, key)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errRejected
		}
		if err != nil {
			return fmt.Errorf("find profile %d: %w", key, err)
		}
		deleted = profile
		return u.deleteProfile(ctx, profile)
	})

	ok, err := settle(err)
	if ok {
		s.log.WithFields(logrus.Fields{"profile": deleted.ID, "username": deleted.Username}).Info("profile deleted")
	}
	return ok, err
}

// deleteProfile removes a profile and everything hanging off it. Owned
// listings are withdrawn with refunds and removed, the profile's own bids
// are refunded and the affected listings get their highest bid back from
// the remaining ledger. Comments survive without an author.
func (u *unit) deleteProfile(ctx context.Context, profile *model.Profile) error {
	owned, err := u.tx.Listings().ListByOwner(ctx, profile.ID)
	if err != nil {
		return fmt.Errorf("list listings of %s: %w", profile.Username, err)
	}
	for _, l := range owned {
		listing, err := u.lockListing(ctx, l.ID)
		if err != nil {
			return err
		}
		if _, err := u.withdraw(ctx, listing, false); err != nil {
			return err
		}
		if err := u.removeListing(ctx, listing); err != nil {
			return err
		}
	}

	bids, err := u.tx.Bids().ListByBidder(ctx, profile.ID)
	if err != nil {
		return fmt.Errorf("list bids of %s: %w", profile.Username, err)
	}
	affected := make(map[uuid.UUID]*model.Listing)
	for _, bid := range bids {
		listing, ok := affected[bid.LotID]
		if !ok {
			if listing, err = u.lockListing(ctx, bid.LotID); err != nil {
				return err
			}
			affected[bid.LotID] = listing
		}
		if err := u.deleteBid(ctx, bid, listing.Title, true, false); err != nil {
			return err
		}
	}
	for _, listing := range affected {
		if err := u.restoreHighestBid(ctx, listing); err != nil {
			return err
		}
	}

	if err := u.tx.Watchlists().DeleteByProfile(ctx, profile.ID); err != nil {
		return fmt.Errorf("delete watchlist of %s: %w", profile.Username, err)
	}
	if err := u.tx.Comments().ClearAuthor(ctx, profile.ID); err != nil {
		return fmt.Errorf("detach comments of %s: %w", profile.Username, err)
	}
	if err := u.tx.Logs().DeleteByProfile(ctx, profile.ID); err != nil {
		return fmt.Errorf("delete logs of %s: %w", profile.Username, err)
	}
	if err := u.tx.Profiles().Delete(ctx, profile.ID); err != nil {
		return fmt.Errorf("delete profile %s: %w", profile.Username, err)
	}
	u.touchProfile(profile.ID)
	return nil
}

// GetProfile retrieves a profile by ID with caching.
func (s *profileService) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var cached model.Profile
	if s.cache.GetJSON(ctx, cache.ProfileKey(id), &cached) {
		return &cached, nil
	}

	profile, err := s.store.Profiles().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	s.cache.SetJSON(ctx, cache.ProfileKey(id), profile, snapshotTTL)
	return profile, nil
}

func (s *profileService) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	profile, err := s.store.Profiles().FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile %q: %w", username, err)
	}
	return profile, nil
}

func (s *profileService) ItemsOwned(ctx context.Context, id uuid.UUID) ([]model.Listing, error) {
	listings, err := s.store.Listings().ListByOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("items owned: %w", err)
	}
	return listings, nil
}

func (s *profileService) ItemsWatched(ctx context.Context, id uuid.UUID) ([]model.Listing, error) {
	listings, err := s.store.Listings().ListWatchedBy(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("items watched: %w", err)
	}
	return listings, nil
}

// PlacedBids lists the outstanding bids of a profile, newest first.
func (s *profileService) PlacedBids(ctx context.Context, id uuid.UUID) ([]model.Bid, error) {
	bids, err := s.store.Bids().ListByBidder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("placed bids: %w", err)
	}
	return bids, nil
}

// Logs returns the audit history of a profile, newest first.
func (s *profileService) Logs(ctx context.Context, id uuid.UUID) ([]model.Log, error) {
	logs, err := s.store.Logs().ListByProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("profile logs: %w", err)
	}
	return logs, nil
}

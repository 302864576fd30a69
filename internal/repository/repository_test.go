package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auctionhouse/internal/db"
	apperrors "auctionhouse/internal/errors"
	"auctionhouse/internal/model"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	gormDB, err := db.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewStore(gormDB)
}

func createProfile(t *testing.T, s Store, key uint64, name string, money string) *model.Profile {
	t.Helper()
	p := &model.Profile{UserKey: key, Username: name, Money: decimal.RequireFromString(money)}
	require.NoError(t, s.Profiles().Create(context.Background(), p))
	return p
}

func createListing(t *testing.T, s Store, owner uuid.UUID, slug string) *model.Listing {
	t.Helper()
	l := &model.Listing{
		Slug:          slug,
		Title:         slug,
		StartingPrice: decimal.NewFromInt(1),
		DateCreated:   time.Now().UTC(),
		CategoryID:    1,
		OwnerID:       owner,
	}
	require.NoError(t, s.Listings().Create(context.Background(), l))
	return l
}

func TestProfileRepository_DebitIsConditional(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := createProfile(t, s, 1, "toki", "10")

	ok, err := s.Profiles().Debit(ctx, p.ID, decimal.NewFromInt(15))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Profiles().Debit(ctx, p.ID, decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Profiles().Credit(ctx, p.ID, decimal.NewFromInt(1)))

	got, err := s.Profiles().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Money.Equal(decimal.RequireFromString("8.5")), "money = %s", got.Money)
}

func TestProfileRepository_CreditUnknownProfile(t *testing.T) {
	s := newTestStore(t)
	err := s.Profiles().Credit(context.Background(), uuid.New(), decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestListingRepository_SaveChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := createProfile(t, s, 1, "toki", "0")
	l := createListing(t, s, owner.ID, "japari-bun")

	stale := *l
	now := time.Now().UTC()
	l.IsActive = true
	l.DatePublished = &now
	require.NoError(t, s.Listings().Save(ctx, l))
	assert.Equal(t, uint(1), l.Version)

	stale.Title = "lost update"
	err := s.Listings().Save(ctx, &stale)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := s.Listings().FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.NotNil(t, got.DatePublished)
	assert.Equal(t, "japari-bun", got.Title)
}

func TestBidRepository_LatestFollowsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := createProfile(t, s, 1, "toki", "0")
	bidder := createProfile(t, s, 2, "serval", "0")
	l := createListing(t, s, owner.ID, "japari-bun")

	latest, err := s.Bids().Latest(ctx, l.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	sameInstant := time.Now().UTC()
	for _, v := range []string{"1.5", "1.6", "2"} {
		require.NoError(t, s.Bids().Create(ctx, &model.Bid{
			LotID: l.ID, AuctioneerID: bidder.ID, BidValue: decimal.RequireFromString(v), BidDate: sameInstant,
		}))
	}

	latest, err = s.Bids().Latest(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.BidValue.Equal(decimal.NewFromInt(2)))

	has, err := s.Bids().HasBid(ctx, l.ID, bidder.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestWatchlistRepository_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := createProfile(t, s, 1, "toki", "0")
	watcher := createProfile(t, s, 2, "serval", "0")
	l := createListing(t, s, owner.ID, "japari-bun")

	require.NoError(t, s.Watchlists().Add(ctx, owner.ID, l.ID))
	require.NoError(t, s.Watchlists().Add(ctx, owner.ID, l.ID))
	require.NoError(t, s.Watchlists().Add(ctx, watcher.ID, l.ID))

	ids, err := s.Watchlists().Watchers(ctx, l.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{owner.ID, watcher.ID}, ids)

	require.NoError(t, s.Watchlists().RemoveAllExcept(ctx, l.ID, owner.ID))
	ids, err = s.Watchlists().Watchers(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{owner.ID}, ids)

	removed, err := s.Watchlists().Remove(ctx, watcher.ID, l.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_WithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := createProfile(t, s, 1, "toki", "10")

	boom := fmt.Errorf("boom")
	err := s.WithTransaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.Profiles().Credit(ctx, p.ID, decimal.NewFromInt(5)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Profiles().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Money.Equal(decimal.NewFromInt(10)))
}

func TestCommentRepository_ClearAuthor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	author := createProfile(t, s, 1, "toki", "0")
	l := createListing(t, s, author.ID, "japari-bun")

	require.NoError(t, s.Comments().Create(ctx, &model.Comment{
		ListingID: l.ID, AuthorID: &author.ID, Text: "best bun", PubDate: time.Now().UTC(),
	}))
	require.NoError(t, s.Comments().ClearAuthor(ctx, author.ID))

	comments, err := s.Comments().ListByListing(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Nil(t, comments[0].AuthorID)
}

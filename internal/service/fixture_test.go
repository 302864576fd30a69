package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auctionhouse/internal/cache"
	"auctionhouse/internal/db"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// fixture wires every service to one in-memory SQLite store.
type fixture struct {
	store    repository.Store
	wallet   WalletService
	listings ListingService
	profiles ProfileService
	comments CommentService
	category *model.Category
	hook     *test.Hook
	nextKey  uint64
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, nil)
}

func newFixtureWithCache(t *testing.T, c *cache.Client) *fixture {
	t.Helper()
	gormDB, err := db.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	store := repository.NewStore(gormDB)
	policy := RetryPolicy{Attempts: 3, Delay: time.Millisecond}
	f := &fixture{
		store:    store,
		wallet:   NewWalletService(store, c, log, policy),
		listings: NewListingService(store, c, log, DefaultAuctionRules(), policy),
		profiles: NewProfileService(store, c, log, policy),
		comments: NewCommentService(store, c, log, policy),
		hook:     hook,
	}

	f.category, err = f.listings.CreateCategory(context.Background(), "Food")
	require.NoError(t, err)
	return f
}

// profile registers a new identity and funds its wallet.
func (f *fixture) profile(t *testing.T, username, money string) *model.Profile {
	t.Helper()
	ctx := context.Background()
	f.nextKey++
	p, err := f.profiles.SyncProfile(ctx, model.Identity{Key: f.nextKey, Username: username, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	amount := decimal.RequireFromString(money)
	if amount.IsPositive() {
		require.NoError(t, f.wallet.AddMoney(ctx, p.ID, amount))
	}
	return p
}

func (f *fixture) draft(t *testing.T, owner *model.Profile, title, price string) *model.Listing {
	t.Helper()
	l, err := f.listings.CreateListing(context.Background(), owner.ID, ListingDraft{
		Title:         title,
		Description:   "fresh from the bakery",
		StartingPrice: decimal.RequireFromString(price),
		CategoryID:    f.category.ID,
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) published(t *testing.T, owner *model.Profile, title, price string) *model.Listing {
	t.Helper()
	l := f.draft(t, owner, title, price)
	ok, err := f.listings.Publish(context.Background(), l.ID)
	require.NoError(t, err)
	require.True(t, ok)
	return l
}

func (f *fixture) bid(t *testing.T, l *model.Listing, bidder *model.Profile, amount string) (bool, Reason) {
	t.Helper()
	ok, reason, err := f.listings.PlaceBid(context.Background(), l.ID, bidder.ID, decimal.RequireFromString(amount))
	require.NoError(t, err)
	return ok, reason
}

func (f *fixture) reload(t *testing.T, l *model.Listing) *model.Listing {
	t.Helper()
	got, err := f.store.Listings().FindByID(context.Background(), l.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) balance(t *testing.T, p *model.Profile) decimal.Decimal {
	t.Helper()
	got, err := f.store.Profiles().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got.Money
}

// total is every balance plus every escrowed bid.
func (f *fixture) total(t *testing.T) decimal.Decimal {
	t.Helper()
	ctx := context.Background()
	profiles, err := f.store.Profiles().List(ctx)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, p := range profiles {
		available, escrowed, err := f.wallet.DisplayMoney(ctx, p.ID)
		require.NoError(t, err)
		sum = sum.Add(available).Add(escrowed)
	}
	return sum
}

func (f *fixture) watchers(t *testing.T, l *model.Listing) []uuid.UUID {
	t.Helper()
	ids, err := f.store.Watchlists().Watchers(context.Background(), l.ID)
	require.NoError(t, err)
	return ids
}

func (f *fixture) entries(t *testing.T, p *model.Profile) []string {
	t.Helper()
	logs, err := f.profiles.Logs(context.Background(), p.ID)
	require.NoError(t, err)
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Entry)
	}
	return out
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"auctionhouse/internal/cache"
	apperrors "auctionhouse/internal/errors"
	"auctionhouse/internal/model"
)

func TestProfileService_SyncProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	joined := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	p, err := f.profiles.SyncProfile(ctx, model.Identity{Key: 42, Username: "toki", CreatedAt: joined})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), p.UserKey)
	assert.True(t, p.Money.IsZero())

	logs, err := f.profiles.Logs(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Date of your registration.", logs[0].Entry)
	assert.True(t, joined.Equal(logs[0].Date))

	renamed, err := f.profiles.SyncProfile(ctx, model.Identity{Key: 42, Username: "toki-doki"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, renamed.ID)

	got, err := f.profiles.GetProfileByUsername(ctx, "toki-doki")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	_, err = f.profiles.GetProfileByUsername(ctx, "toki")
	assert.ErrorIs(t, err, apperrors.ErrProfileNotFound)

	logs, err = f.profiles.Logs(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1, "renaming writes no history")

	_, err = f.profiles.SyncProfile(ctx, model.Identity{Key: 43})
	assert.Error(t, err)
}

func TestProfileService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	leaving := f.profile(t, "toki", "10")
	bidder := f.profile(t, "kaban", "10")
	seller := f.profile(t, "serval", "0")
	other := f.profile(t, "lucky", "10")

	own := f.published(t, leaving, "Japari bun", "1")
	ok, _ := f.bid(t, own, bidder, "1.5")
	require.True(t, ok)

	theirs := f.published(t, seller, "Paper plane", "1")
	ok, _ = f.bid(t, theirs, other, "2")
	require.True(t, ok)
	ok, _ = f.bid(t, theirs, leaving, "3")
	require.True(t, ok)
	comment, err := f.comments.AddComment(ctx, theirs.ID, leaving.ID, "looks sturdy")
	require.NoError(t, err)

	deleted, err := f.profiles.DeleteProfile(ctx, leaving.UserKey)
	require.NoError(t, err)
	assert.True(t, deleted)

	assertMoney(t, "10", f.balance(t, bidder))
	assert.Contains(t, f.entries(t, bidder), "The owner removed the lot [Japari bun] from the auction. Refund 1.50 coins.")
	_, err = f.store.Listings().FindByID(ctx, own.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	comments, err := f.comments.Comments(ctx, theirs.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, comment.ID, comments[0].ID)
	assert.Nil(t, comments[0].AuthorID)

	// the remaining bid is the highest again
	assertMoney(t, "2", f.reload(t, theirs).HighestBid.Decimal)
	top, err := f.listings.HighestBid(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, top.AuctioneerID)
	ok, _ = f.bid(t, theirs, bidder, "2.10")
	assert.True(t, ok)

	_, err = f.profiles.GetProfile(ctx, leaving.ID)
	assert.ErrorIs(t, err, apperrors.ErrProfileNotFound)
	logs, err := f.profiles.Logs(ctx, leaving.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)

	deleted, err = f.profiles.DeleteProfile(ctx, leaving.UserKey)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestProfileService_PlacedBidsAndOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.profile(t, "toki", "0")
	bidder := f.profile(t, "kaban", "10")
	bun := f.published(t, owner, "Japari bun", "1")
	plane := f.published(t, owner, "Paper plane", "1")
	f.bid(t, bun, bidder, "2")
	f.bid(t, plane, bidder, "3")

	bids, err := f.profiles.PlacedBids(ctx, bidder.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, plane.ID, bids[0].LotID)

	available, escrowed, err := f.wallet.DisplayMoney(ctx, bidder.ID)
	require.NoError(t, err)
	assertMoney(t, "5", available)
	assertMoney(t, "5", escrowed)

	owned, err := f.profiles.ItemsOwned(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestProfileService_GetProfileIsEvicted(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	c := cache.New(srv.Addr(), "", 0)
	defer c.Close()
	f := newFixtureWithCache(t, c)
	p := f.profile(t, "toki", "1")

	got, err := f.profiles.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assertMoney(t, "1", got.Money)
	assert.True(t, srv.Exists(cache.ProfileKey(p.ID)))

	require.NoError(t, f.wallet.AddMoney(ctx, p.ID, decimal.NewFromInt(2)))
	got, err = f.profiles.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assertMoney(t, "3", got.Money)
}

func TestProfileService_Reconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seed := func(key uint64, username string) *model.Profile {
		p, err := f.profiles.SyncProfile(ctx, model.Identity{Key: key, Username: username})
		require.NoError(t, err)
		return p
	}
	toki := seed(1, "toki")
	kaban := seed(2, "kaban")
	serval := seed(3, "serval")
	lucky := seed(4, "lucky")
	boss := seed(50, "boss")
	ghost := seed(60, "ghost")
	require.NoError(t, f.wallet.AddMoney(ctx, toki.ID, decimal.NewFromInt(5)))
	l := f.published(t, ghost, "Cursed lamp", "1")
	ok, _ := f.bid(t, l, toki, "2")
	require.True(t, ok)
	f.hook.Reset()

	identities := []model.Identity{
		{Key: 1, Username: "toki"},
		{Key: 2, Username: "kaban-chan"},
		{Key: 3, Username: "lucky"},
		{Key: 4, Username: "serval"},
		{Key: 7, Username: "boss"},
		{Key: 8, Username: "araisan"},
	}
	report, err := f.profiles.Reconcile(ctx, identities)
	require.NoError(t, err)
	assert.Equal(t, &ReconcileReport{Created: 1, Adopted: 1, Renamed: 3, Deleted: 1}, report)

	errorEntries := 0
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errorEntries++
		}
	}
	assert.Equal(t, report.Repairs(), errorEntries)

	check := func(id model.Profile, key uint64, username string) {
		got, err := f.store.Profiles().FindByID(ctx, id.ID)
		require.NoError(t, err)
		assert.Equal(t, key, got.UserKey)
		assert.Equal(t, username, got.Username)
	}
	check(*toki, 1, "toki")
	check(*kaban, 2, "kaban-chan")
	check(*serval, 3, "lucky")
	check(*lucky, 4, "serval")
	check(*boss, 7, "boss")

	_, err = f.store.Profiles().FindByID(ctx, ghost.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assertMoney(t, "5", f.balance(t, toki))

	created, err := f.store.Profiles().FindByUserKey(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "araisan", created.Username)

	f.hook.Reset()
	report, err = f.profiles.Reconcile(ctx, identities)
	require.NoError(t, err)
	assert.Zero(t, report.Repairs())
	for _, e := range f.hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, e.Level)
	}
}

func TestPlanReconcile(t *testing.T) {
	profile := func(key uint64, username string) model.Profile {
		p := model.Profile{UserKey: key, Username: username}
		require.NoError(t, p.BeforeCreate(nil))
		return p
	}

	tests := []struct {
		name       string
		identities []model.Identity
		profiles   []model.Profile
		want       ReconcileReport
	}{
		{
			name: "in sync",
			identities: []model.Identity{
				{Key: 1, Username: "a"},
				{Key: 2, Username: "b"},
			},
			profiles: []model.Profile{profile(1, "a"), profile(2, "b")},
			want:     ReconcileReport{},
		},
		{
			name:       "key wins over username",
			identities: []model.Identity{{Key: 1, Username: "a"}},
			profiles:   []model.Profile{profile(1, "b"), profile(2, "a")},
			want:       ReconcileReport{Renamed: 1, Deleted: 1},
		},
		{
			name: "username match needs an unknown key",
			identities: []model.Identity{
				{Key: 1, Username: "a"},
				{Key: 2, Username: "b"},
			},
			profiles: []model.Profile{profile(2, "a")},
			want:     ReconcileReport{Created: 1, Renamed: 1},
		},
		{
			name:       "adopt by username",
			identities: []model.Identity{{Key: 9, Username: "a"}},
			profiles:   []model.Profile{profile(1, "a")},
			want:       ReconcileReport{Adopted: 1},
		},
		{
			name:       "no identities",
			identities: nil,
			profiles:   []model.Profile{profile(1, "a"), profile(2, "b")},
			want:       ReconcileReport{Deleted: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planReconcile(tt.identities, tt.profiles)
			assert.Equal(t, tt.want, *plan.report())
		})
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"auctionhouse/internal/cache"
	apperrors "auctionhouse/internal/errors"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// RetryPolicy bounds how often a transaction is re-run after losing a race.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// DefaultRetryPolicy returns three attempts starting 20ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 20 * time.Millisecond}
}

const snapshotTTL = 5 * time.Minute

// errRejected aborts a transaction whose business rule failed.
var errRejected = errors.New("operation rejected")

// bidRejection aborts a bid transaction and carries the reason to the caller.
type bidRejection struct {
	reason Reason
}

func (r *bidRejection) Error() string {
	return fmt.Sprintf("bid rejected: %s", r.reason)
}

// core is shared by the services: the store, the snapshot cache and the
// transaction runner.
type core struct {
	store  repository.Store
	cache  *cache.Client
	log    logrus.FieldLogger
	policy RetryPolicy
}

// atomically runs fn in one transaction, re-running it on write conflicts.
// Snapshot keys touched by a committed unit are evicted afterwards.
func (c *core) atomically(ctx context.Context, fn func(ctx context.Context, u *unit) error) error {
	attempts := c.policy.Attempts
	if attempts == 0 {
		attempts = 1
	}

	var committed *unit
	err := retry.Do(
		func() error {
			u := newUnit()
			err := c.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
				u.tx = tx
				return fn(ctx, u)
			})
			if err == nil {
				committed = u
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.policy.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isConflict),
		retry.OnRetry(func(n uint, err error) {
			c.log.WithError(err).WithField("attempt", n+1).Warn("transaction conflict, retrying")
		}),
	)
	if err != nil {
		if isConflict(err) && !errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("%w: %v", apperrors.ErrConflict, err)
		}
		return err
	}

	c.cache.Delete(ctx, committed.cacheKeys()...)
	return nil
}

// isConflict reports whether err means another transaction won a race and
// the unit can be re-run from scratch.
func isConflict(err error) bool {
	if errors.Is(err, apperrors.ErrConflict) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// deadlock, lock wait timeout
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// unit is one attempt of a transaction. It carries the transactional store
// and remembers which snapshots the attempt made stale.
type unit struct {
	tx       repository.Store
	profiles map[uuid.UUID]struct{}
	slugs    map[string]struct{}
}

func newUnit() *unit {
	return &unit{
		profiles: make(map[uuid.UUID]struct{}),
		slugs:    make(map[string]struct{}),
	}
}

func (u *unit) touchProfile(id uuid.UUID) { u.profiles[id] = struct{}{} }
func (u *unit) touchListing(slug string)  { u.slugs[slug] = struct{}{} }

func (u *unit) cacheKeys() []string {
	keys := make([]string, 0, len(u.profiles)+len(u.slugs))
	for id := range u.profiles {
		keys = append(keys, cache.ProfileKey(id))
	}
	for slug := range u.slugs {
		keys = append(keys, cache.ListingKey(slug))
	}
	return keys
}

// lockListing loads a listing with a row lock.
func (u *unit) lockListing(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	listing, err := u.tx.Listings().FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrListingNotFound
		}
		return nil, fmt.Errorf("lock listing %s: %w", id, err)
	}
	return listing, nil
}

// lockProfile loads a profile with a row lock.
func (u *unit) lockProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	profile, err := u.tx.Profiles().FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProfileNotFound
		}
		return nil, fmt.Errorf("lock profile %s: %w", id, err)
	}
	return profile, nil
}

// saveListing persists the listing under its version guard.
func (u *unit) saveListing(ctx context.Context, listing *model.Listing) error {
	if err := u.tx.Listings().Save(ctx, listing); err != nil {
		return fmt.Errorf("save listing %s: %w", listing.Slug, err)
	}
	u.touchListing(listing.Slug)
	return nil
}

const maxLogEntry = 255

// writeLog appends an audit entry to a profile's history.
func (u *unit) writeLog(ctx context.Context, profileID uuid.UUID, entry string) error {
	if utf8.RuneCountInString(entry) > maxLogEntry {
		entry = string([]rune(entry)[:maxLogEntry])
	}
	return u.writeLogAt(ctx, profileID, entry, time.Now().UTC())
}

func (u *unit) writeLogAt(ctx context.Context, profileID uuid.UUID, entry string, at time.Time) error {
	if err := u.tx.Logs().Create(ctx, &model.Log{ProfileID: profileID, Entry: entry, Date: at}); err != nil {
		return fmt.Errorf("write log for %s: %w", profileID, err)
	}
	return nil
}

// money formats an amount the way audit entries show it.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

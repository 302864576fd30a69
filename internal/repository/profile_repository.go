package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auctionhouse/internal/model"
)

// ProfileRepository defines profile persistence operations.
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	FindByUserKey(ctx context.Context, key uint64) (*model.Profile, error)
	FindByUsername(ctx context.Context, username string) (*model.Profile, error)
	List(ctx context.Context) ([]model.Profile, error)
	Rename(ctx context.Context, id uuid.UUID, username string) error
	SetUserKey(ctx context.Context, id uuid.UUID, key uint64) error
	// Credit adds amount to the balance in a single statement.
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	// Debit subtracts amount only if the balance covers it and reports whether it did.
	Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create creates a new profile.
func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// FindByID finds a profile by ID.
func (r *profileRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByIDForUpdate finds a profile by ID with row-level lock for update.
func (r *profileRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUserKey finds a profile by its external identity key.
func (r *profileRepository) FindByUserKey(ctx context.Context, key uint64) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("user_key = ?", key).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUsername finds a profile by username.
func (r *profileRepository) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// List lists all profiles ordered by external key.
func (r *profileRepository) List(ctx context.Context) ([]model.Profile, error) {
	var profiles []model.Profile
	if err := r.db.WithContext(ctx).Order("user_key ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Rename changes the username of a profile.
func (r *profileRepository) Rename(ctx context.Context, id uuid.UUID, username string) error {
	return r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Update("username", username).Error
}

// SetUserKey rebinds a profile to an external identity key.
func (r *profileRepository) SetUserKey(ctx context.Context, id uuid.UUID, key uint64) error {
	return r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Update("user_key", key).Error
}

func (r *profileRepository) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Update("money", gorm.Expr("ROUND(money + ?, 2)", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *profileRepository) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ? AND money >= ?", id, amount).
		Update("money", gorm.Expr("ROUND(money - ?, 2)", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a profile row. Dependent rows must be removed first.
func (r *profileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Profile{}).Error
}

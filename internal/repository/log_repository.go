package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"auctionhouse/internal/model"
)

// LogRepository defines audit log persistence operations.
type LogRepository interface {
	Create(ctx context.Context, log *model.Log) error
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]model.Log, error)
	DeleteByProfile(ctx context.Context, profileID uuid.UUID) error
}

type logRepository struct {
	db *gorm.DB
}

// NewLogRepository creates a new log repository.
func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

// Create appends a log entry.
func (r *logRepository) Create(ctx context.Context, log *model.Log) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListByProfile lists a profile's entries, newest first.
func (r *logRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]model.Log, error) {
	var logs []model.Log
	if err := r.db.WithContext(ctx).Where("profile_id = ?", profileID).
		Order("date DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *logRepository) DeleteByProfile(ctx context.Context, profileID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("profile_id = ?", profileID).Delete(&model.Log{}).Error
}

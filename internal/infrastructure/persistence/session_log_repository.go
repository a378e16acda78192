package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/vitrina/stockbot/internal/domain/sessionlog"
)

// GormSessionLogRepository implements sessionlog.Repository using GORM
type GormSessionLogRepository struct {
	db *gorm.DB
}

// NewGormSessionLogRepository creates a new GormSessionLogRepository
func NewGormSessionLogRepository(db *gorm.DB) *GormSessionLogRepository {
	return &GormSessionLogRepository{db: db}
}

// Append stores a finished session record with its chat history. The log is
// append-only: records are inserted, never updated.
func (r *GormSessionLogRepository) Append(ctx context.Context, record *sessionlog.SessionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// CountPublished returns how many published sessions used the raw reference.
func (r *GormSessionLogRepository) CountPublished(ctx context.Context, reference string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&sessionlog.SessionRecord{}).
		Where("reference = ? AND published = ?", reference, true).
		Count(&count).Error
	return count, err
}

// Recent returns up to limit records, newest first, with chat history loaded.
func (r *GormSessionLogRepository) Recent(ctx context.Context, limit int) ([]sessionlog.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []sessionlog.SessionRecord
	err := r.db.WithContext(ctx).
		Preload("History").
		Order("started_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

var _ sessionlog.Repository = (*GormSessionLogRepository)(nil)

package repository

import (
	"context"
	"eventory-payments/internal/model"

	"gorm.io/gorm"
)

// LogRepository writes the append-only error, audit, notification and scan rows.
type LogRepository interface {
	CreateErrorLog(ctx context.Context, entry *model.ErrorLog) error
	CreateAuditLog(ctx context.Context, tx *gorm.DB, entry *model.AuditLog) error
	EnqueueEmail(ctx context.Context, tx *gorm.DB, notification *model.EmailNotification) error
	CreateScanLog(ctx context.Context, tx *gorm.DB, entry *model.ScanLog) error
}

type logRepoImpl struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepoImpl{
		db: db,
	}
}

// CreateErrorLog never joins a caller transaction: a rolled back request must
// still leave its error row behind.
func (r *logRepoImpl) CreateErrorLog(ctx context.Context, entry *model.ErrorLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *logRepoImpl) CreateAuditLog(ctx context.Context, tx *gorm.DB, entry *model.AuditLog) error {
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *logRepoImpl) EnqueueEmail(ctx context.Context, tx *gorm.DB, notification *model.EmailNotification) error {
	return tx.WithContext(ctx).Create(notification).Error
}

func (r *logRepoImpl) CreateScanLog(ctx context.Context, tx *gorm.DB, entry *model.ScanLog) error {
	return tx.WithContext(ctx).Create(entry).Error
}

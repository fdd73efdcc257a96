package repository

import (
	"context"
	"eventory-payments/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrphanedChargeRepository interface {
	Create(ctx context.Context, charge *model.OrphanedCharge) error
	ListOpen(ctx context.Context, limit int) ([]*model.OrphanedCharge, error)
	SetStatus(ctx context.Context, id uint, status model.OrphanStatus) error
	IncrementAttempts(ctx context.Context, id uint) error
}

type orphanedChargeRepoImpl struct {
	db *gorm.DB
}

func NewOrphanedChargeRepository(db *gorm.DB) OrphanedChargeRepository {
	return &orphanedChargeRepoImpl{
		db: db,
	}
}

func (r *orphanedChargeRepoImpl) Create(ctx context.Context, charge *model.OrphanedCharge) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(charge).Error
}

func (r *orphanedChargeRepoImpl) ListOpen(ctx context.Context, limit int) ([]*model.OrphanedCharge, error) {
	var charges []*model.OrphanedCharge
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OrphanStatusOpen).
		Order("id").
		Limit(limit).
		Find(&charges).Error
	if err != nil {
		return nil, err
	}

	return charges, nil
}

func (r *orphanedChargeRepoImpl) SetStatus(ctx context.Context, id uint, status model.OrphanStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.OrphanedCharge{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *orphanedChargeRepoImpl) IncrementAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.OrphanedCharge{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		}).Error
}

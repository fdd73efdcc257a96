package repository

import (
	"context"
	"eventory-payments/internal/model"
	"time"

	"gorm.io/gorm"
)

type TicketRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ticket *model.Ticket) error
	Get(ctx context.Context, tx *gorm.DB, ticketID string) (*model.Ticket, error)
	FindByPaymentReference(ctx context.Context, tx *gorm.DB, paymentReference string) (*model.Ticket, error)
	IsCompleted(ctx context.Context, tx *gorm.DB, paymentReference string) (bool, error)
	HasRecentPending(ctx context.Context, userID, eventID string, since time.Time) (bool, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, paymentReference, userID, eventID string) (int64, error)
	MarkUsed(ctx context.Context, tx *gorm.DB, ticketID string, usedAt time.Time) (int64, error)
}

type ticketRepoImpl struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepoImpl{
		db: db,
	}
}

func (r *ticketRepoImpl) Create(ctx context.Context, tx *gorm.DB, ticket *model.Ticket) error {
	return tx.WithContext(ctx).Create(ticket).Error
}

func (r *ticketRepoImpl) Get(ctx context.Context, tx *gorm.DB, ticketID string) (*model.Ticket, error) {
	var ticket model.Ticket
	err := tx.WithContext(ctx).
		Where("id = ?", ticketID).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}

	return &ticket, nil
}

func (r *ticketRepoImpl) FindByPaymentReference(ctx context.Context, tx *gorm.DB, paymentReference string) (*model.Ticket, error) {
	var ticket model.Ticket
	err := tx.WithContext(ctx).
		Where("payment_reference = ?", paymentReference).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}

	return &ticket, nil
}

func (r *ticketRepoImpl) IsCompleted(ctx context.Context, tx *gorm.DB, paymentReference string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.Ticket{}).
		Where("payment_reference = ?", paymentReference).
		Where("payment_status = ?", model.PaymentStatusCompleted).
		Count(&count).Error

	return count > 0, err
}

func (r *ticketRepoImpl) HasRecentPending(ctx context.Context, userID, eventID string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Where("status = ?", model.TicketStatusPending).
		Where("created_at >= ?", since).
		Count(&count).Error

	return count > 0, err
}

// MarkCompleted only moves a ticket out of processing, so a replayed settlement
// affects zero rows.
func (r *ticketRepoImpl) MarkCompleted(ctx context.Context, tx *gorm.DB, paymentReference, userID, eventID string) (int64, error) {
	result := tx.WithContext(ctx).Model(&model.Ticket{}).
		Where(`
			payment_reference = ?
			AND user_id = ?
			AND event_id = ?
			AND payment_status = ?
		`,
			paymentReference,
			userID,
			eventID,
			model.PaymentStatusProcessing,
		).
		Updates(map[string]interface{}{
			"payment_status": model.PaymentStatusCompleted,
			"status":         model.TicketStatusActive,
			"updated_at":     time.Now(),
		})

	return result.RowsAffected, result.Error
}

func (r *ticketRepoImpl) MarkUsed(ctx context.Context, tx *gorm.DB, ticketID string, usedAt time.Time) (int64, error) {
	result := tx.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND status = ?", ticketID, model.TicketStatusActive).
		Updates(map[string]interface{}{
			"status":     model.TicketStatusUsed,
			"used_at":    usedAt,
			"updated_at": time.Now(),
		})

	return result.RowsAffected, result.Error
}

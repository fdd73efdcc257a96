package repository

import (
	"context"
	"eventory-payments/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	Get(ctx context.Context, tx *gorm.DB, eventID string) (*model.Event, error)
	// GetForUpdate is a locking current read. Repeated calls inside one
	// transaction see rows committed by other transactions.
	GetForUpdate(ctx context.Context, tx *gorm.DB, eventID string) (*model.Event, error)
	// IncrementAttendees applies a compare-and-swap on current_attendees. It reports
	// false, nil when the observed value is stale or the increment would exceed capacity.
	IncrementAttendees(ctx context.Context, tx *gorm.DB, eventID string, observed, quantity int) (bool, error)
}

type eventRepoImpl struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepoImpl{
		db: db,
	}
}

func (r *eventRepoImpl) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepoImpl) Get(ctx context.Context, tx *gorm.DB, eventID string) (*model.Event, error) {
	var event model.Event
	err := tx.WithContext(ctx).
		Where("id = ?", eventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}

	return &event, nil
}

func (r *eventRepoImpl) GetForUpdate(ctx context.Context, tx *gorm.DB, eventID string) (*model.Event, error) {
	var event model.Event
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", eventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}

	return &event, nil
}

func (r *eventRepoImpl) IncrementAttendees(ctx context.Context, tx *gorm.DB, eventID string, observed, quantity int) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Event{}).
		Where(`
			id = ?
			AND current_attendees = ?
			AND current_attendees + ? <= max_attendees
		`,
			eventID,
			observed,
			quantity,
		).
		Updates(map[string]interface{}{
			"current_attendees": observed + quantity,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

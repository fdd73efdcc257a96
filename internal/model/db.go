package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusActive    TicketStatus = "active"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusUsed      TicketStatus = "used"
)

type PaymentStatus string

const (
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
)

type Event struct {
	ID               string          `gorm:"primaryKey;size:36;not null"`
	Name             string          `gorm:"size:255"`
	Price            decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	MaxAttendees     int             `gorm:"not null"`
	CurrentAttendees int             `gorm:"not null;default:0"`
	IsActive         bool            `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Ticket struct {
	ID               string          `gorm:"primaryKey;size:36;not null"`
	UserID           string          `gorm:"size:36;index:idx_ticket_user_event;not null"`
	EventID          string          `gorm:"size:36;index:idx_ticket_user_event;not null"`
	Quantity         int             `gorm:"not null"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status           TicketStatus    `gorm:"size:32;index;not null"`
	PaymentStatus    PaymentStatus   `gorm:"size:32;index;not null"`
	PaymentReference string          `gorm:"size:128;uniqueIndex;not null"` // processor charge id
	PaymentMethod    string          `gorm:"size:64"`
	PurchaserEmail   string          `gorm:"size:254"`
	UsedAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

type OrphanStatus string

const (
	OrphanStatusOpen         OrphanStatus = "open"
	OrphanStatusAlerted      OrphanStatus = "alerted"
	OrphanStatusRefunded     OrphanStatus = "refunded"
	OrphanStatusRefundFailed OrphanStatus = "refund_failed"
)

// OrphanedCharge is a charge the processor accepted but for which no ticket row
// could be written.
type OrphanedCharge struct {
	ID        uint            `gorm:"primaryKey"`
	ChargeID  string          `gorm:"size:128;uniqueIndex;not null"`
	UserID    string          `gorm:"size:36;not null"`
	EventID   string          `gorm:"size:36;not null"`
	Quantity  int             `gorm:"not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency  string          `gorm:"size:8;not null"`
	Reason    string          `gorm:"size:512"`
	Status    OrphanStatus    `gorm:"size:32;index;not null"`
	Attempts  int             `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

package model

import "time"

type ErrorLog struct {
	ID        uint   `gorm:"primaryKey"`
	Source    string `gorm:"size:64;index;not null"`
	Message   string `gorm:"size:1024;not null"`
	Stack     string `gorm:"type:text"`
	Context   string `gorm:"type:text"` // json
	CreatedAt time.Time
}

type EmailNotification struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:36;index;not null"`
	Recipient string `gorm:"size:254"`
	Template  string `gorm:"size:64;not null"`
	Payload   string `gorm:"type:text"` // json
	Status    string `gorm:"size:32;index;not null"`
	CreatedAt time.Time
}

// AuditLog maps to admin_audit_logs.
type AuditLog struct {
	ID           uint   `gorm:"primaryKey"`
	ActorID      string `gorm:"size:64;index"`
	Action       string `gorm:"size:64;not null"`
	ResourceType string `gorm:"size:64;not null"`
	ResourceID   string `gorm:"size:128;index"`
	Details      string `gorm:"type:text"` // json
	CreatedAt    time.Time
}

func (AuditLog) TableName() string {
	return "admin_audit_logs"
}

type ScanResult string

const (
	ScanResultValid       ScanResult = "valid"
	ScanResultAlreadyUsed ScanResult = "already_used"
	ScanResultWrongEvent  ScanResult = "wrong_event"
	ScanResultNotFound    ScanResult = "not_found"
	ScanResultNotActive   ScanResult = "not_active"
)

type ScanLog struct {
	ID        uint       `gorm:"primaryKey"`
	TicketID  string     `gorm:"size:36;index"`
	EventID   string     `gorm:"size:36;index"`
	ScannedBy string     `gorm:"size:64;not null"`
	Result    ScanResult `gorm:"size:32;not null"`
	CreatedAt time.Time
}

func (ScanLog) TableName() string {
	return "ticket_scan_logs"
}

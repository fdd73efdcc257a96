// Package testutil provides an isolated, migrated sqlite database per test.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"eventory-payments/internal/client"
	"eventory-payments/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the shared in-memory database alive and serializes
	// writers; code under test must not use the root handle inside a transaction
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, client.Migrate(db))
	return db
}

// SeedEvent inserts an active event and returns it.
func SeedEvent(t *testing.T, db *gorm.DB, price string, max, current int) *model.Event {
	t.Helper()

	event := &model.Event{
		ID:               uuid.NewString(),
		Name:             "Launch Night",
		Price:            decimal.RequireFromString(price),
		MaxAttendees:     max,
		CurrentAttendees: current,
		IsActive:         true,
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func SeedTicket(t *testing.T, db *gorm.DB, ticket *model.Ticket) *model.Ticket {
	t.Helper()

	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	require.NoError(t, db.Create(ticket).Error)
	return ticket
}

func ReloadEvent(t *testing.T, db *gorm.DB, id string) *model.Event {
	t.Helper()

	var event model.Event
	require.NoError(t, db.First(&event, "id = ?", id).Error)
	return &event
}

func ReloadTicket(t *testing.T, db *gorm.DB, id string) *model.Ticket {
	t.Helper()

	var ticket model.Ticket
	require.NoError(t, db.First(&ticket, "id = ?", id).Error)
	return &ticket
}

func Count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

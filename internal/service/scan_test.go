package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"eventory-payments/internal/dto"
	"eventory-payments/internal/model"
	"eventory-payments/internal/repository"
	"eventory-payments/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scannerID = "staff-7"

func TestScan(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewScanService(db, repository.NewTicketRepository(db), repository.NewLogRepository(db))

	event := testutil.SeedEvent(t, db, "25.00", 100, 0)
	other := testutil.SeedEvent(t, db, "25.00", 100, 0)
	active := testutil.SeedTicket(t, db, &model.Ticket{
		UserID: testUserID, EventID: event.ID, Quantity: 1,
		Status: model.TicketStatusActive, PaymentStatus: model.PaymentStatusCompleted, PaymentReference: "ch_a",
	})
	pending := testutil.SeedTicket(t, db, &model.Ticket{
		UserID: testUserID, EventID: event.ID, Quantity: 1,
		Status: model.TicketStatusPending, PaymentStatus: model.PaymentStatusProcessing, PaymentReference: "ch_p",
	})

	scan := func(qr, eventID string) *dto.ScanResponse {
		t.Helper()
		resp, err := svc.Scan(context.Background(), scannerID, dto.ScanRequest{QRData: qr, EventID: eventID})
		require.NoError(t, err)
		return resp
	}

	resp := scan(active.ID, other.ID)
	assert.Equal(t, "wrong_event", resp.Result)
	assert.False(t, resp.Success)

	resp = scan("eventory:ticket:"+active.ID, event.ID)
	assert.Equal(t, &dto.ScanResponse{Success: true, Result: "valid", Reason: "ticket accepted", TicketID: active.ID}, resp)

	got := testutil.ReloadTicket(t, db, active.ID)
	assert.Equal(t, model.TicketStatusUsed, got.Status)
	assert.NotNil(t, got.UsedAt)

	resp = scan(strings.ToUpper(active.ID), event.ID)
	assert.Equal(t, "already_used", resp.Result)

	resp = scan(pending.ID, event.ID)
	assert.Equal(t, "not_active", resp.Result)

	resp = scan("5a4f6d1e-8a0b-4c59-9be3-2f7b7c0d1a11", event.ID)
	assert.Equal(t, "not_found", resp.Result)
	assert.Empty(t, resp.TicketID)

	var logs []model.ScanLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 5)
	assert.Equal(t, model.ScanResultWrongEvent, logs[0].Result)
	assert.Equal(t, model.ScanResultValid, logs[1].Result)
	assert.Equal(t, scannerID, logs[1].ScannedBy)
	assert.Equal(t, model.ScanResultNotFound, logs[4].Result)
}

func TestScan_MalformedInput(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewScanService(db, repository.NewTicketRepository(db), repository.NewLogRepository(db))

	_, err := svc.Scan(context.Background(), scannerID, dto.ScanRequest{QRData: "hello", EventID: "nope"})

	appErr := requireAppErr(t, err, http.StatusBadRequest)
	assert.Len(t, appErr.Errors, 2)
	assert.Zero(t, testutil.Count(t, db, &model.ScanLog{}))
}

package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"eventory-payments/internal/client"
	"eventory-payments/internal/dto"
	"eventory-payments/internal/model"
	"eventory-payments/internal/repository"
	"eventory-payments/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type paymentFixture struct {
	db     *gorm.DB
	client *mockPaymentClient
	svc    PaymentService
}

func newPaymentFixture(t *testing.T, withClient bool) *paymentFixture {
	t.Helper()

	db := testutil.NewDB(t)
	f := &paymentFixture{db: db, client: &mockPaymentClient{}}

	var pc client.PaymentClient
	if withClient {
		pc = f.client
	}

	f.svc = NewPaymentService(
		db,
		pc,
		PaymentConfig{MaxAmount: 10000, Currencies: []string{"USD", "EUR"}, DuplicateWindow: 5 * time.Minute},
		repository.NewEventRepository(db),
		repository.NewTicketRepository(db),
		repository.NewOrphanedChargeRepository(db),
		repository.NewLogRepository(db),
	)
	return f
}

func floatPtr(f float64) *float64 { return &f }

func intakeRequest(eventID string, amount float64, quantity int) dto.PaymentIntakeRequest {
	return dto.PaymentIntakeRequest{
		Amount:          floatPtr(amount),
		Currency:        "USD",
		EventID:         eventID,
		Quantity:        floatPtr(float64(quantity)),
		UserEmail:       "ada@example.com",
		UserID:          testUserID,
		PaymentMethodID: "pm_card_visa",
	}
}

func TestIntake_Success(t *testing.T) {
	f := newPaymentFixture(t, true)
	event := testutil.SeedEvent(t, f.db, "100.00", 10, 8)

	f.client.On("Charge", mock.Anything, mock.MatchedBy(func(req client.ChargeRequest) bool {
		return req.AmountMinor == 20000 &&
			req.Currency == "USD" &&
			req.PaymentMethodID == "pm_card_visa" &&
			req.Metadata["eventId"] == event.ID &&
			req.Metadata["userId"] == testUserID &&
			req.Metadata["quantity"] == "2" &&
			req.Metadata["timestamp"] != ""
	})).Return(&client.ChargeResult{ID: "ch_123", Status: client.ChargeStatusSuccessful}, nil).Once()

	resp, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 200, 2))

	require.NoError(t, err)
	assert.Equal(t, &dto.PaymentIntakeResponse{Success: true, PaymentID: "ch_123", Status: "successful"}, resp)
	f.client.AssertExpectations(t)

	var ticket model.Ticket
	require.NoError(t, f.db.First(&ticket, "payment_reference = ?", "ch_123").Error)
	assert.Equal(t, model.TicketStatusPending, ticket.Status)
	assert.Equal(t, model.PaymentStatusProcessing, ticket.PaymentStatus)
	assert.Equal(t, 2, ticket.Quantity)
	assert.Equal(t, "200", ticket.TotalPrice.String())
	assert.Equal(t, "ada@example.com", ticket.PurchaserEmail)

	assert.Equal(t, 8, testutil.ReloadEvent(t, f.db, event.ID).CurrentAttendees, "attendance moves only on settlement")
}

func TestIntake_ToleratesRounding(t *testing.T) {
	f := newPaymentFixture(t, true)
	event := testutil.SeedEvent(t, f.db, "33.33", 10, 0)

	f.client.On("Charge", mock.Anything, mock.MatchedBy(func(req client.ChargeRequest) bool {
		return req.AmountMinor == 9999
	})).Return(&client.ChargeResult{ID: "ch_1", Status: client.ChargeStatusSuccessful}, nil).Once()

	_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 99.995, 3))

	require.NoError(t, err)
	f.client.AssertExpectations(t)
}

func TestIntake_CapacityCheckedBeforeCharge(t *testing.T) {
	f := newPaymentFixture(t, true)
	event := testutil.SeedEvent(t, f.db, "100.00", 10, 8)

	_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 300, 3))

	appErr := requireAppErr(t, err, http.StatusBadRequest)
	assert.Equal(t, "insufficient capacity", appErr.Message)
	f.client.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	assert.Zero(t, testutil.Count(t, f.db, &model.Ticket{}))
}

func TestIntake_PriceMismatchWritesNothing(t *testing.T) {
	f := newPaymentFixture(t, true)
	event := testutil.SeedEvent(t, f.db, "100.00", 10, 0)

	_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 150, 2))

	appErr := requireAppErr(t, err, http.StatusBadRequest)
	assert.Equal(t, "price mismatch", appErr.Message)
	f.client.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	assert.Zero(t, testutil.Count(t, f.db, &model.Ticket{}))
}

func TestIntake_Rejections(t *testing.T) {
	f := newPaymentFixture(t, true)
	active := testutil.SeedEvent(t, f.db, "100.00", 10, 0)
	inactive := testutil.SeedEvent(t, f.db, "100.00", 10, 0)
	require.NoError(t, f.db.Model(inactive).Update("is_active", false).Error)

	t.Run("validation", func(t *testing.T) {
		req := intakeRequest(active.ID, 100, 1)
		req.Currency = "XYZ"
		_, err := f.svc.Intake(context.Background(), testUserID, req)
		appErr := requireAppErr(t, err, http.StatusBadRequest)
		assert.Equal(t, "validation failed", appErr.Message)
		assert.NotEmpty(t, appErr.Errors)
	})

	t.Run("other user", func(t *testing.T) {
		_, err := f.svc.Intake(context.Background(), otherUserID, intakeRequest(active.ID, 100, 1))
		requireAppErr(t, err, http.StatusForbidden)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest("5a4f6d1e-8a0b-4c59-9be3-2f7b7c0d1a11", 100, 1))
		requireAppErr(t, err, http.StatusNotFound)
	})

	t.Run("inactive event", func(t *testing.T) {
		_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(inactive.ID, 100, 1))
		appErr := requireAppErr(t, err, http.StatusBadRequest)
		assert.Equal(t, "event is not active", appErr.Message)
	})

	f.client.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestIntake_DuplicateWindow(t *testing.T) {
	f := newPaymentFixture(t, true)
	event := testutil.SeedEvent(t, f.db, "100.00", 10, 0)

	testutil.SeedTicket(t, f.db, &model.Ticket{
		UserID:           testUserID,
		EventID:          event.ID,
		Quantity:         1,
		Status:           model.TicketStatusPending,
		PaymentStatus:    model.PaymentStatusProcessing,
		PaymentReference: "ch_recent",
	})

	_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 100, 1))
	requireAppErr(t, err, http.StatusConflict)
	f.client.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)

	require.NoError(t, f.db.Model(&model.Ticket{}).
		Where("payment_reference = ?", "ch_recent").
		Update("created_at", time.Now().Add(-10*time.Minute)).Error)

	f.client.On("Charge", mock.Anything, mock.Anything).
		Return(&client.ChargeResult{ID: "ch_new", Status: client.ChargeStatusSuccessful}, nil).Once()

	_, err = f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 100, 1))
	assert.NoError(t, err, "pending ticket outside the window does not block")
}

func TestIntake_NoProcessor(t *testing.T) {
	f := newPaymentFixture(t, false)
	event := testutil.SeedEvent(t, f.db, "100.00", 10, 0)

	_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 100, 1))

	requireAppErr(t, err, http.StatusServiceUnavailable)
}

func TestIntake_ProcessorDeclined(t *testing.T) {
	f := newPaymentFixture(t, true)
	event := testutil.SeedEvent(t, f.db, "100.00", 10, 0)

	f.client.On("Charge", mock.Anything, mock.Anything).Return(nil, &client.ProcessorError{
		StatusCode:     http.StatusPaymentRequired,
		Code:           "card_declined",
		DisplayMessage: "Your card was declined.",
		Body:           `{"error":{"message":"issuer code 05 do_not_honor"}}`,
	}).Once()

	_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 100, 1))

	appErr := requireAppErr(t, err, http.StatusBadRequest)
	assert.Equal(t, "payment failed", appErr.Message)
	assert.Equal(t, "Your card was declined.", appErr.Details)
	assert.Zero(t, testutil.Count(t, f.db, &model.Ticket{}))
	assert.Equal(t, int64(1), testutil.Count(t, f.db, &model.ErrorLog{}))
}

func TestIntake_ProcessorTransportErrorHidesDetails(t *testing.T) {
	f := newPaymentFixture(t, true)
	event := testutil.SeedEvent(t, f.db, "100.00", 10, 0)

	f.client.On("Charge", mock.Anything, mock.Anything).
		Return(nil, errors.New("dial tcp 10.0.0.5:443: connection refused")).Once()

	_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 100, 1))

	appErr := requireAppErr(t, err, http.StatusBadRequest)
	assert.Empty(t, appErr.Details)
	assert.Equal(t, int64(1), testutil.Count(t, f.db, &model.ErrorLog{}))
}

func TestIntake_ChargeNotSuccessful(t *testing.T) {
	f := newPaymentFixture(t, true)
	event := testutil.SeedEvent(t, f.db, "100.00", 10, 0)

	f.client.On("Charge", mock.Anything, mock.Anything).
		Return(&client.ChargeResult{ID: "ch_1", Status: client.ChargeStatusDeclined, DisplayMessage: "Insufficient funds."}, nil).Once()

	_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 100, 1))

	appErr := requireAppErr(t, err, http.StatusBadRequest)
	assert.Equal(t, "Insufficient funds.", appErr.Details)
	assert.Zero(t, testutil.Count(t, f.db, &model.Ticket{}))
}

func TestIntake_MalformedChargeResult(t *testing.T) {
	tests := []struct {
		name   string
		result *client.ChargeResult
	}{
		{"no result", nil},
		{"successful without id", &client.ChargeResult{Status: client.ChargeStatusSuccessful}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(t, true)
			event := testutil.SeedEvent(t, f.db, "100.00", 10, 0)

			f.client.On("Charge", mock.Anything, mock.Anything).Return(tt.result, nil).Once()

			_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 100, 1))

			appErr := requireAppErr(t, err, http.StatusBadRequest)
			assert.Equal(t, "payment failed", appErr.Message)
			assert.Zero(t, testutil.Count(t, f.db, &model.Ticket{}))
			assert.Equal(t, int64(1), testutil.Count(t, f.db, &model.ErrorLog{}))
		})
	}
}

func TestIntake_TicketInsertFailureRecordsOrphan(t *testing.T) {
	f := newPaymentFixture(t, true)
	event := testutil.SeedEvent(t, f.db, "100.00", 10, 0)
	testutil.SeedTicket(t, f.db, &model.Ticket{
		UserID:           otherUserID,
		EventID:          event.ID,
		Quantity:         1,
		Status:           model.TicketStatusActive,
		PaymentStatus:    model.PaymentStatusCompleted,
		PaymentReference: "ch_taken",
	})

	f.client.On("Charge", mock.Anything, mock.Anything).
		Return(&client.ChargeResult{ID: "ch_taken", Status: client.ChargeStatusSuccessful}, nil).Once()

	_, err := f.svc.Intake(context.Background(), testUserID, intakeRequest(event.ID, 100, 1))

	appErr := requireAppErr(t, err, http.StatusInternalServerError)
	assert.Equal(t, "failed to process ticket", appErr.Message)

	var orphan model.OrphanedCharge
	require.NoError(t, f.db.First(&orphan, "charge_id = ?", "ch_taken").Error)
	assert.Equal(t, model.OrphanStatusOpen, orphan.Status)
	assert.Equal(t, testUserID, orphan.UserID)
	assert.Equal(t, "100", orphan.Amount.String())
	assert.Equal(t, int64(1), testutil.Count(t, f.db, &model.ErrorLog{}))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"eventory-payments/internal/apperr"
	"eventory-payments/internal/client"
	"eventory-payments/internal/dto"
	"eventory-payments/internal/metrics"
	"eventory-payments/internal/model"
	"eventory-payments/internal/repository"
	"eventory-payments/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// priceTolerance absorbs float rounding in client-computed totals.
var priceTolerance = decimal.RequireFromString("0.01")

type PaymentService interface {
	// Intake charges the caller for tickets and records a pending ticket.
	// actorID is the authenticated subject.
	Intake(ctx context.Context, actorID string, req dto.PaymentIntakeRequest) (*dto.PaymentIntakeResponse, error)
}

type PaymentConfig struct {
	MaxAmount       float64
	Currencies      []string
	DuplicateWindow time.Duration
}

type paymentServiceImpl struct {
	db              *gorm.DB
	paymentClient   client.PaymentClient
	rules           validation.IntakeRules
	duplicateWindow time.Duration
	eventRepo       repository.EventRepository
	ticketRepo      repository.TicketRepository
	orphanRepo      repository.OrphanedChargeRepository
	errLog          errorRecorder
	now             func() time.Time
}

// NewPaymentService accepts a nil paymentClient; intake then reports the
// processor as unavailable.
func NewPaymentService(
	db *gorm.DB,
	paymentClient client.PaymentClient,
	cfg PaymentConfig,
	eventRepo repository.EventRepository,
	ticketRepo repository.TicketRepository,
	orphanRepo repository.OrphanedChargeRepository,
	logRepo repository.LogRepository,
) PaymentService {
	return &paymentServiceImpl{
		db:            db,
		paymentClient: paymentClient,
		rules: validation.IntakeRules{
			MaxAmount:  cfg.MaxAmount,
			Currencies: cfg.Currencies,
		},
		duplicateWindow: cfg.DuplicateWindow,
		eventRepo:       eventRepo,
		ticketRepo:      ticketRepo,
		orphanRepo:      orphanRepo,
		errLog:          errorRecorder{logRepo: logRepo},
		now:             time.Now,
	}
}

func (s *paymentServiceImpl) Intake(ctx context.Context, actorID string, req dto.PaymentIntakeRequest) (*dto.PaymentIntakeResponse, error) {
	intake, errs := validation.ValidateIntake(req, s.rules)
	if errs != nil {
		metrics.TrackIntake("invalid")
		return nil, apperr.Validation(errs)
	}

	if !strings.EqualFold(actorID, intake.UserID) {
		metrics.TrackIntake("forbidden")
		return nil, apperr.Forbidden("user mismatch")
	}

	event, err := s.eventRepo.Get(ctx, s.db, intake.EventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.TrackIntake("event_not_found")
		return nil, apperr.NotFound("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	if !event.IsActive {
		metrics.TrackIntake("event_inactive")
		return nil, apperr.BadRequest("event is not active")
	}
	if event.CurrentAttendees+intake.Quantity > event.MaxAttendees {
		metrics.TrackIntake("insufficient_capacity")
		return nil, apperr.BadRequest("insufficient capacity")
	}

	expected := event.Price.Mul(decimal.NewFromInt(int64(intake.Quantity)))
	if intake.Amount.Sub(expected).Abs().GreaterThan(priceTolerance) {
		metrics.TrackIntake("price_mismatch")
		logrus.WithFields(logrus.Fields{
			"event_id": event.ID,
			"user_id":  intake.UserID,
			"amount":   intake.Amount.String(),
			"expected": expected.String(),
		}).Warn("intake price mismatch")
		return nil, apperr.BadRequest("price mismatch")
	}

	since := s.now().Add(-s.duplicateWindow)
	duplicate, err := s.ticketRepo.HasRecentPending(ctx, intake.UserID, intake.EventID, since)
	if err != nil {
		return nil, fmt.Errorf("check recent pending tickets: %w", err)
	}
	if duplicate {
		metrics.TrackIntake("duplicate")
		return nil, apperr.Conflict("duplicate payment attempt")
	}

	if s.paymentClient == nil {
		metrics.TrackIntake("processor_unavailable")
		return nil, apperr.Unavailable("payment processor is not configured")
	}

	charge, err := s.paymentClient.Charge(ctx, client.ChargeRequest{
		AmountMinor:     expected.Shift(2).Round(0).IntPart(),
		Currency:        intake.Currency,
		PaymentMethodID: intake.PaymentMethodID,
		Metadata: map[string]string{
			"eventId":   intake.EventID,
			"userId":    intake.UserID,
			"quantity":  strconv.Itoa(intake.Quantity),
			"timestamp": s.now().UTC().Format(time.RFC3339),
		},
	})
	if err == nil && charge == nil {
		err = errors.New("processor returned no charge")
	}
	if err == nil && charge.Status == client.ChargeStatusSuccessful && charge.ID == "" {
		err = errors.New("processor returned a successful charge without an id")
	}
	if err != nil || charge.Status != client.ChargeStatusSuccessful {
		return nil, s.chargeFailed(ctx, intake, charge, err)
	}

	ticket := &model.Ticket{
		ID:               uuid.NewString(),
		UserID:           intake.UserID,
		EventID:          intake.EventID,
		Quantity:         intake.Quantity,
		TotalPrice:       expected,
		Status:           model.TicketStatusPending,
		PaymentStatus:    model.PaymentStatusProcessing,
		PaymentReference: charge.ID,
		PaymentMethod:    "card",
		PurchaserEmail:   intake.UserEmail,
	}
	if err := s.ticketRepo.Create(ctx, s.db, ticket); err != nil {
		s.ticketInsertFailed(ctx, intake, expected, charge.ID, err)
		return nil, apperr.Internal("failed to process ticket").Wrap(err)
	}

	metrics.TrackIntake("charged")
	logrus.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"charge_id": charge.ID,
		"event_id":  intake.EventID,
		"quantity":  intake.Quantity,
	}).Info("payment accepted")

	return &dto.PaymentIntakeResponse{
		Success:   true,
		PaymentID: charge.ID,
		Status:    charge.Status,
	}, nil
}

func (s *paymentServiceImpl) chargeFailed(ctx context.Context, intake *validation.Intake, charge *client.ChargeResult, cause error) error {
	metrics.TrackIntake("charge_failed")

	display := ""
	var procErr *client.ProcessorError
	switch {
	case errors.As(cause, &procErr):
		display = procErr.DisplayMessage
	case cause == nil && charge != nil:
		display = charge.DisplayMessage
		cause = fmt.Errorf("charge %s returned status %q", charge.ID, charge.Status)
	}

	s.errLog.record(ctx, "payment_intake", cause, logrus.Fields{
		"event_id": intake.EventID,
		"user_id":  intake.UserID,
		"quantity": intake.Quantity,
		"currency": intake.Currency,
	})

	appErr := apperr.BadRequest("payment failed").Wrap(cause)
	if display != "" {
		appErr = appErr.WithDetails(display)
	}
	return appErr
}

// ticketInsertFailed leaves a trail for a charge that has no ticket.
func (s *paymentServiceImpl) ticketInsertFailed(ctx context.Context, intake *validation.Intake, amount decimal.Decimal, chargeID string, cause error) {
	metrics.TrackIntake("orphaned_charge")

	s.errLog.record(ctx, "payment_intake", fmt.Errorf("insert ticket for charge %s: %w", chargeID, cause), logrus.Fields{
		"charge_id": chargeID,
		"event_id":  intake.EventID,
		"user_id":   intake.UserID,
		"quantity":  intake.Quantity,
	})

	err := s.orphanRepo.Create(context.WithoutCancel(ctx), &model.OrphanedCharge{
		ChargeID: chargeID,
		UserID:   intake.UserID,
		EventID:  intake.EventID,
		Quantity: intake.Quantity,
		Amount:   amount,
		Currency: intake.Currency,
		Reason:   truncate(cause.Error(), 512),
		Status:   model.OrphanStatusOpen,
	})
	if err != nil {
		logrus.WithError(err).WithField("charge_id", chargeID).Error("record orphaned charge")
	}
}

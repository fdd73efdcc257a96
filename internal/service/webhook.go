package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"eventory-payments/internal/apperr"
	"eventory-payments/internal/dto"
	"eventory-payments/internal/metrics"
	"eventory-payments/internal/model"
	"eventory-payments/internal/repository"
	"eventory-payments/internal/signature"
	"eventory-payments/internal/validation"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	statusAlreadyProcessed = "already processed"

	webhookActor          = "system:webhook"
	templateConfirmation  = "ticket_confirmation"
	notificationPending   = "pending"
	auditActionReconciled = "payment.reconciled"
)

type WebhookService interface {
	// HandleWebhook verifies and applies one processor delivery. body must be
	// the exact bytes received.
	HandleWebhook(ctx context.Context, body []byte, signatureHeader string) (*dto.WebhookResponse, error)
}

type webhookServiceImpl struct {
	db               *gorm.DB
	verifier         *signature.Verifier
	casRetries       int
	eventRepo        repository.EventRepository
	ticketRepo       repository.TicketRepository
	webhookEventRepo repository.WebhookEventRepository
	logRepo          repository.LogRepository
	errLog           errorRecorder
}

func NewWebhookService(
	db *gorm.DB,
	verifier *signature.Verifier,
	casRetries int,
	eventRepo repository.EventRepository,
	ticketRepo repository.TicketRepository,
	webhookEventRepo repository.WebhookEventRepository,
	logRepo repository.LogRepository,
) WebhookService {
	if casRetries < 0 {
		casRetries = 0
	}

	return &webhookServiceImpl{
		db:               db,
		verifier:         verifier,
		casRetries:       casRetries,
		eventRepo:        eventRepo,
		ticketRepo:       ticketRepo,
		webhookEventRepo: webhookEventRepo,
		logRepo:          logRepo,
		errLog:           errorRecorder{logRepo: logRepo},
	}
}

// settlement is what one processed delivery changed.
type settlement struct {
	alreadyProcessed bool
	ticket           *model.Ticket
	casConflict      bool
}

func (s *webhookServiceImpl) HandleWebhook(ctx context.Context, body []byte, signatureHeader string) (*dto.WebhookResponse, error) {
	if err := s.verifier.Verify(body, signatureHeader); err != nil {
		if errors.Is(err, signature.ErrMissingSecret) {
			metrics.TrackWebhook("misconfigured")
			return nil, apperr.Internal("webhook secret not configured").Wrap(err)
		}
		metrics.TrackWebhook("bad_signature")
		return nil, apperr.Unauthorized("invalid signature").Wrap(err)
	}

	var envelope dto.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		metrics.TrackWebhook("invalid")
		return nil, apperr.BadRequest("invalid payload").Wrap(err)
	}

	event, errs := validation.ValidateWebhook(envelope)
	if errs != nil {
		metrics.TrackWebhook("invalid")
		return nil, apperr.Validation(errs)
	}

	if event.Type != validation.EventTypePaymentSucceeded {
		metrics.TrackWebhook("ignored")
		return &dto.WebhookResponse{Received: true}, nil
	}

	meta, errs := event.Metadata()
	if errs != nil {
		metrics.TrackWebhook("invalid")
		return nil, apperr.Validation(errs)
	}

	fields := logrus.Fields{
		"webhook_event_id": event.ID,
		"charge_id":        event.ChargeID,
		"event_id":         meta.EventID,
		"user_id":          meta.UserID,
		"quantity":         meta.Quantity,
	}

	done, err := s.alreadyProcessed(ctx, event)
	if err != nil {
		s.errLog.record(ctx, "payment_webhook", err, fields)
		return nil, err
	}
	if done {
		metrics.TrackWebhook("duplicate")
		return &dto.WebhookResponse{Received: true, Status: statusAlreadyProcessed}, nil
	}

	result, err := s.settle(ctx, event, meta)
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			s.errLog.record(ctx, "payment_webhook", err, fields)
		}
		metrics.TrackWebhook("failed")
		return nil, err
	}

	if result.alreadyProcessed {
		metrics.TrackWebhook("duplicate")
		return &dto.WebhookResponse{Received: true, Status: statusAlreadyProcessed}, nil
	}

	if result.casConflict {
		metrics.TrackAttendanceConflict()
		s.errLog.record(ctx, "attendance_cas", fmt.Errorf("attendance increment lost after %d retries", s.casRetries), fields)
	}

	metrics.TrackWebhook("reconciled")
	logrus.WithFields(fields).WithField("ticket_id", result.ticket.ID).Info("payment reconciled")

	return &dto.WebhookResponse{Received: true}, nil
}

func (s *webhookServiceImpl) alreadyProcessed(ctx context.Context, event *validation.WebhookEvent) (bool, error) {
	seen, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	if seen {
		return true, nil
	}

	completed, err := s.ticketRepo.IsCompleted(ctx, s.db, event.ChargeID)
	if err != nil {
		return false, fmt.Errorf("check completed ticket: %w", err)
	}
	return completed, nil
}

func (s *webhookServiceImpl) settle(ctx context.Context, event *validation.WebhookEvent, meta *validation.PaymentMetadata) (*settlement, error) {
	result := &settlement{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := s.eventRepo.GetForUpdate(ctx, tx, meta.EventID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("event not found")
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		// a redelivery of a settled charge resolves here, ahead of the capacity check
		rows, err := s.ticketRepo.MarkCompleted(ctx, tx, event.ChargeID, meta.UserID, meta.EventID)
		if err != nil {
			return fmt.Errorf("mark ticket completed: %w", err)
		}
		if rows == 0 {
			completed, err := s.ticketRepo.IsCompleted(ctx, tx, event.ChargeID)
			if err != nil {
				return fmt.Errorf("check completed ticket: %w", err)
			}
			if completed {
				result.alreadyProcessed = true
				return nil
			}
			return apperr.NotFound("ticket not found")
		}

		if ev.CurrentAttendees+meta.Quantity > ev.MaxAttendees {
			return apperr.BadRequest("capacity exceeded")
		}

		conflict, err := s.incrementAttendance(ctx, tx, ev, meta.Quantity)
		if err != nil {
			return err
		}
		result.casConflict = conflict

		ticket, err := s.ticketRepo.FindByPaymentReference(ctx, tx, event.ChargeID)
		if err != nil {
			return fmt.Errorf("reload ticket: %w", err)
		}
		result.ticket = ticket

		if err := s.webhookEventRepo.MarkProcessed(ctx, tx, event.ID, event.Type); err != nil {
			return fmt.Errorf("mark webhook processed: %w", err)
		}

		err = s.logRepo.EnqueueEmail(ctx, tx, &model.EmailNotification{
			UserID:    ticket.UserID,
			Recipient: ticket.PurchaserEmail,
			Template:  templateConfirmation,
			Status:    notificationPending,
			Payload: toJSON(map[string]interface{}{
				"ticketId":  ticket.ID,
				"eventId":   ev.ID,
				"eventName": ev.Name,
				"quantity":  ticket.Quantity,
				"qrData":    validation.TicketQR(ticket.ID),
			}),
		})
		if err != nil {
			return fmt.Errorf("enqueue confirmation email: %w", err)
		}

		err = s.logRepo.CreateAuditLog(ctx, tx, &model.AuditLog{
			ActorID:      webhookActor,
			Action:       auditActionReconciled,
			ResourceType: "ticket",
			ResourceID:   ticket.ID,
			Details: toJSON(map[string]interface{}{
				"chargeId":           event.ChargeID,
				"webhookEventId":     event.ID,
				"quantity":           meta.Quantity,
				"attendanceConflict": conflict,
			}),
		})
		if err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// incrementAttendance applies the attendance CAS, re-reading with a locking
// read and retrying on a stale observation. It reports true when every attempt lost; the ticket then
// stays completed and attendance undercounts.
func (s *webhookServiceImpl) incrementAttendance(ctx context.Context, tx *gorm.DB, ev *model.Event, quantity int) (bool, error) {
	observed := ev.CurrentAttendees

	for attempt := 0; ; attempt++ {
		ok, err := s.eventRepo.IncrementAttendees(ctx, tx, ev.ID, observed, quantity)
		if err != nil {
			return false, fmt.Errorf("increment attendees: %w", err)
		}
		if ok {
			return false, nil
		}

		logrus.WithFields(logrus.Fields{
			"event_id": ev.ID,
			"observed": observed,
			"attempt":  attempt + 1,
		}).Warn("attendance compare-and-swap conflict")

		if attempt >= s.casRetries {
			return true, nil
		}

		fresh, err := s.eventRepo.GetForUpdate(ctx, tx, ev.ID)
		if err != nil {
			return false, fmt.Errorf("reload event: %w", err)
		}
		if fresh.CurrentAttendees+quantity > fresh.MaxAttendees {
			return false, apperr.BadRequest("capacity exceeded")
		}
		observed = fresh.CurrentAttendees
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventory-payments/internal/apperr"
	"eventory-payments/internal/dto"
	"eventory-payments/internal/metrics"
	"eventory-payments/internal/model"
	"eventory-payments/internal/repository"
	"eventory-payments/internal/validation"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var scanReasons = map[model.ScanResult]string{
	model.ScanResultValid:       "ticket accepted",
	model.ScanResultAlreadyUsed: "ticket has already been used",
	model.ScanResultWrongEvent:  "ticket is for a different event",
	model.ScanResultNotFound:    "ticket not found",
	model.ScanResultNotActive:   "ticket is not active",
}

type ScanService interface {
	Scan(ctx context.Context, scannerID string, req dto.ScanRequest) (*dto.ScanResponse, error)
}

type scanServiceImpl struct {
	db         *gorm.DB
	ticketRepo repository.TicketRepository
	logRepo    repository.LogRepository
	now        func() time.Time
}

func NewScanService(db *gorm.DB, ticketRepo repository.TicketRepository, logRepo repository.LogRepository) ScanService {
	return &scanServiceImpl{
		db:         db,
		ticketRepo: ticketRepo,
		logRepo:    logRepo,
		now:        time.Now,
	}
}

func (s *scanServiceImpl) Scan(ctx context.Context, scannerID string, req dto.ScanRequest) (*dto.ScanResponse, error) {
	var errs validation.Errors
	ticketID, ok := validation.ParseQR(req.QRData)
	if !ok {
		errs = append(errs, "qrData must be a ticket id or eventory:ticket:<id>")
	}
	eventID := strings.ToLower(strings.TrimSpace(req.EventID))
	if !validation.IsUUID(eventID) {
		errs = append(errs, "eventId must be a valid UUID")
	}
	if errs != nil {
		return nil, apperr.Validation(errs)
	}

	var (
		result model.ScanResult
		found  bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, found, err = s.check(ctx, tx, ticketID, eventID)
		if err != nil {
			return err
		}

		return s.logRepo.CreateScanLog(ctx, tx, &model.ScanLog{
			TicketID:  ticketID,
			EventID:   eventID,
			ScannedBy: scannerID,
			Result:    result,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scan ticket: %w", err)
	}

	metrics.TrackScan(string(result))
	logrus.WithFields(logrus.Fields{
		"ticket_id":  ticketID,
		"event_id":   eventID,
		"scanned_by": scannerID,
		"result":     result,
	}).Info("ticket scanned")

	resp := &dto.ScanResponse{
		Success: result == model.ScanResultValid,
		Result:  string(result),
		Reason:  scanReasons[result],
	}
	if found {
		resp.TicketID = ticketID
	}
	return resp, nil
}

func (s *scanServiceImpl) check(ctx context.Context, tx *gorm.DB, ticketID, eventID string) (model.ScanResult, bool, error) {
	ticket, err := s.ticketRepo.Get(ctx, tx, ticketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ScanResultNotFound, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get ticket: %w", err)
	}

	switch {
	case ticket.EventID != eventID:
		return model.ScanResultWrongEvent, true, nil
	case ticket.Status == model.TicketStatusUsed:
		return model.ScanResultAlreadyUsed, true, nil
	case ticket.Status != model.TicketStatusActive:
		return model.ScanResultNotActive, true, nil
	}

	rows, err := s.ticketRepo.MarkUsed(ctx, tx, ticket.ID, s.now())
	if err != nil {
		return "", true, fmt.Errorf("mark ticket used: %w", err)
	}
	if rows == 0 {
		return model.ScanResultAlreadyUsed, true, nil
	}
	return model.ScanResultValid, true, nil
}

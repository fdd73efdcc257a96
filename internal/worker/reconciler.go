// Package worker runs background jobs next to the HTTP server.
package worker

import (
	"context"
	"fmt"
	"time"

	"eventory-payments/internal/client"
	"eventory-payments/internal/metrics"
	"eventory-payments/internal/model"
	"eventory-payments/internal/repository"

	"github.com/sirupsen/logrus"
)

type ReconcilerConfig struct {
	Interval    time.Duration
	BatchSize   int
	AutoRefund  bool
	MaxAttempts int
}

// Reconciler resolves charges that were taken without a ticket being written:
// it refunds them when auto refund is on, otherwise it raises an alert for
// manual handling.
type Reconciler struct {
	cfg           ReconcilerConfig
	orphanRepo    repository.OrphanedChargeRepository
	paymentClient client.PaymentClient
}

func NewReconciler(cfg ReconcilerConfig, orphanRepo repository.OrphanedChargeRepository, paymentClient client.PaymentClient) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}

	return &Reconciler{
		cfg:           cfg,
		orphanRepo:    orphanRepo,
		paymentClient: paymentClient,
	}
}

// Run blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	logrus.WithField("interval", r.cfg.Interval.String()).Info("orphaned charge reconciler started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("orphaned charge reconciler stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				logrus.WithError(err).Error("reconcile orphaned charges")
			}
		}
	}
}

// RunOnce handles one batch and returns how many rows it looked at.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	charges, err := r.orphanRepo.ListOpen(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list open orphaned charges: %w", err)
	}

	for _, charge := range charges {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if r.cfg.AutoRefund && r.paymentClient != nil {
			r.refund(ctx, charge)
		} else {
			r.alert(ctx, charge)
		}
	}

	return len(charges), nil
}

func fields(charge *model.OrphanedCharge) logrus.Fields {
	return logrus.Fields{
		"charge_id": charge.ChargeID,
		"user_id":   charge.UserID,
		"event_id":  charge.EventID,
		"amount":    charge.Amount.String(),
		"currency":  charge.Currency,
		"attempts":  charge.Attempts,
	}
}

func (r *Reconciler) alert(ctx context.Context, charge *model.OrphanedCharge) {
	logrus.WithFields(fields(charge)).WithField("reason", charge.Reason).
		Error("ALERT: charge captured without a ticket, manual reconciliation required")

	if err := r.orphanRepo.SetStatus(ctx, charge.ID, model.OrphanStatusAlerted); err != nil {
		logrus.WithError(err).WithFields(fields(charge)).Error("mark orphaned charge alerted")
		return
	}
	metrics.TrackReconcile("alerted")
}

func (r *Reconciler) refund(ctx context.Context, charge *model.OrphanedCharge) {
	err := r.paymentClient.Refund(ctx, charge.ChargeID)
	if err == nil {
		if err := r.orphanRepo.SetStatus(ctx, charge.ID, model.OrphanStatusRefunded); err != nil {
			logrus.WithError(err).WithFields(fields(charge)).Error("mark orphaned charge refunded")
			return
		}
		metrics.TrackReconcile("refunded")
		logrus.WithFields(fields(charge)).Info("orphaned charge refunded")
		return
	}

	logrus.WithError(err).WithFields(fields(charge)).Warn("refund orphaned charge")
	if err := r.orphanRepo.IncrementAttempts(ctx, charge.ID); err != nil {
		logrus.WithError(err).WithFields(fields(charge)).Error("count refund attempt")
		return
	}
	metrics.TrackReconcile("refund_failed_attempt")

	if charge.Attempts+1 >= r.cfg.MaxAttempts {
		if err := r.orphanRepo.SetStatus(ctx, charge.ID, model.OrphanStatusRefundFailed); err != nil {
			logrus.WithError(err).WithFields(fields(charge)).Error("mark orphaned charge refund_failed")
			return
		}
		metrics.TrackReconcile("refund_failed")
		logrus.WithFields(fields(charge)).Error("ALERT: refund attempts exhausted, manual reconciliation required")
	}
}

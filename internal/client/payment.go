package client

import (
	"context"
	"fmt"
)

const (
	ChargeStatusSuccessful = "successful"
	ChargeStatusDeclined   = "declined"
	ChargeStatusPending    = "pending"
)

type ChargeRequest struct {
	// AmountMinor is the amount in the currency's minor unit (cents).
	AmountMinor     int64
	Currency        string
	PaymentMethodID string
	Metadata        map[string]string
}

type ChargeResult struct {
	ID     string
	Status string
	// DisplayMessage is the processor's customer-safe text, if any.
	DisplayMessage string
}

// PaymentClient is a card processor. Charge returns an error for transport and
// processor failures; a declined charge may also come back as a result whose
// Status is not ChargeStatusSuccessful.
type PaymentClient interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, chargeID string) error
}

// ProcessorError is a structured rejection from the processor.
type ProcessorError struct {
	StatusCode     int
	Code           string
	DisplayMessage string
	Body           string
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor error %d %s: %s", e.StatusCode, e.Code, e.Body)
}

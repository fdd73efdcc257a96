package validation

import (
	"strconv"
	"strings"

	"eventory-payments/internal/dto"
)

const (
	EventTypePaymentSucceeded = "payment.succeeded"

	maxMetadataLength = 64
	qrPrefix          = "eventory:ticket:"
)

type WebhookEvent struct {
	ID       string
	Type     string
	ChargeID string
	data     map[string]interface{}
}

type PaymentMetadata struct {
	EventID  string
	UserID   string
	Quantity int
}

// ValidateWebhook checks the envelope shape: id, type and a data object
// carrying a non-empty id.
func ValidateWebhook(env dto.WebhookEnvelope) (*WebhookEvent, Errors) {
	var errs Errors

	id := strings.TrimSpace(env.ID)
	if id == "" {
		errs = append(errs, "id is required")
	}
	eventType := strings.TrimSpace(env.Type)
	if eventType == "" {
		errs = append(errs, "type is required")
	}

	data, ok := env.Data.(map[string]interface{})
	if !ok {
		errs = append(errs, "data must be an object")
		return nil, errs
	}
	chargeID, _ := data["id"].(string)
	if strings.TrimSpace(chargeID) == "" {
		errs = append(errs, "data.id is required")
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &WebhookEvent{
		ID:       id,
		Type:     eventType,
		ChargeID: strings.TrimSpace(chargeID),
		data:     data,
	}, nil
}

// Metadata coerces, strips and bounds data.metadata before any lookup uses it.
func (e *WebhookEvent) Metadata() (*PaymentMetadata, Errors) {
	raw, _ := e.data["metadata"].(map[string]interface{})

	meta := &PaymentMetadata{
		EventID: SanitizeField(raw["eventId"], maxMetadataLength),
		UserID:  SanitizeField(raw["userId"], maxMetadataLength),
	}

	var errs Errors
	if meta.EventID == "" {
		errs = append(errs, "metadata.eventId is required")
	}
	if meta.UserID == "" {
		errs = append(errs, "metadata.userId is required")
	}

	quantity, err := strconv.Atoi(SanitizeField(raw["quantity"], maxMetadataLength))
	if err != nil || quantity < MinQuantity || quantity > MaxQuantity {
		errs = append(errs, "metadata.quantity must be an integer between 1 and 10")
	}
	meta.Quantity = quantity

	if len(errs) > 0 {
		return nil, errs
	}
	return meta, nil
}

// ParseQR accepts a bare ticket UUID or eventory:ticket:<uuid>.
func ParseQR(qrData string) (string, bool) {
	s := strings.TrimSpace(qrData)
	s = strings.TrimPrefix(s, qrPrefix)
	if !IsUUID(s) {
		return "", false
	}
	return strings.ToLower(s), true
}

// TicketQR is the payload encoded in a ticket's QR code.
func TicketQR(ticketID string) string {
	return qrPrefix + ticketID
}

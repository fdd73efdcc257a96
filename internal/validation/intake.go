package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"eventory-payments/internal/dto"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinQuantity = 1
	MaxQuantity = 10

	maxEmailLength         = 254
	maxPaymentMethodLength = 255
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Errors is the failed side of a validation result.
type Errors []string

func (e Errors) Error() string {
	return "validation failed: " + strings.Join(e, "; ")
}

// Intake is a request that passed every shape check.
type Intake struct {
	Amount          decimal.Decimal
	Currency        string
	EventID         string
	Quantity        int
	UserEmail       string
	UserID          string
	PaymentMethodID string
}

type IntakeRules struct {
	MaxAmount  float64
	Currencies []string
}

func (r IntakeRules) allowsCurrency(currency string) bool {
	for _, c := range r.Currencies {
		if strings.EqualFold(c, currency) {
			return true
		}
	}
	return false
}

// ValidateIntake returns either a validated Intake or the full list of problems.
func ValidateIntake(raw dto.PaymentIntakeRequest, rules IntakeRules) (*Intake, Errors) {
	var errs Errors

	switch {
	case raw.Amount == nil || math.IsNaN(*raw.Amount) || math.IsInf(*raw.Amount, 0):
		errs = append(errs, "amount is required and must be a number")
	case *raw.Amount <= 0:
		errs = append(errs, "amount must be positive")
	case *raw.Amount > rules.MaxAmount:
		errs = append(errs, fmt.Sprintf("amount must not exceed %v", rules.MaxAmount))
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if !rules.allowsCurrency(currency) {
		errs = append(errs, "currency is not supported")
	}

	if !IsUUID(raw.EventID) {
		errs = append(errs, "eventId must be a valid UUID")
	}
	if !IsUUID(raw.UserID) {
		errs = append(errs, "userId must be a valid UUID")
	}

	quantity := 0
	switch {
	case raw.Quantity == nil:
		errs = append(errs, "quantity is required")
	case *raw.Quantity != math.Trunc(*raw.Quantity):
		errs = append(errs, "quantity must be an integer")
	case *raw.Quantity < MinQuantity || *raw.Quantity > MaxQuantity:
		errs = append(errs, fmt.Sprintf("quantity must be between %d and %d", MinQuantity, MaxQuantity))
	default:
		quantity = int(*raw.Quantity)
	}

	email := strings.TrimSpace(raw.UserEmail)
	if len(email) > maxEmailLength || !emailPattern.MatchString(email) {
		errs = append(errs, "userEmail must be a valid email address")
	}

	paymentMethodID := strings.TrimSpace(raw.PaymentMethodID)
	if n := utf8.RuneCountInString(paymentMethodID); n == 0 || n > maxPaymentMethodLength {
		errs = append(errs, fmt.Sprintf("paymentMethodId must be between 1 and %d characters", maxPaymentMethodLength))
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &Intake{
		Amount:          decimal.NewFromFloat(*raw.Amount),
		Currency:        currency,
		EventID:         strings.ToLower(raw.EventID),
		Quantity:        quantity,
		UserEmail:       email,
		UserID:          strings.ToLower(raw.UserID),
		PaymentMethodID: paymentMethodID,
	}, nil
}

// IsUUID accepts only the canonical 8-4-4-4-12 form.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

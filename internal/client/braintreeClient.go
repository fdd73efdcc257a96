package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventory-payments/internal/config"
	"eventory-payments/internal/metrics"

	"github.com/braintree-go/braintree-go"
)

var ErrUnsupportedCurrency = errors.New("no braintree merchant account for currency")

type braintreeClientImpl struct {
	gateway          *braintree.Braintree
	merchantAccounts map[string]string
	defaultCurrency  string
}

// NewBraintreeClient charges vaulted Braintree payment method tokens.
func NewBraintreeClient(cfg *config.Braintree) PaymentClient {
	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}

	gateway := braintree.New(
		env,
		cfg.MerchantID,
		cfg.PublicKey,
		cfg.PrivateKey,
	)

	accounts := make(map[string]string, len(cfg.MerchantAccounts))
	for currency, id := range cfg.MerchantAccounts {
		accounts[strings.ToUpper(strings.TrimSpace(currency))] = strings.TrimSpace(id)
	}

	return &braintreeClientImpl{
		gateway:          gateway,
		merchantAccounts: accounts,
		defaultCurrency:  strings.ToUpper(cfg.DefaultCurrency),
	}
}

// merchantAccountFor returns "" for the default account's currency.
func (c *braintreeClientImpl) merchantAccountFor(currency string) (string, error) {
	currency = strings.ToUpper(currency)
	if id, ok := c.merchantAccounts[currency]; ok && id != "" {
		return id, nil
	}
	if currency != "" && currency == c.defaultCurrency {
		return "", nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedCurrency, currency)
}

func (c *braintreeClientImpl) Charge(ctx context.Context, chargeReq ChargeRequest) (*ChargeResult, error) {
	start := time.Now()

	merchantAccount, err := c.merchantAccountFor(chargeReq.Currency)
	if err != nil {
		return nil, err
	}

	// Braintree expects NewDecimal(unscaled, scale): 5000 cents -> NewDecimal(5000, 2)
	req := &braintree.TransactionRequest{
		Type:               "sale",
		Amount:             braintree.NewDecimal(chargeReq.AmountMinor, 2),
		PaymentMethodToken: chargeReq.PaymentMethodID,
		MerchantAccountId:  merchantAccount,
		OrderId:            braintreeOrderID(chargeReq.Metadata),
		Options: &braintree.TransactionOptions{
			SubmitForSettlement: true,
		},
	}

	tx, err := c.gateway.Transaction().Create(ctx, req)
	if err != nil {
		metrics.ObserveProcessor("charge", "error", start)
		return nil, fmt.Errorf("transaction creation failed: %w", err)
	}

	result := &ChargeResult{ID: tx.Id}
	switch tx.Status {
	case braintree.TransactionStatusProcessorDeclined, braintree.TransactionStatusGatewayRejected, braintree.TransactionStatusFailed:
		result.Status = ChargeStatusDeclined
		result.DisplayMessage = tx.ProcessorResponseText
	case braintree.TransactionStatusSubmittedForSettlement, braintree.TransactionStatusSettling, braintree.TransactionStatusSettled:
		result.Status = ChargeStatusSuccessful
	default:
		result.Status = ChargeStatusPending
	}
	metrics.ObserveProcessor("charge", result.Status, start)

	return result, nil
}

func (c *braintreeClientImpl) Refund(ctx context.Context, chargeID string) error {
	start := time.Now()

	if _, err := c.gateway.Transaction().Refund(ctx, chargeID); err != nil {
		metrics.ObserveProcessor("refund", "error", start)
		return fmt.Errorf("refund transaction %s: %w", chargeID, err)
	}
	metrics.ObserveProcessor("refund", "ok", start)

	return nil
}

// braintreeOrderID packs the charge metadata as eventId:userId:quantity.
func braintreeOrderID(metadata map[string]string) string {
	return strings.Join([]string{
		metadata["eventId"],
		metadata["userId"],
		metadata["quantity"],
	}, ":")
}

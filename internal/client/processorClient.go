package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventory-payments/internal/config"
	"eventory-payments/internal/metrics"
)

type processorClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	secretKey  string
}

type processorChargeResult struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	DisplayMessage string `json:"display_message"`
}

type processorErrorBody struct {
	Error struct {
		Code           string `json:"code"`
		Message        string `json:"message"`
		DisplayMessage string `json:"display_message"`
	} `json:"error"`
}

// NewProcessorClient talks to a JSON card processor API authenticated with a
// bearer secret key.
func NewProcessorClient(cfg *config.PaymentHTTP) PaymentClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &processorClientImpl{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseApiURL: strings.TrimRight(cfg.BaseApiURL, "/"),
		secretKey:  cfg.SecretKey,
	}
}

func (c *processorClientImpl) Charge(ctx context.Context, chargeReq ChargeRequest) (*ChargeResult, error) {
	start := time.Now()

	payload := map[string]interface{}{
		"amount":         chargeReq.AmountMinor,
		"currency":       strings.ToLower(chargeReq.Currency),
		"payment_method": chargeReq.PaymentMethodID,
		"confirm":        true,
		"metadata":       chargeReq.Metadata,
	}

	var result processorChargeResult
	if err := c.post(ctx, "/v1/charges", payload, &result); err != nil {
		metrics.ObserveProcessor("charge", "error", start)
		return nil, fmt.Errorf("create charge: %w", err)
	}
	metrics.ObserveProcessor("charge", result.Status, start)

	return &ChargeResult{
		ID:             result.ID,
		Status:         result.Status,
		DisplayMessage: result.DisplayMessage,
	}, nil
}

func (c *processorClientImpl) Refund(ctx context.Context, chargeID string) error {
	start := time.Now()

	payload := map[string]interface{}{
		"charge": chargeID,
	}

	if err := c.post(ctx, "/v1/refunds", payload, nil); err != nil {
		metrics.ObserveProcessor("refund", "error", start)
		return fmt.Errorf("refund charge %s: %w", chargeID, err)
	}
	metrics.ObserveProcessor("refund", "ok", start)

	return nil
}

func (c *processorClientImpl) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read processor response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		procErr := &ProcessorError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
		var errBody processorErrorBody
		if json.Unmarshal(respBody, &errBody) == nil {
			procErr.Code = errBody.Error.Code
			procErr.DisplayMessage = errBody.Error.DisplayMessage
		}
		return procErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode processor response: %w", err)
	}

	return nil
}

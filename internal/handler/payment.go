package handler

import (
	"io"
	"net/http"

	"eventory-payments/internal/apperr"
	"eventory-payments/internal/dto"
	"eventory-payments/internal/middleware"
	"eventory-payments/internal/service"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	paymentService  service.PaymentService
	webhookService  service.WebhookService
	signatureHeader string
	maxBodyBytes    int64
}

func NewPaymentHandler(
	paymentService service.PaymentService,
	webhookService service.WebhookService,
	signatureHeader string,
	maxBodyBytes int64,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService:  paymentService,
		webhookService:  webhookService,
		signatureHeader: signatureHeader,
		maxBodyBytes:    maxBodyBytes,
	}
}

func (h *PaymentHandler) Intake(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.PaymentIntakeRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	resp, err := h.paymentService.Intake(ctx, middleware.UserID(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Webhook reads the raw body itself: the signature covers the exact bytes.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	req := c.Request()

	if req.ContentLength > h.maxBodyBytes {
		return apperr.New(http.StatusRequestEntityTooLarge, "payload too large")
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, h.maxBodyBytes+1))
	if err != nil {
		return apperr.BadRequest("unreadable body").Wrap(err)
	}
	if int64(len(body)) > h.maxBodyBytes {
		return apperr.New(http.StatusRequestEntityTooLarge, "payload too large")
	}

	resp, err := h.webhookService.HandleWebhook(ctx, body, req.Header.Get(h.signatureHeader))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

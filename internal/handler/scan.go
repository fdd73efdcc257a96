package handler

import (
	"net/http"

	"eventory-payments/internal/dto"
	"eventory-payments/internal/middleware"
	"eventory-payments/internal/service"

	"github.com/labstack/echo/v4"
)

type ScanHandler struct {
	scanService service.ScanService
}

func NewScanHandler(scanService service.ScanService) *ScanHandler {
	return &ScanHandler{
		scanService: scanService,
	}
}

func (h *ScanHandler) Scan(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ScanRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}

	resp, err := h.scanService.Scan(ctx, middleware.UserID(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

package handler

import (
	"net/http"

	"eventory-payments/internal/dto"
	"eventory-payments/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type HealthHandler struct {
	healthService service.HealthService
}

func NewHealthHandler(healthService service.HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

func (h *HealthHandler) Check(c echo.Context) error {
	results := h.healthService.Check(c.Request().Context())

	resp := dto.HealthResponse{Status: "ok", Services: map[string]string{}}
	status := http.StatusOK
	for name, err := range results {
		if err != nil {
			logrus.WithError(err).WithField("dependency", name).Warn("health check failed")
			resp.Services[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Services[name] = "up"
	}

	return c.JSON(status, resp)
}

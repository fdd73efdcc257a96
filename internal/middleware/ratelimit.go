package middleware

import (
	"net/http"

	"eventory-payments/internal/apperr"
	"eventory-payments/internal/metrics"
	"eventory-payments/internal/ratelimit"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RateLimit keys the limiter by client IP. A limiter error lets the request through.
func RateLimit(route string, limiter ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			allowed, err := limiter.Allow(c.Request().Context(), ip)
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"route":     route,
					"remote_ip": ip,
				}).Warn("rate limiter unavailable")
				return next(c)
			}

			if !allowed {
				metrics.TrackRateLimited(route)
				return apperr.New(http.StatusTooManyRequests, "too many requests")
			}

			return next(c)
		}
	}
}

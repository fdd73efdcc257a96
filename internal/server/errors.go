package server

import (
	"errors"
	"net/http"

	"eventory-payments/internal/apperr"
	"eventory-payments/internal/dto"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// errorHandler renders apperr and echo errors. Anything else is logged and
// reported as a bare 500 so internals never reach the client.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := renderError(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"uri":    c.Request().RequestURI,
		}).Error("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logrus.WithError(err).Warn("write error response")
	}
}

func renderError(err error) (int, dto.ErrorResponse) {
	if appErr, ok := apperr.As(err); ok {
		return appErr.Status, dto.ErrorResponse{
			Error:   appErr.Message,
			Details: appErr.Details,
			Errors:  appErr.Errors,
		}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok && httpErr.Code < http.StatusInternalServerError {
			msg = m
		}
		return httpErr.Code, dto.ErrorResponse{Error: msg}
	}

	return http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"}
}

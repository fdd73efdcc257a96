package handler

import (
	"encoding/json"
	"errors"

	"eventory-payments/internal/apperr"

	"github.com/labstack/echo/v4"
)

func decodeJSON(c echo.Context, v interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		// body limit hit mid-stream
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return apperr.BadRequest("invalid JSON body").Wrap(err)
	}
	return nil
}

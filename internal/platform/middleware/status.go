package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/healthhistory/healthhistory/internal/platform/apperr"
)

// statusOf predicts the status the error handler will write for err.
func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return apperr.Status(err)
}

package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/Majd-Alhourani98/advanced-auth-system/internal/apperror"
	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler renders every error as the JSON envelope
// {"status": "fail"|"error", "message": ...}. Operational errors surface
// their own message; anything else is logged and reported generically.
// Outside production the response also carries a stack trace.
func HTTPErrorHandler(isProduction bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Something went wrong"

		if appErr, ok := apperror.From(err); ok {
			status = appErr.Status
			message = appErr.Message
		} else if httpErr, ok := err.(*echo.HTTPError); ok { //nolint:errorlint // echo wraps at the top level
			status = httpErr.Code
			message = fmt.Sprintf("%v", httpErr.Message)
		} else {
			slog.Error("unexpected_error", "error", err, "method", c.Request().Method, "path", c.Request().URL.Path)
		}

		statusClass := "error"
		if status < http.StatusInternalServerError {
			statusClass = "fail"
		}

		body := map[string]any{
			"status":  statusClass,
			"message": message,
		}
		if !isProduction {
			body["error"] = err.Error()
			body["stack"] = string(debug.Stack())
		}

		if jsonErr := c.JSON(status, body); jsonErr != nil {
			slog.Error("failed to write error response", "error", jsonErr)
		}
	}
}

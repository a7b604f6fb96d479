package handlers

import "github.com/labstack/echo/v4"

// envelope is the success response shape: {"status": "success", ...}.
// Failures are shaped by the server's error handler.
type envelope map[string]any

func respondData(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{
		"status": "success",
		"data":   data,
	})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, envelope{
		"status":  "success",
		"message": message,
	})
}

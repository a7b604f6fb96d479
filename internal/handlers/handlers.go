// Package handlers contains the HTTP handlers. They are thin: binding,
// calling a service, and shaping the JSON envelope.
package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

var startTime = time.Now()

// Handlers contains the non-auth HTTP handlers.
type Handlers struct{}

// New creates a new Handlers instance.
func New() *Handlers {
	return &Handlers{}
}

// Health returns the health status and uptime.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(startTime).Seconds(),
		"message": "Server is running",
	})
}

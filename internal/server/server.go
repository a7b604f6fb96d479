// Package server wires configuration, storage and services together and
// runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Majd-Alhourani98/advanced-auth-system/internal/config"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/database"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/handlers"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/repository"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/services/auth"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/services/email"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/services/geoip"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/services/verification"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"env", cfg.Server.Env,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	repo := repository.New(db)

	// Services
	mailer, err := email.NewService(cfg.SMTP, cfg.Auth, cfg.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create email service: %w", err)
	}

	locator := geoip.NewClient(cfg.GeoIP)
	authService := auth.NewService(repo, locator, cfg.Auth)
	verificationService := verification.NewService(repo, mailer, cfg.Auth)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler(cfg.Server.IsProduction())

	setupMiddleware(e, cfg)
	setupRoutes(e, authService, verificationService)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, authService *auth.Service, verificationService *verification.Service) {
	h := handlers.New()
	authHandlers := handlers.NewAuth(authService, verificationService)

	e.GET("/health", h.Health)

	api := e.Group("/api/v1")
	api.POST("/signup", authHandlers.Signup)
	api.POST("/resend-verification", authHandlers.ResendVerification)
	api.GET("/verify-link", authHandlers.VerifyLink)
	api.POST("/verify-otp", authHandlers.VerifyOTP)
	api.POST("/login", authHandlers.Login)
	api.GET("/user/:id", authHandlers.GetUser)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

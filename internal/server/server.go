// Package server exposes the application context over HTTP: the landing
// text, overview reports, charts, metrics and predictions.
package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/KaramelBytes/airq-cli/internal/dataset"
	"github.com/KaramelBytes/airq-cli/internal/model"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Options configures the HTTP app.
type Options struct {
	// Quiet disables the request logger.
	Quiet        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New builds a fiber app serving svc.
func New(svc Service, opt Options) *fiber.App {
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = 30 * time.Second
	}
	if opt.WriteTimeout == 0 {
		// chart rendering over the full table can take a while
		opt.WriteTimeout = 2 * time.Minute
	}
	app := fiber.New(fiber.Config{
		AppName:               "airq",
		ReadTimeout:           opt.ReadTimeout,
		WriteTimeout:          opt.WriteTimeout,
		ErrorHandler:          errorHandler,
		UnescapePath:          true,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if !opt.Quiet {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	SetupRoutes(app, NewHandler(svc))
	return app
}

// Run serves app on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		return err
	}
	log.Println("Server exited gracefully")
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		fe  *fiber.Error
		uoe *model.UnsupportedOptionError
		ve  *model.ValidationError
		nf  *model.NotFittedError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &uoe):
		return fiber.StatusBadRequest
	case errors.As(err, &ve):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &nf), errors.Is(err, dataset.ErrEmptyTable), errors.Is(err, model.ErrNoRows):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		log.Printf("request %s %s failed: %v", c.Method(), c.Path(), err)
		message = "Internal Server Error"
	}
	body := fiber.Map{
		"error":   true,
		"message": message,
	}
	var uoe *model.UnsupportedOptionError
	if errors.As(err, &uoe) {
		body["supported"] = uoe.Supported
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		body["field"] = ve.Field
	}
	return c.Status(code).JSON(body)
}

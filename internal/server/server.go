package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bosphorus-pay/bosphorus_pay/internal/config"
	"github.com/bosphorus-pay/bosphorus_pay/internal/metrics"
	"github.com/bosphorus-pay/bosphorus_pay/internal/routes"
	"github.com/bosphorus-pay/bosphorus_pay/internal/wallet"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app   *fiber.App
	cfg   config.Config
	db    *pgxpool.Pool
	cache *redis.Client
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler(logger),
	})

	recorder := metrics.NewRecorder()

	if err := routes.Setup(app, routes.Deps{
		Cfg:     cfg,
		DB:      db,
		Cache:   cache,
		Logger:  logger,
		Metrics: recorder,
	}); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, db: db, cache: cache}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders business errors with their stable codes, passes fiber
// errors through, and hides everything else behind a generic 500.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var apiErr *wallet.APIError
		if errors.As(err, &apiErr) {
			return c.Status(apiErr.Status).JSON(apiErr)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error":   http.StatusText(fiberErr.Code),
				"message": fiberErr.Message,
			})
		}

		logger.Error("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error":   "INTERNAL",
			"message": "internal server error",
		})
	}
}

package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bosphorus-pay/bosphorus_pay/internal/auth"
	"github.com/bosphorus-pay/bosphorus_pay/internal/authz"
	"github.com/bosphorus-pay/bosphorus_pay/internal/config"
	"github.com/bosphorus-pay/bosphorus_pay/internal/identity"
	"github.com/bosphorus-pay/bosphorus_pay/internal/metrics"
	"github.com/bosphorus-pay/bosphorus_pay/internal/middleware"
	"github.com/bosphorus-pay/bosphorus_pay/internal/notification"
	"github.com/bosphorus-pay/bosphorus_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Setup configures middlewares and all application routes. Outside of dev
// both Postgres and Redis are mandatory; in dev missing backends fall back
// to in-memory implementations.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	var store wallet.Store
	if d.DB != nil {
		store = wallet.NewPostgresStore(d.DB, d.Cfg.LockTimeout)
	} else {
		store = wallet.NewMemoryStore()
	}
	var users identity.Repository
	if d.DB != nil {
		users = identity.NewPostgresRepository(d.DB)
	} else {
		users = identity.NewMemoryRepository()
	}

	var recorder wallet.MetricsRecorder = wallet.NoopMetrics{}
	if d.Metrics != nil {
		recorder = d.Metrics
	}

	walletSvc := wallet.NewService(store, d.Cfg.PendingThreshold, recorder, d.Logger)
	notifier := notification.NewLoggerNotifier(d.Logger)
	approvals := wallet.NewApprovals(store, notifier, d.Logger)
	guard := authz.NewGuard(walletSvc)

	identitySvc := identity.NewService(users)
	if d.DB == nil {
		seedDevUsers(identitySvc, d.Logger)
	}
	authSvc := auth.NewService(d.Cfg, identitySvc)

	authHandler := auth.NewHandler(identitySvc, authSvc)
	walletHandler := wallet.NewHandler(walletSvc, approvals, guard)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	protected := api.Group("", middleware.JWTAuth(d.Cfg))
	protected.Get("/auth/me", authHandler.Me)

	// Mutating wallet operations carry idempotency keys; reads are exempt
	// inside the middleware itself.
	idem := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	RegisterWalletRoutes(protected, walletHandler, idem)

	return nil
}

// seedDevUsers provisions well-known accounts for the in-memory backend so a
// dev server is usable without a database.
func seedDevUsers(ids *identity.Service, logger *slog.Logger) {
	for _, u := range []identity.RegisterInput{
		{Username: "admin", Name: "Dev", Surname: "Admin", Password: "admin123", Role: identity.RoleEmployee},
		{Username: "demo", Name: "Demo", Surname: "Customer", Password: "demo1234", Role: identity.RoleCustomer},
	} {
		user, err := ids.Register(context.Background(), u)
		if err != nil {
			logger.Warn("seed dev user", "username", u.Username, "error", err)
			continue
		}
		logger.Info("dev user available", "username", user.Username, "role", user.Role, "user_id", user.ID)
	}
}

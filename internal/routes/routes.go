package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/danjos91/my-bank-app/internal/accounts"
	"github.com/danjos91/my-bank-app/internal/config"
	"github.com/danjos91/my-bank-app/internal/gateway"
	"github.com/danjos91/my-bank-app/internal/middleware"
	"github.com/danjos91/my-bank-app/internal/notification"
	"github.com/danjos91/my-bank-app/internal/resilience"
	"github.com/danjos91/my-bank-app/internal/transaction"
)

// Dependency names used for breaker registration and health reporting.
const (
	accountsDependency      = "accounts-service"
	notificationsDependency = "notifications-service"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce backing services outside of dev, even though main also checks.
	if !isDev(d.Cfg.Env) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(gateway.Correlation(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// One breaker per remote dependency, plus one per route group.
	registry := resilience.NewRegistry(d.Logger)
	accountsGuard := registry.Register(accountsDependency, d.Cfg.Resilience.Accounts)
	notificationsGuard := registry.Register(notificationsDependency, d.Cfg.Resilience.Notifications)
	transfersGuard := registry.Register("transfers-route", d.Cfg.Admission.Transfers.BreakerPolicy())
	cashGuard := registry.Register("cash-route", d.Cfg.Admission.Cash.BreakerPolicy())
	queriesGuard := registry.Register("queries-route", d.Cfg.Admission.Queries.BreakerPolicy())

	RegisterHealthRoutes(app, d, registry)

	var accountsClient accounts.Client
	if d.Cfg.AccountsURL != "" {
		accountsClient = accounts.NewHTTPClient(d.Cfg.AccountsURL, accountsGuard)
	} else {
		stub := accounts.NewStub()
		stub.AutoCreate = true
		accountsClient = stub
		d.Logger.Warn("ACCOUNTS_URL not set, using in-memory accounts stub")
	}

	var notifier notification.Notifier
	if d.Cfg.NotificationsURL != "" {
		notifier = notification.NewHTTPNotifier(d.Cfg.NotificationsURL, notificationsGuard)
	} else {
		notifier = notification.NewLogNotifier(d.Logger)
	}

	var store transaction.Store
	if d.DB != nil {
		store = transaction.NewPostgresStore(d.DB)
	} else {
		store = transaction.NewMemoryStore()
		d.Logger.Warn("DATABASE_URL not set, transactions are held in memory")
	}

	var limiter gateway.Limiter
	if d.Cache != nil {
		limiter = gateway.NewRedisLimiter(d.Cache)
	} else {
		limiter = gateway.NewMemoryLimiter()
	}

	service := transaction.NewService(store, accountsClient, notifier, d.Logger)
	handler := transaction.NewHandler(service)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": gateway.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	transfers := api.Group("/transfers",
		gateway.RateLimit(limiter, "transfers", d.Cfg.Admission.Transfers),
		gateway.Breaker(transfersGuard, accountsDependency),
	)
	transfers.Post("/", handler.Transfer)
	transfers.Get("/:id", handler.Get)
	transfers.Post("/:id/cancel", handler.Cancel)
	transfers.Post("/:id/retry", handler.Retry)

	cash := api.Group("/cash",
		gateway.RateLimit(limiter, "cash", d.Cfg.Admission.Cash),
		gateway.Breaker(cashGuard, accountsDependency),
	)
	cash.Post("/deposit", handler.Deposit)
	cash.Post("/withdraw", handler.Withdraw)

	queries := api.Group("",
		gateway.RateLimit(limiter, "queries", d.Cfg.Admission.Queries),
		gateway.Breaker(queriesGuard, "transaction-service"),
	)
	queries.Get("/transactions", handler.List)
	queries.Get("/accounts/:id/totals", handler.Totals)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/order-orchestrator/pkg/config"
	"github.com/sakashimaa/order-orchestrator/pkg/db"
	"github.com/sakashimaa/order-orchestrator/pkg/mylogger"
	"github.com/sakashimaa/order-orchestrator/pkg/utils"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/gateway"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/repository"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/service"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/transport/http"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/transport/http/handler"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tp *sdktrace.TracerProvider
	if utils.ParseBoolWithFallback("TRACING_ENABLED", true) {
		var err error
		tp, err = utils.InitTracer(ctx, "order-service", cfg.Env)
		if err != nil {
			log.Fatalf("failed to init tracer: %v", err)
		}
	}

	loggerCfg := cfg.Logger()
	loggerCfg.Service = "order-service"

	logger, err := config.NewLogger(loggerCfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("failed to sync logger: %v", err)
		}
	}()

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres.URL, logger)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		mylogger.Warn(ctx, logger, "Redis unreachable, order cache degraded", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("failed to close redis client: %v", err)
		}
	}()

	httpClient := gateway.NewHTTPClient()

	customers := gateway.NewCustomerClient(gateway.ClientConfig{
		BaseURL:     cfg.Services.CustomersURL,
		CallTimeout: cfg.Gateway.CallTimeout,
		Breaker:     cfg.Gateway.Breaker,
	}, httpClient, logger)

	inventory := gateway.NewInventoryClient(gateway.ClientConfig{
		BaseURL:     cfg.Services.InventoryURL,
		CallTimeout: cfg.Gateway.CallTimeout,
		Breaker:     cfg.Gateway.Breaker,
	}, httpClient, logger)

	orderRepo := repository.NewOrderRepository(pool, logger)
	orderService := service.NewOrderService(orderRepo, customers, inventory, logger, service.Options{
		NumberPrefix:   cfg.Orders.NumberPrefix,
		DeliveryWindow: cfg.Orders.DeliveryWindow,
	})
	cachedService := service.NewCachedOrderService(orderService, redisClient, cfg.Redis.CacheTTL, logger)

	app := fiber.New()

	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	http.RegisterRoutes(app, &http.Handlers{
		Order: handler.NewOrderHandler(cachedService, logger, cfg.HTTP.Timeout),
	})

	go func() {
		mylogger.Info(ctx, logger, "HTTP service listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error listening on HTTP port %v: %v\n", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mylogger.Info(shutdownCtx, logger, "Shutting down order server")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down HTTP app", zap.Error(err))
	} else {
		mylogger.Info(shutdownCtx, logger, "HTTP app stopped gracefully")
	}

	if tp == nil {
		return
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	} else {
		mylogger.Info(shutdownCtx, logger, "Successfully down telemetry")
	}
}

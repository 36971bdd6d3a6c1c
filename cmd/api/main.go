package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-stock-ledger/internal/handler"
	"go-stock-ledger/internal/lock"
	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"
	"go-stock-ledger/internal/ws"
	"go-stock-ledger/pkg/config"
	"go-stock-ledger/pkg/database"
	"go-stock-ledger/pkg/jwt"
	appLogger "go-stock-ledger/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load Env
	cfg, envLoaded := config.Load()
	log := appLogger.New(cfg.LogLevel)
	if !envLoaded {
		log.Warn(".env file not found, using process environment")
	}

	// 2. Setup Database
	db, err := database.ConnectDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	if err := repository.Migrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	productRepo := repository.NewProductRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	supplierRepo := repository.NewSupplierRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	// 3. Seed default privileges, roles, and admin user
	if err := service.SeedAccessControl(privilegeRepo, roleRepo, userRepo, cfg.AdminEmail, cfg.AdminPassword, log); err != nil {
		log.WithError(err).Warn("failed to seed access control")
	}

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub(log.WithField("module", "ws"))
	go wsHub.Run()

	// 5. Per-product lock: Redis when configured so every instance shares it
	locker, closeLocker := newLocker(cfg, log)
	defer closeLocker()

	// 6. Dependency Injection (Wiring Layers)
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	invService := service.NewInventoryService(productRepo, txRepo, supplierRepo, db, service.InventoryOptions{
		Locker:     locker,
		SKUs:       service.NewSKUAllocator(cfg.SKUPrefix),
		Notifier:   wsHub,
		Logger:     log.WithField("module", "inventory"),
		MaxRetries: cfg.LedgerMaxRetries,
	})
	reportService := service.NewReportService(productRepo, txRepo, db)
	supplierService := service.NewSupplierService(supplierRepo, productRepo, db)
	authService := service.NewAuthService(userRepo, tokens, wsHub)
	userService := service.NewUserService(userRepo, roleRepo)

	handlers := &handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Inventory: handler.NewInventoryHandler(invService, reportService, log),
		Report:    handler.NewReportHandler(reportService, log),
		Supplier:  handler.NewSupplierHandler(supplierService),
		User:      handler.NewUserHandler(userService),
		Role:      handler.NewRoleHandler(roleRepo, privilegeRepo),
	}

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Stock Ledger v1.0",
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	handlers.Register(app.Group("/api/v1"), middleware.RequireAuth(tokens, userRepo))

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Panic("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}
	wsHub.Stop()

	log.Info("Server exited")
}

func newLocker(cfg *config.Config, log *logrus.Logger) (lock.Locker, func()) {
	if cfg.RedisAddress == "" {
		log.Info("REDIS_ADDRESS not set, using in-process product locks")
		return lock.NewLocal(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.WithError(err).Fatal("redis unavailable")
	}
	log.WithField("address", cfg.RedisAddress).Info("using redis product locks")
	return lock.NewRedis(client, cfg.LockTTL), func() { _ = client.Close() }
}

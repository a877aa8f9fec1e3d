package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"pos-core/internal/auth"
	"pos-core/internal/config"
	"pos-core/internal/customer"
	"pos-core/internal/customer/customer_api"
	"pos-core/internal/database/migrations"
	"pos-core/internal/eventbus"
	"pos-core/internal/kafka"
	"pos-core/internal/logger"
	"pos-core/internal/order"
	"pos-core/internal/order/db"
	"pos-core/internal/order/order_api"
	"pos-core/internal/printer"
	"pos-core/internal/settings"
	"pos-core/internal/settings/settings_api"
	"pos-core/internal/staff"
	"pos-core/internal/staff/staff_api"
	"pos-core/internal/tables"
	"pos-core/internal/tables/tables_api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if !cfg.Redis.Enabled {
		log.Info("DATABASE", "Redis disabled, table grid cache off")
		return bunDB, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("DATABASE", fmt.Sprintf("Redis connection error, continuing without cache: %v", err))
		return bunDB, nil
	}

	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))
	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting POS core initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	if redisClient != nil {
		defer redisClient.Close()
	}

	log.Info("DATABASE", "Running migrations")
	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}

	bus := eventbus.New()

	var producer order.Publisher
	if cfg.Kafka.Enabled {
		p := kafka.NewProducer(cfg.Kafka.Brokers)
		defer p.Close()
		producer = p
		log.Info("KAFKA", "Kafka producer initialized successfully")

		requiredTopics := []string{
			cfg.Kafka.Topics.OrdersUpdated,
			cfg.Kafka.Topics.SalesCompleted,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		producer = kafka.NoopProducer{}
		log.Info("KAFKA", "Kafka disabled, domain events off")
	}

	tableCache := tables.NewCache(redisClient, cfg.Redis.CacheTTL)
	tableCache.WatchBus(bus)

	settingsService := settings.NewService(bunDB, bus)
	staffService := staff.NewService(bunDB, bus)
	customerService := customer.NewService(bunDB, bus)
	tablesService := tables.NewService(bunDB, tableCache, bus)

	dispatcher := printer.NewDispatcher(
		&printer.TCPTransport{DialTimeout: cfg.Printer.DialTimeout},
		settingsService,
		settingsService,
		bus,
		log,
		cfg.Printer.ReceiptAddr,
		cfg.Printer.QueueSize,
	)
	printerCtx, stopPrinter := context.WithCancel(ctx)
	defer stopPrinter()
	dispatcher.Start(printerCtx)

	orderService := order.NewOrderService(
		&db.DB{Bun: bunDB},
		staffService,
		producer,
		bus,
		dispatcher,
		log,
		order.Topics{
			OrdersUpdated:  cfg.Kafka.Topics.OrdersUpdated,
			SalesCompleted: cfg.Kafka.Topics.SalesCompleted,
		},
	)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	orderHandler := order_api.NewHandler(orderService, log)
	sseHandler := order_api.NewSSEHandler(log, bus)
	tablesHandler := tables_api.NewHandler(tablesService, log)
	customerHandler := customer_api.NewHandler(customerService, log)
	settingsHandler := settings_api.NewHandler(settingsService, log)
	staffHandler := staff_api.NewHandler(staffService, tokens, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Post("/api/staff/login", staffHandler.Login)
	r.Get("/api/events", sseHandler.HandleEvents)
	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Route("/halls", func(r chi.Router) {
				r.Get("/", tablesHandler.GetHalls)
				r.Post("/", tablesHandler.AddHall)
				r.Delete("/{hallID}", tablesHandler.DeleteHall)
			})

			r.Route("/tables", func(r chi.Router) {
				r.Get("/", tablesHandler.GetTables)
				r.Post("/", tablesHandler.AddTable)
				r.Delete("/{tableID}", tablesHandler.DeleteTable)
				r.Put("/{tableID}/status", tablesHandler.UpdateTableStatus)
				r.Post("/{tableID}/close", tablesHandler.CloseTable)
				r.Get("/{tableID}/items", orderHandler.GetTableItems)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderHandler.AddItem)
				r.Post("/bulk-add", orderHandler.AddBulkItems)
			})

			r.Post("/checkout", orderHandler.Checkout)

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", orderHandler.GetSales)
				r.Get("/{saleID}/qr", orderHandler.GetSaleQR)
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/debtors", customerHandler.GetDebtors)
				r.Get("/{customerID}/debt-history", customerHandler.GetDebtHistory)
				r.Post("/{customerID}/pay-debt", customerHandler.PayDebt)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", settingsHandler.GetSettings)
				r.Post("/", settingsHandler.SaveSettings)
				r.Get("/kitchens", settingsHandler.GetKitchens)
				r.Post("/kitchens", settingsHandler.SaveKitchen)
				r.Delete("/kitchens/{kitchenID}", settingsHandler.DeleteKitchen)
			})

			r.Route("/staff", func(r chi.Router) {
				r.Get("/", staffHandler.GetStaff)
				r.Post("/", staffHandler.SaveStaff)
				r.Delete("/{staffID}", staffHandler.DeleteStaff)
			})
		})
	})

	// No write timeout; the SSE stream holds its connection open.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("POS core running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stopPrinter()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "POS core shutdown complete")
	}
}

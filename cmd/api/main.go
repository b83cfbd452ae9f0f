package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/kwetupizza-backend/api/routes"
	"github.com/angelmondragon/kwetupizza-backend/internal/app"
	"github.com/angelmondragon/kwetupizza-backend/internal/contextstore"
	"github.com/angelmondragon/kwetupizza-backend/internal/customers"
	"github.com/angelmondragon/kwetupizza-backend/internal/dispatcher"
	"github.com/angelmondragon/kwetupizza-backend/internal/inbox"
	"github.com/angelmondragon/kwetupizza-backend/pkg/config"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db"
	"github.com/angelmondragon/kwetupizza-backend/pkg/idempotency"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/metrics"
	"github.com/angelmondragon/kwetupizza-backend/pkg/migrate"
	"github.com/angelmondragon/kwetupizza-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	botMetrics := metrics.NewBotMetrics(prometheus.DefaultRegisterer)

	services, err := app.NewServices(cfg, logg, dbClient, botMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build domain services", err)
		os.Exit(1)
	}

	store, err := contextstore.New(contextstore.Params{
		Client:   redisClient,
		Logger:   logg,
		TTL:      cfg.Conversation.ContextTTL,
		LockTTL:  cfg.Conversation.LockTTL,
		LockWait: cfg.Conversation.LockWait,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create context store", err)
		os.Exit(1)
	}

	customerService, err := customers.NewService(customers.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create customers service", err)
		os.Exit(1)
	}
	inboxService, err := inbox.NewService(inbox.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create inbox service", err)
		os.Exit(1)
	}

	conversations, err := dispatcher.New(dispatcher.Params{
		Store:             store,
		Messenger:         services.WhatsApp,
		Customers:         customerService,
		Menu:              services.Catalog,
		Orders:            services.Orders,
		Alerter:           services.Notifications,
		Inbox:             inboxService,
		Business:          services.Business,
		InactivityTimeout: cfg.Conversation.InactivityTimeout,
		TurnTimeout:       cfg.Conversation.TurnTimeout,
		Logger:            logg,
		Metrics:           botMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	guard, err := idempotency.NewManager(redisClient, cfg.Webhook.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Params{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Gatherer:      prometheus.DefaultGatherer,
			Metrics:       botMetrics,
			Guard:         guard,
			Conversations: conversations,
			Payments:      services.Orders,
			Verifier:      services.Flutterwave,
			Orders:        services.Orders,
			Inbox:         inboxService,
		}),
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

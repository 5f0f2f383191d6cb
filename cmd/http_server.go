package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planora/core-service/internal"
	"github.com/planora/core-service/internal/core/events"
	"github.com/planora/core-service/internal/transport"
	"github.com/planora/core-service/internal/transport/rest"
	"github.com/planora/core-service/internal/webhook"
	webhookpg "github.com/planora/core-service/internal/webhook/postgres"
	"github.com/planora/core-service/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server that receives payment webhooks from the payment service`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	GormDB         *gorm.DB
	Router         *chi.Mux
	WebhookHandler *webhook.Handler
	EventBus       *events.EventBus
	Logger         *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.WebhookHandler, deps.Config.Server.HandlerTimeout, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Env)
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over pgx pool: %w", err)
	}

	eventBus := events.NewEventBus(log)
	registerEventSubscribers(eventBus, log)

	verifier := webhook.NewSignatureVerifier(config.Webhook.Secret, log)
	repo := webhookpg.NewWebhookRepository(gormDB)
	service := webhook.NewService(repo, eventBus, log)

	baseHandler := transport.NewBaseHandler(log, config.Env == internal.EnvDevelopment)
	webhookHandler := webhook.NewHandler(baseHandler, verifier, service, log)

	return &Dependencies{
		Config:         config,
		Logger:         log,
		DB:             db,
		GormDB:         gormDB,
		Router:         chi.NewRouter(),
		WebhookHandler: webhookHandler,
		EventBus:       eventBus,
	}, nil
}

// registerEventSubscribers attaches in-process reactions to reconciliation
// outcomes. The notification service integration hangs off these events.
func registerEventSubscribers(eventBus *events.EventBus, log *slog.Logger) {
	eventBus.Subscribe(events.EventTypePaymentCompleted, func(ctx context.Context, event events.Event) error {
		log.Info("payment completed", "event_id", event.EventID(), "request_id", internal.RequestIDFromContext(ctx), "payload", event.Payload())
		return nil
	})
	eventBus.Subscribe(events.EventTypePaymentFailed, func(ctx context.Context, event events.Event) error {
		log.Warn("payment failed", "event_id", event.EventID(), "request_id", internal.RequestIDFromContext(ctx), "payload", event.Payload())
		return nil
	})
	eventBus.Subscribe(events.EventTypePaymentCanceled, func(ctx context.Context, event events.Event) error {
		log.Info("payment canceled", "event_id", event.EventID(), "request_id", internal.RequestIDFromContext(ctx), "payload", event.Payload())
		return nil
	})
}

// initDB opens the shared pgx connection pool. The pool is the single
// process-wide database resource; it is created here and drained on
// shutdown.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.AcquireTimeout)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

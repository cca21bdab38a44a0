package main

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

	"circulation-engine/internal/batch"
	"circulation-engine/internal/config"
	"circulation-engine/internal/domain/book"
	"circulation-engine/internal/domain/loan"
	"circulation-engine/internal/domain/member"
	"circulation-engine/internal/event"
	"circulation-engine/internal/infrastructure/database/postgres"
	"circulation-engine/internal/infrastructure/logging"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	publisher := initializePublisher(cfg, logger)

	bookRepo, loanRepo := initializeServices(dbPool, publisher, logger)

	reconcileJob := batch.NewStockReconcileJob(loanRepo, bookRepo, logger)
	cronScheduler := startReconciliation(cfg, logger, reconcileJob)

	srv, serverErrors, shutdownChan := startMetricsServer(cfg, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

func initializePublisher(cfg *config.Config, logger *slog.Logger) event.Publisher {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("Event publishing disabled, using no-op publisher.")
		return event.NoopPublisher{}
	}

	url := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		cfg.RabbitMQ.Username, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, continuing without event publishing", "error", err)
		return event.NoopPublisher{}
	}

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to initialize event publisher, continuing without event publishing", "error", err)
		return event.NoopPublisher{}
	}
	return publisher
}

func initializeServices(dbPool *pgxpool.Pool, publisher event.Publisher, logger *slog.Logger) (book.Repository, loan.Repository) {
	logger.Info("Initializing application components...")
	bookRepo := postgres.NewBookRepository(dbPool, logger)
	memberRepo := postgres.NewMemberRepository(dbPool, logger)
	loanRepo := postgres.NewLoanRepository(dbPool, logger)

	// Constructing the services up front fails fast on bad wiring; only the
	// reconciliation job needs the repositories after this point.
	book.NewService(bookRepo, publisher, logger)
	member.NewService(memberRepo, publisher, logger)
	loan.NewCirculationService(loanRepo, bookRepo, memberRepo, publisher, logger)
	logger.Info("Circulation services ready.")

	return bookRepo, loanRepo
}

func startReconciliation(cfg *config.Config, logger *slog.Logger, job *batch.StockReconcileJob) *cron.Cron {
	logger.Info("Initializing reconciliation scheduler...")
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	scheduleSpec := cfg.Reconcile.Schedule
	if scheduleSpec == "" {
		scheduleSpec = "58 12 * * *"
		logger.Warn("Reconciliation schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Reconcile.Timeout
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "StockReconcile")
		jobLogger.Info("Cron triggered: running stock reconciliation pass.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := job.Run(ctx); runErr != nil {
			jobLogger.Error("Stock reconciliation pass finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Stock reconciliation pass finished successfully.")
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule stock reconciliation job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled stock reconciliation job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Reconciliation scheduler started.")
	return c
}

func startMetricsServer(cfg *config.Config, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up metrics server...", "port", cfg.Metrics.Port)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle(cfg.Metrics.Path, promhttp.Handler())

	srv := &http.Server{
		Addr:     fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:  router,
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Metrics server listening on port %d", cfg.Metrics.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Metrics server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Metrics server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping reconciliation scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Reconciliation scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Reconciliation scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down metrics server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server graceful shutdown failed", "error", err)
		}
		if err := srv.Close(); err != nil {
			logger.Error("Metrics server forced close failed", "error", err)
		}
	} else {
		logger.Info("Metrics server gracefully stopped.")
	}

	logger.Info("Application shutdown process complete.")
}

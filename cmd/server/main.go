package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"github.com/tripplan/tripplan-api/internal/config"
	"github.com/tripplan/tripplan-api/internal/handlers"
	"github.com/tripplan/tripplan-api/internal/history"
	"github.com/tripplan/tripplan-api/internal/middleware"
	"github.com/tripplan/tripplan-api/internal/migration"
	"github.com/tripplan/tripplan-api/internal/notification"
	"github.com/tripplan/tripplan-api/internal/repository"
	"github.com/tripplan/tripplan-api/internal/routes"
	"github.com/tripplan/tripplan-api/internal/sharing"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config *config.Config
	db     *sql.DB
	logger zerolog.Logger
}

func main() {
	// Load configuration.
	cfg := config.Load()

	logger := newLogger(cfg)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	if err := migration.RunMigrations(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.CORS.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization", middleware.RequestIDHeader}),
		h.ExposedHeaders([]string{middleware.RequestIDHeader}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// newLogger builds the process logger: console output in development, JSON otherwise.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
		return zerolog.New(consoleWriter).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "tripplan-api").Logger()
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	// Repositories
	userRepo := repository.NewUserRepository(app.db)
	tripRepo := repository.NewTripRepository(app.db)
	sharedTripRepo := repository.NewSharedTripRepository(app.db)
	historyRepo := repository.NewHistoryRepository(app.db)

	// Services
	sharingService := sharing.NewService(sharedTripRepo, logger, sharing.WithTTL(app.config.Sharing.InviteTTL))
	historyService := history.NewService(historyRepo, tripRepo, app.config.History.MaxPerTrip, logger)

	// Mailer for invites
	var inviteMailer notification.InviteMailer
	if app.config.Email.Enabled() {
		smtpMailer, err := notification.NewSMTPInviteMailer(app.config.Email)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure invite mailer")
		}
		inviteMailer = smtpMailer
	} else {
		logger.Info().Msg("smtp_host not set, invite emails are disabled")
	}

	return routes.NewRouter(routes.Handlers{
		Health:     handlers.NewHealthHandler(app.db, logger),
		Auth:       handlers.NewAuthHandler(userRepo, app.config.JWTSecret, logger),
		Trip:       handlers.NewTripHandler(tripRepo, sharingService, historyService, logger),
		SharedTrip: handlers.NewSharedTripHandler(sharingService, tripRepo, inviteMailer, app.config.Sharing.InviteURLTemplate, logger),
		History:    handlers.NewHistoryHandler(historyService, tripRepo, sharingService, app.config.History.DefaultLimit, logger),
	}, middleware.NewMetrics())
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:         ":" + app.config.ServerPort,
		Handler:      handler,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		WriteTimeout: app.config.HTTP.WriteTimeout,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
}

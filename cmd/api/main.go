package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/auth"
	"github.com/prepdesk/server/internal/config"
	"github.com/prepdesk/server/internal/db"
	httphandler "github.com/prepdesk/server/internal/http"
	"github.com/prepdesk/server/internal/http/handlers"
	"github.com/prepdesk/server/internal/identity"
	"github.com/prepdesk/server/internal/logging"
	"github.com/prepdesk/server/internal/repo"
	"github.com/prepdesk/server/internal/store"
	"github.com/prepdesk/server/internal/store/memstore"
	"github.com/prepdesk/server/internal/store/pgstore"

	_ "github.com/lib/pq"
)

const version = "1.0.0"

func main() {
	// Load .env from CWD so it works in local development (env vars override)
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.DevMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Pick the document store: Postgres when configured, in-memory otherwise.
	var docStore store.DocumentStore
	if cfg.DatabaseURL != "" {
		database, err := db.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		defer database.Close()

		if err := runMigrations(database); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		docStore = pgstore.New(database)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory document store")
		docStore = memstore.New()
	}

	// Identity and repositories.
	dispatcher := identity.NewLogDispatcher(logger)
	provider := identity.NewOtpProvider(docStore, dispatcher, cfg.OTPSalt, cfg.OTPDevMode, logger)
	verifierFactory := identity.NewInvisibleVerifierFactory(logger)

	profileRepo := repo.NewProfileRepo(docStore)
	notesRepo := repo.NewNotesRepo(docStore, logger)
	plannerRepo := repo.NewPlannerRepo(docStore, logger)

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	newSession := func() *auth.SessionManager {
		return auth.NewSessionManager(provider, verifierFactory, profileRepo, jwtService, logger)
	}

	// Handlers and router.
	authHandler := handlers.NewAuthHandler(newSession, logger)
	profileHandler := handlers.NewProfileHandler(newSession(), logger)
	plannerHandler := handlers.NewPlannerHandler(plannerRepo)
	notesHandler := handlers.NewNotesHandler(notesRepo)
	pdfHandler := handlers.NewPDFHandler(notesRepo, logger)
	healthHandler := handlers.NewHealthHandler(cfg.Environment, version)

	router := httphandler.NewRouter(authHandler, profileHandler, plannerHandler,
		notesHandler, pdfHandler, healthHandler, jwtService)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from the repo root)")
	}

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

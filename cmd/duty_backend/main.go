package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/clearborder/duty_engine/internal/adapters/knowledgebase"
	"github.com/clearborder/duty_engine/internal/adapters/rateparse"
	portssvc "github.com/clearborder/duty_engine/internal/core/ports/services"
	"github.com/clearborder/duty_engine/internal/core/services"
	"github.com/clearborder/duty_engine/internal/handlers"
	"github.com/clearborder/duty_engine/internal/middleware"
	"github.com/clearborder/duty_engine/internal/repositories/database/pgsql"
	"github.com/clearborder/duty_engine/internal/utils"
	"github.com/clearborder/duty_engine/pkg/config"
	"github.com/clearborder/duty_engine/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// @title Duty Engine API
// @version 1.0
// @description Rate resolution and duty calculation engine for import shipments.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg, logger); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Analytics client is optional; a missing API key leaves it disabled.
	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, logger)
	defer posthogClient.Close()

	// Rate limiter backed by an in-memory store, shared across endpoints.
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit format", slog.String("rate_limit", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}
	rateLimiter := limiter.New(memory.NewStore(), rate)

	serviceContainer := buildServices(cfg, dbPool, posthogClient, logger)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery(), cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, rateLimiter, posthogClient)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildServices wires repositories, adapters and services into the container
// consumed by the handlers.
func buildServices(cfg *config.Config, dbPool *pgxpool.Pool, posthogClient *utils.PosthogClientWrapper, logger *slog.Logger) *portssvc.ServiceContainer {
	repos := pgsql.NewRepositoryProvider(dbPool)

	patterns := rateparse.NewGenerator()

	// The knowledge base is an optional collaborator; without a URL the
	// note-resolution step of the chain is skipped.
	var notes portssvc.NoteResolverSvc
	if cfg.KnowledgeBaseURL != "" {
		notes = knowledgebase.NewClient(knowledgebase.Config{
			BaseURL:      cfg.KnowledgeBaseURL,
			TokenURL:     cfg.KnowledgeBaseTokenURL,
			ClientID:     cfg.KnowledgeBaseClientID,
			ClientSecret: cfg.KnowledgeBaseClientSecret,
		})
	}

	resolutionCfg := services.DefaultResolutionConfig()
	if cfg.SpecialProgramChapter != "" {
		resolutionCfg.SpecialProgramChapter = cfg.SpecialProgramChapter
	}
	if !cfg.HistoricalCutoff.IsZero() {
		resolutionCfg.HistoricalCutoff = cfg.HistoricalCutoff
	}

	policyCfg := services.DefaultPolicyEngineConfig()
	if len(cfg.EUCountries) > 0 {
		policyCfg.EUCountries = cfg.EUCountries
	}
	if cfg.ReciprocalPrefix != "" {
		policyCfg.ReciprocalTaxCodePrefix = cfg.ReciprocalPrefix
	}

	return services.NewContainer(&repos, patterns, notes, posthogClient, services.ContainerConfig{
		Resolution:   resolutionCfg,
		PolicyEngine: policyCfg,
		Auth: services.AuthConfig{
			JWTSecret:   cfg.JWTSecret,
			TokenExpiry: cfg.JWTExpiryDuration,
			Issuer:      cfg.JWTIssuer,
		},
		EngineVersion: cfg.EngineVersion,
	}, logger)
}

// runMigrations applies all pending "up" migrations over a temporary
// database/sql connection using the pgx stdlib driver.
func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Running database migrations...")
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

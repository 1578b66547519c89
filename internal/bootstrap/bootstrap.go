package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/mertcan/gradus/internal/app/controllers"
	appMigrations "github.com/mertcan/gradus/internal/app/migrations"
	appRepos "github.com/mertcan/gradus/internal/app/repositories"
	appRoutes "github.com/mertcan/gradus/internal/app/routes"
	appServices "github.com/mertcan/gradus/internal/app/services"
	"github.com/mertcan/gradus/internal/config"
	"github.com/mertcan/gradus/internal/db"
	appMiddleware "github.com/mertcan/gradus/internal/middleware"
	pkgAuth "github.com/mertcan/gradus/internal/pkg/auth"
	"github.com/mertcan/gradus/internal/pkg/docstore"
	"github.com/mertcan/gradus/internal/pkg/email"
	"github.com/mertcan/gradus/internal/pkg/identity"
	"github.com/mertcan/gradus/internal/pkg/logger"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store                    docstore.Store
	Repos                    *appRepos.Repositories
	Identity                 identity.Provider
	Clock                    *appServices.YearClock
	PromotionService         *appServices.PromotionService
	MigrationService         *appServices.MigrationService
	ArchivalService          *appServices.ArchivalService
	CRMigrationService       *appServices.CRMigrationService
	RepresentativeService    *appServices.RepresentativeService
	PromotionController      *appControllers.PromotionController
	RepresentativeController *appControllers.RepresentativeController
	AuthMiddleware           *appMiddleware.AuthMiddleware
	JWTService               *pkgAuth.JWTService
	Logger                   zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger // Get the configured global logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations. With
// the memory store driver there is no database; the returned pool is nil.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	if cfg.Store.Driver != "postgres" {
		lgr.Info().Str("driver", cfg.Store.Driver).Msg("Store driver needs no database connection")
		return nil, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")
	return dbPool, nil
}

// BuildDependencies initializes the document store, repositories, services,
// and controllers, and seeds the configured departments and academic year.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	mailer := email.NewService(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    true,
		BaseURL:   "http://localhost:" + cfg.Server.Port,
	}, lgr)

	switch cfg.Store.Driver {
	case "postgres":
		deps.Store = docstore.NewPostgresStore(dbPool)
		deps.Identity = identity.NewPostgresProvider(dbPool, mailer, lgr)
	case "memory":
		deps.Store = docstore.NewMemoryStore()
		deps.Identity = identity.NewMemoryProvider()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	deps.Repos = appRepos.NewRepositories(deps.Store)

	// Seed configured departments and prime the academic-year clock.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.Repos.DepartmentRepository.Ensure(ctx, cfg.Academic.Departments); err != nil {
		return nil, fmt.Errorf("failed to seed departments: %w", err)
	}

	deps.Clock = appServices.NewYearClock(deps.Repos.SettingsRepository, cfg.Academic.DefaultYear, lgr)
	year := deps.Clock.Load(ctx)
	lgr.Info().Int("academicYear", year).Strs("departments", cfg.Academic.Departments).Msg("Academic state ready")

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: parseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.MigrationService = appServices.NewMigrationService(
		deps.Store, deps.Repos.StudentRepository, deps.Repos.DepartmentRepository, lgr)
	deps.ArchivalService = appServices.NewArchivalService(
		deps.Store, deps.Repos.StudentRepository, deps.Repos.GraduateRepository,
		deps.Repos.DepartmentRepository, deps.Repos.RoleFlagsRepository,
		deps.Repos.PrimaryAssignments, deps.Repos.LegacyAssignments, lgr)
	deps.CRMigrationService = appServices.NewCRMigrationService(
		deps.Store, deps.Repos.PrimaryAssignments, deps.Repos.LegacyAssignments,
		deps.Repos.RoleFlagsRepository, deps.Repos.DepartmentRepository, lgr)
	deps.PromotionService = appServices.NewPromotionService(
		deps.Clock, deps.Repos.SettingsRepository,
		deps.ArchivalService, deps.MigrationService, deps.CRMigrationService, lgr)
	deps.RepresentativeService = appServices.NewRepresentativeService(
		deps.Store, deps.Repos.StudentRepository, deps.Repos.DepartmentRepository,
		deps.Repos.PrimaryAssignments, deps.Repos.RoleFlagsRepository,
		deps.Identity, deps.Clock, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.PromotionController = appControllers.NewPromotionController(
		deps.PromotionService, deps.MigrationService, deps.Clock,
		deps.Repos.SettingsRepository, deps.Repos.GraduateRepository, lgr)
	deps.RepresentativeController = appControllers.NewRepresentativeController(
		deps.RepresentativeService, lgr)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	appRoutes.SetupRouter(router,
		deps.PromotionController,
		deps.RepresentativeController,
		deps.AuthMiddleware,
	)

	// Test endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

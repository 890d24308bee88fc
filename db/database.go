package db

import (
	"fmt"
	"strings"

	"permit_flow_app_go/config"
	"permit_flow_app_go/logging"
	"permit_flow_app_go/models"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize sets up the database connection.
// Postgres wins when DATABASE_URL is set, then Turso (libsql), then a local
// sqlite file with WAL mode for concurrency.
func Initialize(cfg *config.Config) error {
	var err error

	// Determine log level based on environment
	logLevel := logger.Info
	if cfg.Environment == "production" {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var backend string
	switch {
	case strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://"):
		backend = "postgres"
		DB, err = gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	case cfg.TursoDatabaseURL != "":
		backend = "turso"
		dsn := cfg.TursoDatabaseURL
		if cfg.TursoAuthToken != "" {
			dsn += "?authToken=" + cfg.TursoAuthToken
		}
		DB, err = gorm.Open(sqlite.New(sqlite.Config{DriverName: "libsql", DSN: dsn}), gormCfg)
	default:
		backend = "sqlite"
		// Enable WAL mode for better concurrency support
		dsn := cfg.DBPath + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
		DB, err = gorm.Open(sqlite.Open(dsn), gormCfg)
	}

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Log.WithField("backend", backend).Info("Database connection established")
	return nil
}

// AutoMigrate runs database migrations for every model the engine persists
func AutoMigrate(database *gorm.DB) error {
	if database == nil {
		return fmt.Errorf("database not initialized")
	}

	err := database.AutoMigrate(
		&models.Case{},
		&models.CaseDocument{},
		&models.CaseHistoryEntry{},
		&models.CaseCounter{},
		&models.Inspection{},
		&models.InspectionObservation{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logging.Log.Info("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}

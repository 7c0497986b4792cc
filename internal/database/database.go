package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/card-nexus/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Options struct {
	Driver      string
	Path        string // sqlite file
	DatabaseURL string // postgres DSN
	Debug       bool   // log every SQL statement
}

// Open connects to storage and brings the schema up to date. The caller owns
// the returned handle and must release it with Close.
func Open(opts Options, log *zap.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: newGormLogger(log, opts.Debug),
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case "", DriverSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("ensure data dir: %w", err)
			}
		}
		// foreign keys are off by default in sqlite; busy_timeout lets the
		// importer and the server share the file.
		dialector = sqlite.Open(opts.Path + "?_foreign_keys=on&_busy_timeout=5000")
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		dialector = postgres.Open(opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if opts.Driver == DriverPostgres {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	log.Info("Database connected", zap.String("driver", dialector.Name()))

	if err := Migrate(db, log); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// newGormLogger routes gorm's SQL log through zap. Lookup misses are normal
// during imports and are not logged.
func newGormLogger(log *zap.Logger, debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate runs pre-schema cleanups, AutoMigrate, then data migrations.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := cleanupDuplicateAPIIDs(db, log); err != nil {
		return fmt.Errorf("cleanup duplicate api ids: %w", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := RunMigrations(db, log); err != nil {
		return fmt.Errorf("data migrations: %w", err)
	}
	log.Info("Database migration completed")
	return nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

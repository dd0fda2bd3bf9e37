package database

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/signabackend/models"
)

// Options tunes the GORM connection. Zero values fall back to the defaults below.
type Options struct {
	LogLevel     string // silent, error, warn, info
	MaxOpenConns int
	MaxIdleConns int
}

const (
	defaultMaxOpenConns = 100
	defaultMaxIdleConns = 10
)

// partial unique indexes: uniqueness only holds among active rows, so a
// soft-deleted mark does not block reuse of its name
var activeUniqueIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_marks_active_name ON marks(name) WHERE active = 1`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_people_active_email ON people(email) WHERE active = 1`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_credentials_active_username ON credentials(username) WHERE active = 1`,
}

// InitGormDB initializes and returns a GORM database instance
func InitGormDB(dataSourceName string, opts Options) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  parseLogLevel(opts.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if !strings.Contains(dataSourceName, "mode=memory") && dataSourceName != ":memory:" {
		// enable write-ahead logging for better concurrency
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			slog.Warn("failed to set WAL mode", "error", err)
		}
	}

	slog.Info("GORM database initialized", "dsn", dataSourceName)
	return db, nil
}

// AutoMigrateModels creates or updates the people, credentials and marks
// tables and their partial unique indexes.
func AutoMigrateModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Person{},
		&models.Credential{},
		&models.Mark{},
	)
	if err != nil {
		return fmt.Errorf("GORM AutoMigrate failed: %w", err)
	}

	for _, stmt := range activeUniqueIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index (%s): %w", stmt, err)
		}
	}
	return nil
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

package database

import (
	"fmt"
	"sync/atomic"
	"time"

	"wingo/config"
	"wingo/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database and runs auto-migration when enabled.
func Connect(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBName)
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	log.Info("✅ Connected to database", zap.String("driver", cfg.DBDriver))

	if cfg.DBAutoMigrate {
		log.Info("🟡 Starting auto-migration...")
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Info("✅ Auto migration completed")
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.GameSettings{},
		&models.Period{},
		&models.Bet{},
		&models.ReferralCommission{},
	); err != nil {
		return fmt.Errorf("auto-migrate database: %w", err)
	}
	return nil
}

var memSeq atomic.Int64

// OpenInMemory returns a migrated private SQLite database. Each call gets
// its own schema; a single connection keeps it alive and serializes access.
func OpenInMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:wingo_mem_%d?mode=memory&cache=shared", memSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Package database manages the gorm connection and the persistent models
// for client profiles and playback outcomes.
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mediamesh/playadvisor/internal/config"
)

var db *gorm.DB

// Initialize sets up the database connection from configuration and
// migrates the schema.
func Initialize(cfg config.DatabaseConfig) error {
	var err error

	switch cfg.Type {
	case "postgres":
		db, err = connectPostgres(cfg)
	case "sqlite":
		db, err = connectSQLite(cfg)
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(&ClientProfile{}, &PlaybackOutcome{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return nil
}

func connectPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port)
	return gorm.Open(postgres.Open(dsn), gormConfig(cfg))
}

func connectSQLite(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "" && dir != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return gorm.Open(sqlite.Open(cfg.DatabasePath), gormConfig(cfg))
}

func gormConfig(cfg config.DatabaseConfig) *gorm.Config {
	level := gormlogger.Silent
	if cfg.LogQueries {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	}
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the database instance; used by tests
func SetDB(newDB *gorm.DB) {
	db = newDB
}

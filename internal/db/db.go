// Package db opens the database and registers the audit plugins.
package db

import (
	"fmt"
	"strings"

	"github.com/auditbridge/auditbridge/internal/blameable"
	"github.com/auditbridge/auditbridge/internal/config"
	"github.com/auditbridge/auditbridge/internal/loggable"
	"github.com/auditbridge/auditbridge/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DatabaseType represents the type of database
type DatabaseType string

const (
	DatabaseTypePostgreSQL DatabaseType = "postgres"
	DatabaseTypeSQLite     DatabaseType = "sqlite"
)

// DetectDatabaseType determines the database type from a DSN string
func DetectDatabaseType(dsn string) DatabaseType {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DatabaseTypePostgreSQL
	}
	// SQLite patterns: file:, :memory:, or plain file path
	return DatabaseTypeSQLite
}

// Database is an open connection with its audit plugins registered.
type Database struct {
	DB        *gorm.DB
	Blameable *blameable.Listener
	Loggable  *loggable.Listener
}

// Open connects to cfg.DatabaseDSN and registers the blameable and loggable plugins.
func Open(cfg *config.Config, log zerolog.Logger) (*Database, error) {
	var dialector gorm.Dialector
	switch DetectDatabaseType(cfg.DatabaseDSN) {
	case DatabaseTypePostgreSQL:
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if DetectDatabaseType(cfg.DatabaseDSN) == DatabaseTypeSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	d := &Database{
		DB: db,
		Blameable: blameable.New(
			blameable.WithDefaultValue(cfg.Audit.DefaultActor),
			blameable.WithLogger(log.With().Str("component", "blameable").Logger()),
		),
		Loggable: loggable.New(
			loggable.WithDefaultUsername(cfg.Audit.DefaultActor),
			loggable.WithRedactedFields(cfg.Audit.RedactFields),
			loggable.WithLogger(log.With().Str("component", "loggable").Logger()),
		),
	}
	if err := db.Use(d.Blameable); err != nil {
		return nil, fmt.Errorf("failed to register blameable plugin: %w", err)
	}
	if err := db.Use(d.Loggable); err != nil {
		return nil, fmt.Errorf("failed to register loggable plugin: %w", err)
	}
	return d, nil
}

// Migrate creates or updates the tables of every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.AccessToken{},
		&model.Document{},
		&model.LogEntry{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

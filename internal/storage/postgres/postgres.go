// Package postgres implements the storage.Backend interface on PostgreSQL.
// It owns the connection and migration; writes go through the GORM backend.
package postgres

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/platform43/firerig/internal/config"
	"github.com/platform43/firerig/internal/database"
	gormstorage "github.com/platform43/firerig/internal/storage/gorm"
)

// Opener opens the Postgres connection. Tests swap it for SQLite.
type Opener func(cfg config.DBConfig) (*gorm.DB, error)

// Backend wraps the GORM backend for Postgres-specific setup.
type Backend struct {
	*gormstorage.Backend
	cfg    config.DBConfig
	open   Opener
	logger *slog.Logger
}

// New creates a new Postgres storage backend. The connection is opened in Init.
func New(cfg config.DBConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:    cfg,
		open:   database.OpenPostgres,
		logger: logger,
	}
}

// WithOpener replaces the connection opener.
func (b *Backend) WithOpener(open Opener) *Backend {
	b.open = open
	return b
}

// Init connects, validates the connection, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	db, err := b.open(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	b.logger.Info("Migrating schema", "database", b.cfg.Database)
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:     db,
		Logger: b.logger,
	})
	return b.Backend.Init()
}

// Close stops the writer and closes the connection pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()
	if sqlDB, dbErr := b.DB().DB(); dbErr == nil {
		_ = sqlDB.Close()
	}
	return err
}

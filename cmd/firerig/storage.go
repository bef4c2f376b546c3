package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/platform43/firerig/internal/config"
	"github.com/platform43/firerig/internal/database"
	"github.com/platform43/firerig/internal/storage"
	"github.com/platform43/firerig/internal/storage/memory"
	pgstorage "github.com/platform43/firerig/internal/storage/postgres"
	sqlitestorage "github.com/platform43/firerig/internal/storage/sqlite"
	wsstorage "github.com/platform43/firerig/internal/storage/websocket"
)

// initStorage creates and initializes the telemetry backend selected by storage.type.
func initStorage(cfg config.StorageConfig, logger *slog.Logger, zlog zerolog.Logger, start time.Time) (storage.Backend, error) {
	backend, err := createStorageBackend(cfg, logger, zlog, start)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage backend: %w", cfg.Type, err)
	}
	return backend, nil
}

func createStorageBackend(cfg config.StorageConfig, logger *slog.Logger, zlog zerolog.Logger, start time.Time) (storage.Backend, error) {
	switch cfg.Type {
	case "postgres":
		// The manager falls back to an in-memory SQLite database when Postgres is unreachable.
		mgr := database.NewManager(config.GetDBConfig(), zlog)
		logger.Info("Postgres storage backend initialized")
		return pgstorage.New(config.GetDBConfig(), logger).WithOpener(func(config.DBConfig) (*gorm.DB, error) {
			if err := mgr.Connect(); err != nil {
				return nil, err
			}
			return mgr.DB, nil
		}), nil

	case "sqlite":
		sqliteCfg := cfg.SQLite
		if sqliteCfg.DumpPath == "" {
			sqliteCfg.DumpPath = filepath.Join(cfg.Memory.OutputDir, fmt.Sprintf("%s_%s.db", serviceName, start.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqliteCfg, "", logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "dumpPath", sqliteCfg.DumpPath, "dumpInterval", sqliteCfg.DumpInterval)
		return backend, nil

	case "websocket":
		logger.Info("WebSocket storage backend initialized", "url", cfg.WebSocket.URL)
		return wsstorage.New(cfg.WebSocket, logger), nil

	case "memory", "":
		logger.Info("Memory storage backend initialized", "outputDir", cfg.Memory.OutputDir)
		return memory.New(cfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

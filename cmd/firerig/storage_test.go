package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform43/firerig/internal/config"
	"github.com/platform43/firerig/internal/storage/memory"
	pgstorage "github.com/platform43/firerig/internal/storage/postgres"
	sqlitestorage "github.com/platform43/firerig/internal/storage/sqlite"
	wsstorage "github.com/platform43/firerig/internal/storage/websocket"
)

func TestCreateStorageBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		check   func(t *testing.T, b any)
		wantErr bool
	}{
		{
			name:  "memory",
			cfg:   config.StorageConfig{Type: "memory", Memory: config.MemoryConfig{OutputDir: dir}},
			check: func(t *testing.T, b any) { assert.IsType(t, &memory.Backend{}, b) },
		},
		{
			name:  "default is memory",
			cfg:   config.StorageConfig{Memory: config.MemoryConfig{OutputDir: dir}},
			check: func(t *testing.T, b any) { assert.IsType(t, &memory.Backend{}, b) },
		},
		{
			name:  "sqlite",
			cfg:   config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{DumpPath: filepath.Join(dir, "t.db")}},
			check: func(t *testing.T, b any) { assert.IsType(t, &sqlitestorage.Backend{}, b) },
		},
		{
			name:  "postgres",
			cfg:   config.StorageConfig{Type: "postgres"},
			check: func(t *testing.T, b any) { assert.IsType(t, &pgstorage.Backend{}, b) },
		},
		{
			name:  "websocket",
			cfg:   config.StorageConfig{Type: "websocket", WebSocket: config.WebSocketConfig{URL: "ws://localhost:1/api"}},
			check: func(t *testing.T, b any) { assert.IsType(t, &wsstorage.Backend{}, b) },
		},
		{
			name:    "unknown",
			cfg:     config.StorageConfig{Type: "tape"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := createStorageBackend(tt.cfg, logger, zerolog.Nop(), start)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, b)
		})
	}
}

func TestInitStorage_Memory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := initStorage(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
	}, logger, zerolog.Nop(), time.Now())
	require.NoError(t, err)
	assert.NoError(t, b.Close())
}

package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform43/firerig/internal/config"
	"github.com/platform43/firerig/internal/database"
	"github.com/platform43/firerig/internal/model"
	"github.com/platform43/firerig/internal/storage"
	"github.com/platform43/firerig/pkg/core"
)

var _ storage.Backend = (*Backend)(nil)

func TestCloseWritesFinalDump(t *testing.T) {
	dir := t.TempDir()
	dumpPath := filepath.Join(dir, "dump.db")

	b, err := New(config.SQLiteConfig{DumpPath: dumpPath}, filepath.Join(dir, "live.db"), nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	s := &core.Session{ID: "s1", StartTime: time.Now()}
	require.NoError(t, b.StartSession(s))
	require.NoError(t, b.RecordIncident(&core.Incident{SessionID: "s1", Tick: 10, Geometry: "window"}))
	require.NoError(t, b.Close())

	dumped, err := database.OpenSQLite(dumpPath)
	require.NoError(t, err)
	var count int64
	require.NoError(t, dumped.Model(&model.Incident{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpLoopRuns(t *testing.T) {
	dir := t.TempDir()
	dumpPath := filepath.Join(dir, "dump.db")

	b, err := New(config.SQLiteConfig{DumpPath: dumpPath, DumpInterval: 20 * time.Millisecond}, filepath.Join(dir, "live.db"), nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dumpPath)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(config.SQLiteConfig{}, filepath.Join(t.TempDir(), "live.db"), nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}

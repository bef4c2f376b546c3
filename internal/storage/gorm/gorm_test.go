package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/platform43/firerig/internal/database"
	"github.com/platform43/firerig/internal/model"
	"github.com/platform43/firerig/internal/storage"
	"github.com/platform43/firerig/pkg/core"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestBackend(t *testing.T, db *gorm.DB) *Backend {
	t.Helper()
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testSession() *core.Session {
	return &core.Session{ID: "sess-1", StartTime: time.Now().UTC(), Version: "test"}
}

func TestRecordBeforeInit(t *testing.T) {
	b := New(Dependencies{})
	assert.ErrorIs(t, b.RecordHealthSample(&core.HealthSample{}), ErrNotInitialized)
}

func TestQueueOnlyMode(t *testing.T) {
	b := New(Dependencies{})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordHealthSample(&core.HealthSample{SessionID: "sess-1", Tick: 1}))
	require.NoError(t, b.RecordIncident(&core.Incident{SessionID: "sess-1"}))
	assert.Equal(t, 2, b.Pending())
}

func TestFlushWritesQueuedRows(t *testing.T) {
	db := newTestDB(t)
	b := newTestBackend(t, db)

	s := testSession()
	require.NoError(t, b.StartSession(s))
	for tick := uint64(1); tick <= 3; tick++ {
		require.NoError(t, b.RecordHealthSample(&core.HealthSample{SessionID: s.ID, Tick: tick, Health: 100 - float64(tick)}))
	}
	require.NoError(t, b.RecordIncident(&core.Incident{SessionID: s.ID, Tick: 584, DurationTicks: 584, Geometry: "window"}))
	require.NoError(t, b.RecordAdvice(&core.AdviceExchange{SessionID: s.ID, Question: "q", Reply: "r"}))
	require.NoError(t, b.RecordDriveTrack(&core.DriveTrack{SessionID: s.ID, Points: []core.Position3D{{}, {X: 5}}}))
	assert.Equal(t, 6, b.Pending())

	require.NoError(t, b.Flush())
	assert.Equal(t, 0, b.Pending())

	var samples []model.HealthSample
	require.NoError(t, db.Order("tick").Find(&samples).Error)
	require.Len(t, samples, 3)
	assert.Equal(t, 97.0, samples[2].Health)

	var track model.DriveTrack
	require.NoError(t, db.First(&track).Error)
	assert.InDelta(t, 5.0, track.Length, 1e-9)

	var incidents int64
	require.NoError(t, db.Model(&model.Incident{}).Count(&incidents).Error)
	assert.Equal(t, int64(1), incidents)
}

func TestRecordDriveTrack_RejectsShortTrack(t *testing.T) {
	b := newTestBackend(t, newTestDB(t))
	err := b.RecordDriveTrack(&core.DriveTrack{SessionID: "x", Points: []core.Position3D{{}}})
	assert.Error(t, err)
	assert.Equal(t, 0, b.Pending())
}

func TestEndSessionStoresFinalConfig(t *testing.T) {
	db := newTestDB(t)
	b := newTestBackend(t, db)

	s := testSession()
	require.NoError(t, b.StartSession(s))
	require.NoError(t, b.RecordHealthSample(&core.HealthSample{SessionID: s.ID, Tick: 1}))

	s.EndTime = s.StartTime.Add(time.Minute)
	s.Final = core.DefaultConfiguration()
	require.NoError(t, b.EndSession(s))

	var row model.Session
	require.NoError(t, db.First(&row, "id = ?", s.ID).Error)
	assert.True(t, row.EndTime.Valid)
	assert.Contains(t, string(row.FinalConfig), `"bodyColor":"#fbbf24"`)

	var count int64
	require.NoError(t, db.Model(&model.HealthSample{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "end of session flushes pending rows")
}

func TestFailedBatchIsRequeued(t *testing.T) {
	db := newTestDB(t)
	b := newTestBackend(t, db)
	require.NoError(t, db.Migrator().DropTable(&model.Incident{}))

	require.NoError(t, b.RecordIncident(&core.Incident{SessionID: "sess-1"}))
	assert.Error(t, b.Flush())
	assert.Equal(t, 1, b.Pending())
}

func TestCloseFlushes(t *testing.T) {
	db := newTestDB(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	s := testSession()
	require.NoError(t, b.StartSession(s))
	require.NoError(t, b.RecordAdvice(&core.AdviceExchange{SessionID: s.ID, Question: "q"}))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.AdviceExchange{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// Package gormstorage implements the storage.Backend interface on top of GORM
// with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/platform43/firerig/internal/model"
	"github.com/platform43/firerig/internal/model/convert"
	"github.com/platform43/firerig/internal/queue"
	"github.com/platform43/firerig/pkg/core"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultQueueLimit    = 100_000
)

// ErrNotInitialized is returned when records arrive before Init.
var ErrNotInitialized = errors.New("storage backend not initialized")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	QueueLimit    int
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	HealthSamples *queue.Queue[model.HealthSample]
	Incidents     *queue.Queue[model.Incident]
	Advice        *queue.Queue[model.AdviceExchange]
	DriveTracks   *queue.Queue[model.DriveTrack]
}

func newQueues(limit int) *queues {
	return &queues{
		HealthSamples: queue.NewBounded[model.HealthSample](limit),
		Incidents:     queue.NewBounded[model.Incident](limit),
		Advice:        queue.NewBounded[model.AdviceExchange](limit),
		DriveTracks:   queue.NewBounded[model.DriveTrack](limit),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
// Sessions are written synchronously so queued rows always have a parent.
type Backend struct {
	deps     Dependencies
	queues   *queues
	stopChan chan struct{}
	wg       sync.WaitGroup
	flushMu  sync.Mutex
	once     sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.QueueLimit <= 0 {
		deps.QueueLimit = defaultQueueLimit
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates internal queues and starts the DB writer goroutine.
// Schema migration is the caller's job.
func (b *Backend) Init() error {
	b.queues = newQueues(b.deps.QueueLimit)
	b.stopChan = make(chan struct{})

	if b.deps.DB != nil {
		b.wg.Add(1)
		go b.writerLoop()
	}
	return nil
}

// Close stops the writer goroutine and flushes whatever is still queued.
func (b *Backend) Close() error {
	b.once.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
		}
		b.wg.Wait()
	})
	return b.Flush()
}

// StartSession inserts the session row.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		return nil
	}
	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
	}
	return nil
}

// EndSession flushes the session's queued rows and stores its end time and final configuration.
func (b *Backend) EndSession(s *core.Session) error {
	if b.deps.DB == nil {
		return nil
	}
	if err := b.Flush(); err != nil {
		b.deps.Logger.Warn("Flush before session end failed", "session", s.ID, "error", err)
	}
	row := convert.CoreToSession(*s)
	err := b.deps.DB.Model(&model.Session{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{"end_time": row.EndTime, "final_config": row.FinalConfig}).Error
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", s.ID, err)
	}
	return nil
}

func (b *Backend) RecordHealthSample(h *core.HealthSample) error {
	if b.queues == nil {
		return ErrNotInitialized
	}
	b.queues.HealthSamples.Push(convert.CoreToHealthSample(*h))
	return nil
}

func (b *Backend) RecordIncident(i *core.Incident) error {
	if b.queues == nil {
		return ErrNotInitialized
	}
	b.queues.Incidents.Push(convert.CoreToIncident(*i))
	return nil
}

func (b *Backend) RecordAdvice(a *core.AdviceExchange) error {
	if b.queues == nil {
		return ErrNotInitialized
	}
	b.queues.Advice.Push(convert.CoreToAdviceExchange(*a))
	return nil
}

func (b *Backend) RecordDriveTrack(t *core.DriveTrack) error {
	if b.queues == nil {
		return ErrNotInitialized
	}
	row, err := convert.CoreToDriveTrack(*t)
	if err != nil {
		return fmt.Errorf("failed to convert drive track: %w", err)
	}
	b.queues.DriveTracks.Push(row)
	return nil
}

// Pending returns the number of rows waiting for the writer.
func (b *Backend) Pending() int {
	if b.queues == nil {
		return 0
	}
	return b.queues.HealthSamples.Len() + b.queues.Incidents.Len() +
		b.queues.Advice.Len() + b.queues.DriveTracks.Len()
}

// Flush writes every queue to the database. Failed batches are requeued.
func (b *Backend) Flush() error {
	if b.deps.DB == nil || b.queues == nil {
		return nil
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	log := b.deps.Logger
	return errors.Join(
		writeQueue(b.deps.DB, b.queues.HealthSamples, "health samples", log),
		writeQueue(b.deps.DB, b.queues.Incidents, "incidents", log),
		writeQueue(b.deps.DB, b.queues.Advice, "advice exchanges", log),
		writeQueue(b.deps.DB, b.queues.DriveTracks, "drive tracks", log),
	)
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain()
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating rows", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Requeue(items)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	log.Debug("Wrote rows", "table", name, "count", len(items))
	return nil
}

// writerLoop periodically drains queues into the DB.
func (b *Backend) writerLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}

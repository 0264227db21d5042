package jobqueue

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/cache"
	"github.com/cellsync/cellsync/internal/pkg/env"
	"github.com/cellsync/cellsync/internal/pkg/metrics"
)

// DefaultBackupSchedule runs the database backup daily at 03:00.
const DefaultBackupSchedule = "0 3 * * *"

// Manager owns the job queue and the cron scheduler that feeds it.
type Manager struct {
	queue          *Queue
	cron           *cron.Cron
	backupSchedule string
	stopCh         chan struct{}
	mu             sync.Mutex
	running        bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workers, err := strconv.Atoi(env.GetEnv("JOBQUEUE_WORKERS", "3"))
		if err != nil {
			workers = 3
		}
		q := NewQueue(cache.GetClient(), workers)
		q.SetMetrics(metrics.Default())
		globalManager = NewManager(q, env.GetEnv("BACKUP_CRON", DefaultBackupSchedule))
	})
	return globalManager
}

// NewManager builds a manager around q. The backup schedule is only
// registered when it is non-empty and q has a database_backup processor.
func NewManager(q *Queue, backupSchedule string) *Manager {
	return &Manager{
		queue:          q,
		backupSchedule: backupSchedule,
		stopCh:         make(chan struct{}),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the workers and the scheduler.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	c := cron.New()
	switch {
	case m.backupSchedule == "":
	case !m.queue.HasProcessor(JobTypeDatabaseBackup):
		log.Infof("[JobQueue Manager] Backups disabled, schedule %q not registered", m.backupSchedule)
	default:
		if _, err := c.AddFunc(m.backupSchedule, m.scheduledBackup); err != nil {
			return fmt.Errorf("invalid backup schedule %q: %w", m.backupSchedule, err)
		}
		log.Infof("[JobQueue Manager] Database backup scheduled at %q", m.backupSchedule)
	}

	m.stopCh = make(chan struct{})
	m.running = true
	m.cron = c
	log.Info("[JobQueue Manager] Starting job queue and scheduler")

	m.queue.Start()
	m.cron.Start()
	return nil
}

// Stop waits for scheduled callbacks in flight, then stops the workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and scheduler...")
	<-m.cron.Stop().Done()
	close(m.stopCh)
	m.running = false
	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) scheduledBackup() {
	if _, err := m.EnqueueBackup(models.BackupTriggerSchedule, 0); err != nil {
		log.Errorf("[JobQueue Manager] Failed to enqueue scheduled backup: %v", err)
	}
}

// EnqueueBackup queues a database_backup job.
func (m *Manager) EnqueueBackup(trigger string, requestedBy uint) (*Job, error) {
	return m.queue.EnqueueJob(JobTypeDatabaseBackup, DatabaseBackupJobPayload{
		Trigger:     trigger,
		RequestedBy: requestedBy,
	}.ToMap())
}

// EnqueueProductImport queues a product_import job.
func (m *Manager) EnqueueProductImport(p ProductImportJobPayload) (*Job, error) {
	return m.queue.EnqueueJob(JobTypeProductImport, p.ToMap())
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

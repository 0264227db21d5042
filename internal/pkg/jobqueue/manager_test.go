package jobqueue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/cache"
)

func resetManager() {
	globalManager = nil
	managerOnce = sync.Once{}
}

func TestGetManager(t *testing.T) {
	client, _ := newTestRedis(t)
	cache.SetClient(client)
	t.Cleanup(func() { cache.SetClient(nil) })

	resetManager()
	t.Cleanup(resetManager)

	manager1 := GetManager()
	manager2 := GetManager()

	assert.NotNil(t, manager1)
	assert.Same(t, manager1, manager2, "GetManager should return the same instance")
	assert.Same(t, manager1.queue, manager1.GetQueue())
	assert.Equal(t, DefaultBackupSchedule, manager1.backupSchedule)
	assert.Equal(t, 3, manager1.queue.workers)
	assert.False(t, manager1.IsRunning())

	resetManager()
	assert.NotSame(t, manager1, GetManager())
}

func TestManagerStartStop(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, 1)
	q.RegisterProcessor(JobTypeDatabaseBackup, NewBackupProcessor(&fakeRunner{}))
	m := NewManager(q, DefaultBackupSchedule)

	m.Stop()
	assert.False(t, m.IsRunning())

	require.NoError(t, m.Start())
	require.NoError(t, m.Start(), "second start is a no-op")
	assert.True(t, m.IsRunning())
	assert.Len(t, m.cron.Entries(), 1)

	m.Stop()
	assert.False(t, m.IsRunning())
	assert.False(t, m.queue.IsRunning())
}

func TestManagerSkipsScheduleWithoutBackupProcessor(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, 1)
	q.RegisterProcessor(JobTypeProductImport, func(ctx context.Context, job *Job) error { return nil })
	m := NewManager(q, DefaultBackupSchedule)

	require.NoError(t, m.Start())
	t.Cleanup(m.Stop)
	assert.False(t, q.HasProcessor(JobTypeDatabaseBackup))
	assert.Empty(t, m.cron.Entries())
}

func TestQueueSetWorkers(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, 1)
	q.SetWorkers(5)
	assert.Equal(t, 5, q.workers)
	q.SetWorkers(0)
	assert.Equal(t, 5, q.workers)
}

func TestManagerRejectsBadSchedule(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, 1)
	q.RegisterProcessor(JobTypeDatabaseBackup, NewBackupProcessor(&fakeRunner{}))
	m := NewManager(q, "every day at three")
	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid backup schedule")
	assert.False(t, m.IsRunning())
}

func TestScheduledBackupEnqueuesJob(t *testing.T) {
	client, _ := newTestRedis(t)
	m := NewManager(NewQueue(client, 1), "")
	ctx := context.Background()

	m.scheduledBackup()
	job, err := m.EnqueueProductImport(ProductImportJobPayload{TenantID: 3, FileName: "estoque.csv", Content: "bm9tZQ=="})
	require.NoError(t, err)
	assert.Equal(t, JobTypeProductImport, job.Type)

	size, err := m.queue.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	first, err := m.queue.dequeueJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, JobTypeDatabaseBackup, first.Type)
	p, err := DatabaseBackupJobPayloadFromMap(first.Payload)
	require.NoError(t, err)
	assert.Equal(t, models.BackupTriggerSchedule, p.Trigger)
}

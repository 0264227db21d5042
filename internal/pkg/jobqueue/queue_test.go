package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellsync/cellsync/internal/pkg/metrics"
)

// TestNewQueue tests the queue constructor
func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(nil, tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.stopCh)
			assert.False(t, queue.IsRunning())
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_processing", JobProcessingKey)
	assert.Equal(t, "job_stats", JobStatsKey)
	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestWorkersProcessEnqueuedJobs(t *testing.T) {
	client, _ := newTestRedis(t)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	q := NewQueue(client, 2)
	q.SetMetrics(m)

	var mu sync.Mutex
	var seen []string
	q.RegisterProcessor(JobTypeDatabaseBackup, func(ctx context.Context, job *Job) error {
		p, err := DatabaseBackupJobPayloadFromMap(job.Payload)
		if err != nil {
			return err
		}
		mu.Lock()
		seen = append(seen, p.Trigger)
		mu.Unlock()
		return nil
	})

	q.Start()
	job, err := q.EnqueueJob(JobTypeDatabaseBackup, DatabaseBackupJobPayload{Trigger: "manual", RequestedBy: 1}.ToMap())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 5*time.Second, 20*time.Millisecond)
	q.Stop()

	assert.Equal(t, []string{"manual"}, seen)
	_, err = q.GetJob(context.Background(), job.ID)
	assert.ErrorIs(t, err, redis.Nil, "completed jobs are removed")

	stats, err := q.GetJobStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusPending])
	assert.Equal(t, int64(1), stats[JobStatusCompleted])

	size, err := q.GetProcessingSize(context.Background())
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobResultsTotal.WithLabelValues("database_backup", "completed")))
}

func TestFailedJobIsRetriedThenGivesUp(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, 1)
	q.retryDelay = 10 * time.Millisecond

	attempts := 0
	q.RegisterProcessor(JobTypeProductImport, func(ctx context.Context, job *Job) error {
		attempts++
		return errors.New("tenant not found")
	})

	ctx := context.Background()
	job, err := q.EnqueueJob(JobTypeProductImport, ProductImportJobPayload{TenantID: 2, FileName: "p.csv"}.ToMap())
	require.NoError(t, err)

	for i := 0; i < DefaultMaxRetries; i++ {
		var next *Job
		require.Eventually(t, func() bool {
			var derr error
			next, derr = q.dequeueJob(ctx)
			return derr == nil && next != nil
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, job.ID, next.ID)
		q.processJob(ctx, next)
	}

	assert.Equal(t, DefaultMaxRetries, attempts)
	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, "tenant not found", stored.ErrorMsg)
	assert.False(t, stored.IsRetryable())

	time.Sleep(50 * time.Millisecond)
	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size, "no retry is scheduled after the last attempt")
}

func TestUnknownJobTypeFailsWithoutRetry(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, 1)
	ctx := context.Background()

	job, err := q.EnqueueJob(JobType("resize_image"), nil)
	require.NoError(t, err)
	next, err := q.dequeueJob(ctx)
	require.NoError(t, err)
	q.processJob(ctx, next)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMsg, ErrNoProcessor.Error())
}

func TestSweepStuckRequeuesOldJobs(t *testing.T) {
	client, _ := newTestRedis(t)
	q := NewQueue(client, 1)
	ctx := context.Background()

	old, err := q.EnqueueJob(JobTypeDatabaseBackup, DatabaseBackupJobPayload{Trigger: "schedule"}.ToMap())
	require.NoError(t, err)
	fresh, err := q.EnqueueJob(JobTypeDatabaseBackup, DatabaseBackupJobPayload{Trigger: "manual"}.ToMap())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		j, err := q.dequeueJob(ctx)
		require.NoError(t, err)
		j.MarkAsProcessing()
		if j.ID == old.ID {
			started := time.Now().Add(-time.Hour)
			j.ProcessedAt = &started
		}
		q.updateJob(ctx, j)
	}
	require.NoError(t, client.RPush(ctx, JobProcessingKey, "ghost").Err())

	recovered := q.sweepStuck(ctx, 30*time.Minute, time.Now())
	assert.Equal(t, 1, recovered)

	pending, err := client.LRange(ctx, JobQueueKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{old.ID}, pending)
	processing, err := client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{fresh.ID}, processing)

	stored, err := q.GetJob(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
	assert.Equal(t, "recovered by sweeper", stored.ErrorMsg)
}

func TestStopWithoutStart(t *testing.T) {
	q := NewQueue(nil, 1)
	q.Stop()
	assert.False(t, q.IsRunning())
}

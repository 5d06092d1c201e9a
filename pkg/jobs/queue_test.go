package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var processed atomic.Int64
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		processed.Add(1)
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 8})

	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 5; i++ {
		q.Enqueue(Job{ID: "job", Type: "test"})
	}

	require.Eventually(t, func() bool {
		return processed.Load() == 5
	}, time.Second, 10*time.Millisecond)
}

func TestEnqueueBeforeStartDropsJob(t *testing.T) {
	var processed atomic.Int64
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		processed.Add(1)
		return nil
	}, QueueConfig{})

	q.Enqueue(Job{ID: "dropped", Type: "test"})

	q.Start(context.Background())
	defer q.Stop()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), processed.Load())
}

func TestHandlerFailureDoesNotStopWorkers(t *testing.T) {
	var processed atomic.Int64
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if job.Type == "bad" {
			return assert.AnError
		}
		processed.Add(1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})

	q.Start(context.Background())
	defer q.Stop()

	q.Enqueue(Job{ID: "1", Type: "bad"})
	q.Enqueue(Job{ID: "2", Type: "good"})

	require.Eventually(t, func() bool {
		return processed.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

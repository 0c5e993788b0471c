package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresHandler(t *testing.T) {
	_, err := New[string](DefaultConfig(), nil, nil)
	assert.Error(t, err)
}

func TestProcessesEveryTaskOnce(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	pool, err := New(Config{Workers: 4, QueueSize: 100}, func(_ context.Context, task Task[string]) error {
		mu.Lock()
		seen[task.Payload]++
		mu.Unlock()
		if task.Payload == "bad" {
			return errors.New("label lookup failed")
		}
		return nil
	}, nil)
	require.NoError(t, err)
	pool.Start()

	for _, name := range []string{"warfarin", "ibuprofen", "bad", "aspirin"} {
		require.NoError(t, pool.Submit(Task[string]{ID: name, Payload: name}))
	}
	pool.Stop()

	assert.Equal(t, map[string]int{"warfarin": 1, "ibuprofen": 1, "bad": 1, "aspirin": 1}, seen)
	stats := pool.Stats()
	assert.Equal(t, int64(4), stats.TasksSubmitted)
	assert.Equal(t, int64(3), stats.TasksCompleted)
	assert.Equal(t, int64(1), stats.TasksFailed)
}

func TestSubmitQueueFullAndStopped(t *testing.T) {
	release := make(chan struct{})
	var started int32
	pool, err := New(Config{Workers: 1, QueueSize: 1}, func(_ context.Context, _ Task[int]) error {
		atomic.AddInt32(&started, 1)
		<-release
		return nil
	}, nil)
	require.NoError(t, err)
	pool.Start()

	require.NoError(t, pool.Submit(Task[int]{ID: "1"}))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&started) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, pool.Submit(Task[int]{ID: "2"}))
	assert.ErrorIs(t, pool.Submit(Task[int]{ID: "3"}), ErrQueueFull)
	assert.False(t, pool.IsHealthy())

	close(release)
	pool.Stop()
	assert.ErrorIs(t, pool.Submit(Task[int]{ID: "4"}), ErrStopped)
	pool.Stop()
}

func TestTaskTimeout(t *testing.T) {
	var deadlineSet atomic.Bool
	pool, err := New(Config{Workers: 1, QueueSize: 1, TaskTimeout: time.Second}, func(ctx context.Context, _ Task[int]) error {
		_, ok := ctx.Deadline()
		deadlineSet.Store(ok)
		return nil
	}, nil)
	require.NoError(t, err)
	pool.Start()
	require.NoError(t, pool.Submit(Task[int]{ID: "1"}))
	pool.Stop()
	assert.True(t, deadlineSet.Load())
}

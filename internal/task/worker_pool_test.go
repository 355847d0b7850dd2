package task

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

func TestNewWorkerPool_Defaults(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(1, discardLogger())

	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 0}, discardLogger())
	assert.Equal(t, 1, pool.workerCount)

	pool = NewWorkerPool(queue, DefaultWorkerPoolConfig(), nil)
	assert.Equal(t, 2, pool.workerCount)
}

func TestWorkerPool_ProcessesTasks(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(10, discardLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 3}, discardLogger())
	pool.Start()

	var count atomic.Int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		require.NoError(t, queue.Enqueue(NewFuncTask("count", func(ctx context.Context) error {
			defer wg.Done()
			count.Add(1)
			return nil
		})))
	}

	wg.Wait()
	queue.Close()
	pool.Wait()
	assert.Equal(t, int32(5), count.Load())
}

func TestWorkerPool_ErrorHandler(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(10, discardLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, discardLogger())

	failures := make(chan error, 2)
	pool.SetErrorHandler(func(task Task, err error) {
		failures <- err
	})
	pool.Start()
	defer pool.Stop()

	require.NoError(t, queue.Enqueue(NewFuncTask("fail", func(ctx context.Context) error {
		return errors.New("boom")
	})))
	require.NoError(t, queue.Enqueue(NewFuncTask("panic", func(ctx context.Context) error {
		panic("kaboom")
	})))

	for _, want := range []string{"boom", "task panicked: kaboom"} {
		select {
		case err := <-failures:
			assert.EqualError(t, err, want)
		case <-time.After(2 * time.Second):
			t.Fatal("error handler was not called")
		}
	}
}

func TestWorkerPool_StopCancelsRunningTask(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(1, discardLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, discardLogger())
	pool.Start()

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, queue.Enqueue(NewFuncTask("block", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})))

	<-started
	pool.Stop()

	select {
	case <-cancelled:
	default:
		t.Fatal("Stop returned before the running task observed cancellation")
	}
}

func TestTaskRunner_StopDrainsQueue(t *testing.T) {
	t.Parallel()
	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 5}, discardLogger())

	var count atomic.Int32
	for range 3 {
		require.NoError(t, runner.Queue().Enqueue(NewFuncTask("count", func(ctx context.Context) error {
			count.Add(1)
			return nil
		})))
	}

	runner.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	runner.Stop(ctx)

	assert.Equal(t, int32(3), count.Load())
	assert.ErrorIs(t, runner.Queue().Enqueue(noopTask()), ErrQueueClosed)
}

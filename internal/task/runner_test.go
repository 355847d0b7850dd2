package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRunner_DrainsOnStop(t *testing.T) {
	t.Parallel()
	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 2, QueueSize: 10}, discardLogger())
	runner.Start()

	var done atomic.Int32
	for range 5 {
		require.NoError(t, runner.Queue().Enqueue(NewFuncTask(TaskTypeBlitzExpiry, func(ctx context.Context) error {
			done.Add(1)
			return nil
		})))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	runner.Stop(ctx)

	assert.Equal(t, int32(5), done.Load())
	assert.ErrorIs(t, runner.Queue().Enqueue(NewFuncTask(TaskTypeBlitzExpiry, func(context.Context) error {
		return nil
	})), ErrQueueClosed)
}

func TestTaskRunner_ErrorHandler(t *testing.T) {
	t.Parallel()
	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 0}, discardLogger())

	failed := make(chan string, 1)
	runner.SetErrorHandler(func(task Task, err error) {
		failed <- task.Type() + ": " + err.Error()
	})
	runner.Start()

	require.NoError(t, runner.Queue().Enqueue(NewFuncTask(TaskTypeBlitzExpiry, func(context.Context) error {
		return errors.New("store down")
	})))

	select {
	case msg := <-failed:
		assert.Equal(t, "blitz_expiry: store down", msg)
	case <-time.After(time.Second):
		t.Fatal("error handler was not called")
	}

	runner.Stop(context.Background())
}

func TestTaskRunner_StopDeadlineCancelsTasks(t *testing.T) {
	t.Parallel()
	runner := NewTaskRunner(DefaultTaskRunnerConfig(), discardLogger())
	runner.Start()

	started := make(chan struct{})
	require.NoError(t, runner.Queue().Enqueue(NewFuncTask("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		runner.Stop(ctx)
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after its deadline")
	}
}

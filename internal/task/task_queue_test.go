package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noopTask() Task {
	return NewFuncTask("test", func(ctx context.Context) error { return nil })
}

func TestTaskQueue_Enqueue(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(2, discardLogger())

	first := noopTask()
	require.NoError(t, queue.Enqueue(first))
	require.NoError(t, queue.Enqueue(noopTask()))

	err := queue.Enqueue(noopTask())
	assert.ErrorIs(t, err, ErrQueueFull)

	got := <-queue.GetChannel()
	assert.Equal(t, first.ID(), got.ID(), "tasks are delivered in FIFO order")
}

func TestTaskQueue_Close(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(2, nil)
	require.NoError(t, queue.Enqueue(noopTask()))

	queue.Close()
	queue.Close() // second close is a no-op

	assert.ErrorIs(t, queue.Enqueue(noopTask()), ErrQueueClosed)

	_, ok := <-queue.GetChannel()
	assert.True(t, ok, "buffered task survives close")
	_, ok = <-queue.GetChannel()
	assert.False(t, ok)
}

func TestTaskQueue_ConcurrentEnqueueAndClose(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(100, discardLogger())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = queue.Enqueue(noopTask())
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Close()
	}()

	// Must not panic with "send on closed channel".
	wg.Wait()
}

func TestFuncTask(t *testing.T) {
	t.Parallel()
	called := false
	task := NewFuncTask(TaskTypeBlitzExpiry, func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.Equal(t, TaskTypeBlitzExpiry, task.Type())
	assert.NotEqual(t, task.ID(), NewFuncTask(TaskTypeBlitzExpiry, nil).ID())
	require.NoError(t, task.Execute(context.Background()))
	assert.True(t, called)
}

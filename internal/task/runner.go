package task

import (
	"context"
	"log/slog"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// TaskRunner owns a TaskQueue and the WorkerPool consuming it.
// Tasks are in-memory only and do not survive a restart.
type TaskRunner struct {
	queue  *TaskQueue
	pool   *WorkerPool
	logger *slog.Logger
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultTaskRunnerConfig().QueueSize
	}

	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)

	return &TaskRunner{
		queue:  queue,
		pool:   pool,
		logger: logger.With("component", "task_runner"),
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Queue returns the writer side of the runner's queue.
func (r *TaskRunner) Queue() TaskQueueWriter {
	return r.queue
}

// Start begins processing tasks
func (r *TaskRunner) Start() {
	r.pool.Start()
}

// Stop closes the queue and lets workers drain it until ctx is done,
// then cancels whatever is still running.
func (r *TaskRunner) Stop(ctx context.Context) {
	r.queue.Close()

	drained := make(chan struct{})
	go func() {
		r.pool.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		r.logger.Info("task runner drained")
	case <-ctx.Done():
		r.logger.Warn("task runner stop deadline reached, cancelling tasks")
	}
	r.pool.Stop()
}

// Package worker runs ledger tasks one at a time on a single goroutine, so
// every read-modify-write of the durable set happens without interleaving.
package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned by Submit once the worker no longer accepts tasks.
var ErrStopped = errors.New("task worker stopped")

// Task is a unit of work. It receives the submitter's context.
type Task func(ctx context.Context) error

type envelope struct {
	ctx  context.Context
	name string
	task Task
	done chan error
}

type TaskWorker struct {
	in     chan envelope
	quit   chan struct{}
	exited chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// NewTaskWorker creates a worker and starts its loop.
func NewTaskWorker(logger *zap.Logger) *TaskWorker {
	w := &TaskWorker{
		in:     make(chan envelope),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
		logger: logger,
	}

	go w.run()

	return w
}

func (w *TaskWorker) run() {
	defer close(w.exited)
	w.logger.Debug("task worker started")

	for {
		select {
		case env := <-w.in:
			w.execute(env)
		case <-w.quit:
			w.logger.Debug("task worker stopped")
			return
		}
	}
}

func (w *TaskWorker) execute(env envelope) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("task panicked", zap.String("task", env.name), zap.Any("panic", r))
			env.done <- errors.New("task panicked")
		}
	}()

	env.done <- env.task(env.ctx)
}

// Submit queues the task and waits for it to finish. A task that has been
// picked up always runs to completion, even if ctx is cancelled meanwhile;
// the task itself decides what to do with ctx.
func (w *TaskWorker) Submit(ctx context.Context, name string, task Task) error {
	env := envelope{
		ctx:  ctx,
		name: name,
		task: task,
		done: make(chan error, 1),
	}

	select {
	case w.in <- env:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.quit:
		return ErrStopped
	}

	return <-env.done
}

// Stop makes the worker exit after the task in flight, if any.
func (w *TaskWorker) Stop() {
	w.once.Do(func() {
		close(w.quit)
	})
	<-w.exited
}

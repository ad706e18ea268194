package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CANDRY15/flashprint/utils/logger"
)

// ErrStopped is returned by Shutdown when called twice
var ErrStopped = errors.New("dispatcher already stopped")

// Task is a best-effort side effect: an analytics insert, a storage
// cleanup or an audit log write. Its error only reaches the log.
type Task func(ctx context.Context) error

// Runner accepts best-effort tasks without blocking the caller.
type Runner interface {
	Dispatch(name string, task Task) bool
}

type job struct {
	name string
	task Task
}

// Dispatcher runs tasks on a fixed pool of workers fed by a bounded queue.
type Dispatcher struct {
	queue   chan job
	log     *logger.Logger
	timeout time.Duration

	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// Config controls the pool size
type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// NewDispatcher starts the workers
func NewDispatcher(cfg Config, log *logger.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}

	d := &Dispatcher{
		queue:   make(chan job, cfg.QueueSize),
		log:     log,
		timeout: cfg.TaskTimeout,
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}
	return d
}

// Dispatch enqueues task and returns immediately. It reports false when the
// task was dropped because the queue is full or the dispatcher is stopped.
func (d *Dispatcher) Dispatch(name string, task Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.log.Warn("background task dropped, dispatcher stopped", "task", name)
		return false
	}

	select {
	case d.queue <- job{name: name, task: task}:
		return true
	default:
		d.log.Warn("background task dropped, queue full", "task", name)
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or ctx
// to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	err := safeCall(ctx, j.task)
	if err != nil {
		d.log.Error("background task failed", "task", j.name, "error", err, "duration", time.Since(start))
		return
	}
	d.log.Debug("background task completed", "task", j.name, "duration", time.Since(start))
}

func safeCall(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task(ctx)
}

// Inline runs tasks synchronously on the caller's goroutine. Tests use it
// to observe side effects deterministically.
type Inline struct {
	Log *logger.Logger
}

func (i Inline) Dispatch(name string, task Task) bool {
	if err := safeCall(context.Background(), task); err != nil && i.Log != nil {
		i.Log.Error("background task failed", "task", name, "error", err)
	}
	return true
}

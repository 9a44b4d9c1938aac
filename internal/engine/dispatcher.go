package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/logging"
)

// DispatchMetrics tracks dispatcher operational metrics.
type DispatchMetrics struct {
	Queued    int64 `json:"queued"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
}

// ErrDispatcherShutdown is returned when work is submitted after Shutdown.
var ErrDispatcherShutdown = errors.New("dispatcher is shut down")

// Runner executes a workflow. *Engine satisfies it.
type Runner interface {
	Execute(ctx context.Context, workflowID string, triggerData map[string]any, opts Options) (*ExecutionResult, error)
}

// Task is one background execution request.
type Task struct {
	WorkflowID  string
	TriggerData map[string]any
	Options     Options
	// OnDone, if set, is called with the outcome after the run finishes.
	OnDone func(*ExecutionResult, error)
}

// Dispatcher runs executions in the background on a bounded pool. Submit
// never blocks: a task that finds the pool saturated waits for a slot in its
// own goroutine. Outcomes are only logged; the execution record is the
// source of truth.
type Dispatcher struct {
	runner  Runner
	logger  *slog.Logger
	sem     chan struct{}
	wg      sync.WaitGroup
	metrics DispatchMetrics
	mu      sync.Mutex
	closed  bool
}

// NewDispatcher creates a dispatcher running at most size executions at once.
func NewDispatcher(runner Runner, size int, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		runner: runner,
		logger: logger,
		sem:    make(chan struct{}, size),
	}
}

// Submit schedules task. The request context's values are kept but its
// cancellation is not, so the caller returning does not abort the run.
func (d *Dispatcher) Submit(ctx context.Context, task Task) error {
	// wg.Add(1) MUST be inside the lock to prevent a race with Shutdown's wg.Wait().
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherShutdown
	}
	d.wg.Add(1)
	atomic.AddInt64(&d.metrics.Queued, 1)
	d.mu.Unlock()

	ctx = logging.WithWorkflowID(context.WithoutCancel(ctx), task.WorkflowID)
	go d.run(ctx, task)
	return nil
}

func (d *Dispatcher) run(ctx context.Context, task Task) {
	d.sem <- struct{}{}
	atomic.AddInt64(&d.metrics.Queued, -1)
	atomic.AddInt64(&d.metrics.Active, 1)

	var (
		result *ExecutionResult
		err    error
	)
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&d.metrics.Panics, 1)
			atomic.AddInt64(&d.metrics.Failed, 1)
			err = fmt.Errorf("execution panicked: %v", r)
			d.logger.ErrorContext(ctx, "background execution panicked", slog.String("panic", fmt.Sprint(r)))
		}
		if task.OnDone != nil {
			task.OnDone(result, err)
		}
		atomic.AddInt64(&d.metrics.Active, -1)
		<-d.sem
		d.wg.Done()
	}()

	result, err = d.runner.Execute(ctx, task.WorkflowID, task.TriggerData, task.Options)
	if err != nil {
		atomic.AddInt64(&d.metrics.Failed, 1)
		attrs := []any{slog.String("error", err.Error())}
		if result != nil {
			attrs = append(attrs, slog.String("execution_id", result.ExecutionID))
		}
		d.logger.ErrorContext(ctx, "background execution failed", attrs...)
		return
	}
	atomic.AddInt64(&d.metrics.Completed, 1)
}

// Wait blocks until all submitted work completes.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown rejects new submissions and waits for queued and running tasks
// to finish, or for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics returns a snapshot of the current dispatcher metrics.
func (d *Dispatcher) Metrics() DispatchMetrics {
	return DispatchMetrics{
		Queued:    atomic.LoadInt64(&d.metrics.Queued),
		Active:    atomic.LoadInt64(&d.metrics.Active),
		Completed: atomic.LoadInt64(&d.metrics.Completed),
		Failed:    atomic.LoadInt64(&d.metrics.Failed),
		Panics:    atomic.LoadInt64(&d.metrics.Panics),
	}
}

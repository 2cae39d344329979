// Package goroutine runs bounded background work that must outlive the
// request which scheduled it and be drained on shutdown.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

const (
	// DefaultMaxGoroutine is multiplied by NumCPU when NewManager receives a non-positive limit.
	DefaultMaxGoroutine int = 100

	// DefaultTimeout bounds a single task when the manager has no explicit timeout.
	DefaultTimeout = 10 * time.Second

	// maxRetainedErrors caps how many task errors are kept for Wait.
	maxRetainedErrors = 32
)

// Manager runs tasks in goroutines with a concurrency limit.
//
// Tasks run on a context detached from the caller's cancellation (values such
// as the correlation ID are kept) and bounded by a per-task timeout. Task
// errors are logged and the first few are collected for Wait; the rest are
// only counted.
type Manager struct {
	timeout time.Duration
	sema    chan struct{}
	wg      sync.WaitGroup
	failed  *atomic.Uint64

	mu     sync.Mutex
	errs   []error
	closed bool
}

// NewManager creates a Manager running at most maxGoroutine tasks at once.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{
		timeout: DefaultTimeout,
		sema:    make(chan struct{}, maxGoroutine),
		failed:  atomic.NewUint64(0),
	}
}

// WithTimeout sets the per-task timeout and returns the manager.
func (g *Manager) WithTimeout(d time.Duration) *Manager {
	if d > 0 {
		g.timeout = d
	}
	return g
}

// Go schedules f. It never blocks: when the manager is closed or full the
// task is dropped with a warning and Go returns false.
func (g *Manager) Go(pCtx context.Context, name string, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		slog.WarnContext(pCtx, "goroutine manager is closed, task dropped", "task", name)
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		g.mu.Unlock()
		slog.WarnContext(pCtx, "maximum goroutine limit reached, task dropped", "task", name)
		return false
	}

	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		defer func() { <-g.sema }()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(pCtx), g.timeout)
		defer cancel()

		if err := g.run(ctx, name, f); err != nil {
			slog.WarnContext(ctx, "background task failed", "task", name, "error", err)

			g.mu.Lock()
			if len(g.errs) < maxRetainedErrors {
				g.errs = append(g.errs, err)
			}
			g.failed.Inc()
			g.mu.Unlock()
		}
	}()

	return true
}

func (g *Manager) run(ctx context.Context, name string, f func(ctx context.Context) error) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		stack := debug.Stack()
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			slog.ErrorContext(ctx, "panic occurred in goroutine", "task", name, "because", rvr, "stack", paths)
		} else {
			slog.ErrorContext(ctx, "panic occurred in goroutine", "task", name, "because", rvr, "stack", string(stack))
		}
		err = ErrPanic
	}()

	return f(ctx)
}

var (
	// ErrPanic is collected for a task that panicked.
	ErrPanic = errors.New("goroutine: task panicked")
	// ErrErrorsDropped is joined by Wait when more tasks failed than were kept.
	ErrErrorsDropped = errors.New("goroutine: task errors dropped")
)

// Failed returns how many tasks have failed or panicked so far.
func (g *Manager) Failed() uint64 {
	if g == nil {
		return 0
	}
	return g.failed.Load()
}

// Wait stops accepting tasks, blocks until running ones finish and returns
// their joined errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()

	errs := g.errs
	if dropped := g.failed.Load() - uint64(len(errs)); dropped > 0 {
		errs = append(errs[:len(errs):len(errs)], fmt.Errorf("%w: %d more", ErrErrorsDropped, dropped))
	}
	return errors.Join(errs...)
}

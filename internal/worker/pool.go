// Package worker runs fire-and-forget background tasks on a bounded pool.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskError is delivered to the error hook when a task fails.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Option configures a Pool.
type Option func(*Pool)

// WithTaskTimeout bounds every task run. Zero disables the bound.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) { p.timeout = d }
}

// WithErrorHook registers fn to be called, from the pool's reporter
// goroutine, for every failed task after it has been logged.
func WithErrorHook(fn func(*TaskError)) Option {
	return func(p *Pool) { p.onError = fn }
}

// Pool is a fixed set of goroutines draining a buffered task queue.
// Failures never reach the submitter: they travel over an error channel
// to a single reporter goroutine that logs them.
type Pool struct {
	log     *zap.Logger
	tasks   chan Task
	errs    chan *TaskError
	timeout time.Duration
	onError func(*TaskError)

	mu     sync.RWMutex
	closed bool

	workers  sync.WaitGroup
	reporter sync.WaitGroup
}

// NewPool starts workers goroutines with a queue of queueSize pending tasks.
func NewPool(workers, queueSize int, log *zap.Logger, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		log:     log,
		tasks:   make(chan Task, queueSize),
		errs:    make(chan *TaskError, workers),
		timeout: time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.reporter.Add(1)
	go p.report()

	p.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// Submit enqueues t without blocking. It returns false, and logs the drop,
// when the queue is full or the pool is closed.
func (p *Pool) Submit(t Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.log.Warn("task dropped: pool closed", zap.String("task", t.Name))
		return false
	}
	select {
	case p.tasks <- t:
		return true
	default:
		p.log.Warn("task dropped: queue full", zap.String("task", t.Name))
		return false
	}
}

// Close stops accepting tasks, runs everything already queued, and waits
// for the workers and the reporter to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.workers.Wait()
	close(p.errs)
	p.reporter.Wait()
}

func (p *Pool) work() {
	defer p.workers.Done()
	for t := range p.tasks {
		if err := p.run(t); err != nil {
			p.errs <- &TaskError{Task: t.Name, Err: err}
		}
	}
}

func (p *Pool) run(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return t.Run(ctx)
}

func (p *Pool) report() {
	defer p.reporter.Done()
	for e := range p.errs {
		p.log.Error("background task failed", zap.String("task", e.Task), zap.Error(e.Err))
		if p.onError != nil {
			p.onError(e)
		}
	}
}

package worker

import (
	"context"
	"sync"
)

// Job is one unit of work run by a Pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job produces; a failed job still yields a Result carrying its error
type Result interface {
	GetError() error
}

// Pool runs submitted jobs on a fixed number of goroutines.
//
// A collector goroutine drains results while jobs are still being submitted,
// so callers may queue any number of jobs before calling Wait.
type Pool struct {
	workers int

	queue     chan Job
	out       chan Result
	collector *ResultCollector
	collected chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	active sync.WaitGroup

	// mu guards closing queue against a concurrent Submit
	mu       sync.RWMutex
	closed   bool
	closeOut func()
}

// NewPool creates a pool with the given number of workers (at least one)
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a pool whose jobs see a context derived from ctx
func NewPoolWithContext(ctx context.Context, workers int) *Pool {
	workers = max(workers, 1)
	ctx, cancel := context.WithCancel(ctx)

	p := &Pool{
		workers:   workers,
		queue:     make(chan Job, workers*2),
		out:       make(chan Result, workers*2),
		collector: NewResultCollector(),
		collected: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	p.closeOut = sync.OnceFunc(func() { close(p.out) })
	return p
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	p.active.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.run()
	}

	go func() {
		defer close(p.collected)
		for r := range p.out {
			p.collector.Add(r)
		}
	}()
}

func (p *Pool) run() {
	defer p.active.Done()

	for {
		var job Job
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			job = j
		}

		select {
		case p.out <- job.Execute(p.ctx):
		case <-p.ctx.Done():
			return
		}
	}
}

// Submit queues a job. It reports false when the pool was cancelled or
// already waited on before the job was accepted.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- job:
		return true
	}
}

// Wait stops accepting jobs, lets the queued ones finish and returns results in completion order.
// After cancellation only the results collected so far are returned.
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.active.Wait()
	p.closeOut()
	<-p.collected
	p.cancel()

	return p.collector.Results()
}

func (p *Pool) closeQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}

// Shutdown cancels running jobs and stops the workers without waiting for the queue
func (p *Pool) Shutdown() {
	p.cancel()
	p.active.Wait()
	p.closeOut()
}

// ResultCollector accumulates results from concurrent goroutines
type ResultCollector struct {
	mu      sync.Mutex
	results []Result
}

// NewResultCollector creates an empty collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{}
}

// Add appends a result
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	c.results = append(c.results, result)
	c.mu.Unlock()
}

// Results returns a snapshot of everything added so far
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

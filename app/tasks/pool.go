package tasks

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/lysyi3m/issue-comb/app/metrics"
)

var ErrTaskPanic = errors.New("task panicked")

// PoolTask is a unit of work run by a Pool.
type PoolTask func(ctx context.Context) error

type job struct {
	ctx  context.Context
	run  PoolTask
	done chan error
}

// Pool runs submitted tasks with at most limit of them in flight. Tasks start
// in submission order; a finished task frees its slot for the oldest queued one.
type Pool struct {
	limit int

	mu      sync.Mutex
	running int
	queue   []*job

	wg sync.WaitGroup
}

func NewPool(limit int) *Pool {
	return &Pool{limit: max(limit, 1)}
}

// Go queues task and returns a channel that receives its result once it has
// finished. It never blocks.
func (p *Pool) Go(ctx context.Context, task PoolTask) <-chan error {
	j := &job{ctx: ctx, run: task, done: make(chan error, 1)}

	p.wg.Add(1)

	p.mu.Lock()
	p.queue = append(p.queue, j)
	p.dispatchLocked()
	p.mu.Unlock()

	return j.done
}

// Add runs task through the pool and waits for it to finish.
func (p *Pool) Add(ctx context.Context, task PoolTask) error {
	return <-p.Go(ctx, task)
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) Limit() int {
	return p.limit
}

func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// dispatchLocked starts queued jobs while slots are free. p.mu must be held.
func (p *Pool) dispatchLocked() {
	for p.running < p.limit && len(p.queue) > 0 {
		j := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]

		p.running++
		metrics.PoolRunning.Inc()
		go p.execute(j)
	}
}

func (p *Pool) execute(j *job) {
	err := p.safeRun(j)

	p.mu.Lock()
	p.running--
	metrics.PoolRunning.Dec()
	p.dispatchLocked()
	p.mu.Unlock()

	j.done <- err
	p.wg.Done()
}

func (p *Pool) safeRun(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrTaskPanic, r, debug.Stack())
		}
	}()
	return j.run(j.ctx)
}

package worker

import (
	"context"
	"runtime"
	"sync"
)

// Task is one unit of per-file work. Tasks must be independent: each reads
// its own input and writes its own output path.
type Task func(ctx context.Context) error

// Pool fans file tasks out over a bounded set of goroutines. The first error
// cancels the whole batch: queued tasks are drained without running and
// Submit starts refusing work, so a caller can treat Wait's error as "nothing
// else was written after this failure".
type Pool struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan Task
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

// New starts a pool of size workers. Anything below 1 falls back to the
// number of CPUs.
func New(ctx context.Context, workers int) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	poolCtx, cancel := context.WithCancel(ctx)
	p := &Pool{
		parent: ctx,
		ctx:    poolCtx,
		cancel: cancel,
		tasks:  make(chan Task, workers),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		if p.ctx.Err() != nil {
			continue // batch failed, drain the queue
		}
		if err := task(p.ctx); err != nil {
			p.fail(err)
		}
	}
}

func (p *Pool) fail(err error) {
	p.once.Do(func() {
		p.err = err
		p.cancel()
	})
}

// Submit queues one task. It returns false once the batch is cancelled so
// producers can stop early instead of queueing work that will be dropped.
func (p *Pool) Submit(task Task) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- task:
		return true
	}
}

// Wait closes the queue and blocks until every worker has exited. It returns
// the first task error, or the surrounding context's error if the batch was
// cancelled from outside, or nil when everything ran.
func (p *Pool) Wait() error {
	close(p.tasks)
	p.wg.Wait()
	defer p.cancel()
	if p.err != nil {
		return p.err
	}
	return p.parent.Err()
}

package worker

import (
	"context"
	"runtime"
	"sync"

	"github.com/juicecultus/crosspoint-reader-x4/pkg/progress"
)

// Job is one unit of batch work, typically a single cover conversion.
// Each job runs on exactly one worker; parallelism is across jobs, a job
// itself stays single-threaded.
type Job interface {
	Process(ctx context.Context) error
	ID() string
}

// Result contains the outcome of processing a job.
type Result struct {
	JobID string
	Error error
}

// Pool manages a fixed set of worker goroutines draining a job queue.
type Pool struct {
	workerCount int
	jobs        chan Job
	results     chan Result
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	progress    *progress.Tracker
}

// NewPool creates a worker pool. workerCount <= 0 uses one worker per CPU.
func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workerCount: workerCount,
		jobs:        make(chan Job, workerCount*2),
		results:     make(chan Result, workerCount*2),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// NewPoolWithProgress creates a worker pool that reports progress on the
// terminal as jobs complete.
func NewPoolWithProgress(workerCount, totalJobs int) *Pool {
	p := NewPool(workerCount)
	p.progress = progress.NewTracker(totalJobs)
	return p
}

// Start begins processing jobs.
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop closes the queue, waits for in-flight jobs and closes the results
// channel.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.cancel()

	if p.progress != nil {
		p.progress.Finish()
	}
}

// Submit adds a job to the processing queue.
func (p *Pool) Submit(job Job) {
	select {
	case p.jobs <- job:
	case <-p.ctx.Done():
		p.results <- Result{
			JobID: job.ID(),
			Error: p.ctx.Err(),
		}
	}
}

// Results returns the results channel.
func (p *Pool) Results() <-chan Result {
	return p.results
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}

			err := job.Process(p.ctx)

			if p.progress != nil {
				p.progress.JobDone(job.ID(), err == nil)
			}

			p.results <- Result{
				JobID: job.ID(),
				Error: err,
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// WorkerCount returns the number of workers in the pool.
func (p *Pool) WorkerCount() int {
	return p.workerCount
}

// Package pool runs independent batch jobs with bounded concurrency and
// collects per-job failures instead of aborting the batch.
package pool

import (
	"context"
	"sync"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 4

// Job is one unit of batch work. Jobs must be independent: the pool makes
// no ordering guarantees between them.
type Job struct {
	ID      string
	Execute func(ctx context.Context) error
}

// Failure records one failed job.
type Failure struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}

// Result aggregates a batch run. Completed counts jobs that ran to
// success; Skipped counts jobs never started because the context was
// canceled. Cancellation checkpoints between jobs, never mid-job.
type Result struct {
	Completed int       `json:"completed"`
	Skipped   int       `json:"skipped"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Failed reports whether any job failed.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Pool is a bounded worker pool for batch operations.
type Pool struct {
	workers int
}

// New creates a pool with the given worker count. Counts below 1 fall
// back to DefaultWorkers.
func New(workers int) *Pool {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Pool{workers: workers}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Run executes the jobs with at most p.workers running concurrently and
// returns the aggregated result. A canceled context stops dispatching new
// jobs; jobs already running finish and are counted normally.
func (p *Pool) Run(ctx context.Context, jobs []Job) *Result {
	result := &Result{}
	if len(jobs) == 0 {
		return result
	}

	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan Job)
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range jobCh {
				err := job.Execute(ctx)
				mu.Lock()
				if err != nil {
					result.Failures = append(result.Failures, Failure{
						JobID: job.ID,
						Error: err.Error(),
					})
				} else {
					result.Completed++
				}
				mu.Unlock()
			}
		}()
	}

	skipped := 0
	for i, job := range jobs {
		select {
		case <-ctx.Done():
			skipped = len(jobs) - i
		case jobCh <- job:
			continue
		}
		break
	}
	close(jobCh)
	wg.Wait()

	result.Skipped = skipped
	return result
}

// Package scheduler owns the process's periodic jobs. Each job holds a
// single in-flight slot shared between its ticker loop and manual HTTP
// triggers, so a run can never overlap itself.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Job is one periodic task. The zero value is not usable; create jobs
// with NewJob.
type Job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
	inFlight atomic.Bool
}

// NewJob creates a job that runs fn every interval.
func NewJob(name string, interval time.Duration, fn func(ctx context.Context) error) *Job {
	return &Job{name: name, interval: interval, run: fn}
}

// Name returns the job's name.
func (j *Job) Name() string { return j.name }

// InFlight reports whether a run is currently executing.
func (j *Job) InFlight() bool { return j.inFlight.Load() }

// tryRun claims the job's slot and executes one run synchronously.
// It returns false without running when a run is already in flight.
func (j *Job) tryRun(ctx context.Context) bool {
	if !j.inFlight.CompareAndSwap(false, true) {
		fmt.Fprintf(os.Stderr, "scheduler: %s still running, skipping trigger\n", j.name)
		return false
	}
	defer j.inFlight.Store(false)

	start := time.Now()
	if err := j.run(ctx); err != nil {
		// No retry or backoff: a failed run is superseded by the next
		// scheduled trigger.
		fmt.Fprintf(os.Stderr, "scheduler: %s failed after %s: %v\n", j.name, time.Since(start).Round(time.Millisecond), err)
		return true
	}
	fmt.Fprintf(os.Stderr, "scheduler: %s done in %s\n", j.name, time.Since(start).Round(time.Millisecond))
	return true
}

// Trigger starts one run in the background, for manual invocation. It
// returns false when the job is already in flight.
func (j *Job) Trigger(ctx context.Context) bool {
	if !j.inFlight.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer j.inFlight.Store(false)
		start := time.Now()
		if err := j.run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "scheduler: %s failed after %s: %v\n", j.name, time.Since(start).Round(time.Millisecond), err)
			return
		}
		fmt.Fprintf(os.Stderr, "scheduler: %s done in %s\n", j.name, time.Since(start).Round(time.Millisecond))
	}()
	return true
}

// Scheduler runs a set of jobs, each on its own independent interval.
// There is no coordination between jobs: the fetch and upload loops
// interleave freely and rely on the store's identity constraints.
type Scheduler struct {
	jobs []*Job
}

// New creates a scheduler over the given jobs.
func New(jobs ...*Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Jobs returns the scheduled jobs, for manual triggers.
func (s *Scheduler) Jobs() []*Job { return s.jobs }

// Run starts every job loop and blocks until ctx is cancelled. Each
// job runs once immediately, then on its ticker; a tick that fires
// while the previous run is still in flight is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, job := range s.jobs {
		wg.Add(1)
		go func(j *Job) {
			defer wg.Done()

			fmt.Fprintf(os.Stderr, "scheduler: %s every %s\n", j.name, j.interval)
			j.tryRun(ctx)

			ticker := time.NewTicker(j.interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					j.tryRun(ctx)
				}
			}
		}(job)
	}

	<-ctx.Done()
	wg.Wait()
	fmt.Fprintln(os.Stderr, "scheduler: stopped")
	return ctx.Err()
}

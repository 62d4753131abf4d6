package cron

import (
	"context"
	"sync"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job   Job
	every time.Duration
	next  time.Time
}

// Registry tracks registered cron jobs and when each is next due.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
}

// NewRegistry builds a registry whose jobs run on every cycle.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job that runs on every cycle.
func (r *Registry) Register(job Job) {
	r.RegisterEvery(job, 0)
}

// RegisterEvery adds a job that runs at most once per interval.
func (r *Registry) RegisterEvery(job Job, every time.Duration) {
	if job == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &entry{job: job, every: every})
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]Job, len(r.entries))
	for i, e := range r.entries {
		jobs[i] = e.job
	}
	return jobs
}

// due returns the jobs whose interval has elapsed and schedules their next run.
func (r *Registry) due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var jobs []Job
	for _, e := range r.entries {
		if !e.next.IsZero() && now.Before(e.next) {
			continue
		}
		jobs = append(jobs, e.job)
		if e.every > 0 {
			e.next = now.Add(e.every)
		}
	}
	return jobs
}

package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(jobB)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	// ensure caller cannot mutate internal slice
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryDueRespectsInterval(t *testing.T) {
	registry := NewRegistry()
	hourly := &stubJob{name: "hourly"}
	registry.RegisterEvery(hourly, time.Hour)
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	if got := registry.due(start); len(got) != 1 {
		t.Fatalf("expected job due on first tick, got %d", len(got))
	}
	if got := registry.due(start.Add(30 * time.Minute)); len(got) != 0 {
		t.Fatalf("expected job not due within interval, got %d", len(got))
	}
	if got := registry.due(start.Add(time.Hour)); len(got) != 1 {
		t.Fatalf("expected job due after interval, got %d", len(got))
	}
}

func TestRegistryIgnoresNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &stubJob{name: "a"})
	registry.RegisterEvery(nil, time.Minute)
	if len(registry.Jobs()) != 1 {
		t.Fatalf("expected nil jobs to be dropped")
	}
}

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAddJob(t *testing.T) {
	var mu sync.Mutex
	var calls int

	sched := New(nil)
	err := sched.AddJob("clustering", "@every 1s", func(context.Context) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	if sched.JobCount() != 1 {
		t.Errorf("JobCount = %d", sched.JobCount())
	}

	// Start cron and wait for it to fire
	sched.cron.Start()
	time.Sleep(1500 * time.Millisecond)
	<-sched.cron.Stop().Done()

	mu.Lock()
	defer mu.Unlock()
	if calls == 0 {
		t.Error("expected at least one call")
	}
}

func TestInvalidSchedule(t *testing.T) {
	sched := New(nil)
	err := sched.AddJob("clustering", "invalid-cron", func(context.Context) {})
	if err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestReplaceJob(t *testing.T) {
	sched := New(nil)
	if err := sched.AddJob("clustering", "@every 1h", func(context.Context) {}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := sched.AddJob("clustering", "@every 2h", func(context.Context) {}); err != nil {
		t.Fatalf("AddJob replace: %v", err)
	}
	if sched.JobCount() != 1 {
		t.Errorf("JobCount = %d after replace", sched.JobCount())
	}
}

func TestRemoveJob(t *testing.T) {
	sched := New(nil)
	sched.AddJob("clustering", "@every 1h", func(context.Context) {})
	sched.AddJob("cleanup", "@every 2h", func(context.Context) {})

	if sched.JobCount() != 2 {
		t.Fatalf("JobCount = %d before remove", sched.JobCount())
	}

	sched.RemoveJob("clustering")
	if sched.JobCount() != 1 {
		t.Errorf("JobCount = %d after remove", sched.JobCount())
	}
}

func TestNoOverlap(t *testing.T) {
	var mu sync.Mutex
	var active, maxActive int

	sched := New(nil)
	err := sched.AddJob("slow", "@every 1s", func(context.Context) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(2500 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	sched.cron.Start()
	time.Sleep(3500 * time.Millisecond)
	<-sched.cron.Stop().Done()

	mu.Lock()
	defer mu.Unlock()
	if maxActive > 1 {
		t.Errorf("max concurrent runs = %d, want 1", maxActive)
	}
}

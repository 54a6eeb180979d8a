package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"houses_scraper/config"
)

func TestStart_NoSchedule(t *testing.T) {
	s := New(config.SchedulerConfig{}, func(context.Context) error { return nil }, nil)
	if err := s.Start(context.Background()); !errors.Is(err, ErrNoSchedule) {
		t.Fatalf("expected ErrNoSchedule, got %v", err)
	}
}

func TestStart_InvalidCron(t *testing.T) {
	s := New(config.SchedulerConfig{Cron: "not a cron"}, func(context.Context) error { return nil }, nil)
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected an error for a bad cron expression")
	}
	s.Stop()
}

func TestInterval_RunsJob(t *testing.T) {
	var runs atomic.Int32
	s := New(config.SchedulerConfig{Interval: 10 * time.Millisecond}, func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if runs.Load() < 2 {
		t.Fatalf("expected at least 2 runs, got %d", runs.Load())
	}
}

func TestTriggerNow_SkipsOverlappingRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32

	s := New(config.SchedulerConfig{}, func(context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	}, nil)

	done := make(chan bool)
	go func() { done <- s.TriggerNow(context.Background()) }()
	<-started

	if s.TriggerNow(context.Background()) {
		t.Fatal("expected overlapping trigger to be skipped")
	}
	close(release)
	if !<-done {
		t.Fatal("expected first trigger to run")
	}
	if runs.Load() != 1 {
		t.Fatalf("expected exactly one run, got %d", runs.Load())
	}
}

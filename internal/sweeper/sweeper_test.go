package sweeper

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeStore struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeStore) SweepOlderThan(maxAge time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunSweepsOnInterval(t *testing.T) {
	store := &fakeStore{}
	s := New(store, 10*time.Millisecond, time.Hour, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper never ran twice")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancellation")
	}
}

func TestRunSurvivesSweepFailures(t *testing.T) {
	store := &fakeStore{err: errors.New("disk on fire")}
	s := New(store, 10*time.Millisecond, time.Hour, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	deadline := time.After(2 * time.Second)
	for store.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper stopped after a failed sweep")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRunStopsImmediatelyOnCancelledContext(t *testing.T) {
	store := &fakeStore{}
	s := New(store, time.Hour, time.Hour, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not observe cancelled context")
	}
	if store.callCount() != 0 {
		t.Fatalf("calls = %d, want 0", store.callCount())
	}
}

package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPacer_FirstWaitPaysInterval(t *testing.T) {
	interval := 50 * time.Millisecond
	p := New(interval)
	ctx := context.Background()

	start := time.Now()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("Wait() returned unexpected error: %v", err)
	}

	// Wait runs after a unit of work, so even the first call must pause
	// before the next unit is allowed to start.
	if elapsed := time.Since(start); elapsed < interval-10*time.Millisecond {
		t.Errorf("first Wait() returned after %v, want at least %v", elapsed, interval)
	}
}

func TestPacer_SpacesConsecutiveWaits(t *testing.T) {
	interval := 50 * time.Millisecond
	p := New(interval)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait() returned unexpected error: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 3*interval-10*time.Millisecond {
		t.Errorf("3 waits took %v, want at least %v", elapsed, 3*interval)
	}
}

func TestPacer_DisabledNeverBlocks(t *testing.T) {
	p := New(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait() returned unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("100 unpaced waits took %v", elapsed)
	}
}

func TestPacer_CanceledContext(t *testing.T) {
	p := New(time.Hour)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Wait(canceled); err == nil {
		t.Error("Wait() with canceled context should return an error")
	}
}

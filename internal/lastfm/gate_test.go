package lastfm

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestGateSpacing(t *testing.T) {
	const (
		interval = 30 * time.Millisecond
		calls    = 4
	)

	g := newGate(interval)
	start := time.Now()

	for i := 0; i < calls; i++ {
		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// First call is admitted immediately, the rest are spaced.
	if elapsed := time.Since(start); elapsed < (calls-1)*interval {
		t.Errorf("Wait() total elapsed = %v, want >= %v", elapsed, (calls-1)*interval)
	}
}

func TestGateSpacing_Concurrent(t *testing.T) {
	const (
		interval = 30 * time.Millisecond
		callers  = 4
	)

	g := newGate(interval)

	var (
		mu    sync.Mutex
		wakes []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Wait(context.Background()); err != nil {
				t.Errorf("Wait() error = %v", err)
				return
			}
			now := time.Now()
			mu.Lock()
			wakes = append(wakes, now)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(wakes, func(i, j int) bool { return wakes[i].Before(wakes[j]) })

	// Allow a little scheduler jitter between the admission time and the
	// moment the goroutine reads the clock.
	const tolerance = 5 * time.Millisecond
	for i := 1; i < len(wakes); i++ {
		if gap := wakes[i].Sub(wakes[i-1]); gap < interval-tolerance {
			t.Errorf("gap between calls %d and %d = %v, want >= %v", i-1, i, gap, interval)
		}
	}
}

func TestGateWait_ContextCancelled(t *testing.T) {
	g := newGate(time.Hour)

	// Consume the initial token so the next caller must wait.
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Wait(ctx); err == nil {
		t.Error("Wait() with cancelled context returned nil error")
	}
}

func TestGateDisabled(t *testing.T) {
	g := newGate(-1)
	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("disabled gate took %v for 50 calls", elapsed)
	}
}

package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, f.err
}

func (f *fakePruner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestPruneOnce_Cutoff(t *testing.T) {
	p := &fakePruner{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	pruneOnce(context.Background(), p, 48*time.Hour, func() time.Time { return now })

	if len(p.cutoffs) != 1 {
		t.Fatalf("PruneBefore calls = %d, want 1", len(p.cutoffs))
	}
	if want := now.Add(-48 * time.Hour); !p.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", p.cutoffs[0], want)
	}
}

func TestPruneOnce_ErrorIsLogged(t *testing.T) {
	p := &fakePruner{err: errors.New("connection refused")}
	pruneOnce(context.Background(), p, time.Hour, time.Now)
	if len(p.cutoffs) != 1 {
		t.Errorf("PruneBefore calls = %d, want 1", len(p.cutoffs))
	}
}

func TestStartHistoryPruner_StopsOnCancel(t *testing.T) {
	p := &fakePruner{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		StartHistoryPruner(ctx, p, PruneConfig{Retention: time.Hour, CheckInterval: 10 * time.Millisecond})
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner did not stop after cancel")
	}
	if p.count() < 2 {
		t.Errorf("PruneBefore calls = %d, want at least 2", p.count())
	}
}

package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	n       int64
	err     error
}

func (f *fakePurger) Purge(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, before)
	return f.n, f.err
}

func (f *fakePurger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestSweepOnce_Cutoff(t *testing.T) {
	purger := &fakePurger{n: 3}
	s := NewService(purger, 24*time.Hour, time.Hour, zap.NewNop())
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	assert.Equal(t, int64(3), s.SweepOnce(context.Background()))
	require.Len(t, purger.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), purger.cutoffs[0])
}

func TestSweepOnce_ErrorIsLogged(t *testing.T) {
	s := NewService(&fakePurger{err: errors.New("db down")}, time.Hour, time.Hour, zap.NewNop())
	assert.Zero(t, s.SweepOnce(context.Background()))
}

func TestRun_SweepsUntilCancelled(t *testing.T) {
	purger := &fakePurger{}
	s := NewService(purger, time.Hour, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return purger.calls() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

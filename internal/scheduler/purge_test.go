package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/vocab-enricher/pkg/cache"
)

type countingPurger struct {
	calls atomic.Int32
	block chan struct{}
	err   error
}

func (p *countingPurger) PurgeExpired(ctx context.Context) (int, error) {
	p.calls.Add(1)
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 1, p.err
}

func TestPurgeScheduler_RunNowPurgesStore(t *testing.T) {
	backend := cache.NewMemoryBackend()
	store := cache.NewStore(backend, zerolog.Nop())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	store.Put(context.Background(), "def_apple", []byte(`{"definitions":["a fruit"]}`), "oxford", time.Hour)
	store.Put(context.Background(), "def_pear", []byte(`{"definitions":["a fruit"]}`), "oxford", 3*time.Hour)

	now = now.Add(2 * time.Hour)

	s := NewPurgeScheduler(store, "@daily", zerolog.Nop())
	n, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, backend.Len())
}

func TestPurgeScheduler_RunNowError(t *testing.T) {
	s := NewPurgeScheduler(&countingPurger{err: errors.New("backend down")}, "@daily", zerolog.Nop())

	_, err := s.RunNow(context.Background())
	assert.Error(t, err)
}

func TestPurgeScheduler_SkipsOverlappingRuns(t *testing.T) {
	p := &countingPurger{block: make(chan struct{})}
	s := NewPurgeScheduler(p, "@daily", zerolog.Nop())

	done := make(chan struct{})
	go func() {
		_, _ = s.RunNow(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	n, err := s.RunNow(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int32(1), p.calls.Load())

	close(p.block)
	<-done
}

func TestPurgeScheduler_Schedule(t *testing.T) {
	p := &countingPurger{}
	s := NewPurgeScheduler(p, "@every 1s", zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.False(t, s.NextRun().IsZero())

	assert.Eventually(t, func() bool { return p.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.True(t, s.NextRun().IsZero())
}

func TestPurgeScheduler_RestartKeepsSingleEntry(t *testing.T) {
	s := NewPurgeScheduler(&countingPurger{}, "@hourly", zerolog.Nop())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Start(context.Background()))
		assert.Len(t, s.cron.Entries(), 1)
		s.Stop()
		assert.Empty(t, s.cron.Entries())
	}
}

func TestPurgeScheduler_StartValidation(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantErr     bool
		wantRunning bool
	}{
		{name: "descriptor", schedule: "@hourly", wantRunning: true},
		{name: "five fields", schedule: "0 3 * * *", wantRunning: true},
		{name: "disabled", schedule: ""},
		{name: "garbage", schedule: "every tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPurgeScheduler(&countingPurger{}, tt.schedule, zerolog.Nop())
			err := s.Start(context.Background())
			defer s.Stop()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRunning, s.IsRunning())
		})
	}
}

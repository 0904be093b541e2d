package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	mu      sync.Mutex
	calls   int
	age     time.Duration
	limit   int
	err     error
	block   chan struct{}
	started chan struct{}
	panics  any
}

func (p *fakeProcessor) ProcessPending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	p.mu.Lock()
	p.calls++
	p.age, p.limit = olderThan, limit
	p.mu.Unlock()
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.block != nil {
		<-p.block
	}
	if p.panics != nil {
		panic(p.panics)
	}
	return 1, p.err
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestScheduler(p PendingProcessor, cfg Config) *Scheduler {
	return NewScheduler(p, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScheduler_Start(t *testing.T) {
	t.Run("valid schedule", func(t *testing.T) {
		s := newTestScheduler(&fakeProcessor{}, Config{Schedule: "*/5 * * * *"})
		require.NoError(t, s.Start())
		defer s.Stop()
		assert.Len(t, s.cron.Entries(), 1)
	})

	t.Run("invalid schedule", func(t *testing.T) {
		s := newTestScheduler(&fakeProcessor{}, Config{Schedule: "every five minutes"})
		assert.Error(t, s.Start())
	})
}

func TestScheduler_SweepPending(t *testing.T) {
	t.Run("passes config through", func(t *testing.T) {
		p := &fakeProcessor{}
		s := newTestScheduler(p, Config{Schedule: "@every 1h", PendingAge: 10 * time.Minute, BatchSize: 5})

		s.sweepPending()

		assert.Equal(t, 1, p.callCount())
		assert.Equal(t, 10*time.Minute, p.age)
		assert.Equal(t, 5, p.limit)
	})

	t.Run("defaults batch size", func(t *testing.T) {
		p := &fakeProcessor{}
		s := newTestScheduler(p, Config{})
		s.sweepPending()
		assert.Equal(t, 20, p.limit)
	})

	t.Run("errors do not panic", func(t *testing.T) {
		p := &fakeProcessor{err: errors.New("db down")}
		s := newTestScheduler(p, Config{})
		assert.NotPanics(t, s.sweepPending)
		assert.False(t, s.running.Load())
	})

	t.Run("overlapping runs are skipped", func(t *testing.T) {
		p := &fakeProcessor{block: make(chan struct{}), started: make(chan struct{}, 1)}
		s := newTestScheduler(p, Config{})

		done := make(chan struct{})
		go func() {
			s.sweepPending()
			close(done)
		}()
		<-p.started

		s.sweepPending()
		close(p.block)
		<-done

		assert.Equal(t, 1, p.callCount())
	})
}

func TestScheduler_Recover(t *testing.T) {
	p := &fakeProcessor{panics: "nil map write"}
	s := newTestScheduler(p, Config{})

	assert.NotPanics(t, s.sweep.Run)
	assert.Equal(t, 1, p.callCount())
	assert.False(t, s.running.Load())

	// the next sweep still runs
	p.panics = nil
	s.sweep.Run()
	assert.Equal(t, 2, p.callCount())
}

func TestScheduler_RunNow(t *testing.T) {
	p := &fakeProcessor{started: make(chan struct{}, 1)}
	s := newTestScheduler(p, Config{PendingAge: time.Minute})

	s.RunNow()

	select {
	case <-p.started:
	case <-time.After(time.Second):
		t.Fatal("sweep did not run")
	}
}

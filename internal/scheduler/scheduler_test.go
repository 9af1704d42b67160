package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingRunner struct {
	calls int32
	err   error
}

func (r *countingRunner) RunToday(ctx context.Context) error {
	atomic.AddInt32(&r.calls, 1)
	return r.err
}

func TestNextRun(t *testing.T) {
	loc := time.UTC
	s := New(&countingRunner{}, 6, 0, loc, 0, zap.NewNop())

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before fire time, same day",
			now:  time.Date(2026, 9, 1, 3, 0, 0, 0, loc),
			want: time.Date(2026, 9, 1, 6, 0, 0, 0, loc),
		},
		{
			name: "after fire time, next day",
			now:  time.Date(2026, 9, 1, 9, 30, 0, 0, loc),
			want: time.Date(2026, 9, 2, 6, 0, 0, 0, loc),
		},
		{
			name: "exactly at fire time, next day",
			now:  time.Date(2026, 9, 1, 6, 0, 0, 0, loc),
			want: time.Date(2026, 9, 2, 6, 0, 0, 0, loc),
		},
		{
			name: "month rollover",
			now:  time.Date(2026, 9, 30, 23, 0, 0, 0, loc),
			want: time.Date(2026, 10, 1, 6, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.nextRun(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("nextRun(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestNextRun_HonorsTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	s := New(&countingRunner{}, 6, 0, loc, 0, zap.NewNop())

	// 08:00 UTC is 05:00 in São Paulo (UTC-3): still before the 6am fire.
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	got := s.nextRun(now)
	want := time.Date(2026, 9, 1, 6, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("nextRun = %v, want %v", got, want)
	}
}

func TestStartupTrigger_Fires(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, 6, 0, time.UTC, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.startupTrigger(ctx)

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&runner.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("startup trigger never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartupTrigger_FailureIsSwallowed(t *testing.T) {
	runner := &countingRunner{err: errors.New("pipeline down")}
	s := New(runner, 6, 0, time.UTC, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Must not panic or escalate; the error stays in the log.
	s.startupTrigger(ctx)
	if atomic.LoadInt32(&runner.calls) != 1 {
		t.Errorf("runner calls = %d, want 1", runner.calls)
	}
}

func TestStartupTrigger_CancelledBeforeDelay(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, 6, 0, time.UTC, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.startupTrigger(ctx)

	if atomic.LoadInt32(&runner.calls) != 0 {
		t.Error("cancelled startup trigger must not fire")
	}
}

func TestDailyLoop_FiresWhenDue(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, 6, 0, time.UTC, 0, zap.NewNop())

	// Pin "now" to just before fire time so the first timer is short.
	base := time.Date(2026, 9, 1, 5, 59, 59, 950_000_000, time.UTC)
	start := time.Now()
	s.now = func() time.Time { return base.Add(time.Since(start)) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.dailyLoop(ctx)

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&runner.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("daily trigger never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

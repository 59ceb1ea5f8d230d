package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type flakyRefresher struct {
	mu    sync.Mutex
	errs  []error
	calls int
	bg    []bool
}

func (f *flakyRefresher) Refresh(_ context.Context, background bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.bg = append(f.bg, background)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func TestPoller_OfflineAfterRepeatedFailures(t *testing.T) {
	boom := errors.New("unreachable")
	target := &flakyRefresher{errs: []error{boom, boom}}
	changes := 0
	p := &Poller{target: target, interval: time.Second, logger: slog.Default(), onChange: func() { changes++ }}

	if got := p.poll(context.Background()); got != 2*time.Second {
		t.Fatalf("first failure delay = %v, want 2s", got)
	}
	if p.Offline() {
		t.Fatalf("Offline after one failure, want online")
	}
	if got := p.poll(context.Background()); got != 4*time.Second {
		t.Fatalf("second failure delay = %v, want 4s", got)
	}
	if !p.Offline() {
		t.Fatalf("Offline = false after two failures")
	}
	if got := p.poll(context.Background()); got != time.Second {
		t.Fatalf("success delay = %v, want 1s", got)
	}
	if p.Offline() || p.Failures() != 0 {
		t.Fatalf("Offline = %v, Failures = %d after success", p.Offline(), p.Failures())
	}
	if changes != 2 {
		t.Fatalf("onChange called %d times, want 2 (offline, online)", changes)
	}
	for i, bg := range target.bg {
		if !bg {
			t.Fatalf("refresh %d was not a background refresh", i)
		}
	}
}

func TestStartPoller_StopsWithContext(t *testing.T) {
	target := &flakyRefresher{}
	ctx, cancel := context.WithCancel(context.Background())
	StartPoller(ctx, target, 10*time.Millisecond, nil, nil)

	deadline := time.Now().Add(time.Second)
	for {
		target.mu.Lock()
		calls := target.calls
		target.mu.Unlock()
		if calls >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("poller made %d calls, want at least 2", calls)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
}

package app

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	defaultPollInterval = 15 * time.Second
	maxBackoff          = 30 * time.Second
	// offlineAfter is the number of consecutive failed refreshes after
	// which the dashboard is reported offline.
	offlineAfter = 2
)

// Refresher is the work a Poller repeats. The dashboard controller
// satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, background bool) error
}

// Poller refreshes the dashboard in the background, backing off while the
// server keeps failing.
type Poller struct {
	target   Refresher
	interval time.Duration
	logger   *slog.Logger
	failures atomic.Int32
	onChange func()
}

// StartPoller launches a background goroutine that refreshes target at a
// fixed cadence. The first refresh happens after one interval; callers load
// initial data themselves. It returns immediately.
func StartPoller(ctx context.Context, target Refresher, interval time.Duration, logger *slog.Logger, onChange func()) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{target: target, interval: interval, logger: logger, onChange: onChange}
	go p.run(ctx)
	return p
}

func (p *Poller) run(ctx context.Context) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		timer.Reset(p.poll(ctx))
	}
}

// poll refreshes once and returns the delay before the next attempt.
func (p *Poller) poll(ctx context.Context) time.Duration {
	wasOffline := p.Offline()
	err := p.target.Refresh(ctx, true)
	if err != nil {
		failures := int(p.failures.Add(1))
		next := calculateBackoff(failures, p.interval)
		p.logger.Warn("dashboard poll failed", "failures", failures, "retry_in", next, "error", err)
		p.notify(wasOffline)
		return next
	}
	p.failures.Store(0)
	p.notify(wasOffline)
	return p.interval
}

func (p *Poller) notify(wasOffline bool) {
	if p.onChange != nil && wasOffline != p.Offline() {
		p.onChange()
	}
}

// Failures returns the number of consecutive failed refreshes.
func (p *Poller) Failures() int {
	return int(p.failures.Load())
}

// Offline reports whether refreshes have failed repeatedly.
func (p *Poller) Offline() bool {
	return p.Failures() >= offlineAfter
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

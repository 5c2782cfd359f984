package core

// limiter.go bounds how many submissions are processed at once.
//
// Each submission holds a slot for the whole pipeline, including remote
// calls. When every slot is taken, callers wait up to maxWait and then get
// ErrTooManySubmissions.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/FormRelay/internal/metrics"
)

// ErrTooManySubmissions is returned when no slot frees up within the wait
// timeout. Clients should retry after a short delay.
var ErrTooManySubmissions = errors.New("too many submissions in progress, please try again later")

const (
	DefaultMaxConcurrentSubmissions = 8
	DefaultMaxWaitTime              = 10 * time.Second
)

// SubmissionLimiter is a counting semaphore with drain support.
type SubmissionLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewSubmissionLimiter allows at most maxConcurrent submissions at a time.
func NewSubmissionLimiter(maxConcurrent int, maxWait time.Duration) *SubmissionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSubmissions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &SubmissionLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

func (l *SubmissionLimiter) take() {
	metrics.SetSubmissionsInFlight(l.active.Add(1))
}

// Acquire waits for a slot. The caller must Release it.
func (l *SubmissionLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.take()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManySubmissions
	}
}

// TryAcquire takes a slot if one is free.
func (l *SubmissionLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.take()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *SubmissionLimiter) Release() {
	metrics.SetSubmissionsInFlight(l.active.Add(-1))
	<-l.slots
}

// Do runs fn while holding a slot.
func (l *SubmissionLimiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Active returns the number of held slots.
func (l *SubmissionLimiter) Active() int { return int(l.active.Load()) }

// WaitForDrain blocks until no slot is held or ctx ends.
func (l *SubmissionLimiter) WaitForDrain(ctx context.Context) error {
	if l.Active() == 0 {
		return nil
	}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.Active() == 0 {
				return nil
			}
		}
	}
}

// LimiterStatus is a point-in-time view of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports current usage.
func (l *SubmissionLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.Active(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

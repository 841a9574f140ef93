// Package network paces outbound gossip the way the teacher's network
// package paces outbound connection attempts: a token-bucket limiter,
// optionally wrapped in a backoff policy applied between retries.
package network

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

var errSendCancelled = errors.New("network: gossip send cancelled")

type backoffPolicy interface {
	backoff(attempt int)
}

type staticBackoffPolicy struct {
	backoffDuration time.Duration
}

func (p staticBackoffPolicy) getBackoffDuration() time.Duration {
	return p.backoffDuration
}

func (p staticBackoffPolicy) backoff(_ int) {
	time.Sleep(p.getBackoffDuration())
}

type incrementalBackoffPolicy struct {
	backoffDuration   time.Duration
	incrementDuration time.Duration
}

func (n incrementalBackoffPolicy) getBackoffDuration(attempt int) time.Duration {
	incrementDurationMillis := n.incrementDuration.Milliseconds()
	backoffDurationMillis := n.backoffDuration.Milliseconds()
	sleepMillis := backoffDurationMillis + (incrementDurationMillis * int64(attempt))
	return time.Duration(sleepMillis) * time.Millisecond
}

func (n incrementalBackoffPolicy) backoff(attempt int) {
	time.Sleep(n.getBackoffDuration(attempt))
}

type randomisedBackoffPolicy struct {
	minDuration time.Duration
	maxDuration time.Duration
}

func (r randomisedBackoffPolicy) getBackoffDuration() time.Duration {
	randMillis := rand.Float64() * float64(r.maxDuration-r.minDuration)
	return r.minDuration + time.Duration(randMillis)
}

func (r randomisedBackoffPolicy) backoff(_ int) {
	time.Sleep(r.getBackoffDuration())
}

// Throttler gates an event (here: one gossip send) until it is allowed
// to proceed, or ctx is cancelled first.
type Throttler interface {
	Acquire(ctx context.Context) error
}

type waitingThrottler struct {
	limiter *rate.Limiter
}

type backoffThrottler struct {
	limiter       *rate.Limiter
	backoffPolicy backoffPolicy
}

type noThrottler struct{}

func (w waitingThrottler) Acquire(ctx context.Context) error {
	return w.limiter.Wait(ctx)
}

func (t backoffThrottler) Acquire(ctx context.Context) error {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return errSendCancelled
		default:
		}
		if t.limiter.Allow() {
			break
		}
		t.backoffPolicy.backoff(attempt)
		attempt++
	}
	return nil
}

func (t noThrottler) Acquire(context.Context) error {
	return nil
}

// NewWaitingThrottler blocks in Acquire until the rate limit admits the
// next send, never dropping it (spec.md §4.9's gossip fanout: at most
// throttleLimit sends/sec, queued rather than shed).
func NewWaitingThrottler(throttleLimit int) Throttler {
	return waitingThrottler{
		limiter: rate.NewLimiter(rate.Limit(throttleLimit), throttleLimit),
	}
}

// NewNoThrottler admits every send immediately; used for loopback/test
// wiring where gossip fanout has no real transport behind it.
func NewNoThrottler() Throttler {
	return noThrottler{}
}

func NewStaticBackoffThrottler(throttleLimit int, backOffDuration time.Duration) Throttler {
	return backoffThrottler{
		limiter:       rate.NewLimiter(rate.Limit(throttleLimit), throttleLimit),
		backoffPolicy: staticBackoffPolicy{backoffDuration: backOffDuration},
	}
}

func NewIncrementalBackoffThrottler(throttleLimit int, backOffDuration, incrementDuration time.Duration) Throttler {
	return backoffThrottler{
		limiter: rate.NewLimiter(rate.Limit(throttleLimit), throttleLimit),
		backoffPolicy: incrementalBackoffPolicy{
			backoffDuration:   backOffDuration,
			incrementDuration: incrementDuration,
		},
	}
}

func NewRandomisedBackoffThrottler(throttleLimit int, minDuration, maxDuration time.Duration) Throttler {
	return backoffThrottler{
		limiter: rate.NewLimiter(rate.Limit(throttleLimit), throttleLimit),
		backoffPolicy: randomisedBackoffPolicy{
			minDuration: minDuration,
			maxDuration: maxDuration,
		},
	}
}
